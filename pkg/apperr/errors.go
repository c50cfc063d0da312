// Package apperr holds the error taxonomy shared by every service.
// Callers wrap these sentinels with fmt.Errorf("...: %w") and the GraphQL
// layer maps them to an extensions code with Code.
package apperr

import "errors"

var (
	// ErrNotFound is returned when a direct id lookup finds nothing.
	ErrNotFound = errors.New("not found")

	// ErrResolution means a required sibling lookup failed and the operation
	// cannot proceed.
	ErrResolution = errors.New("resolution failed")

	// ErrEnrichmentUnavailable marks an optional sibling lookup that failed.
	// It is logged at the call site and never returned to a client.
	ErrEnrichmentUnavailable = errors.New("enrichment unavailable")

	ErrAmountMismatch    = errors.New("payment amount does not match order total")
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrWebhookDelivery is logged only; the update that caused it still succeeds.
	ErrWebhookDelivery = errors.New("webhook delivery failed")

	ErrInvalidInput = errors.New("invalid input")
)

// Code returns the machine readable code for err, or "" when err is not part
// of the taxonomy.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrResolution):
		return "RESOLUTION_ERROR"
	case errors.Is(err, ErrEnrichmentUnavailable):
		return "ENRICHMENT_UNAVAILABLE"
	case errors.Is(err, ErrAmountMismatch):
		return "AMOUNT_MISMATCH"
	case errors.Is(err, ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	case errors.Is(err, ErrWebhookDelivery):
		return "WEBHOOK_DELIVERY_FAILED"
	case errors.Is(err, ErrInvalidInput):
		return "BAD_USER_INPUT"
	}
	return ""
}

// FromCode is the inverse of Code, used to rebuild a sentinel from a remote
// GraphQL error. Unknown codes return nil.
func FromCode(code string) error {
	switch code {
	case "NOT_FOUND":
		return ErrNotFound
	case "RESOLUTION_ERROR":
		return ErrResolution
	case "ENRICHMENT_UNAVAILABLE":
		return ErrEnrichmentUnavailable
	case "AMOUNT_MISMATCH":
		return ErrAmountMismatch
	case "INSUFFICIENT_STOCK":
		return ErrInsufficientStock
	case "WEBHOOK_DELIVERY_FAILED":
		return ErrWebhookDelivery
	case "BAD_USER_INPUT":
		return ErrInvalidInput
	}
	return nil
}

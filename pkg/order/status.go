package order

import (
	"fmt"

	"github.com/example/shipmesh/pkg/apperr"
)

// Order lifecycle states, as stored in orders.status.
const (
	StatusPlaced            = "order_placed"
	StatusPaid              = "paid"
	StatusShipmentRequested = "shipment_requested"
	StatusShipmentConfirmed = "shipment_confirmed"
	StatusInTransit         = "in_transit"
	StatusCompleted         = "completed"
)

var statuses = map[string]bool{
	StatusPlaced:            true,
	StatusPaid:              true,
	StatusShipmentRequested: true,
	StatusShipmentConfirmed: true,
	StatusInTransit:         true,
	StatusCompleted:         true,
}

// Transition causes recorded in order_transitions.cause.
const (
	CauseCreated          = "order_created"
	CausePayment          = "payment"
	CauseShipmentRequest  = "shipment_request"
	CauseShipmentCreated  = "shipment_created"
	CauseWebhook          = "shipment_webhook"
	CauseShipmentStatus   = "shipment_status_update"
	CauseShipmentReadback = "shipment_status_readback"
	CauseManual           = "manual"
)

// ForShipmentStatus maps a ShipXpress shipment status onto the order state.
// Only the exact strings "Delivered" and "Selesai" complete an order.
func ForShipmentStatus(shipmentStatus string) string {
	switch shipmentStatus {
	case "Delivered", "Selesai":
		return StatusCompleted
	default:
		return StatusInTransit
	}
}

func validStatus(s string) error {
	if !statuses[s] {
		return fmt.Errorf("%w: unknown order status %q", apperr.ErrInvalidInput, s)
	}
	return nil
}

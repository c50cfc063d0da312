package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/example/shipmesh/pkg/metrics"
)

// Caller is the part of Client that services depend on.
type Caller interface {
	Do(ctx context.Context, query string, vars map[string]any, out any) error
}

// Client posts GraphQL operations to one sibling endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: endpoint, http: httpClient}
}

func (c *Client) Endpoint() string { return c.endpoint }

type RawResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []*Error        `json:"errors,omitempty"`
}

// RemoteError carries the errors array of a sibling response.
type RemoteError struct {
	Endpoint string
	Errors   []*Error
}

func (e *RemoteError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Message)
	}
	return fmt.Sprintf("%s: %s", e.Endpoint, strings.Join(msgs, "; "))
}

// Unwrap exposes the first recognised extensions code as its sentinel so
// errors.Is works across service boundaries.
func (e *RemoteError) Unwrap() error {
	for _, err := range e.Errors {
		code, _ := err.Extensions["code"].(string)
		if sentinel := apperr.FromCode(code); sentinel != nil {
			return sentinel
		}
	}
	return nil
}

// Post sends req and returns the decoded envelope. Transport failures and
// non-2xx statuses with no GraphQL body are errors; GraphQL errors are left
// in the envelope for the caller.
func (c *Client) Post(ctx context.Context, req Request) (*RawResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", c.endpoint, err)
	}

	var out RawResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%s returned status %s", c.endpoint, resp.Status)
		}
		return nil, fmt.Errorf("failed to decode response from %s: %w", c.endpoint, err)
	}
	if resp.StatusCode >= 300 && len(out.Errors) == 0 {
		return nil, fmt.Errorf("%s returned status %s", c.endpoint, resp.Status)
	}
	return &out, nil
}

// Do runs query and decodes data into out. Any GraphQL error fails the call.
func (c *Client) Do(ctx context.Context, query string, vars map[string]any, out any) error {
	op := OperationName(query)
	resp, err := c.Post(ctx, Request{Query: query, OperationName: op, Variables: vars})
	if err == nil && len(resp.Errors) > 0 {
		err = &RemoteError{Endpoint: c.endpoint, Errors: resp.Errors}
	}
	if err == nil && out != nil {
		if len(resp.Data) == 0 || string(resp.Data) == "null" {
			err = fmt.Errorf("%s returned no data", c.endpoint)
		} else if uerr := json.Unmarshal(resp.Data, out); uerr != nil {
			err = fmt.Errorf("failed to decode data from %s: %w", c.endpoint, uerr)
		}
	}
	metrics.SiblingCallsTotal.WithLabelValues(op, metrics.Outcome(err)).Inc()
	return err
}

var operationNamePattern = regexp.MustCompile(`^\s*(?:query|mutation)\s+([_A-Za-z][_0-9A-Za-z]*)`)

// OperationName extracts the name of the first named operation in query.
func OperationName(query string) string {
	if m := operationNamePattern.FindStringSubmatch(query); m != nil {
		return m[1]
	}
	return ""
}

// IsRemote reports whether err came back as a GraphQL errors array rather
// than a transport failure.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"

	"github.com/s0up4200/grafcli/notify"
)

// Common errors
var (
	// ErrInvalidConfig indicates invalid client configuration
	ErrInvalidConfig = errors.New("invalid backend configuration")
	// ErrEmptyBody indicates a payload was expected but none was returned
	ErrEmptyBody = errors.New("empty response body")
)

// APIError is a non-2xx response from the transport
type APIError struct {
	StatusCode int
	Method     string
	URL        string
	Body       []byte
	// Handled means the caller already surfaced this error and no default
	// notification should be shown
	Handled bool
}

// Error implements the error interface
func (e *APIError) Error() string {
	if msg := payloadMessage(e.Body); msg != "" {
		return fmt.Sprintf("backend API error: %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, msg)
	}
	return fmt.Sprintf("backend API error: %s %s: status %d", e.Method, e.URL, e.StatusCode)
}

// IsUnauthorized checks if the error indicates an expired or missing session
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsValidation checks if the server rejected the payload
func (e *APIError) IsValidation() bool {
	return e.StatusCode == http.StatusUnprocessableEntity
}

// IsServerError checks for a 5xx status
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// MarkHandled flags err as already surfaced to the user. It reports whether
// err carried an APIError.
func MarkHandled(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	apiErr.Handled = true
	return true
}

// StatusCode returns the HTTP status carried by err, or 0 when the failure
// never produced a response.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func isUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsUnauthorized()
}

// ValidationError is returned for 422 responses. Payload is the server's
// body exactly as received.
type ValidationError struct {
	Payload json.RawMessage
	Err     error
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return "validation failed"
}

// Unwrap returns the transport error
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ClassifiedError is a terminal failure normalised for display
type ClassifiedError struct {
	Message    string
	Severity   notify.Severity
	StatusCode int
	// Data is the normalised payload, always an object
	Data map[string]any
	// Raw is the payload as received
	Raw json.RawMessage
	Err error
}

// Error implements the error interface
func (e *ClassifiedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// Unwrap returns the original error
func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// MarshalJSON renders the normalised payload with its severity
func (e *ClassifiedError) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Data)+1)
	maps.Copy(out, e.Data)
	out["severity"] = e.Severity
	return json.Marshal(out)
}

package syncclient

import (
	"fmt"

	"github.com/phrazzld/scry-capture/internal/credential"
)

// ErrNoCredential is returned by Drain when no bearer token can be resolved.
// The queue is not touched.
var ErrNoCredential = credential.ErrNoCredential

// TransportError wraps a failure to get any HTTP response: connection errors,
// timeouts and cancellation.
type TransportError struct {
	Outbox   string
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("delivering %s to %s: transport failed: %v", e.Outbox, e.Endpoint, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerError reports a non-2xx response other than 401/403.
type ServerError struct {
	Outbox     string
	Endpoint   string
	StatusCode int

	// Body is the beginning of the response body, for diagnostics.
	Body string
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("delivering %s to %s: server responded %d", e.Outbox, e.Endpoint, e.StatusCode)
}

// AuthError reports a rejected (401/403) or unresolvable credential.
type AuthError struct {
	Outbox string

	// StatusCode is zero when the credential could not be resolved.
	StatusCode int

	Err error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("delivering %s: credential unavailable: %v", e.Outbox, e.Err)
	}
	return fmt.Sprintf("delivering %s: credential rejected with status %d", e.Outbox, e.StatusCode)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *AuthError) Unwrap() error {
	return e.Err
}

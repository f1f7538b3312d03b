package capture

import "errors"

// Common errors returned by the capture package.
var (
	// ErrRetryable is returned when a user-visible operation failed in a way
	// the user may retry, for example an unreachable analysis service.
	ErrRetryable = errors.New("temporarily unavailable, please retry")

	// ErrInvalidInput is returned when a caller-supplied value is rejected
	// before any event is created.
	ErrInvalidInput = errors.New("invalid input")
)

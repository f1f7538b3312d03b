package analysis

import "errors"

// Common errors returned by Analyzer and Grader implementations.
var (
	// ErrAnalysisFailed is returned when the service rejected the request.
	ErrAnalysisFailed = errors.New("analysis request failed")

	// ErrUnauthorized accompanies ErrAnalysisFailed when no credential could
	// be resolved or the service rejected it with 401 or 403.
	ErrUnauthorized = errors.New("analysis service credential rejected")

	// ErrInvalidResponse is returned when the response cannot be decoded or
	// violates the response contract.
	ErrInvalidResponse = errors.New("invalid response from analysis service")

	// ErrTransientFailure is returned for failures that might resolve on retry:
	// timeouts, connection errors, 429 and 5xx responses.
	ErrTransientFailure = errors.New("transient error calling analysis service")

	// ErrInvalidConfig is returned when the client configuration is invalid.
	ErrInvalidConfig = errors.New("invalid analysis client configuration")
)

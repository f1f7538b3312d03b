package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-capture/internal/capture"
	"github.com/phrazzld/scry-capture/internal/coordinator"
	"github.com/phrazzld/scry-capture/internal/events"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, capture.ErrInvalidInput),
		errors.Is(err, events.ErrEncoding):
		return http.StatusBadRequest

	case errors.Is(err, capture.ErrRetryable),
		errors.Is(err, coordinator.ErrClosed):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, capture.ErrInvalidInput),
		errors.Is(err, events.ErrEncoding):
		return "Invalid request"
	case errors.Is(err, capture.ErrRetryable):
		return "Service temporarily unavailable, please retry"
	case errors.Is(err, coordinator.ErrClosed):
		return "Delivery is shutting down"
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns the first validator failure into a short
// message naming the field, or a generic message for anything else.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "url":
		return "invalid URL"
	case "gt", "gte", "lt", "lte", "ltefield":
		return "out of range"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

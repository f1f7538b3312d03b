package shared

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is the key type for values stored by this package.
type ContextKey string

const (
	// TraceIDKey is the key for the trace ID in the request context.
	TraceIDKey ContextKey = "traceID"

	// TraceIDHeader carries a caller-supplied trace ID and echoes it back.
	TraceIDHeader = "X-Trace-ID"

	// MaxTraceIDLength bounds caller-supplied trace IDs.
	MaxTraceIDLength = 128
)

// SetTraceID stores traceID in ctx, generating one when traceID is empty or
// longer than MaxTraceIDLength.
func SetTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" || len(traceID) > MaxTraceIDLength {
		traceID = uuid.NewString()
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
// If no trace ID exists, it returns an empty string.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

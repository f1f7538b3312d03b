package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Kind names an event kind. Each kind maps to exactly one outbox.
type Kind string

// Supported event kinds.
const (
	KindTelemetry      Kind = "telemetry"
	KindRecall         Kind = "recall"
	KindFeedback       Kind = "feedback"
	KindPendingCapture Kind = "pending_capture"
)

// Kinds returns every supported kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindTelemetry, KindRecall, KindFeedback, KindPendingCapture}
}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	switch k {
	case KindTelemetry, KindRecall, KindFeedback, KindPendingCapture:
		return true
	}
	return false
}

// ErrEncoding is returned when a payload fails validation or serialization.
var ErrEncoding = errors.New("event encoding failed")

// ErrUnknownKind is returned for kinds outside Kinds().
var ErrUnknownKind = errors.New("unknown event kind")

var validate = validator.New()

// Event is a serialized payload ready to be enqueued.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	Kind Kind `json:"kind"`

	// Payload is the request body delivered to the remote service
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// New validates payload against its struct tags and serializes it.
// Failures wrap ErrEncoding.
func New(kind Kind, payload interface{}) (*Event, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %w: %q", ErrEncoding, ErrUnknownKind, kind)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrEncoding)
	}

	if err := validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("%w: %s payload invalid: %w", ErrEncoding, kind, err)
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	return &Event{
		ID:        uuid.New(),
		Kind:      kind,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter defines an interface for components that can emit events.
// This lets the capture pipeline publish events without knowing the outboxes.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *Event) error
}

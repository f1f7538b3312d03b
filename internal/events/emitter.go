package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNoHandler is returned when an event's kind has no registered handler.
// The event is lost; callers report it rather than log and continue.
var ErrNoHandler = errors.New("no handler registered for event kind")

// Router dispatches events synchronously to the handlers registered for
// their kind.
type Router struct {
	mu     sync.RWMutex
	routes map[Kind][]EventHandler
	logger *slog.Logger
}

// Ensure Router can be passed wherever an EventEmitter is expected.
var _ EventEmitter = (*Router)(nil)

// NewRouter creates a Router with no routes.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		routes: make(map[Kind][]EventHandler),
		logger: logger.With("component", "event_router"),
	}
}

// RegisterHandler routes the given kinds to handler. With no kinds, the
// handler receives every supported kind.
func (r *Router) RegisterHandler(handler EventHandler, kinds ...Kind) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}
	if len(kinds) == 0 {
		kinds = Kinds()
	}
	for _, kind := range kinds {
		if !kind.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, kind := range kinds {
		r.routes[kind] = append(r.routes[kind], handler)
	}
	r.logger.Debug("registered event handler", "kinds", kinds)
	return nil
}

// EmitEvent hands event to every handler routed for its kind. Every handler
// runs even when an earlier one fails; the failures are joined.
func (r *Router) EmitEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return fmt.Errorf("%w: nil event", ErrEncoding)
	}

	r.mu.RLock()
	handlers := append([]EventHandler(nil), r.routes[event.Kind]...)
	r.mu.RUnlock()

	if len(handlers) == 0 {
		return fmt.Errorf("%w: %s", ErrNoHandler, event.Kind)
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		r.logger.WarnContext(ctx, "event handling failed",
			"event_id", event.ID,
			"event_kind", event.Kind,
			"failed_handlers", len(errs),
			"error", err)
		return err
	}
	return nil
}

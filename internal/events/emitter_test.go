package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecallEvent(t *testing.T) *Event {
	t.Helper()
	event, err := New(KindRecall, RecallSubmission{TraceID: "t", ContentID: "c", Correct: 1, Total: 2})
	require.NoError(t, err)
	return event
}

func TestRouter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("unrouted kind is an error", func(t *testing.T) {
		router := NewRouter(logger)
		require.NoError(t, router.RegisterHandler(&MockEventHandler{}, KindTelemetry))

		err := router.EmitEvent(context.Background(), newRecallEvent(t))

		assert.ErrorIs(t, err, ErrNoHandler)
	})

	t.Run("nil event", func(t *testing.T) {
		router := NewRouter(logger)
		require.NoError(t, router.RegisterHandler(&MockEventHandler{}))

		assert.ErrorIs(t, router.EmitEvent(context.Background(), nil), ErrEncoding)
	})

	t.Run("no kinds routes every kind", func(t *testing.T) {
		router := NewRouter(logger)
		all := &MockEventHandler{}
		telemetryOnly := &MockEventHandler{}
		require.NoError(t, router.RegisterHandler(all))
		require.NoError(t, router.RegisterHandler(telemetryOnly, KindTelemetry))

		event := newRecallEvent(t)
		require.NoError(t, router.EmitEvent(context.Background(), event))

		assert.Equal(t, 1, all.HandledCount)
		assert.Equal(t, event, all.LastEvent)
		assert.Equal(t, 0, telemetryOnly.HandledCount)
	})

	t.Run("failing handler does not stop the others", func(t *testing.T) {
		router := NewRouter(logger)
		first := &MockEventHandler{HandlerError: errors.New("disk full")}
		second := &MockEventHandler{HandlerError: errors.New("quota")}
		third := &MockEventHandler{}
		for _, h := range []*MockEventHandler{first, second, third} {
			require.NoError(t, router.RegisterHandler(h, KindRecall))
		}

		err := router.EmitEvent(context.Background(), newRecallEvent(t))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.Contains(t, err.Error(), "quota")
		assert.Equal(t, 1, first.HandledCount)
		assert.Equal(t, 1, second.HandledCount)
		assert.Equal(t, 1, third.HandledCount)
	})

	t.Run("rejects bad registrations", func(t *testing.T) {
		router := NewRouter(logger)

		assert.Error(t, router.RegisterHandler(nil))
		assert.ErrorIs(t, router.RegisterHandler(&MockEventHandler{}, Kind("email")), ErrUnknownKind)
	})
}

package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/scry-capture/internal/api/shared"
	"github.com/phrazzld/scry-capture/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceMiddleware(t *testing.T) {
	var logs bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
	})
	h := NewTraceMiddleware(base)(next)

	t.Run("generates an id", func(t *testing.T) {
		logs.Reset()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/outboxes", nil))

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(shared.TraceIDHeader))
		assert.Contains(t, logs.String(), `"trace_id":"`+seen+`"`)
		assert.Contains(t, logs.String(), "inside handler")
	})

	t.Run("reuses the caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/outboxes", nil)
		req.Header.Set(shared.TraceIDHeader, "upstream-42")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, "upstream-42", seen)
		assert.Equal(t, "upstream-42", rec.Header().Get(shared.TraceIDHeader))
	})
}

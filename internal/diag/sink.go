// Package diag routes errors that the delivery path deliberately swallows to an
// explicit sink, so they stay observable in logs and in tests without ever
// reaching the user.
package diag

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/phrazzld/scry-capture/internal/redact"
)

// Diagnostic describes one swallowed failure.
type Diagnostic struct {
	// Component names the reporting subsystem (e.g. "outbox", "syncclient").
	Component string

	// Operation names what was being attempted (e.g. "persist", "deliver").
	Operation string

	Err error

	// Attrs are extra slog key/value pairs.
	Attrs []any
}

// Sink receives diagnostics. Implementations must be safe for concurrent use
// and must never block for long.
type Sink interface {
	Report(ctx context.Context, d Diagnostic)
}

// LogSink writes diagnostics to a structured logger with redacted errors.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger falls back to slog.Default.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "diagnostics")}
}

// Report implements Sink.
func (s *LogSink) Report(ctx context.Context, d Diagnostic) {
	args := make([]any, 0, len(d.Attrs)+6)
	args = append(args,
		"source", d.Component,
		"operation", d.Operation,
		"error", redact.Error(d.Err))
	args = append(args, d.Attrs...)

	level := slog.LevelWarn
	if errors.Is(d.Err, context.Canceled) {
		level = slog.LevelDebug
	}
	s.logger.Log(ctx, level, "swallowed failure", args...)
}

// Recorder keeps every diagnostic in memory. It is intended for tests.
type Recorder struct {
	mu          sync.Mutex
	diagnostics []Diagnostic
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Report implements Sink.
func (r *Recorder) Report(_ context.Context, d Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diagnostics = append(r.diagnostics, d)
}

// Diagnostics returns a copy of everything reported so far.
func (r *Recorder) Diagnostics() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Diagnostic, len(r.diagnostics))
	copy(out, r.diagnostics)
	return out
}

// Has reports whether any recorded diagnostic wraps target.
func (r *Recorder) Has(target error) bool {
	for _, d := range r.Diagnostics() {
		if errors.Is(d.Err, target) {
			return true
		}
	}
	return false
}

// Discard drops every diagnostic.
type Discard struct{}

// Report implements Sink.
func (Discard) Report(context.Context, Diagnostic) {}

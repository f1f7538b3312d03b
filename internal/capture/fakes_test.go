package capture

import (
	"context"
	"sync"

	"github.com/phrazzld/scry-capture/internal/analysis"
	"github.com/phrazzld/scry-capture/internal/events"
)

// fakeAnalyzer is an analysis.Analyzer and analysis.Grader backed by functions.
type fakeAnalyzer struct {
	AnalyzeFn func(ctx context.Context, req analysis.AnalyzeRequest) (*analysis.AnalyzeResponse, error)
	GradeFn   func(ctx context.Context, req analysis.GradeRequest) (*analysis.GradeResponse, error)

	mu       sync.Mutex
	requests []analysis.AnalyzeRequest
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req analysis.AnalyzeRequest) (*analysis.AnalyzeResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.AnalyzeFn(ctx, req)
}

func (f *fakeAnalyzer) Grade(ctx context.Context, req analysis.GradeRequest) (*analysis.GradeResponse, error) {
	return f.GradeFn(ctx, req)
}

func (f *fakeAnalyzer) lastRequest() analysis.AnalyzeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// recordingEmitter keeps every emitted event.
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.Event
	err    error
}

func (e *recordingEmitter) EmitEvent(_ context.Context, event *events.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return e.err
}

func (e *recordingEmitter) ofKind(kind events.Kind) []*events.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*events.Event
	for _, ev := range e.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// fakeContentStore is a ContentStore backed by functions.
type fakeContentStore struct {
	RecentItemsFn func(ctx context.Context, limit int) ([]ContentItem, error)
	SaveCaptureFn func(ctx context.Context, c Capture) (string, error)
}

func (f *fakeContentStore) RecentItems(ctx context.Context, limit int) ([]ContentItem, error) {
	if f.RecentItemsFn == nil {
		return nil, nil
	}
	return f.RecentItemsFn(ctx, limit)
}

func (f *fakeContentStore) SaveCapture(ctx context.Context, c Capture) (string, error) {
	if f.SaveCaptureFn == nil {
		return "content-1", nil
	}
	return f.SaveCaptureFn(ctx, c)
}

// fakeNotifier records scheduled notifications.
type fakeNotifier struct {
	reminders []Reminder
	notices   []PrepNotice
	err       error
}

func (n *fakeNotifier) ScheduleRecallReminder(_ context.Context, r Reminder) error {
	n.reminders = append(n.reminders, r)
	return n.err
}

func (n *fakeNotifier) SchedulePrepReady(_ context.Context, p PrepNotice) error {
	n.notices = append(n.notices, p)
	return n.err
}

// fakeCalendar returns a fixed event.
type fakeCalendar struct {
	event *TargetEvent
	err   error
}

func (c fakeCalendar) UpcomingTargetEvent(context.Context) (*TargetEvent, error) {
	return c.event, c.err
}

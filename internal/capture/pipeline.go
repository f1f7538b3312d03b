package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-capture/internal/analysis"
	"github.com/phrazzld/scry-capture/internal/diag"
	"github.com/phrazzld/scry-capture/internal/events"
	"github.com/phrazzld/scry-capture/internal/outbox"
)

// Result summarizes one analyzed capture.
type Result struct {
	TraceID      string
	ContentID    string
	Decision     analysis.Decision
	Confidence   Confidence
	IgnoreReason IgnoreReason
	Concepts     []string
	Questions    []analysis.Question
	Retrieval    json.RawMessage

	// ReminderAt is set when a recall reminder was scheduled.
	ReminderAt *time.Time
}

// Pipeline analyzes shared content and records the outcome.
type Pipeline struct {
	analyzer analysis.Analyzer
	emitter  events.EventEmitter
	content  ContentStore
	notifier Notifier
	calendar Calendar
	profile  Profile
	sink     diag.Sink
	logger   *slog.Logger
	now      func() time.Time
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithNotifier sets the reminder notifier.
func WithNotifier(n Notifier) PipelineOption {
	return func(p *Pipeline) { p.notifier = n }
}

// WithCalendar sets the target event calendar.
func WithCalendar(c Calendar) PipelineOption {
	return func(p *Pipeline) { p.calendar = c }
}

// WithSink sets where swallowed failures are reported.
func WithSink(s diag.Sink) PipelineOption {
	return func(p *Pipeline) {
		if s != nil {
			p.sink = s
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPipeline creates a Pipeline. Notifier and calendar are optional.
func NewPipeline(
	logger *slog.Logger,
	analyzer analysis.Analyzer,
	emitter events.EventEmitter,
	content ContentStore,
	profile Profile,
	opts ...PipelineOption,
) (*Pipeline, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if analyzer == nil {
		return nil, errors.New("analyzer cannot be nil")
	}
	if emitter == nil {
		return nil, errors.New("event emitter cannot be nil")
	}
	if content == nil {
		return nil, errors.New("content store cannot be nil")
	}
	if profile.UserID == "" {
		return nil, errors.New("profile user id cannot be empty")
	}

	p := &Pipeline{
		analyzer: analyzer,
		emitter:  emitter,
		content:  content,
		profile:  profile,
		sink:     diag.Discard{},
		logger:   logger.With("component", "capture_pipeline"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Share records url as a pending capture. Invalid URLs are rejected with
// ErrInvalidInput; everything after validation is swallowed.
func (p *Pipeline) Share(ctx context.Context, url string) error {
	event, err := events.New(events.KindPendingCapture, events.PendingCapture{
		URL:      url,
		SharedAt: p.now().UTC(),
	})
	if err != nil {
		p.report(ctx, "share", err)
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	p.emit(ctx, "share", event)
	return nil
}

// Capture analyzes url against the configured profile. Only an analysis
// failure is returned, wrapped in ErrRetryable.
func (p *Pipeline) Capture(ctx context.Context, url string) (*Result, error) {
	log := p.logger.With("policy", p.profile.Policy, "learning_mode", p.profile.Mode)

	req := p.buildRequest(ctx, url)
	resp, err := p.analyzer.Analyze(ctx, req)
	if err != nil {
		log.WarnContext(ctx, "analysis failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrRetryable, err)
	}

	result := &Result{
		TraceID:    resp.TraceID,
		Decision:   resp.Decision,
		Concepts:   resp.Concepts,
		Questions:  resp.Questions,
		Retrieval:  resp.Retrieval,
		Confidence: DecisionConfidence(resp.RelevanceScore, resp.LearningValueScore, len(resp.Concepts), p.profile.Policy),
	}
	if reason, ok := DeriveIgnoreReason(resp.Decision, resp.RelevanceScore, resp.LearningValueScore); ok {
		result.IgnoreReason = reason
	}

	result.ContentID = p.save(ctx, url, resp)
	p.emitTelemetry(ctx, resp, result)

	if resp.Decision == analysis.DecisionTriggered && len(resp.Questions) > 0 {
		p.scheduleFollowUps(ctx, result)
	}

	log.InfoContext(ctx, "capture analyzed",
		"trace_id", result.TraceID,
		"decision", result.Decision,
		"confidence", result.Confidence,
		"ignore_reason", result.IgnoreReason)
	return result, nil
}

// DeliverPending analyzes one queued pending capture. It has the signature
// of syncclient.DeliverFunc so the pending queue drains with the same
// head-of-line semantics as the HTTP queues. Undecodable entries and URLs the
// service permanently rejects are reported and acknowledged so they cannot
// block the queue; transient and credential failures halt it.
func (p *Pipeline) DeliverPending(ctx context.Context, entry outbox.Entry) error {
	var pending events.PendingCapture
	if err := (&events.Event{Payload: entry.Payload}).UnmarshalPayload(&pending); err != nil || pending.URL == "" {
		if err == nil {
			err = errors.New("pending capture has no url")
		}
		p.report(ctx, "deliver_pending", fmt.Errorf("%w: %w", events.ErrEncoding, err))
		return nil
	}

	_, err := p.Capture(ctx, pending.URL)
	if err != nil && isPermanent(err) {
		p.report(ctx, "deliver_pending", err)
		return nil
	}
	return err
}

// isPermanent reports whether retrying the same request cannot succeed.
func isPermanent(err error) bool {
	switch {
	case errors.Is(err, analysis.ErrInvalidResponse):
		return true
	case errors.Is(err, analysis.ErrAnalysisFailed):
		return !errors.Is(err, analysis.ErrUnauthorized)
	default:
		return false
	}
}

func (p *Pipeline) buildRequest(ctx context.Context, url string) analysis.AnalyzeRequest {
	req := analysis.AnalyzeRequest{
		URL:                url,
		UserIDHash:         HashUserID(p.profile.UserID),
		GoalID:             p.profile.GoalID,
		GoalDescription:    p.profile.GoalDescription,
		CareerStage:        p.profile.CareerStage,
		InterventionPolicy: string(p.profile.Policy),
		LearningMode:       string(p.profile.Mode),
		KnownConcepts:      nonNil(p.profile.KnownConcepts),
		WeakConcepts:       nonNil(p.profile.WeakConcepts),
	}

	recent, err := p.content.RecentItems(ctx, DigestMaxItems)
	if err != nil {
		p.report(ctx, "library_digest", err)
		return req
	}
	if digest := BuildDigest(recent); len(digest) > 0 {
		req.LibraryDigest = digest
	}
	return req
}

func (p *Pipeline) save(ctx context.Context, url string, resp *analysis.AnalyzeResponse) string {
	id, err := p.content.SaveCapture(ctx, Capture{
		URL:       url,
		TraceID:   resp.TraceID,
		Concepts:  resp.Concepts,
		Decision:  string(resp.Decision),
		CreatedAt: p.now().UTC(),
	})
	if err != nil {
		p.report(ctx, "save_content", err)
		return resp.TraceID
	}
	return id
}

func (p *Pipeline) emitTelemetry(ctx context.Context, resp *analysis.AnalyzeResponse, result *Result) {
	event, err := events.New(events.KindTelemetry, events.Telemetry{
		TraceID:            resp.TraceID,
		Decision:           string(resp.Decision),
		RelevanceScore:     resp.RelevanceScore,
		LearningValueScore: resp.LearningValueScore,
		ConceptCount:       len(resp.Concepts),
		InterventionPolicy: string(p.profile.Policy),
		DecisionConfidence: string(result.Confidence),
		IgnoreReason:       string(result.IgnoreReason),
		LearningMode:       string(p.profile.Mode),
		GoalID:             p.profile.GoalID,
		OccurredAt:         p.now().UTC(),
	})
	if err != nil {
		p.report(ctx, "telemetry", err)
		return
	}
	p.emit(ctx, "telemetry", event)
}

func (p *Pipeline) scheduleFollowUps(ctx context.Context, result *Result) {
	if p.notifier == nil {
		return
	}

	fireAt := p.now().Add(p.profile.Mode.ReminderDelay())
	err := p.notifier.ScheduleRecallReminder(ctx, Reminder{
		ContentID:     result.ContentID,
		TraceID:       result.TraceID,
		FireAt:        fireAt,
		QuestionCount: len(result.Questions),
	})
	if err != nil {
		p.report(ctx, "recall_reminder", err)
	} else {
		result.ReminderAt = &fireAt
	}

	if p.calendar == nil {
		return
	}
	upcoming, err := p.calendar.UpcomingTargetEvent(ctx)
	if err != nil {
		p.report(ctx, "calendar", err)
		return
	}
	if upcoming == nil {
		return
	}
	err = p.notifier.SchedulePrepReady(ctx, PrepNotice{
		ContentID: result.ContentID,
		EventName: upcoming.Name,
		EventAt:   upcoming.At,
	})
	if err != nil {
		p.report(ctx, "prep_ready", err)
	}
}

func (p *Pipeline) emit(ctx context.Context, operation string, event *events.Event) {
	if err := p.emitter.EmitEvent(ctx, event); err != nil {
		p.report(ctx, operation, err)
	}
}

func (p *Pipeline) report(ctx context.Context, operation string, err error) {
	p.sink.Report(ctx, diag.Diagnostic{
		Component: "capture",
		Operation: operation,
		Err:       err,
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

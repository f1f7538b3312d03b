package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-capture/internal/analysis"
	"github.com/phrazzld/scry-capture/internal/diag"
	"github.com/phrazzld/scry-capture/internal/events"
)

// FeedbackInput is a user's verdict on a capture.
type FeedbackInput struct {
	TraceID    string
	ContentID  string
	Useful     bool
	ReasonTags []string

	// RecallCorrect and RecallTotal are optional and must be set together.
	RecallCorrect *int
	RecallTotal   *int
}

// RecallService handles recall answers, scores and feedback.
type RecallService struct {
	grader  analysis.Grader
	emitter events.EventEmitter
	sink    diag.Sink
	logger  *slog.Logger
}

// NewRecallService creates a RecallService. A nil sink discards reports.
func NewRecallService(logger *slog.Logger, grader analysis.Grader, emitter events.EventEmitter, sink diag.Sink) (*RecallService, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if grader == nil {
		return nil, errors.New("grader cannot be nil")
	}
	if emitter == nil {
		return nil, errors.New("event emitter cannot be nil")
	}
	if sink == nil {
		sink = diag.Discard{}
	}
	return &RecallService{
		grader:  grader,
		emitter: emitter,
		sink:    sink,
		logger:  logger.With("component", "recall_service"),
	}, nil
}

// GradeAnswer grades an open-ended answer synchronously. The user is waiting
// on it, so failures surface as ErrRetryable.
func (s *RecallService) GradeAnswer(ctx context.Context, req analysis.GradeRequest) (*analysis.GradeResponse, error) {
	if req.Question == "" || req.Answer == "" {
		return nil, fmt.Errorf("%w: question and answer are required", ErrInvalidInput)
	}

	resp, err := s.grader.Grade(ctx, req)
	if err != nil {
		s.logger.WarnContext(ctx, "grading failed", "trace_id", req.TraceID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrRetryable, err)
	}
	return resp, nil
}

// SubmitRecall queues a recall score. It rejects scores outside
// 0 <= correct <= total with total > 0; delivery failures are swallowed.
func (s *RecallService) SubmitRecall(ctx context.Context, traceID, contentID string, correct, total int) error {
	if total <= 0 || correct < 0 || correct > total {
		return fmt.Errorf("%w: recall score %d/%d", ErrInvalidInput, correct, total)
	}

	event, err := events.New(events.KindRecall, events.RecallSubmission{
		TraceID:   traceID,
		ContentID: contentID,
		Correct:   correct,
		Total:     total,
	})
	if err != nil {
		s.report(ctx, "submit_recall", err)
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	s.emit(ctx, "submit_recall", event)
	return nil
}

// SubmitFeedback queues feedback. Delivery failures are swallowed.
func (s *RecallService) SubmitFeedback(ctx context.Context, in FeedbackInput) error {
	if (in.RecallCorrect == nil) != (in.RecallTotal == nil) {
		return fmt.Errorf("%w: recall correct and total must be set together", ErrInvalidInput)
	}
	if in.RecallTotal != nil && (*in.RecallCorrect > *in.RecallTotal) {
		return fmt.Errorf("%w: recall score %d/%d", ErrInvalidInput, *in.RecallCorrect, *in.RecallTotal)
	}

	verdict := "not_useful"
	if in.Useful {
		verdict = "useful"
	}
	event, err := events.New(events.KindFeedback, events.Feedback{
		TraceID:       in.TraceID,
		ContentID:     in.ContentID,
		Feedback:      verdict,
		ReasonTags:    in.ReasonTags,
		RecallCorrect: in.RecallCorrect,
		RecallTotal:   in.RecallTotal,
	})
	if err != nil {
		s.report(ctx, "submit_feedback", err)
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	s.emit(ctx, "submit_feedback", event)
	return nil
}

func (s *RecallService) emit(ctx context.Context, operation string, event *events.Event) {
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.report(ctx, operation, err)
	}
}

func (s *RecallService) report(ctx context.Context, operation string, err error) {
	s.sink.Report(ctx, diag.Diagnostic{
		Component: "recall",
		Operation: operation,
		Err:       err,
	})
}

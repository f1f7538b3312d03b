package capture

import (
	"context"
	"log/slog"
)

// LogNotifier is a Notifier that only logs what it would schedule.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notifier")}
}

// ScheduleRecallReminder implements Notifier.
func (n *LogNotifier) ScheduleRecallReminder(ctx context.Context, r Reminder) error {
	n.logger.InfoContext(ctx, "recall reminder scheduled",
		"content_id", r.ContentID,
		"trace_id", r.TraceID,
		"fire_at", r.FireAt,
		"question_count", r.QuestionCount)
	return nil
}

// SchedulePrepReady implements Notifier.
func (n *LogNotifier) SchedulePrepReady(ctx context.Context, p PrepNotice) error {
	n.logger.InfoContext(ctx, "prep ready notice scheduled",
		"content_id", p.ContentID,
		"event", p.EventName,
		"event_at", p.EventAt)
	return nil
}

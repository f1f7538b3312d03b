package capture

import (
	"context"
	"time"
)

// Capture is what the pipeline hands to the content store after analysis.
type Capture struct {
	URL       string
	TraceID   string
	Concepts  []string
	Decision  string
	CreatedAt time.Time
}

// ContentStore keeps captured items and answers digest queries.
type ContentStore interface {
	// RecentItems returns up to limit items, newest first.
	RecentItems(ctx context.Context, limit int) ([]ContentItem, error)

	// SaveCapture stores a capture and returns its content id.
	SaveCapture(ctx context.Context, c Capture) (string, error)
}

// Reminder is a scheduled recall prompt.
type Reminder struct {
	ContentID     string
	TraceID       string
	FireAt        time.Time
	QuestionCount int
}

// PrepNotice announces that prep material is ready before a target event.
type PrepNotice struct {
	ContentID string
	EventName string
	EventAt   time.Time
}

// Notifier schedules local notifications.
type Notifier interface {
	ScheduleRecallReminder(ctx context.Context, r Reminder) error
	SchedulePrepReady(ctx context.Context, n PrepNotice) error
}

// TargetEvent is an upcoming exam or interview.
type TargetEvent struct {
	Name string
	At   time.Time
}

// Calendar looks up the next target event.
type Calendar interface {
	// UpcomingTargetEvent returns nil when there is none.
	UpcomingTargetEvent(ctx context.Context) (*TargetEvent, error)
}

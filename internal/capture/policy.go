package capture

import "time"

// InterventionPolicy controls how eagerly the user is interrupted.
type InterventionPolicy string

// Supported intervention policies.
const (
	PolicyFocused    InterventionPolicy = "focused"
	PolicyAggressive InterventionPolicy = "aggressive"
)

// LearningMode selects the recall reminder cadence.
type LearningMode string

// Supported learning modes.
const (
	ModeExamPrep      LearningMode = "exam_prep"
	ModeInterviewPrep LearningMode = "interview_prep"
	ModeGeneral       LearningMode = "general"
)

// ReminderDelay is how long after a triggered capture the recall reminder
// fires. Unknown modes use the general cadence.
func (m LearningMode) ReminderDelay() time.Duration {
	switch m {
	case ModeExamPrep:
		return 2 * time.Hour
	case ModeInterviewPrep:
		return 12 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Confidence grades how clear-cut a decision was.
type Confidence string

// Decision confidence levels.
const (
	ConfidenceHigh       Confidence = "high"
	ConfidenceBorderline Confidence = "borderline"
	ConfidenceLow        Confidence = "low"
)

// IgnoreReason explains an ignored capture.
type IgnoreReason string

// Ignore reasons.
const (
	ReasonLowRelevanceForRole    IgnoreReason = "low_relevance_for_role"
	ReasonLowLearningDepth       IgnoreReason = "low_learning_depth"
	ReasonPoorInterruptionTiming IgnoreReason = "poor_interruption_timing"
)

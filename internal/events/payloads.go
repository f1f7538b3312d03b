package events

import "time"

// Telemetry records one analysis decision. It never carries the content URL
// or any content text.
type Telemetry struct {
	TraceID            string    `json:"trace_id" validate:"required"`
	Decision           string    `json:"decision" validate:"required,oneof=triggered ignored"`
	RelevanceScore     float64   `json:"relevance_score" validate:"gte=0,lte=1"`
	LearningValueScore float64   `json:"learning_value_score" validate:"gte=0,lte=1"`
	ConceptCount       int       `json:"concept_count" validate:"gte=0"`
	InterventionPolicy string    `json:"intervention_policy" validate:"required,oneof=focused aggressive"`
	DecisionConfidence string    `json:"decision_confidence" validate:"required,oneof=high borderline low"`
	IgnoreReason       string    `json:"ignore_reason,omitempty" validate:"omitempty,oneof=low_relevance_for_role low_learning_depth poor_interruption_timing"`
	LearningMode       string    `json:"learning_mode,omitempty" validate:"omitempty,oneof=exam_prep interview_prep general"`
	GoalID             string    `json:"goal_id,omitempty"`
	OccurredAt         time.Time `json:"occurred_at"`
}

// RecallSubmission reports how many recall questions were answered correctly.
type RecallSubmission struct {
	TraceID   string `json:"trace_id" validate:"required"`
	ContentID string `json:"content_id" validate:"required"`
	Correct   int    `json:"correct" validate:"gte=0,ltefield=Total"`
	Total     int    `json:"total" validate:"gt=0"`
}

// Feedback is the user's verdict on one capture.
type Feedback struct {
	TraceID       string   `json:"trace_id" validate:"required"`
	ContentID     string   `json:"content_id" validate:"required"`
	Feedback      string   `json:"feedback" validate:"required,oneof=useful not_useful"`
	ReasonTags    []string `json:"reason_tags,omitempty" validate:"omitempty,dive,required"`
	RecallCorrect *int     `json:"recall_correct,omitempty" validate:"omitempty,gte=0"`
	RecallTotal   *int     `json:"recall_total,omitempty" validate:"omitempty,gt=0"`
}

// PendingCapture is a shared URL waiting to be analyzed.
type PendingCapture struct {
	URL      string    `json:"url" validate:"required,url"`
	SharedAt time.Time `json:"shared_at"`
}

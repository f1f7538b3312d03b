package api

import (
	"time"

	"github.com/phrazzld/scry-capture/internal/analysis"
	"github.com/phrazzld/scry-capture/internal/capture"
)

// ShareRequest is the body of POST /v1/captures.
type ShareRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// ShareResponse acknowledges a queued capture.
type ShareResponse struct {
	Status  string `json:"status"`
	TokenID string `json:"token_id"`
}

// SyncResponse describes a drain triggered over HTTP.
type SyncResponse struct {
	TokenID   string    `json:"token_id"`
	StartedAt time.Time `json:"started_at"`

	// Status is "running", "completed", "failed" or "cancelled".
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// RecallRequest is the body of POST /v1/recall.
type RecallRequest struct {
	TraceID   string `json:"trace_id" validate:"required"`
	ContentID string `json:"content_id" validate:"required"`
	Correct   int    `json:"correct" validate:"gte=0,ltefield=Total"`
	Total     int    `json:"total" validate:"gt=0"`
}

// FeedbackRequest is the body of POST /v1/feedback.
type FeedbackRequest struct {
	TraceID       string   `json:"trace_id" validate:"required"`
	ContentID     string   `json:"content_id" validate:"required"`
	Feedback      string   `json:"feedback" validate:"required,oneof=useful not_useful"`
	ReasonTags    []string `json:"reason_tags,omitempty"`
	RecallCorrect *int     `json:"recall_correct,omitempty" validate:"omitempty,gte=0"`
	RecallTotal   *int     `json:"recall_total,omitempty" validate:"omitempty,gt=0"`
}

// ToInput converts the request into a capture.FeedbackInput.
func (r FeedbackRequest) ToInput() capture.FeedbackInput {
	return capture.FeedbackInput{
		TraceID:       r.TraceID,
		ContentID:     r.ContentID,
		Useful:        r.Feedback == "useful",
		ReasonTags:    r.ReasonTags,
		RecallCorrect: r.RecallCorrect,
		RecallTotal:   r.RecallTotal,
	}
}

// GradeRequest is the body of POST /v1/grade.
type GradeRequest struct {
	TraceID      string `json:"trace_id" validate:"required"`
	ContentID    string `json:"content_id" validate:"required"`
	ContentTitle string `json:"content_title"`
	Question     string `json:"question" validate:"required"`
	Answer       string `json:"answer" validate:"required"`
}

// ToAnalysis converts the request into the remote grading contract.
func (r GradeRequest) ToAnalysis() analysis.GradeRequest {
	return analysis.GradeRequest{
		TraceID:      r.TraceID,
		ContentID:    r.ContentID,
		ContentTitle: r.ContentTitle,
		Question:     r.Question,
		Answer:       r.Answer,
	}
}

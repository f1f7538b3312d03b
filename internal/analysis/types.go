package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Decision is the service's verdict on interrupting the user.
type Decision string

// Decisions returned by the analysis service.
const (
	DecisionTriggered Decision = "triggered"
	DecisionIgnored   Decision = "ignored"
)

// QuestionType distinguishes recall question formats.
type QuestionType string

// Recall question formats.
const (
	QuestionOpen QuestionType = "open"
	QuestionMCQ  QuestionType = "mcq"
)

// MCQOptionCount is the exact number of options a multiple-choice question has.
const MCQOptionCount = 4

// DigestItem summarizes one previously shared item.
type DigestItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Concepts  []string  `json:"concepts"`
	CreatedAt time.Time `json:"created_at"`
}

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	URL                string       `json:"url"`
	UserIDHash         string       `json:"user_id_hash"`
	GoalID             string       `json:"goal_id,omitempty"`
	GoalDescription    string       `json:"goal_description,omitempty"`
	CareerStage        string       `json:"career_stage,omitempty"`
	InterventionPolicy string       `json:"intervention_policy"`
	LearningMode       string       `json:"learning_mode"`
	KnownConcepts      []string     `json:"known_concepts"`
	WeakConcepts       []string     `json:"weak_concepts"`
	LibraryDigest      []DigestItem `json:"library_digest,omitempty"`
}

// Question is one recall question.
type Question struct {
	Type   QuestionType `json:"type" validate:"required,oneof=open mcq"`
	Prompt string       `json:"prompt" validate:"required"`

	// Options and CorrectIndex are set only for multiple-choice questions.
	Options      []string `json:"options,omitempty"`
	CorrectIndex *int     `json:"correct_index,omitempty"`
}

// AnalyzeResponse is the body returned by POST /analyze.
type AnalyzeResponse struct {
	TraceID            string     `json:"trace_id" validate:"required"`
	Concepts           []string   `json:"concepts"`
	RelevanceScore     float64    `json:"relevance_score" validate:"gte=0,lte=1"`
	LearningValueScore float64    `json:"learning_value_score" validate:"gte=0,lte=1"`
	Decision           Decision   `json:"decision" validate:"required,oneof=triggered ignored"`
	Questions          []Question `json:"questions" validate:"omitempty,dive"`

	// Retrieval is opaque metadata passed through to the host.
	Retrieval json.RawMessage `json:"retrieval,omitempty"`
}

// GradeRequest is the body of POST /grade.
type GradeRequest struct {
	TraceID      string `json:"trace_id" validate:"required"`
	ContentID    string `json:"content_id" validate:"required"`
	ContentTitle string `json:"content_title"`
	Question     string `json:"question" validate:"required"`
	Answer       string `json:"answer" validate:"required"`
}

// GradeResponse is the body returned by POST /grade.
type GradeResponse struct {
	Score         float64  `json:"score" validate:"gte=0,lte=1"`
	Correct       bool     `json:"correct"`
	Threshold     float64  `json:"threshold" validate:"gte=0,lte=1"`
	Reasoning     string   `json:"reasoning"`
	KeyPoints     []string `json:"key_points"`
	CouldHaveSaid string   `json:"could_have_said"`
}

var validate = validator.New()

// Validate checks the response contract. Failures wrap ErrInvalidResponse.
func (r *AnalyzeResponse) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	for i, q := range r.Questions {
		if q.Type != QuestionMCQ {
			continue
		}
		if len(q.Options) != MCQOptionCount {
			return fmt.Errorf("%w: question %d has %d options, want %d",
				ErrInvalidResponse, i, len(q.Options), MCQOptionCount)
		}
		if q.CorrectIndex == nil || *q.CorrectIndex < 0 || *q.CorrectIndex >= MCQOptionCount {
			return fmt.Errorf("%w: question %d has no valid correct_index", ErrInvalidResponse, i)
		}
	}
	return nil
}

// Validate checks the response contract. Failures wrap ErrInvalidResponse.
func (r *GradeResponse) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return nil
}

// Analyzer asks the remote service whether content is worth an interruption.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error)
}

// Grader grades an open-ended recall answer.
type Grader interface {
	Grade(ctx context.Context, req GradeRequest) (*GradeResponse, error)
}

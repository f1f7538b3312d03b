package capture

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/scry-capture/internal/analysis"
	"github.com/phrazzld/scry-capture/internal/diag"
	"github.com/phrazzld/scry-capture/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecallService(t *testing.T, grader *fakeAnalyzer, emitter *recordingEmitter, sink diag.Sink) *RecallService {
	t.Helper()
	s, err := NewRecallService(testLogger(), grader, emitter, sink)
	require.NoError(t, err)
	return s
}

func TestNewRecallServiceValidation(t *testing.T) {
	_, err := NewRecallService(nil, &fakeAnalyzer{}, &recordingEmitter{}, nil)
	assert.Error(t, err)
	_, err = NewRecallService(testLogger(), nil, &recordingEmitter{}, nil)
	assert.Error(t, err)
	_, err = NewRecallService(testLogger(), &fakeAnalyzer{}, nil, nil)
	assert.Error(t, err)
}

func TestGradeAnswer(t *testing.T) {
	grader := &fakeAnalyzer{GradeFn: func(_ context.Context, req analysis.GradeRequest) (*analysis.GradeResponse, error) {
		return &analysis.GradeResponse{Score: 0.9, Correct: true, Threshold: 0.6}, nil
	}}
	s := newRecallService(t, grader, &recordingEmitter{}, nil)

	resp, err := s.GradeAnswer(context.Background(), analysis.GradeRequest{
		TraceID: "t", ContentID: "c", Question: "q", Answer: "a",
	})

	require.NoError(t, err)
	assert.True(t, resp.Correct)
}

func TestGradeAnswerFailureIsRetryable(t *testing.T) {
	grader := &fakeAnalyzer{GradeFn: func(context.Context, analysis.GradeRequest) (*analysis.GradeResponse, error) {
		return nil, analysis.ErrTransientFailure
	}}
	s := newRecallService(t, grader, &recordingEmitter{}, nil)

	_, err := s.GradeAnswer(context.Background(), analysis.GradeRequest{Question: "q", Answer: "a"})

	assert.ErrorIs(t, err, ErrRetryable)
}

func TestGradeAnswerRequiresAnswer(t *testing.T) {
	s := newRecallService(t, &fakeAnalyzer{}, &recordingEmitter{}, nil)

	_, err := s.GradeAnswer(context.Background(), analysis.GradeRequest{Question: "q"})

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSubmitRecall(t *testing.T) {
	testCases := []struct {
		name           string
		correct, total int
		wantErr        bool
	}{
		{"none correct", 0, 3, false},
		{"all correct", 3, 3, false},
		{"more correct than total", 4, 3, true},
		{"negative", -1, 3, true},
		{"zero total", 0, 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			emitter := &recordingEmitter{}
			s := newRecallService(t, &fakeAnalyzer{}, emitter, nil)

			err := s.SubmitRecall(context.Background(), "trace", "content", tc.correct, tc.total)

			recalls := emitter.ofKind(events.KindRecall)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				assert.Empty(t, recalls)
				return
			}
			require.NoError(t, err)
			require.Len(t, recalls, 1)
			var payload events.RecallSubmission
			require.NoError(t, recalls[0].UnmarshalPayload(&payload))
			assert.Equal(t, tc.correct, payload.Correct)
			assert.Equal(t, tc.total, payload.Total)
		})
	}
}

func TestSubmitRecallEmitFailureIsSwallowed(t *testing.T) {
	recorder := diag.NewRecorder()
	boom := errors.New("outbox unavailable")
	s := newRecallService(t, &fakeAnalyzer{}, &recordingEmitter{err: boom}, recorder)

	err := s.SubmitRecall(context.Background(), "trace", "content", 1, 2)

	assert.NoError(t, err)
	assert.True(t, recorder.Has(boom))
}

func TestSubmitFeedback(t *testing.T) {
	emitter := &recordingEmitter{}
	s := newRecallService(t, &fakeAnalyzer{}, emitter, nil)
	correct, total := 2, 3

	err := s.SubmitFeedback(context.Background(), FeedbackInput{
		TraceID:       "trace",
		ContentID:     "content",
		Useful:        true,
		ReasonTags:    []string{"clear"},
		RecallCorrect: &correct,
		RecallTotal:   &total,
	})

	require.NoError(t, err)
	feedback := emitter.ofKind(events.KindFeedback)
	require.Len(t, feedback, 1)
	var payload events.Feedback
	require.NoError(t, feedback[0].UnmarshalPayload(&payload))
	assert.Equal(t, "useful", payload.Feedback)
	assert.Equal(t, []string{"clear"}, payload.ReasonTags)
	assert.Equal(t, 2, *payload.RecallCorrect)
}

func TestSubmitFeedbackValidation(t *testing.T) {
	s := newRecallService(t, &fakeAnalyzer{}, &recordingEmitter{}, nil)
	two, one := 2, 1

	err := s.SubmitFeedback(context.Background(), FeedbackInput{TraceID: "t", ContentID: "c", RecallCorrect: &two})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = s.SubmitFeedback(context.Background(), FeedbackInput{TraceID: "t", ContentID: "c", RecallCorrect: &two, RecallTotal: &one})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = s.SubmitFeedback(context.Background(), FeedbackInput{ContentID: "c"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, events.ErrEncoding)
}

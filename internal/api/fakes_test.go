package api

import (
	"context"
	"sync"

	"github.com/phrazzld/scry-capture/internal/analysis"
	"github.com/phrazzld/scry-capture/internal/capture"
	"github.com/phrazzld/scry-capture/internal/coordinator"
	"github.com/phrazzld/scry-capture/internal/delivery"
)

type fakeDelivery struct {
	coord     *coordinator.Coordinator
	status    delivery.Status
	mu        sync.Mutex
	cancelled int
}

func newFakeDelivery(work coordinator.Work) *fakeDelivery {
	return &fakeDelivery{coord: coordinator.New(work)}
}

func (f *fakeDelivery) Status() delivery.Status { return f.status }

func (f *fakeDelivery) TriggerDrainNow() *coordinator.Token { return f.coord.TriggerNow() }

func (f *fakeDelivery) CancelActiveWork() {
	f.mu.Lock()
	f.cancelled++
	f.mu.Unlock()
	f.coord.Cancel()
}

type fakeCaptures struct {
	ShareFn func(ctx context.Context, url string) error
	shared  []string
}

func (f *fakeCaptures) Share(ctx context.Context, url string) error {
	f.shared = append(f.shared, url)
	if f.ShareFn != nil {
		return f.ShareFn(ctx, url)
	}
	return nil
}

type fakeRecall struct {
	GradeAnswerFn    func(ctx context.Context, req analysis.GradeRequest) (*analysis.GradeResponse, error)
	SubmitRecallFn   func(ctx context.Context, traceID, contentID string, correct, total int) error
	SubmitFeedbackFn func(ctx context.Context, in capture.FeedbackInput) error
}

func (f *fakeRecall) GradeAnswer(ctx context.Context, req analysis.GradeRequest) (*analysis.GradeResponse, error) {
	if f.GradeAnswerFn != nil {
		return f.GradeAnswerFn(ctx, req)
	}
	return &analysis.GradeResponse{}, nil
}

func (f *fakeRecall) SubmitRecall(ctx context.Context, traceID, contentID string, correct, total int) error {
	if f.SubmitRecallFn != nil {
		return f.SubmitRecallFn(ctx, traceID, contentID, correct, total)
	}
	return nil
}

func (f *fakeRecall) SubmitFeedback(ctx context.Context, in capture.FeedbackInput) error {
	if f.SubmitFeedbackFn != nil {
		return f.SubmitFeedbackFn(ctx, in)
	}
	return nil
}

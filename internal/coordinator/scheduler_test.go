package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualScheduler records registrations and lets tests grant or expire them.
type manualScheduler struct {
	mu            sync.Mutex
	registrations []registration
	ScheduleFn    func(req WindowRequest) error
}

type registration struct {
	req       WindowRequest
	onGranted func(Window)
	onExpired func()
}

func (s *manualScheduler) ScheduleWindow(req WindowRequest, onGranted func(Window), onExpired func()) error {
	if s.ScheduleFn != nil {
		if err := s.ScheduleFn(req); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registrations = append(s.registrations, registration{req, onGranted, onExpired})
	return nil
}

func (s *manualScheduler) all() []registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]registration, len(s.registrations))
	copy(out, s.registrations)
	return out
}

func (s *manualScheduler) count(id string) int {
	n := 0
	for _, r := range s.all() {
		if r.req.ID == id {
			n++
		}
	}
	return n
}

// fakeWindow records completion.
type fakeWindow struct {
	id        string
	completed chan bool
}

func newFakeWindow(id string) *fakeWindow {
	return &fakeWindow{id: id, completed: make(chan bool, 1)}
}

func (w *fakeWindow) ID() string { return w.id }

func (w *fakeWindow) Complete(success bool) { w.completed <- success }

func TestScheduleRecurringWindowsRegistersBoth(t *testing.T) {
	sched := &manualScheduler{}
	cfg := Config{OpportunisticInterval: time.Minute, ConstrainedInterval: time.Hour, WindowDuration: 30 * time.Second}
	c := New(func(context.Context) error { return nil }, WithScheduler(sched), WithConfig(cfg), WithLogger(testLogger()))
	defer c.Close()

	require.NoError(t, c.ScheduleRecurringWindows())

	regs := sched.all()
	require.Len(t, regs, 2)
	assert.Equal(t, OpportunisticWindowID, regs[0].req.ID)
	assert.Equal(t, time.Minute, regs[0].req.EarliestBegin)
	assert.False(t, regs[0].req.RequiresNetwork)
	assert.Equal(t, ConstrainedWindowID, regs[1].req.ID)
	assert.Equal(t, time.Hour, regs[1].req.EarliestBegin)
	assert.True(t, regs[1].req.RequiresNetwork)
	assert.Equal(t, 30*time.Second, regs[1].req.MaxDuration)
}

func TestScheduleRecurringWindowsWithoutScheduler(t *testing.T) {
	c := New(func(context.Context) error { return nil }, WithLogger(testLogger()))
	defer c.Close()

	assert.Error(t, c.ScheduleRecurringWindows())
}

func TestScheduleRecurringWindowsSchedulerFailure(t *testing.T) {
	boom := errors.New("quota exceeded")
	sched := &manualScheduler{ScheduleFn: func(WindowRequest) error { return boom }}
	c := New(func(context.Context) error { return nil }, WithScheduler(sched), WithLogger(testLogger()))
	defer c.Close()

	assert.ErrorIs(t, c.ScheduleRecurringWindows(), boom)
}

func TestGrantReRegistersBeforeRunningWork(t *testing.T) {
	sched := &manualScheduler{}
	var registeredBeforeWork atomic.Bool
	c := New(func(context.Context) error {
		registeredBeforeWork.Store(sched.count(OpportunisticWindowID) == 2)
		return nil
	}, WithScheduler(sched), WithLogger(testLogger()))
	defer c.Close()
	require.NoError(t, c.ScheduleRecurringWindows())

	w := newFakeWindow(OpportunisticWindowID)
	sched.all()[0].onGranted(w)

	select {
	case success := <-w.completed:
		assert.True(t, success)
	case <-time.After(2 * time.Second):
		t.Fatal("window was not completed")
	}
	assert.True(t, registeredBeforeWork.Load())
}

func TestGrantCompletesWindowWithFailure(t *testing.T) {
	sched := &manualScheduler{}
	c := New(func(context.Context) error { return errors.New("offline") }, WithScheduler(sched), WithLogger(testLogger()))
	defer c.Close()
	require.NoError(t, c.ScheduleRecurringWindows())

	w := newFakeWindow(ConstrainedWindowID)
	sched.all()[1].onGranted(w)

	select {
	case success := <-w.completed:
		assert.False(t, success)
	case <-time.After(2 * time.Second):
		t.Fatal("window was not completed")
	}
}

func TestExpiryCancelsWindowWork(t *testing.T) {
	sched := &manualScheduler{}
	work := newBlockingWork()
	c := New(work.run, WithScheduler(sched), WithLogger(testLogger()))
	defer c.Close()
	require.NoError(t, c.ScheduleRecurringWindows())

	reg := sched.all()[0]
	w := newFakeWindow(reg.req.ID)
	reg.onGranted(w)
	<-work.started
	tok := c.Active()
	require.NotNil(t, tok)

	reg.onExpired()

	assert.ErrorIs(t, waitDone(t, tok), context.Canceled)
	select {
	case success := <-w.completed:
		assert.False(t, success)
	case <-time.After(2 * time.Second):
		t.Fatal("window was not completed")
	}
}

func TestExpiryBeforeGrantIsIgnored(t *testing.T) {
	sched := &manualScheduler{}
	c := New(func(context.Context) error { return nil }, WithScheduler(sched), WithLogger(testLogger()))
	defer c.Close()
	require.NoError(t, c.ScheduleRecurringWindows())

	assert.NotPanics(t, sched.all()[0].onExpired)
}

func TestGrantJoinsForegroundWork(t *testing.T) {
	sched := &manualScheduler{}
	work := newBlockingWork()
	c := New(work.run, WithScheduler(sched), WithLogger(testLogger()))
	defer c.Close()
	require.NoError(t, c.ScheduleRecurringWindows())

	foreground := c.TriggerNow()
	<-work.started

	w := newFakeWindow(OpportunisticWindowID)
	sched.all()[0].onGranted(w)
	assert.Same(t, foreground, c.Active())

	close(work.release)
	require.NoError(t, waitDone(t, foreground))
	assert.True(t, <-w.completed)
	assert.Equal(t, int32(1), work.runs.Load())
}

func TestGrantAfterCloseDoesNotReRegister(t *testing.T) {
	sched := &manualScheduler{}
	c := New(func(context.Context) error { return nil }, WithScheduler(sched), WithLogger(testLogger()))
	require.NoError(t, c.ScheduleRecurringWindows())
	c.Close()

	w := newFakeWindow(OpportunisticWindowID)
	sched.all()[0].onGranted(w)

	assert.Equal(t, 1, sched.count(OpportunisticWindowID))
	assert.False(t, <-w.completed)
}

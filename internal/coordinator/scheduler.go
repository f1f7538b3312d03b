package coordinator

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// WindowRequest asks for one execution window.
type WindowRequest struct {
	// ID identifies the registration. Registering an ID again replaces its
	// pending request.
	ID string

	// EarliestBegin is the minimum delay before the window may be granted.
	EarliestBegin time.Duration

	// MaxDuration is how long a granted window lasts. Zero means unbounded.
	MaxDuration time.Duration

	RequiresNetwork bool
}

// Window is a granted execution window.
type Window interface {
	ID() string

	// Complete ends the window. Calls after the first, or after expiry,
	// are ignored.
	Complete(success bool)
}

// Scheduler grants execution windows. onGranted runs when the window opens;
// onExpired runs if the window closes before Complete was called.
type Scheduler interface {
	ScheduleWindow(req WindowRequest, onGranted func(Window), onExpired func()) error
}

// ErrSchedulerStopped is returned by a stopped TimerScheduler.
var ErrSchedulerStopped = errors.New("scheduler stopped")

// TimerScheduler is an in-process Scheduler backed by timers.
type TimerScheduler struct {
	// NetworkAvailable, when set, is consulted before granting windows that
	// require the network. A window that cannot be granted is deferred by
	// its EarliestBegin.
	NetworkAvailable func() bool

	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*timerWindow
	granted map[*timerWindow]struct{}
	stopped bool
}

// NewTimerScheduler creates a TimerScheduler.
func NewTimerScheduler(logger *slog.Logger) *TimerScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TimerScheduler{
		logger:  logger.With("component", "timer_scheduler"),
		pending: make(map[string]*timerWindow),
		granted: make(map[*timerWindow]struct{}),
	}
}

type timerWindow struct {
	req       WindowRequest
	onGranted func(Window)
	onExpired func()
	scheduler *TimerScheduler

	grantTimer  *time.Timer
	expiryTimer *time.Timer

	mu     sync.Mutex
	closed bool
}

// ScheduleWindow implements Scheduler.
func (s *TimerScheduler) ScheduleWindow(req WindowRequest, onGranted func(Window), onExpired func()) error {
	if req.ID == "" {
		return errors.New("window request id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSchedulerStopped
	}
	if existing, ok := s.pending[req.ID]; ok {
		existing.grantTimer.Stop()
	}

	w := &timerWindow{
		req:       req,
		onGranted: onGranted,
		onExpired: onExpired,
		scheduler: s,
	}
	w.grantTimer = time.AfterFunc(req.EarliestBegin, func() { s.grant(w) })
	s.pending[req.ID] = w

	s.logger.Debug("window scheduled", "window_id", req.ID, "earliest_begin", req.EarliestBegin)
	return nil
}

// Pending reports whether a request with id is waiting to be granted.
func (s *TimerScheduler) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[id]
	return ok
}

func (s *TimerScheduler) grant(w *timerWindow) {
	s.mu.Lock()
	if s.stopped || s.pending[w.req.ID] != w {
		s.mu.Unlock()
		return
	}
	if w.req.RequiresNetwork && s.NetworkAvailable != nil && !s.NetworkAvailable() {
		w.grantTimer = time.AfterFunc(w.req.EarliestBegin, func() { s.grant(w) })
		s.mu.Unlock()
		s.logger.Debug("network unavailable, window deferred", "window_id", w.req.ID)
		return
	}

	delete(s.pending, w.req.ID)
	s.granted[w] = struct{}{}
	if w.req.MaxDuration > 0 {
		w.mu.Lock()
		w.expiryTimer = time.AfterFunc(w.req.MaxDuration, w.expire)
		w.mu.Unlock()
	}
	s.mu.Unlock()

	s.logger.Debug("window granted", "window_id", w.req.ID)
	w.onGranted(w)
}

// Stop cancels pending requests and expires granted windows. Later
// ScheduleWindow calls fail with ErrSchedulerStopped.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, w := range s.pending {
		w.grantTimer.Stop()
		delete(s.pending, id)
	}
	granted := make([]*timerWindow, 0, len(s.granted))
	for w := range s.granted {
		granted = append(granted, w)
	}
	s.mu.Unlock()

	for _, w := range granted {
		w.expire()
	}
}

func (s *TimerScheduler) release(w *timerWindow) {
	s.mu.Lock()
	delete(s.granted, w)
	s.mu.Unlock()
}

// ID implements Window.
func (w *timerWindow) ID() string {
	return w.req.ID
}

// Complete implements Window.
func (w *timerWindow) Complete(success bool) {
	if !w.close() {
		return
	}
	w.scheduler.logger.Debug("window completed", "window_id", w.req.ID, "success", success)
}

func (w *timerWindow) expire() {
	if !w.close() {
		return
	}
	w.scheduler.logger.Debug("window expired", "window_id", w.req.ID)
	if w.onExpired != nil {
		w.onExpired()
	}
}

// close marks the window finished and reports whether this call did it.
func (w *timerWindow) close() bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return false
	}
	w.closed = true
	if w.expiryTimer != nil {
		w.expiryTimer.Stop()
	}
	w.mu.Unlock()

	w.scheduler.release(w)
	return true
}

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/phrazzld/scry-capture/internal/diag"
)

// Work is one unit of background work. It must return promptly once ctx is
// done.
type Work func(ctx context.Context) error

// ErrPanic wraps a panic recovered from Work.
var ErrPanic = errors.New("background work panicked")

// ErrClosed is returned by operations on a closed Coordinator.
var ErrClosed = errors.New("coordinator closed")

// Window identifiers registered by ScheduleRecurringWindows.
const (
	OpportunisticWindowID = "scry.sync.opportunistic"
	ConstrainedWindowID   = "scry.sync.constrained"
)

// Config controls recurring windows.
type Config struct {
	// OpportunisticInterval is the earliest begin of the unconstrained window.
	OpportunisticInterval time.Duration

	// ConstrainedInterval is the earliest begin of the network-bound window.
	ConstrainedInterval time.Duration

	// WindowDuration is how long a granted window may run before it expires.
	WindowDuration time.Duration
}

// DefaultConfig returns the standard window cadence.
func DefaultConfig() Config {
	return Config{
		OpportunisticInterval: 15 * time.Minute,
		ConstrainedInterval:   time.Hour,
		WindowDuration:        30 * time.Second,
	}
}

// Coordinator owns the single live Token.
type Coordinator struct {
	work      Work
	scheduler Scheduler
	cfg       Config
	logger    *slog.Logger
	sink      diag.Sink

	base       context.Context
	baseCancel context.CancelFunc

	mu     sync.Mutex
	active *Token
	closed bool
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithScheduler sets the execution window scheduler.
func WithScheduler(s Scheduler) Option {
	return func(c *Coordinator) {
		c.scheduler = s
	}
}

// WithConfig overrides DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(c *Coordinator) {
		c.cfg = cfg
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSink sets where recovered panics and scheduling failures are reported.
func WithSink(sink diag.Sink) Option {
	return func(c *Coordinator) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// New creates a Coordinator whose triggers run work.
func New(work Work, opts ...Option) *Coordinator {
	base, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		work:       work,
		cfg:        DefaultConfig(),
		logger:     slog.Default(),
		sink:       diag.Discard{},
		base:       base,
		baseCancel: cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "coordinator")
	return c
}

// Start runs work unless other work is alive, in which case the live token is
// returned and work is not run. On a closed Coordinator it returns an
// already-finished token carrying ErrClosed.
func (c *Coordinator) Start(work Work) *Token {
	c.mu.Lock()
	if c.active != nil {
		tok := c.active
		c.mu.Unlock()
		c.logger.Debug("joining active work", "token_id", tok.ID())
		return tok
	}
	if c.closed {
		c.mu.Unlock()
		tok := newToken(c.base)
		tok.err = ErrClosed
		tok.cancel()
		close(tok.done)
		return tok
	}

	tok := newToken(c.base)
	c.active = tok
	c.mu.Unlock()

	c.logger.Debug("starting work", "token_id", tok.ID())
	go c.run(tok, work)
	return tok
}

func (c *Coordinator) run(tok *Token, work Work) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
			c.logger.Error("recovered panic in background work",
				"token_id", tok.ID(),
				"panic", r,
				"stack", string(debug.Stack()))
			c.sink.Report(tok.ctx, diag.Diagnostic{
				Component: "coordinator",
				Operation: "run",
				Err:       err,
				Attrs:     []any{"token_id", tok.ID()},
			})
		}
		c.finish(tok, err)
	}()

	err = work(tok.ctx)
}

func (c *Coordinator) finish(tok *Token, err error) {
	c.mu.Lock()
	if c.active == tok {
		c.active = nil
	}
	c.mu.Unlock()

	tok.err = err
	tok.cancel()
	close(tok.done)

	c.logger.Debug("work finished",
		"token_id", tok.ID(),
		"duration_ms", time.Since(tok.startedAt).Milliseconds(),
		"error", err)
}

// TriggerNow starts the configured work, or joins the live token.
func (c *Coordinator) TriggerNow() *Token {
	return c.Start(c.work)
}

// Active returns the live token, or nil when idle.
func (c *Coordinator) Active() *Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Cancel cancels the live token, if any. It does not wait for the work.
func (c *Coordinator) Cancel() {
	if tok := c.Active(); tok != nil {
		c.logger.Debug("cancelling active work", "token_id", tok.ID())
		tok.Cancel()
	}
}

// RunPeriodic triggers work every interval until ctx is done. A non-positive
// interval returns immediately.
func (c *Coordinator) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.TriggerNow()
		}
	}
}

// ScheduleRecurringWindows registers the opportunistic and constrained
// windows with the scheduler. Each grant re-registers its next occurrence
// before running work.
func (c *Coordinator) ScheduleRecurringWindows() error {
	if c.scheduler == nil {
		return errors.New("no scheduler configured")
	}

	requests := []WindowRequest{
		{
			ID:            OpportunisticWindowID,
			EarliestBegin: c.cfg.OpportunisticInterval,
			MaxDuration:   c.cfg.WindowDuration,
		},
		{
			ID:              ConstrainedWindowID,
			EarliestBegin:   c.cfg.ConstrainedInterval,
			MaxDuration:     c.cfg.WindowDuration,
			RequiresNetwork: true,
		},
	}

	var errs []error
	for _, req := range requests {
		if err := c.scheduleWindow(req); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Coordinator) scheduleWindow(req WindowRequest) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	// started is the token this registration's grant ran, so its expiry
	// cancels exactly that work.
	var (
		mu      sync.Mutex
		started *Token
	)

	onGranted := func(w Window) {
		if err := c.scheduleWindow(req); err != nil && !errors.Is(err, ErrClosed) {
			c.logger.Warn("failed to re-register window", "window_id", req.ID, "error", err)
			c.sink.Report(c.base, diag.Diagnostic{
				Component: "coordinator",
				Operation: "schedule_window",
				Err:       err,
				Attrs:     []any{"window_id", req.ID},
			})
		}

		tok := c.TriggerNow()
		mu.Lock()
		started = tok
		mu.Unlock()

		c.logger.Debug("window granted", "window_id", req.ID, "token_id", tok.ID())
		go func() {
			<-tok.Done()
			w.Complete(tok.Err() == nil)
		}()
	}

	onExpired := func() {
		mu.Lock()
		tok := started
		mu.Unlock()
		if tok == nil {
			return
		}
		c.logger.Info("window expired, cancelling work", "window_id", req.ID, "token_id", tok.ID())
		tok.Cancel()
	}

	if err := c.scheduler.ScheduleWindow(req, onGranted, onExpired); err != nil {
		return fmt.Errorf("failed to schedule window %s: %w", req.ID, err)
	}
	return nil
}

// Close cancels live work, stops re-registering windows and rejects new
// work. It does not wait for the live work to return.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.baseCancel()
}

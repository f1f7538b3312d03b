package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/scry-capture/internal/coordinator"
	"github.com/phrazzld/scry-capture/internal/diag"
	"github.com/phrazzld/scry-capture/internal/events"
	"github.com/phrazzld/scry-capture/internal/outbox"
	"github.com/phrazzld/scry-capture/internal/redact"
	"github.com/phrazzld/scry-capture/internal/store"
	"github.com/phrazzld/scry-capture/internal/syncclient"
	"golang.org/x/sync/errgroup"
)

// Endpoints maps the HTTP-delivered kinds to their ingest paths.
var Endpoints = map[events.Kind]string{
	events.KindTelemetry: "/telemetry",
	events.KindRecall:    "/recall",
	events.KindFeedback:  "/feedback",
}

// Drainer delivers one queue over HTTP. *syncclient.Client implements it.
type Drainer interface {
	Drain(ctx context.Context, q syncclient.Queue, endpoint string) (int, error)
}

// DrainResult records the last drain of one outbox.
type DrainResult struct {
	Delivered int       `json:"delivered"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Status is a snapshot of the whole subsystem.
type Status struct {
	Outboxes      []outbox.Status        `json:"outboxes"`
	Active        bool                   `json:"active"`
	ActiveTokenID string                 `json:"active_token_id,omitempty"`
	LastDrain     map[string]DrainResult `json:"last_drain,omitempty"`
}

// Options configures a Subsystem.
type Options struct {
	Capacity int

	// PendingDeliverer analyzes queued capture URLs. Without it the pending
	// queue only accumulates.
	PendingDeliverer syncclient.DeliverFunc

	Scheduler         coordinator.Scheduler
	CoordinatorConfig coordinator.Config

	Sink   diag.Sink
	Logger *slog.Logger
}

// Subsystem is the delivery facade.
type Subsystem struct {
	boxes       map[events.Kind]*outbox.Outbox
	drainer     Drainer
	pending     syncclient.DeliverFunc
	coordinator *coordinator.Coordinator
	sink        diag.Sink
	logger      *slog.Logger

	mu        sync.Mutex
	lastDrain map[events.Kind]DrainResult
}

// Ensure Subsystem can be registered with an event emitter.
var _ events.EventHandler = (*Subsystem)(nil)

// New creates a Subsystem and restores every outbox from kv.
func New(ctx context.Context, kv store.KVStore, drainer Drainer, opts Options) (*Subsystem, error) {
	if kv == nil {
		return nil, errors.New("store cannot be nil")
	}
	if drainer == nil {
		return nil, errors.New("drainer cannot be nil")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sink := opts.Sink
	if sink == nil {
		sink = diag.NewLogSink(logger)
	}

	s := &Subsystem{
		boxes:     make(map[events.Kind]*outbox.Outbox),
		drainer:   drainer,
		pending:   opts.PendingDeliverer,
		sink:      sink,
		logger:    logger.With("component", "delivery"),
		lastDrain: make(map[events.Kind]DrainResult),
	}

	for _, kind := range events.Kinds() {
		box, err := outbox.New(string(kind), kv,
			outbox.WithCapacity(opts.Capacity),
			outbox.WithLogger(logger),
			outbox.WithSink(sink))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s outbox: %w", kind, err)
		}
		if err := box.Load(ctx); err != nil {
			return nil, fmt.Errorf("failed to restore %s outbox: %w", kind, err)
		}
		s.boxes[kind] = box
	}

	coordOpts := []coordinator.Option{
		coordinator.WithLogger(logger),
		coordinator.WithSink(sink),
	}
	if opts.Scheduler != nil {
		coordOpts = append(coordOpts, coordinator.WithScheduler(opts.Scheduler))
	}
	if opts.CoordinatorConfig != (coordinator.Config{}) {
		coordOpts = append(coordOpts, coordinator.WithConfig(opts.CoordinatorConfig))
	}
	s.coordinator = coordinator.New(s.DrainAll, coordOpts...)

	return s, nil
}

// Outbox returns the outbox for kind, or nil.
func (s *Subsystem) Outbox(kind events.Kind) *outbox.Outbox {
	return s.boxes[kind]
}

// Enqueue routes event to its outbox. It never fails observably.
func (s *Subsystem) Enqueue(ctx context.Context, event *events.Event) {
	if event == nil {
		return
	}
	box, ok := s.boxes[event.Kind]
	if !ok {
		s.sink.Report(ctx, diag.Diagnostic{
			Component: "delivery",
			Operation: "enqueue",
			Err:       fmt.Errorf("%w: %q", events.ErrUnknownKind, event.Kind),
			Attrs:     []any{"event_id", event.ID},
		})
		return
	}
	box.Enqueue(ctx, event.Payload)
	s.logger.DebugContext(ctx, "event enqueued", "event_id", event.ID, "event_kind", event.Kind)
}

// HandleEvent implements events.EventHandler.
func (s *Subsystem) HandleEvent(ctx context.Context, event *events.Event) error {
	s.Enqueue(ctx, event)
	return nil
}

// TriggerDrainNow starts a drain of every outbox, or joins the running one.
func (s *Subsystem) TriggerDrainNow() *coordinator.Token {
	return s.coordinator.TriggerNow()
}

// ScheduleRecurringWindows registers the background windows.
func (s *Subsystem) ScheduleRecurringWindows() error {
	return s.coordinator.ScheduleRecurringWindows()
}

// CancelActiveWork cancels the running drain, if any.
func (s *Subsystem) CancelActiveWork() {
	s.coordinator.Cancel()
}

// RunPeriodic triggers drains every interval until ctx is done.
func (s *Subsystem) RunPeriodic(ctx context.Context, interval time.Duration) {
	s.coordinator.RunPeriodic(ctx, interval)
}

// Close cancels the running drain and stops accepting new ones.
func (s *Subsystem) Close() {
	s.coordinator.Close()
}

// DrainAll drains every outbox concurrently. Each outbox stops at its own
// first failure without affecting the others. The returned error is the
// first failure, if any; all failures are reported to the sink.
func (s *Subsystem) DrainAll(ctx context.Context) error {
	var g errgroup.Group

	for _, kind := range events.Kinds() {
		box := s.boxes[kind]
		if box == nil || box.Len() == 0 {
			continue
		}

		var drain func(context.Context) (int, error)
		if endpoint, ok := Endpoints[kind]; ok {
			drain = func(ctx context.Context) (int, error) {
				return s.drainer.Drain(ctx, box, endpoint)
			}
		} else if kind == events.KindPendingCapture && s.pending != nil {
			drain = func(ctx context.Context) (int, error) {
				return syncclient.DrainWith(ctx, box, s.pending)
			}
		} else {
			continue
		}

		g.Go(func() error {
			delivered, err := drain(ctx)
			s.record(ctx, kind, delivered, err)
			if err != nil {
				return fmt.Errorf("drain %s: %w", kind, err)
			}
			return nil
		})
	}

	return g.Wait()
}

func (s *Subsystem) record(ctx context.Context, kind events.Kind, delivered int, err error) {
	result := DrainResult{Delivered: delivered, At: time.Now().UTC()}
	if err != nil {
		result.Error = redact.Error(err)
		s.sink.Report(ctx, diag.Diagnostic{
			Component: "delivery",
			Operation: "drain",
			Err:       err,
			Attrs:     []any{"outbox", string(kind), "delivered", delivered},
		})
	} else if delivered > 0 {
		s.logger.InfoContext(ctx, "outbox drained", "outbox", kind, "delivered", delivered)
	}

	s.mu.Lock()
	s.lastDrain[kind] = result
	s.mu.Unlock()
}

// Status returns a snapshot of every outbox and the coordinator.
func (s *Subsystem) Status() Status {
	status := Status{}
	for _, kind := range events.Kinds() {
		status.Outboxes = append(status.Outboxes, s.boxes[kind].Snapshot())
	}
	if tok := s.coordinator.Active(); tok != nil {
		status.Active = true
		status.ActiveTokenID = tok.ID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lastDrain) > 0 {
		status.LastDrain = make(map[string]DrainResult, len(s.lastDrain))
		for kind, result := range s.lastDrain {
			status.LastDrain[string(kind)] = result
		}
	}
	return status
}

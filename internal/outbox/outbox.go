package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/scry-capture/internal/diag"
	"github.com/phrazzld/scry-capture/internal/store"
)

// DefaultCapacity bounds an outbox when no capacity is configured.
const DefaultCapacity = 200

const (
	keyPrefix     = "outbox:"
	corruptSuffix = ".corrupt"
)

// Entry is one queued payload. Seq increases monotonically per outbox and
// identifies the entry across peek and commit.
type Entry struct {
	Seq        uint64    `json:"seq"`
	Payload    []byte    `json:"payload"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// persistedState is the document written to the KV store.
type persistedState struct {
	NextSeq uint64  `json:"next_seq"`
	Entries []Entry `json:"entries"`
}

// Status is a point-in-time view of an outbox.
type Status struct {
	Name     string     `json:"name"`
	Length   int        `json:"length"`
	Capacity int        `json:"capacity"`
	Oldest   *time.Time `json:"oldest_enqueued_at,omitempty"`
	Dirty    bool       `json:"dirty"`
}

// Option customizes an Outbox.
type Option func(*Outbox)

// WithCapacity overrides DefaultCapacity. Non-positive values are ignored.
func WithCapacity(capacity int) Option {
	return func(o *Outbox) {
		if capacity > 0 {
			o.capacity = capacity
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Outbox) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSink sets where swallowed failures are reported.
func WithSink(sink diag.Sink) Option {
	return func(o *Outbox) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// WithClock replaces time.Now for enqueue timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Outbox) {
		if now != nil {
			o.now = now
		}
	}
}

// Outbox is a named, ordered, capacity-bounded queue of opaque payloads.
// All mutations and their persistence writes are serialized by one mutex, so
// enqueue and commit can never interleave.
type Outbox struct {
	name     string
	key      string
	capacity int
	kv       store.KVStore
	logger   *slog.Logger
	sink     diag.Sink
	now      func() time.Time

	mu      sync.Mutex
	entries []Entry
	nextSeq uint64
	dirty   bool
}

// New creates an empty Outbox. Call Load to restore persisted state.
func New(name string, kv store.KVStore, opts ...Option) (*Outbox, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	if kv == nil {
		return nil, ErrNilStore
	}

	o := &Outbox{
		name:     name,
		key:      keyPrefix + name,
		capacity: DefaultCapacity,
		kv:       kv,
		logger:   slog.Default(),
		sink:     diag.Discard{},
		now:      time.Now,
		nextSeq:  1,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "outbox", "outbox", name)
	return o, nil
}

// Name returns the outbox name.
func (o *Outbox) Name() string {
	return o.name
}

// Capacity returns the maximum number of retained entries.
func (o *Outbox) Capacity() int {
	return o.capacity
}

// Len returns the number of queued entries.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

// Load replaces the in-memory queue with the persisted state. A missing key
// yields an empty queue. Undecodable state is quarantined under a separate
// key, reported to the sink, and replaced by an empty queue. Read failures
// of the store itself are returned so the caller does not overwrite state
// it could not see.
func (o *Outbox) Load(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	raw, err := o.kv.Get(ctx, o.key)
	if store.IsNotFoundError(err) {
		o.entries = nil
		o.nextSeq = 1
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load outbox %s: %w", o.name, err)
	}

	var state persistedState
	if err := json.Unmarshal(raw, &state); err != nil {
		o.quarantineLocked(ctx, raw, err)
		o.entries = nil
		o.nextSeq = 1
		return nil
	}

	o.entries = state.Entries
	o.nextSeq = state.NextSeq
	for _, e := range o.entries {
		if e.Seq >= o.nextSeq {
			o.nextSeq = e.Seq + 1
		}
	}
	if o.nextSeq == 0 {
		o.nextSeq = 1
	}

	if dropped := o.trimLocked(); dropped > 0 {
		if err := o.persistLocked(ctx); err != nil {
			o.report(ctx, "persist", err)
		}
	}

	o.logger.Debug("outbox loaded", "length", len(o.entries))
	return nil
}

func (o *Outbox) quarantineLocked(ctx context.Context, raw []byte, cause error) {
	o.report(ctx, "load", fmt.Errorf("%w: %v", ErrCorruptState, cause))
	if err := o.kv.Put(ctx, o.key+corruptSuffix, raw); err != nil {
		o.report(ctx, "quarantine", err)
	}
}

// Enqueue appends payload, evicts the oldest entries beyond capacity and
// persists before returning. It never fails observably: a failed write is
// reported to the sink and retried by the next mutation.
func (o *Outbox) Enqueue(ctx context.Context, payload []byte) {
	data := make([]byte, len(payload))
	copy(data, payload)

	o.mu.Lock()
	defer o.mu.Unlock()

	o.entries = append(o.entries, Entry{
		Seq:        o.nextSeq,
		Payload:    data,
		EnqueuedAt: o.now().UTC(),
	})
	o.nextSeq++

	if dropped := o.trimLocked(); dropped > 0 {
		o.logger.Warn("outbox over capacity, dropped oldest entries",
			"dropped", dropped,
			"capacity", o.capacity)
	}

	if err := o.persistLocked(ctx); err != nil {
		o.report(ctx, "enqueue", err)
	}
}

// PeekHead returns the oldest entry without removing it.
func (o *Outbox) PeekHead() (Entry, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.entries) == 0 {
		return Entry{}, false
	}
	head := o.entries[0]
	payload := make([]byte, len(head.Payload))
	copy(payload, head.Payload)
	head.Payload = payload
	return head, true
}

// CommitHead removes entry after its delivery was acknowledged. If the head
// is no longer entry (it was evicted meanwhile) nothing is removed. When the
// removal cannot be persisted the entry is put back and ErrPersistence is
// returned, so it will be delivered again.
func (o *Outbox) CommitHead(ctx context.Context, entry Entry) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.entries) == 0 || o.entries[0].Seq != entry.Seq {
		o.logger.Debug("committed entry no longer at head", "seq", entry.Seq)
		return nil
	}

	removed := o.entries[0]
	o.entries = o.entries[1:]

	if err := o.persistLocked(ctx); err != nil {
		o.entries = append([]Entry{removed}, o.entries...)
		return err
	}
	return nil
}

// Snapshot returns the current status.
func (o *Outbox) Snapshot() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	status := Status{
		Name:     o.name,
		Length:   len(o.entries),
		Capacity: o.capacity,
		Dirty:    o.dirty,
	}
	if len(o.entries) > 0 {
		oldest := o.entries[0].EnqueuedAt
		status.Oldest = &oldest
	}
	return status
}

// Entries returns a copy of every queued entry, oldest first.
func (o *Outbox) Entries() []Entry {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Entry, len(o.entries))
	copy(out, o.entries)
	return out
}

// trimLocked drops the oldest entries beyond capacity and returns how many.
func (o *Outbox) trimLocked() int {
	excess := len(o.entries) - o.capacity
	if excess <= 0 {
		return 0
	}
	kept := make([]Entry, o.capacity)
	copy(kept, o.entries[excess:])
	o.entries = kept
	return excess
}

func (o *Outbox) persistLocked(ctx context.Context) error {
	raw, err := json.Marshal(persistedState{NextSeq: o.nextSeq, Entries: o.entries})
	if err != nil {
		o.dirty = true
		return fmt.Errorf("%w: encode: %v", ErrPersistence, err)
	}

	// The write must land even if the caller's context was cancelled after
	// the mutation was decided.
	if err := o.kv.Put(context.WithoutCancel(ctx), o.key, raw); err != nil {
		o.dirty = true
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	o.dirty = false
	return nil
}

func (o *Outbox) report(ctx context.Context, operation string, err error) {
	level := slog.LevelWarn
	if errors.Is(err, ErrCorruptState) {
		level = slog.LevelError
	}
	o.logger.Log(ctx, level, "outbox operation failed", "operation", operation, "error", err)
	o.sink.Report(ctx, diag.Diagnostic{
		Component: "outbox",
		Operation: operation,
		Err:       err,
		Attrs:     []any{"outbox", o.name},
	})
}

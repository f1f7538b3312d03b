package coordinator

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Token identifies one in-flight unit of work.
type Token struct {
	id        uuid.UUID
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	err       error
	startedAt time.Time
}

func newToken(parent context.Context) *Token {
	ctx, cancel := context.WithCancel(parent)
	return &Token{
		id:        uuid.New(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		startedAt: time.Now(),
	}
}

// ID returns the token identifier.
func (t *Token) ID() string {
	return t.id.String()
}

// StartedAt returns when the work started.
func (t *Token) StartedAt() time.Time {
	return t.startedAt
}

// Done is closed when the work has returned.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// Err returns the work's result. It is only meaningful after Done is closed.
func (t *Token) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the work returns or ctx is done.
func (t *Token) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel asks the work to stop. It does not wait.
func (t *Token) Cancel() {
	t.cancel()
}

// Cancelled reports whether Cancel was called or the parent context ended.
func (t *Token) Cancelled() bool {
	return t.ctx.Err() != nil
}

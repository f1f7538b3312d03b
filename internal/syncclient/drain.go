package syncclient

import (
	"context"

	"github.com/phrazzld/scry-capture/internal/outbox"
)

// Queue is the part of an outbox a drain needs.
type Queue interface {
	Name() string
	PeekHead() (outbox.Entry, bool)
	CommitHead(ctx context.Context, entry outbox.Entry) error
}

// DeliverFunc delivers one entry. A nil error means the remote side
// acknowledged it and the entry may be committed.
type DeliverFunc func(ctx context.Context, entry outbox.Entry) error

// DrainWith delivers q's head repeatedly until the queue is empty, ctx is
// done, delivery fails or a commit cannot be persisted. It returns how many
// entries were delivered and committed. An entry whose delivery was not
// acknowledged is never committed.
func DrainWith(ctx context.Context, q Queue, deliver DeliverFunc) (int, error) {
	delivered := 0
	for {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}

		entry, ok := q.PeekHead()
		if !ok {
			return delivered, nil
		}

		if err := deliver(ctx, entry); err != nil {
			return delivered, err
		}

		if err := q.CommitHead(ctx, entry); err != nil {
			return delivered, err
		}
		delivered++
	}
}

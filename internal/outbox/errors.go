package outbox

import "errors"

// Common errors returned by the outbox package.
var (
	// ErrPersistence is returned (or reported) when the outbox state could not
	// be written. The in-memory state stays authoritative and the write is
	// retried on the next mutation.
	ErrPersistence = errors.New("outbox persistence failed")

	// ErrCorruptState is reported when persisted state cannot be decoded.
	ErrCorruptState = errors.New("outbox state is corrupt")

	// ErrInvalidName is returned when an outbox is created without a name.
	ErrInvalidName = errors.New("outbox name cannot be empty")

	// ErrNilStore is returned when an outbox is created without a store.
	ErrNilStore = errors.New("outbox store cannot be nil")
)

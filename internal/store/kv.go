package store

import (
	"context"
	"sync"
)

// KVStore persists opaque values under string keys. Put must be durable
// (or as durable as the backend allows) before it returns.
type KVStore interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put creates or replaces the value for key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// MemoryKVStore is a KVStore held in process memory.
// It survives nothing but is safe for concurrent use.
type MemoryKVStore struct {
	mu     sync.RWMutex
	values map[string][]byte

	// PutFn, when set, replaces the default Put behaviour. Tests use it to
	// inject persistence failures.
	PutFn func(ctx context.Context, key string, value []byte) error
}

// NewMemoryKVStore creates an empty MemoryKVStore.
func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{values: make(map[string][]byte)}
}

// Get implements KVStore.
func (s *MemoryKVStore) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Put implements KVStore.
func (s *MemoryKVStore) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrInvalidKey
	}
	if s.PutFn != nil {
		if err := s.PutFn(ctx, key, value); err != nil {
			return err
		}
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = stored
	return nil
}

// Delete implements KVStore.
func (s *MemoryKVStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

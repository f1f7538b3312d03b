// Package redis provides a Redis implementation of store.KVStore for hosts that
// share outbox state with sibling processes through a Redis instance.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/scry-capture/internal/store"
)

const backend = "redis"

// DefaultKeyPrefix namespaces every key written by KVStore.
const DefaultKeyPrefix = "scry:capture:"

// KVStore implements store.KVStore with plain GET/SET/DEL commands.
type KVStore struct {
	client goredis.UniversalClient
	prefix string
}

var _ store.KVStore = (*KVStore)(nil)

// NewKVStore wraps an existing client. An empty prefix uses DefaultKeyPrefix.
func NewKVStore(client goredis.UniversalClient, prefix string) *KVStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &KVStore{client: client, prefix: prefix}
}

// Open parses a redis:// URL, connects and pings the server.
func Open(ctx context.Context, url string) (*KVStore, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping: %v", store.ErrUnavailable, err)
	}
	return NewKVStore(client, ""), nil
}

// Close releases the underlying client.
func (s *KVStore) Close() error {
	return s.client.Close()
}

// Get implements store.KVStore.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, store.ErrInvalidKey
	}

	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, &store.StoreError{Backend: backend, Operation: "get", Key: key, Err: err}
	}
	return value, nil
}

// Put implements store.KVStore. Values never expire.
func (s *KVStore) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return store.ErrInvalidKey
	}

	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return &store.StoreError{Backend: backend, Operation: "put", Key: key, Err: err}
	}
	return nil
}

// Delete implements store.KVStore.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return store.ErrInvalidKey
	}

	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return &store.StoreError{Backend: backend, Operation: "delete", Key: key, Err: err}
	}
	return nil
}

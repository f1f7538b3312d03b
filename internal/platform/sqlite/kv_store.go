package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/scry-capture/internal/store"

	_ "modernc.org/sqlite"
)

const backend = "sqlite"

// Open opens a SQLite database at path and enforces production-safe
// defaults: WAL journal mode, synchronous=FULL and a 5-second busy timeout.
// It pings the connection before returning.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// One writer keeps WAL checkpoints and busy handling predictable.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s on %s: %w", pragma, path, err)
		}
	}

	return db, nil
}

// KVStore implements store.KVStore on the kv_entries table.
type KVStore struct {
	db store.DBTX
}

var _ store.KVStore = (*KVStore)(nil)

// NewKVStore creates a KVStore. The schema must already be migrated.
func NewKVStore(db store.DBTX) *KVStore {
	return &KVStore{db: db}
}

// Get implements store.KVStore.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, store.ErrInvalidKey
	}

	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, &store.StoreError{Backend: backend, Operation: "get", Key: key, Err: err}
	}
	return value, nil
}

// Put implements store.KVStore.
func (s *KVStore) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return store.ErrInvalidKey
	}
	if value == nil {
		value = []byte{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return &store.StoreError{Backend: backend, Operation: "put", Key: key, Err: err}
	}
	return nil
}

// Delete implements store.KVStore.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return store.ErrInvalidKey
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		return &store.StoreError{Backend: backend, Operation: "delete", Key: key, Err: err}
	}
	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/phrazzld/scry-capture/internal/store"
)

const backend = "postgres"

// Open opens a pgx-backed *sql.DB and verifies it with a ping.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", MapError(err))
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
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = $1`, key).Scan(&value)
	if err != nil {
		mapped := MapError(err)
		if store.IsNotFoundError(mapped) {
			return nil, store.ErrNotFound
		}
		return nil, &store.StoreError{Backend: backend, Operation: "get", Key: key, Err: mapped}
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
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return &store.StoreError{Backend: backend, Operation: "put", Key: key, Err: MapError(err)}
	}
	return nil
}

// Delete implements store.KVStore.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return store.ErrInvalidKey
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
		return &store.StoreError{Backend: backend, Operation: "delete", Key: key, Err: MapError(err)}
	}
	return nil
}

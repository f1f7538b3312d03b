package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-capture/internal/config"
	"github.com/phrazzld/scry-capture/internal/platform/migrations"
	"github.com/phrazzld/scry-capture/internal/platform/postgres"
	"github.com/phrazzld/scry-capture/internal/platform/redis"
	"github.com/phrazzld/scry-capture/internal/platform/sqlite"
	"github.com/phrazzld/scry-capture/internal/store"
)

// openStorage opens the configured key-value backend and applies pending
// migrations for the SQL drivers. The returned func releases the backend.
func openStorage(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (store.KVStore, func() error, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		if err := migrate(ctx, db, migrations.DialectSQLite, log); err != nil {
			return nil, nil, err
		}
		log.Info("storage opened", "driver", cfg.Driver, "path", cfg.Path)
		return sqlite.NewKVStore(db), db.Close, nil

	case "postgres":
		db, err := postgres.Open(ctx, cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		if err := migrate(ctx, db, migrations.DialectPostgres, log); err != nil {
			return nil, nil, err
		}
		log.Info("storage opened", "driver", cfg.Driver)
		return postgres.NewKVStore(db), db.Close, nil

	case "redis":
		kv, err := redis.Open(ctx, cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("storage opened", "driver", cfg.Driver)
		return kv, kv.Close, nil

	case "memory":
		log.Warn("using in-memory storage; outboxes will not survive a restart")
		return store.NewMemoryKVStore(), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

func migrate(ctx context.Context, db *sql.DB, dialect migrations.Dialect, log *slog.Logger) error {
	if err := migrations.Up(ctx, db, dialect, log); err != nil {
		_ = db.Close()
		return err
	}
	return nil
}

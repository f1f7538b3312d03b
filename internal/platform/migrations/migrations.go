// Package migrations embeds the schema for SQL-backed key-value stores and
// applies it with goose. SQLite and PostgreSQL each get their own migration
// set because their column types differ.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var embedded embed.FS

// Dialect identifies a supported SQL backend.
type Dialect string

// Supported dialects
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) goose() (goose.Dialect, error) {
	switch d {
	case DialectSQLite:
		return goose.DialectSQLite3, nil
	case DialectPostgres:
		return goose.DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported migration dialect %q", d)
	}
}

// Up applies every pending migration for dialect to db.
func Up(ctx context.Context, db *sql.DB, dialect Dialect, logger *slog.Logger) error {
	gooseDialect, err := dialect.goose()
	if err != nil {
		return err
	}

	fsys, err := fs.Sub(embedded, string(dialect))
	if err != nil {
		return fmt.Errorf("failed to open %s migrations: %w", dialect, err)
	}

	provider, err := goose.NewProvider(gooseDialect, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply %s migrations: %w", dialect, err)
	}

	if logger != nil {
		for _, r := range results {
			logger.Info("applied migration",
				"component", "migrations",
				"dialect", string(dialect),
				"version", r.Source.Version,
				"duration_ms", r.Duration.Milliseconds())
		}
	}
	return nil
}

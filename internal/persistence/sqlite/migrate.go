package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrationStep is one versioned schema change. Steps run in order inside a
// transaction and are recorded in schema_migrations so reruns are no-ops.
type migrationStep struct {
	version    int
	name       string
	statements []string
}

var migrations = []migrationStep{
	{
		version: 1,
		name:    "initial schema",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS events (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				date TEXT NOT NULL,
				start_time TEXT,
				end_time TEXT,
				required_resource_count INTEGER NOT NULL CHECK (required_resource_count >= 1),
				assignments TEXT NOT NULL DEFAULT '[]',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS resources (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL COLLATE NOCASE,
				phone TEXT,
				available INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_resources_name ON resources(name)`,
		},
	},
	{
		version: 2,
		name:    "index events by date",
		statements: []string{
			`CREATE INDEX IF NOT EXISTS idx_events_date ON events(date)`,
		},
	},
}

// Migrate brings the schema up to the latest version.
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.pool.DB().ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("sqlite: create schema_migrations: %w", err)
	}

	current, err := s.currentVersion(ctx)
	if err != nil {
		return err
	}

	for _, step := range migrations {
		if step.version <= current {
			continue
		}
		err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, stmt := range step.statements {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("sqlite: migration %d (%s): %w", step.version, step.name, err)
				}
			}
			_, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, step.version, step.name)
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Storage) currentVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	err := s.pool.DB().QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("sqlite: read schema version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

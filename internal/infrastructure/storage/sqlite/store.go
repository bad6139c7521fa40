// Package sqlite provides an SQLite-backed KeyValueStore using the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"pagesmith.dev/engine/internal/application/ports"
)

//go:embed migrations/001_initial.sql
var initialMigration string

// Store implements ports.KeyValueStore on a single SQLite table.
type Store struct {
	db *sql.DB
}

// Open creates an SQLite-backed store. Use ":memory:" for an in-memory
// database (useful for testing).
func Open(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if dsn != ":memory:" {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection serializes writes and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(initialMigration); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM records WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Put upserts every entry inside one transaction.
func (s *Store) Put(ctx context.Context, entries ...ports.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, e := range entries {
		if strings.TrimSpace(e.Key) == "" {
			return fmt.Errorf("record key is required")
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO records (key, value, updated_at)
			VALUES (?, ?, datetime('now'))
			ON CONFLICT (key) DO UPDATE SET
				value = excluded.value,
				updated_at = datetime('now')
		`, e.Key, e.Value)
		if err != nil {
			return fmt.Errorf("put %s: %w", e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

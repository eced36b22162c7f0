// Package sqlite provides SQLite-based persistent storage for RankFlow.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// FileName is the database file created inside the data directory.
const FileName = "rankflow.db"

// DB wraps a SQLite connection with WAL mode and migrations.
// It implements domain.Store.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/rankflow.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Tasks: every rank column is stored as-is; density is checked on load.
		`CREATE TABLE IF NOT EXISTS tasks (
			id              TEXT PRIMARY KEY,
			title           TEXT NOT NULL,
			description     TEXT NOT NULL DEFAULT '',
			priority_rank   INTEGER NOT NULL,
			difficulty_rank INTEGER NOT NULL,
			urgency_rank    INTEGER NOT NULL,
			status          TEXT NOT NULL DEFAULT 'todo',
			created_at      INTEGER NOT NULL,
			due_date        TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(due_date)`,

		`CREATE TABLE IF NOT EXISTS habits (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			frequency  TEXT NOT NULL DEFAULT 'daily',
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS habit_completions (
			habit_id TEXT NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
			day      TEXT NOT NULL,
			PRIMARY KEY (habit_id, day)
		)`,

		`CREATE TABLE IF NOT EXISTS notes (
			id         TEXT PRIMARY KEY,
			content    TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_created ON notes(created_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Replace Helper ─────────────────────────────────────────────────────────

// replace runs fn inside one transaction that first empties table. Either
// the whole new collection is visible afterwards or none of it is.
func (d *DB) replace(ctx context.Context, table string, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		"saved_at_"+table, strconv.FormatInt(time.Now().UnixMilli(), 10),
	); err != nil {
		return fmt.Errorf("stamp %s: %w", table, err)
	}
	return tx.Commit()
}

// ─── Meta ───────────────────────────────────────────────────────────────────

// LastSaved returns when table was last replaced, or the zero time.
func (d *DB) LastSaved(ctx context.Context, table string) (time.Time, error) {
	var value string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, "saved_at_"+table).Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("meta %s: %w", table, err)
	}
	return time.UnixMilli(ms), nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

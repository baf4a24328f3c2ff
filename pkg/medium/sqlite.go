package medium

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchemaVersion = 1

const (
	createRecordsTable = `
		CREATE TABLE IF NOT EXISTS store_records (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)`

	createSchemaVersionTable = `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`

	upsertRecord = `
		INSERT INTO store_records (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	selectRecord = `SELECT value FROM store_records WHERE key = ?`
)

// dbOpener is used to open database connections, injectable for testing
var dbOpener = sql.Open

// SQLite stores records in a single table of a SQLite database.
type SQLite struct {
	db      *sql.DB
	getStmt *sql.Stmt
	setStmt *sql.Stmt
	closed  atomic.Bool
}

// SQLiteOption configures the SQLite medium.
type SQLiteOption func(*sqliteConfig)

type sqliteConfig struct {
	busyTimeout time.Duration
}

// WithBusyTimeout sets the SQLite busy timeout. Default is 5 seconds.
func WithBusyTimeout(timeout time.Duration) SQLiteOption {
	return func(c *sqliteConfig) {
		c.busyTimeout = timeout
	}
}

// NewSQLite opens (or creates) the database at path and migrates it. Use
// ":memory:" for a private in-memory database.
func NewSQLite(path string, opts ...SQLiteOption) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("medium: sqlite path is required")
	}
	if path != ":memory:" && (strings.Contains(path, "?") || strings.Contains(path, "#")) {
		return nil, errors.New("medium: sqlite path cannot contain '?' or '#' characters")
	}

	cfg := sqliteConfig{busyTimeout: 5 * time.Second}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	var dsn string
	if path == ":memory:" {
		dsn = ":memory:"
	} else {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, cfg.busyTimeout.Milliseconds())
	}

	db, err := dbOpener("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("medium: sqlite open: %w", err)
	}
	if path == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("medium: sqlite migrate: %w", err)
	}

	s := &SQLite{db: db}
	if s.getStmt, err = db.Prepare(selectRecord); err != nil {
		db.Close()
		return nil, fmt.Errorf("medium: sqlite prepare: %w", err)
	}
	if s.setStmt, err = db.Prepare(upsertRecord); err != nil {
		db.Close()
		return nil, fmt.Errorf("medium: sqlite prepare: %w", err)
	}
	return s, nil
}

func (s *SQLite) GetItem(ctx context.Context, key string) (string, bool, error) {
	if s.closed.Load() {
		return "", false, ErrClosed
	}
	var value string
	err := s.getStmt.QueryRowContext(ctx, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("medium: sqlite get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLite) SetItem(ctx context.Context, key, value string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if _, err := s.setStmt.ExecContext(ctx, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("medium: sqlite set %q: %w", key, err)
	}
	return nil
}

// Close releases the prepared statements and the database handle.
func (s *SQLite) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return errors.Join(s.getStmt.Close(), s.setStmt.Close(), s.db.Close())
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createSchemaVersionTable); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}
	if version >= sqliteSchemaVersion {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	for _, stmt := range []string{createRecordsTable, "INSERT INTO schema_version (version) VALUES (1)"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Join(fmt.Errorf("exec schema: %w", err), tx.Rollback())
		}
	}
	return tx.Commit()
}

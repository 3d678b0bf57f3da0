// Package store persists chat sessions and their measurements in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/xid"
	// Import modernc.org/sqlite as a blank import to register the driver
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("session not found")

// Store wraps the SQL database connection with history-specific methods.
type Store struct {
	*sql.DB
	path string
}

// Session is one run of the interactive loop.
type Session struct {
	ID        string
	Provider  string
	StartedAt time.Time
	EndedAt   time.Time // zero while the session is running or if it crashed
	Requests  int
	// Segment counts statistics resets; measurements recorded after the
	// n-th reset belong to segment n.
	Segment int
}

// NewSessionID returns a new sortable, globally unique session ID.
func NewSessionID() string {
	return xid.New().String()
}

// Open creates a new database connection and initializes the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Connection-scoped pragmas go in the DSN so every pooled connection gets them.
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{DB: sqlDB, path: path}

	if err := s.configure(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	if err := s.createSchema(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := s.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) createSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			segment INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS measurements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			model TEXT NOT NULL DEFAULT '',
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			estimated_tokens INTEGER NOT NULL DEFAULT 0,
			succeeded INTEGER NOT NULL,
			response TEXT NOT NULL DEFAULT '',
			segment INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_measurements_session ON measurements(session_id, id)`,
	}
	for _, q := range queries {
		if _, err := s.ExecContext(context.Background(), q); err != nil {
			return err
		}
	}

	// Databases created before segments existed.
	for _, table := range []string{"sessions", "measurements"} {
		if err := s.ensureColumn(table, "segment", "INTEGER NOT NULL DEFAULT 0"); err != nil {
			return err
		}
	}
	return nil
}

// ensureColumn adds column to table unless it is already present.
func (s *Store) ensureColumn(table, column, decl string) error {
	rows, err := s.QueryContext(context.Background(), "PRAGMA table_info("+table+")")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	_, err = s.ExecContext(context.Background(), "ALTER TABLE "+table+" ADD COLUMN "+column+" "+decl)
	return err
}

// timeLayout keeps sub-second precision and sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

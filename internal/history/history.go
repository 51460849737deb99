// Package history persists completed dictation results in SQLite.
// The store is append-only: the session appends exactly one entry per
// successfully injected session, and the UI reads recent entries.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	mode       TEXT NOT NULL,
	text       TEXT NOT NULL,
	provider   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at DESC);
`

// Entry is one completed dictation or command result.
type Entry struct {
	ID        string
	Timestamp time.Time
	Mode      string // "dictation" or "command"
	Text      string
	Provider  string
}

// Store is a SQLite-backed history log.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("history: creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Append stores a new entry. A missing ID or timestamp is filled in.
func (s *Store) Append(e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	_, err := s.db.Exec(
		`INSERT INTO entries (id, created_at, mode, text, provider) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UTC().Format(time.RFC3339Nano), e.Mode, e.Text, e.Provider,
	)
	if err != nil {
		return fmt.Errorf("history: inserting entry: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT id, created_at, mode, text, provider FROM entries ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("history: querying entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.Mode, &e.Text, &e.Provider); err != nil {
			return nil, fmt.Errorf("history: scanning entry: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("history: parsing timestamp %q: %w", ts, err)
		}
		e.Timestamp = t
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating entries: %w", err)
	}
	return entries, nil
}

// Count returns the number of stored entries.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("history: counting entries: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

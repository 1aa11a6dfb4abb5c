// Package history keeps an append-only sqlite log of active-status
// transitions for audit and introspection.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/presenced/internal/status"
)

// Transition is one recorded active-status change.
type Transition struct {
	ID         int64     `json:"id"`
	FromLabel  string    `json:"from_label,omitempty"`
	ToLabel    string    `json:"to_label,omitempty"`
	ToSource   string    `json:"to_source,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SQLiteStore implements the transition log on sqlite.
// Use ":memory:" for an in-memory database, or a file path for persistence.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the transition log.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_label TEXT NOT NULL,
		to_label TEXT NOT NULL,
		to_source TEXT NOT NULL,
		occurred_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_occurred_at ON transitions(occurred_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append records an active-status change.
func (s *SQLiteStore) Append(ctx context.Context, change status.ActiveChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	toSource := ""
	if change.To != nil {
		toSource = string(change.To.Source)
	}
	at := change.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transitions (from_label, to_label, to_source, occurred_at) VALUES (?, ?, ?, ?)`,
		change.FromLabel(), change.ToLabel(), toSource, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("append transition: %w", err)
	}
	return nil
}

// Recent returns the latest transitions, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Transition, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, from_label, to_label, to_source, occurred_at
		 FROM transitions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var tr Transition
		var at int64
		if err := rows.Scan(&tr.ID, &tr.FromLabel, &tr.ToLabel, &tr.ToSource, &at); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.OccurredAt = time.UnixMilli(at).UTC()
		out = append(out, tr)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

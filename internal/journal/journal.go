// Package journal persists emitted care events to a local SQLite database.
//
// Writes happen on the dispatcher's fire-and-forget path; a journal failure
// is logged and never reaches the pipeline.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/shichaoxia/baby-monitor/pkg/types"
)

// Store manages care-event persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Entry is one journaled care event.
type Entry struct {
	ID        string    `json:"id"`
	EmittedAt time.Time `json:"emitted_at"`
	Category  string    `json:"category"`
	Label     string    `json:"label"`
}

// Open initializes or connects to the journal database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	const schema = `
CREATE TABLE IF NOT EXISTS care_events (
    id         TEXT PRIMARY KEY,
    emitted_at TEXT NOT NULL,
    category   TEXT NOT NULL,
    label      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_care_events_emitted_at ON care_events (emitted_at);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Append inserts one emitted event.
func (s *Store) Append(ctx context.Context, ev types.NotificationEvent) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO care_events (id, emitted_at, category, label) VALUES (?, ?, ?, ?)`,
		ev.ID,
		ev.Timestamp.UTC().Format(time.RFC3339Nano),
		string(ev.Category),
		ev.Label,
	)
	if err != nil {
		return fmt.Errorf("insert care event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, emitted_at, category, label FROM care_events ORDER BY emitted_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query care events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var emitted string
		if err := rows.Scan(&e.ID, &emitted, &e.Category, &e.Label); err != nil {
			return nil, fmt.Errorf("scan care event: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, emitted); parseErr == nil {
			e.EmittedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

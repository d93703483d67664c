// Package history keeps an append-only activity log of catalogue changes in SQLite,
// the persistent form of the "uploaded", "updated" and "deleted" notices shown to
// users.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"padget/internal/logging"
	"padget/internal/store"
)

// Entry is one logged change.
type Entry struct {
	ID       int64     `json:"id"`
	Op       store.Op  `json:"op"`
	Index    int       `json:"index"`
	RecordID int       `json:"record_id"`
	Title    string    `json:"title"`
	URL      string    `json:"url"`
	Count    int       `json:"count"`
	At       time.Time `json:"at"`
}

// Message renders the entry the way the dashboard announced it.
func (e Entry) Message() string {
	switch e.Op {
	case store.OpAdd:
		return fmt.Sprintf("'%s' uploaded successfully!", e.Title)
	case store.OpUpdate, store.OpTouch:
		return fmt.Sprintf("'%s' updated", e.Title)
	case store.OpRemove:
		return fmt.Sprintf("'%s' deleted successfully!", e.Title)
	case store.OpReload:
		return fmt.Sprintf("reloaded %d records changed by another session", e.Count)
	}
	return string(e.Op)
}

// Log is the SQLite-backed activity log.
type Log struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// Open initializes the database at path.
func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; SQLite serializes anyway and this avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	l := &Log{db: db, path: path}
	if err := l.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Log) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS activity (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		op TEXT NOT NULL,
		position INTEGER NOT NULL,
		record_id INTEGER NOT NULL DEFAULT 0,
		title TEXT,
		url TEXT,
		record_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_activity_created ON activity(created_at);
	`
	if _, err := l.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (l *Log) Close() error {
	return l.db.Close()
}

// Record appends an entry. At defaults to now.
func (l *Log) Record(ctx context.Context, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO activity (op, position, record_id, title, url, record_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(e.Op), e.Index, e.RecordID, e.Title, e.URL, e.Count, e.At.UnixNano(),
	)
	if err != nil {
		logging.Get(logging.CategoryHistory).Error("Failed to record %s: %v", e.Op, err)
		return fmt.Errorf("record activity: %w", err)
	}
	logging.HistoryDebug("Recorded %s id=%d", e.Op, e.RecordID)
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT id, op, position, record_id, title, url, record_count, created_at
		 FROM activity
		 ORDER BY id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e     Entry
			op    string
			title sql.NullString
			url   sql.NullString
			at    int64
		)
		if err := rows.Scan(&e.ID, &op, &e.Index, &e.RecordID, &title, &url, &e.Count, &at); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		e.Op = store.Op(op)
		e.Title = title.String
		e.URL = url.String
		e.At = time.Unix(0, at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FromChange converts a store change into a log entry.
func FromChange(c store.Change) Entry {
	return Entry{
		Op:       c.Op,
		Index:    c.Index,
		RecordID: c.Record.ID,
		Title:    c.Record.Title,
		URL:      c.Record.URL,
		Count:    c.Count,
		At:       c.At,
	}
}

// Subscribe records every change applied to s.
func (l *Log) Subscribe(s *store.Store) {
	s.OnChange(func(c store.Change) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.Record(ctx, FromChange(c))
	})
}

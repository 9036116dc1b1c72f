package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists threads and documents in a local SQLite database.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS threads (
	id         TEXT PRIMARY KEY,
	messages   TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	title      TEXT NOT NULL,
	data       BLOB NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_kind ON documents(kind);
`

// OpenSQLite opens (or creates) the store at the given path. Parent
// directories are created and WAL mode is enabled for concurrent reads.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// GetThread returns a thread by id, or ErrNotFound.
func (s *SQLiteStore) GetThread(ctx context.Context, id string) (*Thread, error) {
	var raw, updatedAt string
	t := &Thread{ID: id}
	err := s.conn.QueryRowContext(ctx,
		"SELECT messages, updated_at FROM threads WHERE id = ?", id,
	).Scan(&raw, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get thread %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(raw), &t.Messages); err != nil {
		return nil, fmt.Errorf("decode thread %s: %w", id, err)
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse thread %s timestamp: %w", id, err)
	}
	return t, nil
}

// UpsertThread creates or replaces a thread.
func (s *SQLiteStore) UpsertThread(ctx context.Context, t *Thread) error {
	raw, err := json.Marshal(t.Messages)
	if err != nil {
		return fmt.Errorf("encode thread %s: %w", t.ID, err)
	}
	updated := t.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO threads (id, messages, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET messages = excluded.messages, updated_at = excluded.updated_at`,
		t.ID, string(raw), formatTime(updated))
	if err != nil {
		return fmt.Errorf("upsert thread %s: %w", t.ID, err)
	}
	return nil
}

// ListThreads returns all threads, newest first.
func (s *SQLiteStore) ListThreads(ctx context.Context) ([]*Thread, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT id, messages, updated_at FROM threads ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var out []*Thread
	for rows.Next() {
		var raw, updatedAt string
		t := &Thread{}
		if err := rows.Scan(&t.ID, &raw, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &t.Messages); err != nil {
			return nil, fmt.Errorf("decode thread %s: %w", t.ID, err)
		}
		if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse thread %s timestamp: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteThread removes a thread by id.
func (s *SQLiteStore) DeleteThread(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM threads WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete thread %s: %w", id, err)
	}
	return nil
}

// GetDocument returns a document by id, or ErrNotFound.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	var createdAt string
	d := &Document{ID: id}
	err := s.conn.QueryRowContext(ctx,
		"SELECT kind, title, data, created_at FROM documents WHERE id = ?", id,
	).Scan(&d.Kind, &d.Title, &d.Data, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse document %s timestamp: %w", id, err)
	}
	return d, nil
}

// UpsertDocument creates or replaces a document.
func (s *SQLiteStore) UpsertDocument(ctx context.Context, d *Document) error {
	created := d.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO documents (id, kind, title, data, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET kind = excluded.kind, title = excluded.title, data = excluded.data`,
		d.ID, d.Kind, d.Title, d.Data, formatTime(created))
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", d.ID, err)
	}
	return nil
}

// ListDocuments returns documents, optionally filtered by kind.
func (s *SQLiteStore) ListDocuments(ctx context.Context, kind string) ([]*Document, error) {
	query := "SELECT id, kind, title, data, created_at FROM documents ORDER BY created_at DESC"
	args := []interface{}{}
	if kind != "" {
		query = "SELECT id, kind, title, data, created_at FROM documents WHERE kind = ? ORDER BY created_at DESC"
		args = append(args, kind)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		var createdAt string
		d := &Document{}
		if err := rows.Scan(&d.ID, &d.Kind, &d.Title, &d.Data, &createdAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if d.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse document %s timestamp: %w", d.ID, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDocument removes a document by id.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// Package store provides snippet persistence backends for the playground:
// SQLite for single-binary deployments and PostgreSQL for shared ones. Both
// speak the same code_snippets table shape and both report missing records
// through playground.NotFoundError so callers see one error taxonomy.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/codeforge-edu/codeforge/playground"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS code_snippets (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	language   TEXT NOT NULL,
	code       TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_code_snippets_user ON code_snippets (user_id, created_at);
`

// SQLiteStore persists snippets in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and ensures the
// code_snippets table exists. Use ":memory:" for an ephemeral store.
func NewSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "./codeforge.db"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: failed to connect: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying handle so read-only collaborators (the catalog)
// can share one database file.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// List returns the owner's snippets, most recently created first.
func (s *SQLiteStore) List(ctx context.Context, ownerID string) ([]playground.Snippet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, language, code, user_id, created_at, updated_at
		 FROM code_snippets WHERE user_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, &playground.TransportError{Op: "list", Err: err}
	}
	defer rows.Close()

	return scanSnippets(rows)
}

// Create inserts a new snippet, assigning id and timestamps.
func (s *SQLiteStore) Create(ctx context.Context, f playground.SnippetFields) (playground.Snippet, error) {
	snip := playground.Snippet{
		ID:       uuid.NewString(),
		Title:    f.Title,
		Language: f.Language,
		Code:     f.Code,
		OwnerID:  f.OwnerID,
	}
	now := time.Now().UTC()
	snip.CreatedAt = now
	snip.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO code_snippets (id, title, language, code, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snip.ID, snip.Title, string(snip.Language), snip.Code, snip.OwnerID, snip.CreatedAt, snip.UpdatedAt)
	if err != nil {
		return playground.Snippet{}, &playground.TransportError{Op: "create", Err: err}
	}
	return snip, nil
}

// Update rewrites title and code of the owner's snippet. The language column
// is never touched; a snippet keeps the language it was created with.
func (s *SQLiteStore) Update(ctx context.Context, id string, f playground.SnippetFields) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE code_snippets SET title = ?, code = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		f.Title, f.Code, time.Now().UTC(), id, f.OwnerID)
	if err != nil {
		return &playground.TransportError{Op: "update", Err: err}
	}
	return requireRow(res, id, "update")
}

// Delete removes the owner's snippet by id.
func (s *SQLiteStore) Delete(ctx context.Context, id, ownerID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM code_snippets WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return &playground.TransportError{Op: "delete", Err: err}
	}
	return requireRow(res, id, "delete")
}

// requireRow turns a zero-row mutation into a NotFoundError.
func requireRow(res sql.Result, id, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return &playground.TransportError{Op: op, Err: err}
	}
	if n == 0 {
		return &playground.NotFoundError{ID: id}
	}
	return nil
}

// scanSnippets reads snippet rows in the shared column order.
func scanSnippets(rows *sql.Rows) ([]playground.Snippet, error) {
	snippets := make([]playground.Snippet, 0)
	for rows.Next() {
		var s playground.Snippet
		var lang string
		if err := rows.Scan(&s.ID, &s.Title, &lang, &s.Code, &s.OwnerID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, &playground.TransportError{Op: "list", Err: err}
		}
		s.Language = playground.Language(lang)
		snippets = append(snippets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &playground.TransportError{Op: "list", Err: err}
	}
	return snippets, nil
}

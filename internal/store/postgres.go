package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/codeforge-edu/codeforge/playground"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS code_snippets (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	language   TEXT NOT NULL,
	code       TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_code_snippets_user ON code_snippets (user_id, created_at);
`

// PostgresStore persists snippets in a PostgreSQL database, for deployments
// where several instances share one store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres connects using dsn, falling back to DATABASE_URL when dsn is
// empty, and ensures the code_snippets table exists.
func NewPostgres(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, fmt.Errorf("pg store: database connection required (set store.dsn or DATABASE_URL)")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pg store: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pg store: failed to connect: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("pg store: failed to create schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// DB exposes the underlying handle for read-only collaborators.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// List returns the owner's snippets, most recently created first.
func (s *PostgresStore) List(ctx context.Context, ownerID string) ([]playground.Snippet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, language, code, user_id, created_at, updated_at
		 FROM code_snippets WHERE user_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, &playground.TransportError{Op: "list", Err: err}
	}
	defer rows.Close()

	return scanSnippets(rows)
}

// Create inserts a new snippet, assigning id and timestamps.
func (s *PostgresStore) Create(ctx context.Context, f playground.SnippetFields) (playground.Snippet, error) {
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
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		snip.ID, snip.Title, string(snip.Language), snip.Code, snip.OwnerID, snip.CreatedAt, snip.UpdatedAt)
	if err != nil {
		return playground.Snippet{}, &playground.TransportError{Op: "create", Err: err}
	}
	return snip, nil
}

// Update rewrites title and code; language is never changed.
func (s *PostgresStore) Update(ctx context.Context, id string, f playground.SnippetFields) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE code_snippets SET title = $1, code = $2, updated_at = $3
		 WHERE id = $4 AND user_id = $5`,
		f.Title, f.Code, time.Now().UTC(), id, f.OwnerID)
	if err != nil {
		return &playground.TransportError{Op: "update", Err: err}
	}
	return requireRow(res, id, "update")
}

// Delete removes the owner's snippet by id.
func (s *PostgresStore) Delete(ctx context.Context, id, ownerID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM code_snippets WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return &playground.TransportError{Op: "delete", Err: err}
	}
	return requireRow(res, id, "delete")
}

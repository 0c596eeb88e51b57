// Package playground implements the code playground engine: three
// independently edited source buffers (structure, presentation, behavior),
// on-demand composition into a single renderable document, and a persisted
// per-owner snippet collection with create-vs-update selection tracking.
//
// The package is transport-agnostic. Rendering the composed document happens
// in the browser inside a document-isolated surface; this package only
// produces the document and manages the editing/persistence state around it.
package playground

import (
	"context"
	"fmt"
	"time"
)

// Language identifies which of the three source buffers a fragment belongs to.
type Language string

const (
	LangStructure    Language = "structure"    // markup, becomes body content
	LangPresentation Language = "presentation" // styles, becomes a style block
	LangBehavior     Language = "behavior"     // script, becomes a script block
)

// Valid reports whether l is one of the three buffer languages.
func (l Language) Valid() bool {
	switch l {
	case LangStructure, LangPresentation, LangBehavior:
		return true
	}
	return false
}

// ParseLanguage converts a wire string into a Language.
func ParseLanguage(s string) (Language, error) {
	l := Language(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown language %q (want structure, presentation or behavior)", s)
	}
	return l, nil
}

// Snippet is a persisted, single-language code fragment owned by one user.
// ID, CreatedAt and UpdatedAt are assigned by the store.
type Snippet struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Language  Language  `json:"language"`
	Code      string    `json:"code"`
	OwnerID   string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SnippetFields carries the caller-supplied fields for create and update.
type SnippetFields struct {
	Title    string
	Language Language
	Code     string
	OwnerID  string
}

// Store persists snippets in an external durable store. Implementations must
// scope every operation to the owner, assign id and timestamps on create,
// keep list order most-recently-created first, and report a missing id via
// *NotFoundError. Operations are never retried by callers in this package;
// each user action issues at most one attempt.
type Store interface {
	List(ctx context.Context, ownerID string) ([]Snippet, error)
	Create(ctx context.Context, f SnippetFields) (Snippet, error)
	Update(ctx context.Context, id string, f SnippetFields) error
	Delete(ctx context.Context, id, ownerID string) error
}

// SessionGate reports the authenticated owner for the current call, if any.
// The playground never authenticates by itself; it only consumes this
// narrow capability before store-mutating operations.
type SessionGate interface {
	CurrentOwner(ctx context.Context) (string, bool)
}

package playground

import (
	"fmt"
	"sync"
)

// Default seed content for a fresh playground.
const (
	defaultStructure    = "<div>\n  <h1>Hello, World!</h1>\n  <p>Start coding here...</p>\n</div>"
	defaultPresentation = "body {\n  font-family: Arial, sans-serif;\n  padding: 20px;\n}\n\nh1 {\n  color: #333;\n}"
	defaultBehavior     = "// JavaScript code here\nconsole.log('Hello, World!');"
)

// BufferSet holds the three independently edited source buffers. Exactly one
// buffer is active (the one currently displayed); the other two retain their
// last written value. A BufferSet lives for the whole page session and is
// owned by a single playground instance.
type BufferSet struct {
	mu           sync.RWMutex
	structure    string
	presentation string
	behavior     string
	active       Language
}

// NewBufferSet returns a buffer set seeded with the default content,
// with the structure buffer active.
func NewBufferSet() *BufferSet {
	return &BufferSet{
		structure:    defaultStructure,
		presentation: defaultPresentation,
		behavior:     defaultBehavior,
		active:       LangStructure,
	}
}

// Get returns the current content of the given buffer.
func (b *BufferSet) Get(lang Language) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	switch lang {
	case LangPresentation:
		return b.presentation
	case LangBehavior:
		return b.behavior
	default:
		return b.structure
	}
}

// Set replaces the content of the given buffer. Writes are last-write-wins
// per buffer; setting one buffer never touches the other two.
func (b *BufferSet) Set(lang Language, code string) error {
	if !lang.Valid() {
		return fmt.Errorf("invalid buffer language %q", lang)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	switch lang {
	case LangStructure:
		b.structure = code
	case LangPresentation:
		b.presentation = code
	case LangBehavior:
		b.behavior = code
	}
	return nil
}

// Active returns the currently active buffer language.
func (b *BufferSet) Active() Language {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.active
}

// SetActive switches which buffer is displayed. The previous buffer keeps
// its content.
func (b *BufferSet) SetActive(lang Language) error {
	if !lang.Valid() {
		return fmt.Errorf("invalid buffer language %q", lang)
	}
	b.mu.Lock()
	b.active = lang
	b.mu.Unlock()
	return nil
}

// ActiveCode returns the content of the active buffer.
func (b *BufferSet) ActiveCode() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	switch b.active {
	case LangPresentation:
		return b.presentation
	case LangBehavior:
		return b.behavior
	default:
		return b.structure
	}
}

// Snapshot returns the three buffer contents at a single point in time, for
// composition. A run composes these values; later edits do not affect a run
// already snapshotted.
func (b *BufferSet) Snapshot() (structure, presentation, behavior string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.structure, b.presentation, b.behavior
}

package playground

import (
	"context"
	"sync"
)

// Controller tracks which persisted snippet (if any) the buffer set
// currently mirrors, and disambiguates save into create versus update.
//
// States: unselected (save creates) and selected-by-id (save updates that
// id). Loading a snippet or a successful create selects it; deleting the
// selected snippet or starting a new one clears the selection; edits and
// successful updates keep it.
//
// Store calls run outside the controller lock, so two overlapping saves for
// the same selection are not serialized; the later completion wins. That
// race is accepted; the one guarantee the controller does make is that a
// list returned from Save or Delete was fetched after the mutation landed.
type Controller struct {
	buffers *BufferSet
	store   Store
	gate    SessionGate

	mu       sync.Mutex
	selected string   // snippet id, empty when unselected
	selLang  Language // captured at load/create; updates never change it
}

// NewController wires a buffer set to a store behind a session gate.
func NewController(buffers *BufferSet, store Store, gate SessionGate) *Controller {
	return &Controller{buffers: buffers, store: store, gate: gate}
}

// Buffers returns the buffer set this controller mirrors snippets into.
func (c *Controller) Buffers() *BufferSet {
	return c.buffers
}

// Selected returns the selected snippet id, if any.
func (c *Controller) Selected() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected, c.selected != ""
}

// NewSnippet clears the selection so the next save creates a new record.
// Buffer contents are untouched.
func (c *Controller) NewSnippet() {
	c.mu.Lock()
	c.selected = ""
	c.selLang = ""
	c.mu.Unlock()
}

// Load replaces the single buffer matching the snippet's language with its
// code, makes that buffer active, and selects the snippet. The other two
// buffers are left untouched.
func (c *Controller) Load(s Snippet) error {
	if err := c.buffers.Set(s.Language, s.Code); err != nil {
		return err
	}
	if err := c.buffers.SetActive(s.Language); err != nil {
		return err
	}
	c.mu.Lock()
	c.selected = s.ID
	c.selLang = s.Language
	c.mu.Unlock()
	return nil
}

// Save persists one buffer under the given title: a create of the active
// buffer when nothing is selected, an update of the selected snippet
// otherwise. Updates keep the language captured at load or create and send
// that buffer's current code; update never changes a snippet's language.
//
// Without an owner identity Save returns ErrUnauthenticated and the store
// is not called. An update hitting a concurrently deleted snippet returns
// the NotFoundError and drops the stale selection; it is never retried as a
// create. On success Save returns a list fetched after the mutation.
func (c *Controller) Save(ctx context.Context, title string) ([]Snippet, error) {
	owner, ok := c.gate.CurrentOwner(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	c.mu.Lock()
	id := c.selected
	lang := c.selLang
	c.mu.Unlock()

	if id == "" {
		lang = c.buffers.Active()
		created, err := c.store.Create(ctx, SnippetFields{
			Title:    title,
			Language: lang,
			Code:     c.buffers.Get(lang),
			OwnerID:  owner,
		})
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.selected = created.ID
		c.selLang = created.Language
		c.mu.Unlock()
		return c.store.List(ctx, owner)
	}

	err := c.store.Update(ctx, id, SnippetFields{
		Title:    title,
		Language: lang,
		Code:     c.buffers.Get(lang),
		OwnerID:  owner,
	})
	if err != nil {
		if IsNotFound(err) {
			// The record vanished underneath the selection. Fail closed:
			// drop the selection and surface the error instead of silently
			// resurrecting the snippet under a new id.
			c.clearIfSelected(id)
		}
		return nil, err
	}
	return c.store.List(ctx, owner)
}

// Delete removes a snippet. Deleting the selected snippet clears the
// selection; deleting any other id leaves it alone. A NotFound from the
// store means the record is already gone and is treated as satisfied.
// On success Delete returns a list fetched after the mutation.
func (c *Controller) Delete(ctx context.Context, id string) ([]Snippet, error) {
	owner, ok := c.gate.CurrentOwner(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	if err := c.store.Delete(ctx, id, owner); err != nil && !IsNotFound(err) {
		return nil, err
	}
	c.clearIfSelected(id)
	return c.store.List(ctx, owner)
}

// List fetches the owner's snippets, most recently created first.
func (c *Controller) List(ctx context.Context) ([]Snippet, error) {
	owner, ok := c.gate.CurrentOwner(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return c.store.List(ctx, owner)
}

func (c *Controller) clearIfSelected(id string) {
	c.mu.Lock()
	if c.selected == id {
		c.selected = ""
		c.selLang = ""
	}
	c.mu.Unlock()
}

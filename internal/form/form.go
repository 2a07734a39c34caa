// Package form holds the add/edit expense form state.
package form

import (
	"context"
	"errors"
	"sync"

	"expensetracker/internal/core"
)

var (
	// ErrInvalid is returned by Submit when the draft fails validation.
	ErrInvalid = errors.New("expense form has validation errors")
	// ErrSubmitting is returned by Submit and SetDraft while a submit is pending.
	ErrSubmitting = errors.New("expense form is already submitting")
	// ErrNotEditing is returned by Cancel in create mode.
	ErrNotEditing = errors.New("expense form is not in edit mode")
)

// Handler receives a validated payload. editing is the expense being edited,
// nil in create mode.
type Handler func(ctx context.Context, in core.ExpenseInput, editing *core.Expense) error

// State is a snapshot of the form for rendering.
type State struct {
	Draft      core.Draft
	Errors     core.FieldErrors
	Editing    *core.Expense
	Submitting bool
}

// IsEditing reports whether the form is in edit mode.
func (s State) IsEditing() bool {
	return s.Editing != nil
}

// Controller owns the draft, its validation errors and the edit target.
// It is safe for concurrent use; the lock is never held while the handler runs.
type Controller struct {
	mu         sync.Mutex
	draft      core.Draft
	errors     core.FieldErrors
	editing    *core.Expense
	submitting bool
	today      func() string
}

// New returns a controller in create mode with default fields.
func New() *Controller {
	c := &Controller{today: core.Today}
	c.reset()
	return c
}

// Load enters edit mode for e, or create mode with cleared fields when e is nil.
func (c *Controller) Load(e *core.Expense) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e == nil {
		c.editing = nil
		c.reset()
		return
	}
	cp := *e
	c.editing = &cp
	c.draft = core.DraftFrom(cp)
	c.errors = core.FieldErrors{}
}

// SetDraft replaces the draft with the user's current field values. The draft
// of a pending submit is left alone.
func (c *Controller) SetDraft(d core.Draft) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting {
		return ErrSubmitting
	}
	c.draft = d
	return nil
}

// Submit validates the draft and, when valid, calls h with the payload.
// Handler errors are returned unchanged. After a successful create the draft
// is reset; in edit mode the caller decides what happens next.
func (c *Controller) Submit(ctx context.Context, h Handler) error {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmitting
	}
	if errs := core.Validate(c.draft); len(errs) > 0 {
		c.errors = errs
		c.mu.Unlock()
		return ErrInvalid
	}
	c.errors = core.FieldErrors{}
	in := c.draft.Input()
	var editing *core.Expense
	if c.editing != nil {
		cp := *c.editing
		editing = &cp
	}
	c.submitting = true
	c.mu.Unlock()

	err := h(ctx, in, editing)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if err == nil && editing == nil && c.editing == nil {
		c.reset()
	}
	return err
}

// Cancel leaves edit mode without submitting and clears the fields.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editing == nil {
		return ErrNotEditing
	}
	c.editing = nil
	c.reset()
	return nil
}

// State returns a copy of the current form state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	errs := make(core.FieldErrors, len(c.errors))
	for k, v := range c.errors {
		errs[k] = v
	}
	var editing *core.Expense
	if c.editing != nil {
		cp := *c.editing
		editing = &cp
	}
	return State{
		Draft:      c.draft,
		Errors:     errs,
		Editing:    editing,
		Submitting: c.submitting,
	}
}

// reset must be called with mu held.
func (c *Controller) reset() {
	c.draft = core.Draft{Date: c.today()}
	c.errors = core.FieldErrors{}
}

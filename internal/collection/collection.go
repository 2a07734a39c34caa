// Package collection keeps the session's mirror of the remote expense list.
//
// The controller applies a change only after the remote API confirmed it.
// Refresh replaces the list wholesale; create, update and delete patch it.
// Deletion goes through a staged candidate that the user confirms:
//
//	idle -> staged -> deleting -> idle
//	staged -> idle (cancel)
package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"expensetracker/internal/core"
	"expensetracker/internal/remote"
)

var (
	// ErrStaleRefresh is returned when a mutation was applied while a refresh
	// was in flight; the refresh result is discarded.
	ErrStaleRefresh = errors.New("refresh result discarded: collection changed while loading")
	// ErrDeleteInProgress is returned by ConfirmDelete while a delete is pending.
	ErrDeleteInProgress = errors.New("delete already in progress")
)

// EventKind names a confirmed mutation.
type EventKind string

const (
	EventCreated EventKind = "expense.created"
	EventUpdated EventKind = "expense.updated"
	EventDeleted EventKind = "expense.deleted"
)

// Event describes a mutation the remote API confirmed.
type Event struct {
	Kind    EventKind
	Expense core.Expense
	At      time.Time
}

// EventSink receives confirmed mutations. Record must not block for long.
type EventSink interface {
	Record(ctx context.Context, ev Event)
}

// Snapshot is a copy of the controller state for rendering.
type Snapshot struct {
	Expenses   []core.Expense
	Total      decimal.Decimal
	Loading    bool
	Candidate  *core.Expense
	Deleting   bool
	Generation uint64
}

// Count returns the number of expenses in the snapshot.
func (s Snapshot) Count() int {
	return len(s.Expenses)
}

// Controller owns the ordered expense list of one session.
type Controller struct {
	api  remote.ExpenseAPI
	sink EventSink

	mu         sync.Mutex
	items      []core.Expense
	loading    bool
	candidate  *core.Expense
	deleting   bool
	generation uint64
	subs       map[int]func(Snapshot)
	nextSub    int

	refreshGroup singleflight.Group
}

// Option configures a Controller.
type Option func(*Controller)

// WithEventSink forwards confirmed mutations to sink.
func WithEventSink(sink EventSink) Option {
	return func(c *Controller) { c.sink = sink }
}

func New(api remote.ExpenseAPI, opts ...Option) *Controller {
	c := &Controller{
		api:  api,
		subs: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned function removes the subscription.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Get returns the expense with the given id from the local collection.
func (c *Controller) Get(id string) (core.Expense, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.items[i], true
	}
	return core.Expense{}, false
}

// Refresh replaces the collection with the remote list, preserving its order.
// On failure the previous collection is kept. Concurrent calls share one
// remote request.
func (c *Controller) Refresh(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		return nil, c.refresh(ctx)
	})
	return err
}

func (c *Controller) refresh(ctx context.Context) error {
	var gen uint64
	c.update(func() {
		c.generation++
		gen = c.generation
		c.loading = true
	})

	items, err := c.api.ListExpenses(ctx)

	var stale bool
	c.update(func() {
		c.loading = false
		if err != nil {
			return
		}
		if c.generation != gen {
			stale = true
			return
		}
		c.items = append([]core.Expense{}, items...)
	})
	if err != nil {
		return fmt.Errorf("refresh expenses: %w", err)
	}
	if stale {
		return ErrStaleRefresh
	}
	return nil
}

// Create sends in to the API and prepends the returned expense.
func (c *Controller) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	created, err := c.api.CreateExpense(ctx, in)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	c.update(func() {
		// A refresh that landed while the create was in flight may already hold it.
		if i := c.indexLocked(created.ID); i >= 0 {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
		}
		c.items = append([]core.Expense{created}, c.items...)
		c.generation++
	})
	c.record(ctx, EventCreated, created)
	return created, nil
}

// Update sends in to the API and replaces the entry with the same id in place.
func (c *Controller) Update(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error) {
	updated, err := c.api.UpdateExpense(ctx, id, in)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", id, err)
	}
	if updated.ID == "" {
		updated.ID = id
	}
	c.update(func() {
		if i := c.indexLocked(id); i >= 0 {
			c.items[i] = updated
		}
		c.generation++
	})
	c.record(ctx, EventUpdated, updated)
	return updated, nil
}

// RequestDelete stages the expense with the given id for deletion, replacing
// any previous candidate. It reports false when the id is unknown or a delete
// is already running.
func (c *Controller) RequestDelete(id string) bool {
	staged := false
	c.update(func() {
		if c.deleting {
			return
		}
		i := c.indexLocked(id)
		if i < 0 {
			return
		}
		cp := c.items[i]
		c.candidate = &cp
		staged = true
	})
	return staged
}

// CancelDelete dismisses the staged candidate. It has no effect while the
// delete request is running.
func (c *Controller) CancelDelete() {
	c.update(func() {
		if c.deleting {
			return
		}
		c.candidate = nil
	})
}

// ConfirmDelete deletes the staged candidate remotely and, on success, removes
// it from the collection. Without a candidate it does nothing. The candidate is
// cleared whatever the outcome.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	var (
		target core.Expense
		staged bool
		busy   bool
	)
	c.update(func() {
		if c.candidate == nil {
			return
		}
		if c.deleting {
			busy = true
			return
		}
		staged = true
		target = *c.candidate
		c.deleting = true
	})
	if busy {
		return ErrDeleteInProgress
	}
	if !staged {
		return nil
	}

	err := c.api.DeleteExpense(ctx, target.ID)

	c.update(func() {
		c.deleting = false
		c.candidate = nil
		if err != nil {
			return
		}
		if i := c.indexLocked(target.ID); i >= 0 {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
		}
		c.generation++
	})
	if err != nil {
		return fmt.Errorf("delete expense %s: %w", target.ID, err)
	}
	c.record(ctx, EventDeleted, target)
	return nil
}

// update runs fn under the lock and then notifies subscribers outside it.
func (c *Controller) update(fn func()) {
	c.mu.Lock()
	fn()
	snap := c.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		s(snap)
	}
}

func (c *Controller) record(ctx context.Context, kind EventKind, e core.Expense) {
	if c.sink == nil {
		return
	}
	c.sink.Record(ctx, Event{Kind: kind, Expense: e, At: time.Now()})
}

func (c *Controller) snapshotLocked() Snapshot {
	items := append([]core.Expense{}, c.items...)
	var candidate *core.Expense
	if c.candidate != nil {
		cp := *c.candidate
		candidate = &cp
	}
	return Snapshot{
		Expenses:   items,
		Total:      core.Total(items),
		Loading:    c.loading,
		Candidate:  candidate,
		Deleting:   c.deleting,
		Generation: c.generation,
	}
}

func (c *Controller) indexLocked(id string) int {
	for i, e := range c.items {
		if e.ID == id {
			return i
		}
	}
	return -1
}

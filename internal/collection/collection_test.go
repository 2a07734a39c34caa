package collection

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

var errRemote = errors.New("remote failure")

// fakeAPI records calls and returns canned results.
type fakeAPI struct {
	mu sync.Mutex

	list      []core.Expense
	listErr   error
	listGate  chan struct{}
	listEnter chan struct{}

	createResult core.Expense
	createErr    error
	createGate   chan struct{}
	createEnter  chan struct{}
	updateResult core.Expense
	updateErr    error
	deleteErr    error

	listCalls   int
	deleteCalls []string
}

func (f *fakeAPI) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	f.mu.Lock()
	f.listCalls++
	gate, enter := f.listGate, f.listEnter
	items, err := append([]core.Expense(nil), f.list...), f.listErr
	f.mu.Unlock()
	if enter != nil {
		enter <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return items, err
}

func (f *fakeAPI) GetExpense(context.Context, string) (core.Expense, error) {
	return core.Expense{}, errors.New("not used")
}

func (f *fakeAPI) CreateExpense(context.Context, core.ExpenseInput) (core.Expense, error) {
	if f.createEnter != nil {
		f.createEnter <- struct{}{}
	}
	if f.createGate != nil {
		<-f.createGate
	}
	return f.createResult, f.createErr
}

func (f *fakeAPI) UpdateExpense(context.Context, string, core.ExpenseInput) (core.Expense, error) {
	return f.updateResult, f.updateErr
}

func (f *fakeAPI) DeleteExpense(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, id)
	return f.deleteErr
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Record(_ context.Context, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func coffee() core.Expense {
	return core.Expense{ID: "1", Title: "Coffee", Amount: 4.5, Category: "Food", Date: "2024-01-01", Notes: ""}
}

func bus() core.Expense {
	return core.Expense{ID: "2", Title: "Bus", Amount: 2, Category: "Transport", Date: "2024-01-02", Notes: ""}
}

func loaded(t *testing.T, api *fakeAPI, items ...core.Expense) *Controller {
	t.Helper()
	api.list = items
	c := New(api)
	require.NoError(t, c.Refresh(context.Background()))
	return c
}

func ids(s Snapshot) []string {
	out := make([]string, 0, len(s.Expenses))
	for _, e := range s.Expenses {
		out = append(out, e.ID)
	}
	return out
}

func TestRefresh_ReplacesPreservingOrder(t *testing.T) {
	api := &fakeAPI{}
	c := loaded(t, api, bus(), coffee())

	snap := c.Snapshot()
	assert.Equal(t, []string{"2", "1"}, ids(snap))
	assert.True(t, snap.Total.Equal(decimal.RequireFromString("6.5")))
	assert.Equal(t, 2, snap.Count())
	assert.False(t, snap.Loading)
}

func TestRefresh_FailureKeepsPreviousCollection(t *testing.T) {
	api := &fakeAPI{}
	c := loaded(t, api, coffee())

	api.listErr = errRemote
	err := c.Refresh(context.Background())
	require.ErrorIs(t, err, errRemote)
	assert.Equal(t, []string{"1"}, ids(c.Snapshot()))
	assert.False(t, c.Snapshot().Loading)
}

func TestRefresh_LoadingDuringCall(t *testing.T) {
	api := &fakeAPI{listGate: make(chan struct{}), listEnter: make(chan struct{}, 1)}
	c := New(api)

	done := make(chan error, 1)
	go func() { done <- c.Refresh(context.Background()) }()
	<-api.listEnter
	assert.True(t, c.Snapshot().Loading)
	close(api.listGate)
	require.NoError(t, <-done)
	assert.False(t, c.Snapshot().Loading)
}

func TestRefresh_StaleResultDiscardedAfterMutation(t *testing.T) {
	api := &fakeAPI{list: []core.Expense{coffee()}, listGate: make(chan struct{}), listEnter: make(chan struct{}, 1)}
	c := New(api)

	done := make(chan error, 1)
	go func() { done <- c.Refresh(context.Background()) }()
	<-api.listEnter

	api.createResult = bus()
	_, err := c.Create(context.Background(), bus().Input())
	require.NoError(t, err)

	close(api.listGate)
	require.ErrorIs(t, <-done, ErrStaleRefresh)
	assert.Equal(t, []string{"2"}, ids(c.Snapshot()), "the newer local mutation must survive")
}

func TestRefresh_ConcurrentCallsShareOneRequest(t *testing.T) {
	api := &fakeAPI{list: []core.Expense{coffee()}, listGate: make(chan struct{}), listEnter: make(chan struct{}, 2)}
	c := New(api)

	first := make(chan error, 1)
	go func() { first <- c.Refresh(context.Background()) }()
	<-api.listEnter

	second := make(chan error, 1)
	go func() { second <- c.Refresh(context.Background()) }()

	close(api.listGate)
	require.NoError(t, <-first)
	require.NoError(t, <-second)
	api.mu.Lock()
	defer api.mu.Unlock()
	assert.LessOrEqual(t, api.listCalls, 2)
}

func TestRefresh_Cancelled(t *testing.T) {
	api := &fakeAPI{listGate: make(chan struct{}), listEnter: make(chan struct{}, 1)}
	c := loaded(t, &fakeAPI{}, coffee())
	c.api = api

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Refresh(ctx) }()
	<-api.listEnter
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, []string{"1"}, ids(c.Snapshot()))
}

func TestCreate_PrependsExactlyOnce(t *testing.T) {
	api := &fakeAPI{}
	c := loaded(t, api, coffee())

	created := core.Expense{ID: "new", Title: "Lunch", Amount: 12, Category: "Food", Date: "2024-01-03"}
	api.createResult = created
	got, err := c.Create(context.Background(), created.Input())
	require.NoError(t, err)
	assert.Equal(t, created, got)

	snap := c.Snapshot()
	assert.Equal(t, []string{"new", "1"}, ids(snap))
}

func TestCreate_RefreshDuringCreateKeepsIDUnique(t *testing.T) {
	api := &fakeAPI{}
	c := loaded(t, api, coffee())

	created := core.Expense{ID: "new", Title: "Lunch", Amount: 12, Category: "Food", Date: "2024-01-03"}
	api.createResult = created
	api.createEnter = make(chan struct{})
	api.createGate = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := c.Create(context.Background(), created.Input())
		done <- err
	}()
	<-api.createEnter

	// The server already stored the record, so the refresh sees it.
	api.mu.Lock()
	api.list = []core.Expense{created, coffee()}
	api.mu.Unlock()
	require.NoError(t, c.Refresh(context.Background()))

	close(api.createGate)
	require.NoError(t, <-done)

	snap := c.Snapshot()
	assert.Equal(t, []string{"new", "1"}, ids(snap))
	assert.True(t, decimal.NewFromFloat(16.5).Equal(snap.Total))
}

func TestCreate_FailureLeavesCollectionUnchanged(t *testing.T) {
	api := &fakeAPI{createErr: errRemote}
	c := loaded(t, api, coffee())
	before := c.Snapshot()

	_, err := c.Create(context.Background(), bus().Input())
	require.ErrorIs(t, err, errRemote)
	assert.Equal(t, before.Expenses, c.Snapshot().Expenses)
}

func TestUpdate_ReplacesInPlace(t *testing.T) {
	api := &fakeAPI{}
	c := loaded(t, api, coffee())

	in := core.ExpenseInput{Title: "Tea", Amount: 3.0, Category: "Food", Date: "2024-01-01", Notes: ""}
	api.updateResult = in.WithID("1")
	_, err := c.Update(context.Background(), "1", in)
	require.NoError(t, err)

	snap := c.Snapshot()
	require.Len(t, snap.Expenses, 1)
	assert.Equal(t, core.Expense{ID: "1", Title: "Tea", Amount: 3.0, Category: "Food", Date: "2024-01-01", Notes: ""}, snap.Expenses[0])
}

func TestUpdate_KeepsPosition(t *testing.T) {
	api := &fakeAPI{}
	c := loaded(t, api, bus(), coffee())

	api.updateResult = core.Expense{ID: "2", Title: "Train", Amount: 9, Category: "Transport", Date: "2024-01-02"}
	_, err := c.Update(context.Background(), "2", api.updateResult.Input())
	require.NoError(t, err)
	snap := c.Snapshot()
	assert.Equal(t, []string{"2", "1"}, ids(snap))
	assert.Equal(t, "Train", snap.Expenses[0].Title)
}

func TestUpdate_FailureLeavesCollectionUnchanged(t *testing.T) {
	api := &fakeAPI{updateErr: errRemote}
	c := loaded(t, api, coffee())

	_, err := c.Update(context.Background(), "1", core.ExpenseInput{Title: "Tea"})
	require.ErrorIs(t, err, errRemote)
	assert.Equal(t, []core.Expense{coffee()}, c.Snapshot().Expenses)
}

func TestRequestDelete_LastRequestWins(t *testing.T) {
	c := loaded(t, &fakeAPI{}, coffee(), bus())

	require.True(t, c.RequestDelete("1"))
	require.True(t, c.RequestDelete("2"))
	snap := c.Snapshot()
	require.NotNil(t, snap.Candidate)
	assert.Equal(t, "2", snap.Candidate.ID)
}

func TestRequestDelete_UnknownIDIsNoop(t *testing.T) {
	c := loaded(t, &fakeAPI{}, coffee())
	require.True(t, c.RequestDelete("1"))
	assert.False(t, c.RequestDelete("missing"))
	assert.Equal(t, "1", c.Snapshot().Candidate.ID)
}

func TestConfirmDelete_RemovesByID(t *testing.T) {
	api := &fakeAPI{}
	sink := &recordingSink{}
	c := loaded(t, api, coffee(), bus())
	c.sink = sink

	require.True(t, c.RequestDelete("1"))
	require.NoError(t, c.ConfirmDelete(context.Background()))

	snap := c.Snapshot()
	assert.Equal(t, []string{"2"}, ids(snap))
	assert.Nil(t, snap.Candidate)
	assert.False(t, snap.Deleting)
	assert.Equal(t, []string{"1"}, api.deleteCalls)
	require.Len(t, sink.events, 1)
	assert.Equal(t, EventDeleted, sink.events[0].Kind)
}

func TestConfirmDelete_WithoutCandidateIsNoop(t *testing.T) {
	api := &fakeAPI{}
	c := loaded(t, api, coffee())

	require.NoError(t, c.ConfirmDelete(context.Background()))
	assert.Empty(t, api.deleteCalls)
	assert.Equal(t, []string{"1"}, ids(c.Snapshot()))
}

func TestConfirmDelete_FailureClearsCandidateKeepsItem(t *testing.T) {
	api := &fakeAPI{deleteErr: errRemote}
	c := loaded(t, api, coffee())

	require.True(t, c.RequestDelete("1"))
	err := c.ConfirmDelete(context.Background())
	require.ErrorIs(t, err, errRemote)

	snap := c.Snapshot()
	assert.Equal(t, []string{"1"}, ids(snap))
	assert.Nil(t, snap.Candidate)
	assert.False(t, snap.Deleting)
}

func TestCancelDelete(t *testing.T) {
	api := &fakeAPI{}
	c := loaded(t, api, coffee())

	require.True(t, c.RequestDelete("1"))
	c.CancelDelete()
	assert.Nil(t, c.Snapshot().Candidate)
	require.NoError(t, c.ConfirmDelete(context.Background()))
	assert.Empty(t, api.deleteCalls)
	assert.Equal(t, []string{"1"}, ids(c.Snapshot()))
}

func TestSubscribeReceivesChanges(t *testing.T) {
	api := &fakeAPI{list: []core.Expense{coffee()}}
	c := New(api)

	var mu sync.Mutex
	var seen []Snapshot
	unsubscribe := c.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s)
	})

	require.NoError(t, c.Refresh(context.Background()))
	mu.Lock()
	require.Len(t, seen, 2, "loading start and completion")
	assert.True(t, seen[0].Loading)
	assert.False(t, seen[1].Loading)
	assert.Equal(t, []string{"1"}, ids(seen[1]))
	mu.Unlock()

	unsubscribe()
	c.RequestDelete("1")
	mu.Lock()
	assert.Len(t, seen, 2)
	mu.Unlock()
}

func TestEventsForCreateAndUpdate(t *testing.T) {
	sink := &recordingSink{}
	api := &fakeAPI{createResult: coffee(), updateResult: coffee()}
	c := New(api, WithEventSink(sink))

	_, err := c.Create(context.Background(), coffee().Input())
	require.NoError(t, err)
	_, err = c.Update(context.Background(), "1", coffee().Input())
	require.NoError(t, err)

	require.Len(t, sink.events, 2)
	assert.Equal(t, EventCreated, sink.events[0].Kind)
	assert.Equal(t, EventUpdated, sink.events[1].Kind)
	assert.Equal(t, "1", sink.events[1].Expense.ID)
}

func TestGet(t *testing.T) {
	c := loaded(t, &fakeAPI{}, coffee())
	e, ok := c.Get("1")
	require.True(t, ok)
	assert.Equal(t, "Coffee", e.Title)
	_, ok = c.Get("2")
	assert.False(t, ok)
}

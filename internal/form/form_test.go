package form

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

func newTestController() *Controller {
	c := New()
	c.today = func() string { return "2024-05-06" }
	c.Load(nil)
	return c
}

func validDraft() core.Draft {
	return core.Draft{Title: " Coffee ", Amount: "4.5", Category: "Food", Date: "2024-01-01", Notes: " hot "}
}

func TestNew_DefaultsToCreateModeWithToday(t *testing.T) {
	st := newTestController().State()
	assert.False(t, st.IsEditing())
	assert.Equal(t, core.Draft{Date: "2024-05-06"}, st.Draft)
	assert.Empty(t, st.Errors)
}

func TestSubmit_InvalidDoesNotCallHandler(t *testing.T) {
	c := newTestController()
	called := false
	err := c.Submit(context.Background(), func(context.Context, core.ExpenseInput, *core.Expense) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrInvalid)
	assert.False(t, called)

	st := c.State()
	assert.Equal(t, "Title is required", st.Errors[core.FieldTitle])
	assert.Equal(t, "Amount must be greater than 0", st.Errors[core.FieldAmount])
	assert.Equal(t, "Category is required", st.Errors[core.FieldCategory])
	assert.False(t, st.Errors.Has(core.FieldDate))
}

func TestSubmit_CreateBuildsTrimmedPayloadAndResets(t *testing.T) {
	c := newTestController()
	c.SetDraft(validDraft())

	var got core.ExpenseInput
	var gotEditing *core.Expense
	err := c.Submit(context.Background(), func(_ context.Context, in core.ExpenseInput, editing *core.Expense) error {
		got, gotEditing = in, editing
		return nil
	})
	require.NoError(t, err)
	assert.Nil(t, gotEditing)
	assert.Equal(t, core.ExpenseInput{Title: "Coffee", Amount: 4.5, Category: "Food", Date: "2024-01-01", Notes: "hot"}, got)
	assert.Equal(t, core.Draft{Date: "2024-05-06"}, c.State().Draft)
}

func TestSubmit_ValidationErrorsClearedOnNextValidSubmit(t *testing.T) {
	c := newTestController()
	require.ErrorIs(t, c.Submit(context.Background(), nil), ErrInvalid)
	c.SetDraft(validDraft())
	require.NoError(t, c.Submit(context.Background(), func(context.Context, core.ExpenseInput, *core.Expense) error { return nil }))
	assert.Empty(t, c.State().Errors)
}

func TestSubmit_HandlerErrorPropagatesAndKeepsDraft(t *testing.T) {
	c := newTestController()
	c.SetDraft(validDraft())
	boom := errors.New("boom")

	err := c.Submit(context.Background(), func(context.Context, core.ExpenseInput, *core.Expense) error { return boom })
	require.ErrorIs(t, err, boom)

	st := c.State()
	assert.Equal(t, validDraft(), st.Draft)
	assert.False(t, st.Submitting)
}

func TestSubmit_RejectsResubmissionWhilePending(t *testing.T) {
	c := newTestController()
	c.SetDraft(validDraft())

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- c.Submit(context.Background(), func(context.Context, core.ExpenseInput, *core.Expense) error {
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered
	assert.True(t, c.State().Submitting)
	err := c.Submit(context.Background(), func(context.Context, core.ExpenseInput, *core.Expense) error {
		t.Fatal("second handler must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrSubmitting)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, c.State().Submitting)
}

func TestSetDraft_RejectedWhilePending(t *testing.T) {
	c := newTestController()
	require.NoError(t, c.SetDraft(validDraft()))
	boom := errors.New("boom")

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- c.Submit(context.Background(), func(context.Context, core.ExpenseInput, *core.Expense) error {
			close(entered)
			<-release
			return boom
		})
	}()

	<-entered
	err := c.SetDraft(core.Draft{Title: "Other", Amount: "1", Category: "Shopping", Date: "2024-02-02"})
	assert.ErrorIs(t, err, ErrSubmitting)

	close(release)
	require.ErrorIs(t, <-done, boom)
	assert.Equal(t, validDraft(), c.State().Draft, "the in-flight draft is kept for a retry")
}

func TestLoadThenSubmitRoundTrips(t *testing.T) {
	c := newTestController()
	e := core.Expense{ID: "1", Title: "Coffee", Amount: 4.5, Category: "Food", Date: "2024-01-01T00:00:00.000Z", Notes: "beans"}
	c.Load(&e)

	st := c.State()
	require.True(t, st.IsEditing())
	assert.Equal(t, "2024-01-01", st.Draft.Date)
	assert.Equal(t, "4.5", st.Draft.Amount)

	var got core.ExpenseInput
	var editing *core.Expense
	require.NoError(t, c.Submit(context.Background(), func(_ context.Context, in core.ExpenseInput, ed *core.Expense) error {
		got, editing = in, ed
		return nil
	}))

	want := e.Input()
	want.Date = "2024-01-01"
	assert.Equal(t, want, got)
	require.NotNil(t, editing)
	assert.Equal(t, "1", editing.ID)

	// Edit mode leaves field population to the caller.
	assert.True(t, c.State().IsEditing())
	assert.Equal(t, "Coffee", c.State().Draft.Title)
}

func TestLoadCopiesExpense(t *testing.T) {
	c := newTestController()
	e := core.Expense{ID: "1", Title: "Coffee", Amount: 1, Category: "Food", Date: "2024-01-01"}
	c.Load(&e)
	e.Title = "changed"
	assert.Equal(t, "Coffee", c.State().Editing.Title)
}

func TestLoadNilClearsEditMode(t *testing.T) {
	c := newTestController()
	c.Load(&core.Expense{ID: "1", Title: "Coffee", Amount: 1, Category: "Food", Date: "2024-01-01"})
	c.Load(nil)
	st := c.State()
	assert.False(t, st.IsEditing())
	assert.Equal(t, core.Draft{Date: "2024-05-06"}, st.Draft)
}

func TestCancel(t *testing.T) {
	c := newTestController()
	assert.ErrorIs(t, c.Cancel(), ErrNotEditing)

	c.Load(&core.Expense{ID: "1", Title: "Coffee", Amount: 1, Category: "Food", Date: "2024-01-01"})
	require.NoError(t, c.Cancel())
	st := c.State()
	assert.False(t, st.IsEditing())
	assert.Equal(t, core.Draft{Date: "2024-05-06"}, st.Draft)
}

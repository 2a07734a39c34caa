package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/remote"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "expenses.db")
	repo, err := NewSQLiteRepository(path, log.New(log.Config{Level: slog.LevelError, Output: io.Discard}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return repo
}

func input(title string) core.ExpenseInput {
	return core.ExpenseInput{Title: title, Amount: 4.5, Category: "Food", Date: "2024-01-01T00:00:00.000Z", Notes: "n"}
}

func TestRepository_CreateAndListNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.CreateExpense(ctx, input("Coffee"))
	require.NoError(t, err)
	second, err := repo.CreateExpense(ctx, input("Tea"))
	require.NoError(t, err)

	assert.Len(t, first.ID, 24)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "2024-01-01", first.Date)

	items, err := repo.ListExpenses(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Tea", items[0].Title)
	assert.Equal(t, "Coffee", items[1].Title)
}

func TestRepository_ListEmpty(t *testing.T) {
	items, err := newTestRepo(t).ListExpenses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRepository_GetUpdateDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateExpense(ctx, input("Coffee"))
	require.NoError(t, err)

	got, err := repo.GetExpense(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	in := input("Tea")
	in.Amount = 3
	updated, err := repo.UpdateExpense(ctx, created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Tea", updated.Title)
	assert.Equal(t, 3.0, updated.Amount)

	require.NoError(t, repo.DeleteExpense(ctx, created.ID))
	_, err = repo.GetExpense(ctx, created.ID)
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestRepository_MissingIDsAreNotFound(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetExpense(ctx, "missing")
	assert.ErrorIs(t, err, remote.ErrNotFound)

	_, err = repo.UpdateExpense(ctx, "missing", input("Tea"))
	assert.ErrorIs(t, err, remote.ErrNotFound)

	assert.ErrorIs(t, repo.DeleteExpense(ctx, "missing"), remote.ErrNotFound)
}

func TestRepository_RejectsInvalidInput(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	bad := input("Coffee")
	bad.Category = "Travel"
	_, err := repo.CreateExpense(ctx, bad)
	assert.ErrorIs(t, err, core.ErrInvalidCategory)

	bad = input("  ")
	_, err = repo.CreateExpense(ctx, bad)
	assert.ErrorIs(t, err, core.ErrEmptyTitle)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.db")
	first, err := RunMigrations(path)
	require.NoError(t, err)
	second, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)
	assert.Equal(t, first, second)
}

// Package remote defines the port to the remote expense API.
package remote

import (
	"context"
	"errors"
	"fmt"

	"expensetracker/internal/core"
)

// ExpenseAPI is the remote CRUD service the front-end mirrors.
type ExpenseAPI interface {
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	CreateExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
	UpdateExpense(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
}

// ErrNotFound is returned by implementations that can tell a missing record
// apart from other failures. The web front-end does not branch on it.
var ErrNotFound = errors.New("expense not found")

// APIError describes a non-2xx response from the remote API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match a 404 response.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}

package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds the SQL statements for the expenses table.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// ExpenseRow is one row of the expenses table.
type ExpenseRow struct {
	ID        string
	Title     string
	Amount    float64
	Category  string
	Date      string
	Notes     string
	CreatedAt int64
	UpdatedAt int64
}

const expenseColumns = `id, title, amount, category, date, notes, created_at, updated_at`

func scanExpense(row interface{ Scan(...any) error }) (ExpenseRow, error) {
	var e ExpenseRow
	err := row.Scan(&e.ID, &e.Title, &e.Amount, &e.Category, &e.Date, &e.Notes, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

const createExpense = `INSERT INTO expenses (` + expenseColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + expenseColumns

func (q *Queries) CreateExpense(ctx context.Context, arg ExpenseRow) (ExpenseRow, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.ID, arg.Title, arg.Amount, arg.Category, arg.Date, arg.Notes, arg.CreatedAt, arg.UpdatedAt)
	return scanExpense(row)
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id string) (ExpenseRow, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

const listExpenses = `SELECT ` + expenseColumns + ` FROM expenses ORDER BY created_at DESC, rowid DESC`

func (q *Queries) ListExpenses(ctx context.Context) ([]ExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ExpenseRow
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateExpense = `UPDATE expenses
SET title = ?, amount = ?, category = ?, date = ?, notes = ?, updated_at = ?
WHERE id = ?
RETURNING ` + expenseColumns

func (q *Queries) UpdateExpense(ctx context.Context, arg ExpenseRow) (ExpenseRow, error) {
	row := q.db.QueryRowContext(ctx, updateExpense,
		arg.Title, arg.Amount, arg.Category, arg.Date, arg.Notes, arg.UpdatedAt, arg.ID)
	return scanExpense(row)
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Package storage persists expenses in SQLite for the development API server.
package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/remote"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
	now     func() time.Time
	newID   func() string
}

var _ remote.ExpenseAPI = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens the database at dbPath, creating its directory,
// and applies pending migrations.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger = logger.WithComponent(log.ComponentStorage)
	logger.Info("Database schema ready", "db_path", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger,
		now:     time.Now,
		newID:   newObjectID,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListExpenses returns every expense, newest first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	items := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.expense())
	}
	return items, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("get expense %q: %w", id, remote.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %q: %w", id, err)
	}
	return row.expense(), nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	now := r.now().UnixNano()
	row, err := r.queries.CreateExpense(ctx, ExpenseRow{
		ID:        r.newID(),
		Title:     in.Title,
		Amount:    in.Amount,
		Category:  in.Category,
		Date:      core.DateOnly(in.Date),
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	r.logger.InfoContext(ctx, "Expense saved to SQLite",
		log.FieldOperation, log.OpCreate,
		log.FieldExpenseID, row.ID,
		log.FieldAmount, row.Amount,
		log.FieldCategory, row.Category)

	return row.expense(), nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	row, err := r.queries.UpdateExpense(ctx, ExpenseRow{
		ID:        id,
		Title:     in.Title,
		Amount:    in.Amount,
		Category:  in.Category,
		Date:      core.DateOnly(in.Date),
		Notes:     in.Notes,
		UpdatedAt: r.now().UnixNano(),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("update expense %q: %w", id, remote.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %q: %w", id, err)
	}

	r.logger.InfoContext(ctx, "Expense updated in SQLite",
		log.FieldOperation, log.OpUpdate,
		log.FieldExpenseID, row.ID)

	return row.expense(), nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense %q: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete expense %q: %w", id, remote.ErrNotFound)
	}

	r.logger.InfoContext(ctx, "Expense deleted from SQLite",
		log.FieldOperation, log.OpDelete,
		log.FieldExpenseID, id)

	return nil
}

func (row ExpenseRow) expense() core.Expense {
	return core.Expense{
		ID:       row.ID,
		Title:    row.Title,
		Amount:   row.Amount,
		Category: row.Category,
		Date:     row.Date,
		Notes:    row.Notes,
	}
}

// newObjectID returns a 24-character hex id.
func newObjectID() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%024x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

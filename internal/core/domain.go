package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the calendar-date layout used by the form and the API.
const DateLayout = "2006-01-02"

const (
	Food          Category = "Food"
	Transport     Category = "Transport"
	Entertainment Category = "Entertainment"
	Utilities     Category = "Utilities"
	Shopping      Category = "Shopping"
	Other         Category = "Other"
)

type (
	Category string

	// Expense is a record owned by the remote API. ID is assigned by the server.
	Expense struct {
		ID       string  `json:"_id"`
		Title    string  `json:"title"`
		Amount   float64 `json:"amount"`
		Category string  `json:"category"`
		Date     string  `json:"date"`
		Notes    string  `json:"notes"`
	}

	// ExpenseInput is the payload sent on create and update.
	ExpenseInput struct {
		Title    string  `json:"title"`
		Amount   float64 `json:"amount"`
		Category string  `json:"category"`
		Date     string  `json:"date"`
		Notes    string  `json:"notes"`
	}
)

var categories = []Category{Food, Transport, Entertainment, Utilities, Shopping, Other}

var (
	ErrEmptyTitle      = errors.New("empty title")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidDate     = errors.New("invalid date")
)

// Categories returns the fixed category set in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory returns the category named s, or ErrInvalidCategory.
func ParseCategory(s string) (Category, error) {
	for _, c := range categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

func (c Category) String() string {
	return string(c)
}

// DateOnly returns the calendar-date portion of an ISO-8601 date or date-time.
func DateOnly(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		return s[:i]
	}
	return s
}

// Today returns the current calendar date in DateLayout.
func Today() string {
	return time.Now().Format(DateLayout)
}

// Input returns the mutable fields of e as an ExpenseInput.
func (e Expense) Input() ExpenseInput {
	return ExpenseInput{
		Title:    e.Title,
		Amount:   e.Amount,
		Category: e.Category,
		Date:     e.Date,
		Notes:    e.Notes,
	}
}

// WithID builds the Expense the server would return for in under id.
func (in ExpenseInput) WithID(id string) Expense {
	return Expense{
		ID:       id,
		Title:    in.Title,
		Amount:   in.Amount,
		Category: in.Category,
		Date:     in.Date,
		Notes:    in.Notes,
	}
}

// Validate checks the full data model invariants. The form only applies the
// presence rules in Validate(Draft); this is used where inputs arrive from
// outside the form.
func (in ExpenseInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrEmptyTitle
	}
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) || in.Amount <= 0 {
		return ErrInvalidAmount
	}
	if _, err := ParseCategory(in.Category); err != nil {
		return err
	}
	if _, err := time.Parse(DateLayout, DateOnly(in.Date)); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, in.Date)
	}
	return nil
}

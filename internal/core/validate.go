package core

import (
	"math"
	"strconv"
	"strings"
)

// Form field names.
const (
	FieldTitle    = "title"
	FieldAmount   = "amount"
	FieldCategory = "category"
	FieldDate     = "date"
	FieldNotes    = "notes"
)

// Draft holds the raw, unvalidated form values.
type Draft struct {
	Title    string
	Amount   string
	Category string
	Date     string
	Notes    string
}

// FieldErrors maps a field name to a human-readable message.
type FieldErrors map[string]string

// Has reports whether field has an error.
func (fe FieldErrors) Has(field string) bool {
	_, ok := fe[field]
	return ok
}

// Validate returns an error for every draft field that fails its rule.
// The result is empty when the draft can be submitted.
func Validate(d Draft) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(d.Title) == "" {
		errs[FieldTitle] = "Title is required"
	}
	if _, ok := ParseAmount(d.Amount); !ok {
		errs[FieldAmount] = "Amount must be greater than 0"
	}
	if d.Category == "" {
		errs[FieldCategory] = "Category is required"
	}
	if d.Date == "" {
		errs[FieldDate] = "Date is required"
	}
	return errs
}

// ParseAmount parses s as a finite number greater than zero.
func ParseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}

// Input converts a valid draft into the payload sent to the API.
// Callers must run Validate first.
func (d Draft) Input() ExpenseInput {
	amount, _ := ParseAmount(d.Amount)
	return ExpenseInput{
		Title:    strings.TrimSpace(d.Title),
		Amount:   amount,
		Category: d.Category,
		Date:     d.Date,
		Notes:    strings.TrimSpace(d.Notes),
	}
}

// DraftFrom populates a draft from an existing expense, keeping only the date
// portion of its date field.
func DraftFrom(e Expense) Draft {
	return Draft{
		Title:    e.Title,
		Amount:   strconv.FormatFloat(e.Amount, 'f', -1, 64),
		Category: e.Category,
		Date:     DateOnly(e.Date),
		Notes:    e.Notes,
	}
}

package core

import (
	"errors"
	"math"
	"testing"
)

func TestDateOnly(t *testing.T) {
	cases := map[string]string{
		"2024-01-01":               "2024-01-01",
		"2024-01-01T00:00:00.000Z": "2024-01-01",
		" 2024-03-09T10:11:12Z ":   "2024-03-09",
		"":                         "",
	}
	for in, want := range cases {
		if got := DateOnly(in); got != want {
			t.Fatalf("DateOnly(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories() {
		got, err := ParseCategory(string(c))
		if err != nil || got != c {
			t.Fatalf("expected %q to parse, got %q err=%v", c, got, err)
		}
	}
	if _, err := ParseCategory("food"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if len(Categories()) != 6 {
		t.Fatalf("expected 6 categories")
	}
}

func TestExpenseInputValidate(t *testing.T) {
	good := ExpenseInput{Title: "Coffee", Amount: 4.5, Category: "Food", Date: "2024-01-01"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	withTime := good
	withTime.Date = "2024-01-01T00:00:00.000Z"
	if err := withTime.Validate(); err != nil {
		t.Fatalf("expected date-time to be accepted, got %v", err)
	}

	bads := []struct {
		in   ExpenseInput
		want error
	}{
		{ExpenseInput{Title: "  ", Amount: 1, Category: "Food", Date: "2024-01-01"}, ErrEmptyTitle},
		{ExpenseInput{Title: "a", Amount: 0, Category: "Food", Date: "2024-01-01"}, ErrInvalidAmount},
		{ExpenseInput{Title: "a", Amount: -2, Category: "Food", Date: "2024-01-01"}, ErrInvalidAmount},
		{ExpenseInput{Title: "a", Amount: math.Inf(1), Category: "Food", Date: "2024-01-01"}, ErrInvalidAmount},
		{ExpenseInput{Title: "a", Amount: 1, Category: "Rent", Date: "2024-01-01"}, ErrInvalidCategory},
		{ExpenseInput{Title: "a", Amount: 1, Category: "Food", Date: "2024-13-01"}, ErrInvalidDate},
		{ExpenseInput{Title: "a", Amount: 1, Category: "Food", Date: ""}, ErrInvalidDate},
	}
	for i, tc := range bads {
		if err := tc.in.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestInputWithIDRoundTrip(t *testing.T) {
	in := ExpenseInput{Title: "Tea", Amount: 3, Category: "Food", Date: "2024-01-01", Notes: "n"}
	e := in.WithID("1")
	if e.ID != "1" || e.Input() != in {
		t.Fatalf("round trip mismatch: %+v", e)
	}
}

// Package core provides money totals and formatting.
//
// Amounts travel as JSON numbers (float64). Sums go through decimal
// arithmetic so a list of cents-precise amounts totals exactly.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Total returns the exact sum of the expense amounts.
func Total(expenses []Expense) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range expenses {
		sum = sum.Add(decimal.NewFromFloat(e.Amount))
	}
	return sum
}

// FormatCurrency renders d in en-US dollars, e.g. "$1,234.50".
func FormatCurrency(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)

	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(frac)
	return b.String()
}

// FormatAmount renders a single expense amount in dollars.
func FormatAmount(amount float64) string {
	return FormatCurrency(decimal.NewFromFloat(amount))
}

// This file implements utilities for parsing HTTP request data into the
// expense form draft.

package http

import (
	"net/http"
	"net/url"
	"strings"

	"expensetracker/internal/core"
)

// ParseDraft reads the expense form fields. Values are sanitized but not
// trimmed; the form controller decides what whitespace means.
func ParseDraft(form url.Values) core.Draft {
	return core.Draft{
		Title:    sanitizeInput(form.Get(core.FieldTitle)),
		Amount:   sanitizeInput(form.Get(core.FieldAmount)),
		Category: sanitizeInput(form.Get(core.FieldCategory)),
		Date:     sanitizeInput(form.Get(core.FieldDate)),
		Notes:    sanitizeInput(form.Get(core.FieldNotes)),
	}
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}

// sanitizeInput removes control characters except tab, newline and carriage return.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		if r == 127 {
			return -1
		}
		return r
	}, s)
}

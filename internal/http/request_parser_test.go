package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"expensetracker/internal/core"
)

func TestParseDraft(t *testing.T) {
	form := url.Values{
		"title":    {" Coffee\x00 "},
		"amount":   {"4.50"},
		"category": {"Food"},
		"date":     {"2024-01-01"},
		"notes":    {"line one\nline two\x07"},
		"ignored":  {"x"},
	}

	got := ParseDraft(form)
	want := core.Draft{
		Title:    " Coffee ",
		Amount:   "4.50",
		Category: "Food",
		Date:     "2024-01-01",
		Notes:    "line one\nline two",
	}
	if got != want {
		t.Errorf("ParseDraft() = %+v, want %+v", got, want)
	}
}

func TestParseDraft_Empty(t *testing.T) {
	if got := ParseDraft(url.Values{}); got != (core.Draft{}) {
		t.Errorf("ParseDraft(empty) = %+v, want zero draft", got)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Groceries", "Groceries"},
		{"keeps whitespace", "  a\tb\r\n ", "  a\tb\r\n "},
		{"drops NUL", "a\x00b", "ab"},
		{"drops escape", "a\x1bb", "ab"},
		{"drops DEL", "a\x7fb", "ab"},
		{"keeps unicode", "café €", "café €"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeInput(tt.input); got != tt.want {
				t.Errorf("sanitizeInput(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFormOrFail(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader("title=Coffee"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if resp := ParseFormOrFail(req); resp != nil {
		t.Fatal("expected valid form to parse")
	}
	if req.PostForm.Get("title") != "Coffee" {
		t.Errorf("title = %q", req.PostForm.Get("title"))
	}

	bad := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader("%zz"))
	bad.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := ParseFormOrFail(bad)
	if resp == nil {
		t.Fatal("expected malformed body to fail")
	}
	w := httptest.NewRecorder()
	resp.Write(w)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

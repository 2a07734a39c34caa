package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/remote/memory"
)

func TestNewHandler(t *testing.T) {
	logger := log.New(log.Config{Level: slog.LevelError, Output: io.Discard})
	store := memory.New(core.Expense{ID: "e1", Title: "Coffee", Amount: 4.5, Category: "Food", Date: "2024-01-01"})
	ts := httptest.NewServer(newHandler(store, logger))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(ts.URL + "/api/expenses")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.True(t, strings.Contains(string(body), `"_id":"e1"`))
}

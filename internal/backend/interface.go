// Package backend builds the expense store behind each binary from configuration.
package backend

import (
	"time"

	"expensetracker/internal/remote"
	"expensetracker/internal/remote/rest"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result contains the store and an optional cleanup function.
type Result struct {
	API     remote.ExpenseAPI
	Cleanup CleanupFunc
}

// Close runs the cleanup function when there is one.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// REST specific
	BaseURL  string
	Timeout  time.Duration
	Observer rest.Observer

	// SQLite specific
	SQLiteDBPath string

	// Memory specific; empty means start empty
	SeedFile string
}

// Type names a backend implementation
type Type string

const (
	RESTBackend   Type = "rest"
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case RESTBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Package memory is an in-process implementation of remote.ExpenseAPI.
package memory

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/remote"
)

// Store keeps expenses newest first.
type Store struct {
	mu    sync.Mutex
	items []core.Expense
	newID func() string
}

func New(seed ...core.Expense) *Store {
	s := &Store{newID: randomID}
	s.items = append(s.items, seed...)
	return s
}

// NewFromFile seeds the store from a JSON-lines file of expenses. A missing
// file yields an empty store.
func NewFromFile(path string) *Store {
	return New(readSeed(path)...)
}

var _ remote.ExpenseAPI = (*Store)(nil)

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense{}, s.items...), nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i], nil
	}
	return core.Expense{}, fmt.Errorf("get %q: %w", id, remote.ErrNotFound)
}

func (s *Store) CreateExpense(_ context.Context, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := stored(in, s.newID())
	s.items = append([]core.Expense{e}, s.items...)
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, id string, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Expense{}, fmt.Errorf("update %q: %w", id, remote.ErrNotFound)
	}
	s.items[i] = stored(in, id)
	return s.items[i], nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("delete %q: %w", id, remote.ErrNotFound)
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

// stored keeps only the calendar date, as the sqlite backend does.
func stored(in core.ExpenseInput, id string) core.Expense {
	in.Date = core.DateOnly(in.Date)
	return in.WithID(id)
}

func (s *Store) indexOf(id string) int {
	for i, e := range s.items {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func randomID() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

func readSeed(path string) []core.Expense {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.Expense
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var e core.Expense
		if err := json.Unmarshal([]byte(line), &e); err != nil || e.ID == "" {
			continue
		}
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		e.Date = core.DateOnly(e.Date)
		out = append(out, e)
	}
	return out
}

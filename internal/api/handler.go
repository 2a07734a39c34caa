// Package api serves the expense REST API used by the web front-end and the
// CLI during local development.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/remote"
)

const maxBodyBytes = 1 << 20

// Server exposes a remote.ExpenseAPI implementation over HTTP at /api/expenses.
type Server struct {
	store  remote.ExpenseAPI
	logger *log.Logger
	events *log.StructuredLogger
}

func NewServer(store remote.ExpenseAPI, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentAPI)
	return &Server{
		store:  store,
		logger: logger,
		events: log.NewStructuredLogger(logger),
	}
}

// Routes registers the API handlers on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/expenses", s.handleList)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleGet)
	mux.HandleFunc("POST /api/expenses", s.handleCreate)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDelete)
}

// Handler returns a mux serving only the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Routes(mux)
	return mux
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListExpenses(r.Context())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.GetExpense(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	e, err := s.store.CreateExpense(r.Context(), in)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	e, err := s.store.UpdateExpense(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps store errors to status codes: validation 400, unknown id 404,
// anything else 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, remote.ErrNotFound):
		writeError(w, http.StatusNotFound, "Expense not found")
	default:
		s.events.LogError(r.Context(), "Expense store failed", err, log.ComponentStorage, op, nil)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, core.ErrEmptyTitle) ||
		errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidCategory) ||
		errors.Is(err, core.ErrInvalidDate)
}

func decodeInput(w http.ResponseWriter, r *http.Request) (core.ExpenseInput, bool) {
	var in core.ExpenseInput
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return in, false
	}
	return in, true
}

type errorBody struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

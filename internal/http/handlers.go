package http

import (
	"context"
	"errors"
	"net/http"

	"expensetracker/internal/collection"
	"expensetracker/internal/core"
	"expensetracker/internal/form"
	"expensetracker/internal/log"
	"expensetracker/internal/session"
)

const (
	msgCreated      = "Expense added successfully!"
	msgUpdated      = "Expense updated successfully!"
	msgDeleted      = "Expense deleted successfully."
	msgSaveFailed   = "Failed to save expense. Please try again."
	msgDeleteFailed = "Failed to delete expense. Please try again."
	msgLoadFailed   = "Failed to load expenses. Please check if the backend is running."
	msgNotFound     = "Expense not found. Try refreshing the list."
	msgBusy         = "Please wait for the current request to finish."
)

// render executes a template into b and writes the response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	if err := b.Render(s.templates, name, data); err != nil {
		s.events.LogError(r.Context(), "Template execution failed", err, log.ComponentTemplate, log.OpRender,
			log.NewFields().WithSessionID(sessionID(r)))
	}
	b.Write(w)
}

func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, page *session.Page) {
	s.render(w, r, b, "form", newFormView(page.Form.State()))
}

func (s *Server) renderList(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, page *session.Page) {
	s.render(w, r, b, "list", newListView(page.Collection.Snapshot()))
}

func (s *Server) renderDialog(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, page *session.Page) {
	s.render(w, r, b, "dialog", newDialogView(page.Collection.Snapshot()))
}

// handleIndex renders the full page. The list partial it contains refreshes
// itself from the backend on load; only a new session shows the skeleton.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := s.sessions.Resolve(w, r)
	s.render(w, r, NewHTMXResponse(), "index.html", newPageView(page, page.ClaimInitialLoad()))
}

// handleSubmitExpense validates the form and creates or updates the expense.
func (s *Server) handleSubmitExpense(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	page := s.sessions.Resolve(w, r)
	if err := page.Form.SetDraft(ParseDraft(r.PostForm)); errors.Is(err, form.ErrSubmitting) {
		writeBusy(w)
		return
	}

	var (
		saved core.Expense
		op    = log.OpCreate
	)
	err := page.Form.Submit(ctx, func(ctx context.Context, in core.ExpenseInput, editing *core.Expense) error {
		var err error
		if editing == nil {
			saved, err = page.Collection.Create(ctx, in)
			return err
		}
		op = log.OpUpdate
		saved, err = page.Collection.Update(ctx, editing.ID, in)
		return err
	})

	switch {
	case err == nil:
		msg := msgCreated
		if op == log.OpUpdate {
			msg = msgUpdated
			page.Form.Load(nil)
		}
		s.events.LogExpenseSaved(ctx, op, saved.ID, saved.Title, saved.Amount, saved.Category)
		s.renderForm(w, r, NewHTMXResponse().TriggerExpensesChanged().TriggerSuccessNotification(msg), page)

	case errors.Is(err, form.ErrInvalid):
		s.renderForm(w, r, NewHTMXResponse().Status(http.StatusUnprocessableEntity), page)

	case errors.Is(err, form.ErrSubmitting):
		writeBusy(w)

	default:
		s.events.LogError(ctx, "Failed to save expense", err, log.ComponentExpense, op,
			log.NewFields().WithSessionID(page.ID))
		s.renderForm(w, r, NewHTMXResponse().Status(http.StatusBadGateway).TriggerErrorNotification(msgSaveFailed), page)
	}
}

// handleEditExpense loads an expense from the session's list into the form.
func (s *Server) handleEditExpense(w http.ResponseWriter, r *http.Request) {
	page := s.sessions.Resolve(w, r)
	e, ok := page.Collection.Get(r.PathValue("id"))
	if !ok {
		writeNotFound(w)
		return
	}
	page.Form.Load(&e)
	s.renderForm(w, r, NewHTMXResponse(), page)
}

// handleCancelEdit returns the form to create mode.
func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	page := s.sessions.Resolve(w, r)
	if err := page.Form.Cancel(); err != nil && !errors.Is(err, form.ErrNotEditing) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Cancel edit failed", log.FieldError, err.Error())
	}
	s.renderForm(w, r, NewHTMXResponse(), page)
}

// handleList renders the session's list without contacting the backend.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	page := s.sessions.Resolve(w, r)
	s.renderList(w, r, NewHTMXResponse(), page)
}

// handleRefresh reloads the list from the backend. On failure the previous
// list is rendered with an error toast.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := s.sessions.Resolve(w, r)
	b := NewHTMXResponse()
	if err := page.Collection.Refresh(ctx); err != nil {
		if errors.Is(err, collection.ErrStaleRefresh) {
			log.FromContext(ctx).DebugContext(ctx, "Discarded stale refresh", log.FieldSessionID, page.ID)
		} else {
			s.events.LogError(ctx, "Failed to load expenses", err, log.ComponentExpense, log.OpRefresh,
				log.NewFields().WithSessionID(page.ID))
			b.TriggerErrorNotification(msgLoadFailed)
		}
	}
	s.renderList(w, r, b, page)
}

// handleRequestDelete stages an expense and opens the confirmation dialog.
func (s *Server) handleRequestDelete(w http.ResponseWriter, r *http.Request) {
	page := s.sessions.Resolve(w, r)
	if !page.Collection.RequestDelete(r.PathValue("id")) {
		if page.Collection.Snapshot().Deleting {
			writeBusy(w)
			return
		}
		writeNotFound(w)
		return
	}
	s.renderDialog(w, r, NewHTMXResponse(), page)
}

// handleConfirmDelete deletes the staged expense and closes the dialog.
func (s *Server) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := s.sessions.Resolve(w, r)
	candidate := page.Collection.Snapshot().Candidate

	err := page.Collection.ConfirmDelete(ctx)
	b := NewHTMXResponse()
	switch {
	case errors.Is(err, collection.ErrDeleteInProgress):
		writeBusy(w)
		return
	case err != nil:
		fields := log.NewFields().WithSessionID(page.ID)
		if candidate != nil {
			fields[log.FieldExpenseID] = candidate.ID
		}
		s.events.LogError(ctx, "Failed to delete expense", err, log.ComponentExpense, log.OpDelete, fields)
		b.TriggerErrorNotification(msgDeleteFailed)
	case candidate != nil:
		log.FromContext(ctx).WithComponent(log.ComponentExpense).InfoContext(ctx, "Expense deleted",
			log.FieldExpenseID, candidate.ID,
			log.FieldSessionID, page.ID)
		b.TriggerExpensesChanged().TriggerSuccessNotification(msgDeleted)
	}
	s.renderDialog(w, r, b, page)
}

// handleCancelDelete dismisses the confirmation dialog.
func (s *Server) handleCancelDelete(w http.ResponseWriter, r *http.Request) {
	page := s.sessions.Resolve(w, r)
	page.Collection.CancelDelete()
	s.renderDialog(w, r, NewHTMXResponse(), page)
}

// writeBusy rejects an action while the same session has one in flight.
func writeBusy(w http.ResponseWriter) {
	ConflictError(msgBusy).TriggerNotification(NotificationWarning, msgBusy, 3000).Write(w)
}

// writeNotFound reports an id that is no longer in the session's list.
func writeNotFound(w http.ResponseWriter) {
	NotFoundError(msgNotFound).TriggerErrorNotification(msgNotFound).Write(w)
}

func sessionID(r *http.Request) string {
	if c, err := r.Cookie(session.CookieName); err == nil {
		return c.Value
	}
	return ""
}

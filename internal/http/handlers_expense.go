package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"spendlog/internal/core"
	"spendlog/internal/dashboard"
)

type expenseFormData struct {
	Editing    bool
	Expense    core.Expense
	Categories []core.Category
	Today      string
}

func (s *Server) handleCreateForm(w http.ResponseWriter, r *http.Request) {
	ctl, err := s.visit(w, r)
	if err != nil {
		s.uiError(w, r, err, "Failed to load expenses")
		return
	}
	ctl.OpenCreate()
	s.render(w, r, "expense_form", expenseFormData{
		Categories: s.categories(r.Context()),
		Today:      s.clock.Now().Format(dateLayout),
	})
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	ctl, err := s.visit(w, r)
	if err != nil {
		s.uiError(w, r, err, "Failed to load expenses")
		return
	}
	id := mux.Vars(r)["id"]
	if err := ctl.SelectExpense(id); err != nil {
		s.uiError(w, r, err, "Failed to load expense")
		return
	}
	e, _ := ctl.Selected()
	s.render(w, r, "expense_form", expenseFormData{
		Editing:    true,
		Expense:    e,
		Categories: s.categories(r.Context()),
		Today:      s.clock.Now().Format(dateLayout),
	})
}

func (s *Server) handleCloseModal(w http.ResponseWriter, r *http.Request) {
	ctl, err := s.visit(w, r)
	if err != nil {
		s.uiError(w, r, err, "Failed to load expenses")
		return
	}
	ctl.CloseCreate()
	ctl.ClearSelection()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleUICreate(w http.ResponseWriter, r *http.Request) {
	ctl, err := s.visit(w, r)
	if err != nil {
		s.uiError(w, r, err, "Failed to load expenses")
		return
	}
	in, err := ParseExpenseInput(r, s.location())
	if err != nil {
		s.formError(w, r, err, "Failed to create expense")
		return
	}
	created, err := ctl.Create(r.Context(), in)
	if err != nil {
		s.formError(w, r, err, "Failed to create expense")
		return
	}
	s.appMetrics.created.Add(1)
	s.renderMutation(w, r, ctl, NewHTMXResponse().
		TriggerExpenseCreated(created.ID).
		TriggerModalClose().
		TriggerSuccessNotification("Expense added"))
}

func (s *Server) handleUIUpdate(w http.ResponseWriter, r *http.Request) {
	ctl, err := s.visit(w, r)
	if err != nil {
		s.uiError(w, r, err, "Failed to load expenses")
		return
	}
	in, err := ParseExpenseInput(r, s.location())
	if err != nil {
		s.formError(w, r, err, "Failed to update expense")
		return
	}
	updated, err := ctl.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		s.formError(w, r, err, "Failed to update expense")
		return
	}
	s.appMetrics.updated.Add(1)
	s.renderMutation(w, r, ctl, NewHTMXResponse().
		TriggerExpenseUpdated(updated.ID).
		TriggerModalClose().
		TriggerSuccessNotification("Expense updated"))
}

func (s *Server) handleUIDelete(w http.ResponseWriter, r *http.Request) {
	ctl, err := s.visit(w, r)
	if err != nil {
		s.uiError(w, r, err, "Failed to load expenses")
		return
	}
	id := mux.Vars(r)["id"]
	if err := ctl.Delete(r.Context(), id); err != nil {
		s.uiError(w, r, err, "Failed to delete expense")
		return
	}
	s.appMetrics.deleted.Add(1)
	s.renderMutation(w, r, ctl, NewHTMXResponse().
		TriggerExpenseDeleted(id).
		TriggerSuccessNotification("Expense deleted"))
}

// renderMutation swaps the whole dashboard after a confirmed change,
// whichever element issued the request.
func (s *Server) renderMutation(w http.ResponseWriter, r *http.Request, ctl *dashboard.Controller, b *HTMXResponseBuilder) {
	b.Retarget("#dashboard").Header("HX-Reswap", "outerHTML")
	s.renderDashboard(w, r, ctl, b)
}

// formError puts the message in the open dialog's error slot.
func (s *Server) formError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, msg := statusFor(err, fallback)
	if status >= http.StatusInternalServerError {
		s.log(r).ErrorContext(r.Context(), fallback, "error", err, "path", r.URL.Path)
	}
	ErrorResponse(status, msg).
		Retarget("#form-error").
		Header("HX-Reswap", "innerHTML").
		Write(w)
}

// formDate pre-fills the date input, leaving it empty for undated records.
func formDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(dateLayout)
}

package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"spendlog/internal/auth"
	"spendlog/internal/core"
	"spendlog/internal/dashboard"
	applog "spendlog/internal/log"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

// apiError writes the JSON error for err and logs unexpected failures.
func (s *Server) apiError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, msg := statusFor(err, fallback)
	logger := applog.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), fallback, applog.FieldError, err, applog.FieldPath, r.URL.Path)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", "status", status, applog.FieldError, err)
	}
	writeError(w, status, msg)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	list, err := s.expenses.List(r.Context(), auth.CurrentID(r.Context()))
	if err != nil {
		s.apiError(w, r, err, "Failed to load expenses")
		return
	}
	if list == nil {
		list = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	in, err := ParseExpenseInput(r, s.location())
	if err != nil {
		s.apiError(w, r, err, "Failed to create expense")
		return
	}
	created, err := s.expenses.Create(r.Context(), auth.CurrentID(r.Context()), in)
	if err != nil {
		s.apiError(w, r, err, "Failed to create expense")
		return
	}
	s.appMetrics.created.Add(1)
	writeJSON(w, http.StatusCreated, created)
}

// handleUpdateExpense answers 404 and 403 before looking at the body, so a
// malformed request for someone else's record is still forbidden.
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := auth.CurrentID(ctx)
	id := mux.Vars(r)["id"]

	in, err := ParseExpenseInput(r, s.location())
	if err != nil {
		if ownErr := s.expenses.CheckOwner(ctx, owner, id); ownErr != nil {
			err = ownErr
		}
		s.apiError(w, r, err, "Failed to update expense")
		return
	}
	updated, err := s.expenses.Update(ctx, owner, id, in)
	if err != nil {
		s.apiError(w, r, err, "Failed to update expense")
		return
	}
	s.appMetrics.updated.Add(1)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.expenses.Delete(ctx, auth.CurrentID(ctx), mux.Vars(r)["id"]); err != nil {
		s.apiError(w, r, err, "Failed to delete expense")
		return
	}
	s.appMetrics.deleted.Add(1)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.expenses.Categories(r.Context())
	if err != nil {
		s.apiError(w, r, err, "Failed to load categories")
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

// handleDashboardJSON computes the dashboard view for the query's filter
// without touching any visit state.
func (s *Server) handleDashboardJSON(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilterQuery(r.URL.Query(), s.defaultPeriod, s.location())
	if err != nil {
		s.apiError(w, r, err, "Failed to load dashboard")
		return
	}
	list, err := s.expenses.List(r.Context(), auth.CurrentID(r.Context()))
	if err != nil {
		s.apiError(w, r, err, "Failed to load dashboard")
		return
	}
	v := dashboard.Compute(list, f, s.clock.Now())
	if v.Expenses == nil {
		v.Expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := ParseLimit(r.URL.Query().Get("limit"), defaultActivityLimit, maxActivityLimit)
	acts, err := s.expenses.Activity(r.Context(), auth.CurrentID(r.Context()), limit)
	if err != nil {
		s.apiError(w, r, err, "Failed to load activity")
		return
	}
	if acts == nil {
		acts = []core.Activity{}
	}
	writeJSON(w, http.StatusOK, acts)
}

package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"spendlog/internal/auth"
	"spendlog/internal/core"
	"spendlog/internal/dashboard"
)

type periodOption struct {
	Value    core.Period
	Label    string
	Selected bool
}

type dashboardData struct {
	User       auth.Identity
	View       dashboard.View
	Categories []core.Category
	Periods    []periodOption
	// Largest scales the breakdown bars.
	Largest core.Money
}

func (s *Server) dashboardData(r *http.Request, ctl *dashboard.Controller, cats []core.Category) dashboardData {
	user, _ := auth.CurrentUser(r.Context())
	v := ctl.View()

	periods := make([]periodOption, 0, len(core.Periods()))
	for _, p := range core.Periods() {
		periods = append(periods, periodOption{Value: p, Label: p.Label(), Selected: p == v.Filter.Period})
	}
	data := dashboardData{User: user, View: v, Categories: cats, Periods: periods}
	if len(v.Breakdown) > 0 {
		data.Largest = v.Breakdown[0].Amount
	}
	return data
}

// handleDashboardPage renders the full page and starts a new visit.
func (s *Server) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	ctl, cats, err := s.startVisit(w, r)
	if err != nil {
		s.log(r).ErrorContext(r.Context(), "Dashboard load failed", "error", err)
		http.Error(w, "Failed to load expenses", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "dashboard_page", s.dashboardData(r, ctl, cats))
}

// handleDashboardPartial re-renders the dashboard section of the current visit.
func (s *Server) handleDashboardPartial(w http.ResponseWriter, r *http.Request) {
	ctl, err := s.visit(w, r)
	if err != nil {
		s.uiError(w, r, err, "Failed to load expenses")
		return
	}
	s.renderDashboard(w, r, ctl, nil)
}

// handleFilters applies the filter control named by HX-Trigger-Name, or
// every posted control when the header is absent.
func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	ctl, err := s.visit(w, r)
	if err != nil {
		s.uiError(w, r, err, "Failed to load expenses")
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	fields := []string{"period", "start", "end", "category", "search"}
	if name := r.Header.Get("HX-Trigger-Name"); name != "" {
		fields = []string{name}
	}
	for _, field := range fields {
		if _, posted := r.PostForm[field]; !posted {
			continue
		}
		if err := applyFilter(ctl, field, r.PostForm.Get(field), s.location()); err != nil {
			s.uiError(w, r, err, "Invalid filter")
			return
		}
	}
	s.renderDashboard(w, r, ctl, nil)
}

func applyFilter(ctl *dashboard.Controller, field, value string, loc *time.Location) error {
	switch field {
	case "period":
		p, err := parsePeriod(value)
		if err != nil {
			return err
		}
		return ctl.SetPeriod(p)
	case "start":
		d, err := parseOptionalDate(value, loc)
		if err != nil {
			return err
		}
		ctl.SetStartDate(d)
	case "end":
		d, err := parseOptionalDate(value, loc)
		if err != nil {
			return err
		}
		ctl.SetEndDate(d)
	case "category":
		ctl.SetCategory(value)
	case "search":
		ctl.SetSearch(sanitizeInput(value))
	}
	return nil
}

func (s *Server) handleResetFilters(w http.ResponseWriter, r *http.Request) {
	ctl, err := s.visit(w, r)
	if err != nil {
		s.uiError(w, r, err, "Failed to load expenses")
		return
	}
	ctl.ResetFilters(s.defaultPeriod)
	s.renderDashboard(w, r, ctl, nil)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	ctl, err := s.visit(w, r)
	if err != nil {
		s.uiError(w, r, err, "Failed to load expenses")
		return
	}
	n, err := strconv.Atoi(r.FormValue("page"))
	if err != nil {
		BadRequestError("Invalid page").Write(w)
		return
	}
	ctl.SetPage(n)
	s.renderDashboard(w, r, ctl, nil)
}

// renderDashboard writes the dashboard section, adding the triggers in b
// when given.
func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, ctl *dashboard.Controller, b *HTMXResponseBuilder) {
	body, err := s.renderFragment("dashboard", s.dashboardData(r, ctl, s.categories(r.Context())))
	if err != nil {
		s.log(r).ErrorContext(r.Context(), "Dashboard render failed", "error", err)
		InternalServerError("Failed to render dashboard").Write(w)
		return
	}
	if b == nil {
		b = NewHTMXResponse()
	}
	b.BodyHTML(body).Write(w)
}

// uiError answers an htmx request with a notification and an inline error.
func (s *Server) uiError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, msg := statusFor(err, fallback)
	if errors.Is(err, core.ErrInvalidPeriod) {
		status, msg = http.StatusBadRequest, "Unknown period"
	}
	if status >= http.StatusInternalServerError {
		s.log(r).ErrorContext(r.Context(), fallback, "error", err, "path", r.URL.Path)
	}
	ErrorResponse(status, msg).TriggerErrorNotification(msg).Write(w)
}

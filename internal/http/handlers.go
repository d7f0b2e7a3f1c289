package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"spendlog/internal/auth"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	})
}

// handleReady checks templates and the backing store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.expenses == nil {
		checks["storage"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else if err := s.expenses.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", "check", "storage", "error", err)
		checks["storage"] = "failed"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}

	checks["visits"] = map[string]any{"active": s.visits.Size()}
	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients()}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.Metrics()
	rateMetrics := s.rateLimiter.Metrics()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ErrorResponses)
	metric("http_response_time_avg_us", "gauge", "Average response time in microseconds", traceMetrics.AverageResponseTime)

	fmt.Fprintf(w, "# HELP expense_mutations_total Committed expense changes\n")
	fmt.Fprintf(w, "# TYPE expense_mutations_total counter\n")
	fmt.Fprintf(w, "expense_mutations_total{action=\"created\"} %d\n", s.appMetrics.created.Load())
	fmt.Fprintf(w, "expense_mutations_total{action=\"updated\"} %d\n", s.appMetrics.updated.Load())
	fmt.Fprintf(w, "expense_mutations_total{action=\"deleted\"} %d\n\n", s.appMetrics.deleted.Load())

	metric("dashboard_visits_active", "gauge", "Dashboard visits held in memory", s.visits.Size())
	metric("rate_limit_rejections_total", "counter", "Requests rejected by the rate limiter", rateMetrics.Rejected)
	metric("rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Requests flagged by the security detector", s.securityDetector.SuspiciousRequests())
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.appMetrics.uptime).Seconds()))
}

// handleSignIn renders the sign-in page, or sends signed-in users home.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.CurrentUser(r.Context()); err == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	var messages = map[string]string{
		"state":     "Your sign-in session expired. Please try again.",
		"cancelled": "Sign-in was cancelled.",
		"google":    "Google sign-in failed. Please try again.",
	}
	data := struct {
		Google bool
		Demo   bool
		Error  string
	}{
		Error: messages[r.URL.Query().Get("error")],
	}
	if s.auth != nil {
		data.Google = s.auth.GoogleEnabled()
		data.Demo = s.auth.DemoEnabled()
	}
	s.render(w, r, "signin_page", data)
}

// handleMe returns the signed-in identity.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, err := auth.CurrentUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, id)
}

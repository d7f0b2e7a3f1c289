package http

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendlog/internal/core"
	"spendlog/internal/dashboard"
)

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims surrounding whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// statusFor maps a domain error to an HTTP status and a client-safe
// message. fallback is used for unexpected failures.
func statusFor(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "Expense not found"
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, dashboard.ErrBusy):
		return http.StatusConflict, "Expense has a pending change"
	default:
		return http.StatusInternalServerError, fallback
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// templateFuncs are available to every template. Dates render in loc.
func templateFuncs(currency string, loc *time.Location) template.FuncMap {
	return template.FuncMap{
		"money": func(m core.Money) string { return m.Format(currency) },
		"percent": func(part, total core.Money) string {
			return part.Percent(total).StringFixed(1)
		},
		"barWidth": barWidth,
		"add":      func(a, b int) int { return a + b },
		"date": func(t time.Time) string {
			if t.IsZero() {
				return "No date"
			}
			return t.In(loc).Format("Jan 2, 2006")
		},
		"isoDate": func(t time.Time) string { return formDate(t, loc) },
	}
}

// barWidth scales part against the largest row, keeping small non-zero
// rows visible.
func barWidth(part, largest core.Money) int {
	if largest.IsZero() || part.IsZero() {
		return 0
	}
	w := part.Decimal().Mul(decimal.NewFromInt(100)).Div(largest.Decimal()).Round(0).IntPart()
	if w < 2 {
		w = 2
	}
	if w > 100 {
		w = 100
	}
	return int(w)
}

package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// SignInPath is where unauthenticated browser requests are sent.
const SignInPath = "/auth/signin"

// Middleware attaches the identity of a valid session to the request
// context. Requests without one pass through unchanged.
func Middleware(s *Sessions, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := TokenFromRequest(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			id, err := s.Parse(raw)
			if err != nil {
				logger.DebugContext(r.Context(), "Ignoring invalid session", "error", err)
				clearCookie(w, SessionCookie, r.TLS != nil)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), id)))
		})
	}
}

// RequireAPI rejects anonymous requests with a JSON 401.
func RequireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := CurrentUser(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUI redirects anonymous browser requests to the sign-in page.
// htmx requests get an HX-Redirect so the whole page navigates.
func RequireUI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := CurrentUser(r.Context()); err != nil {
			if r.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", SignInPath)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, SignInPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

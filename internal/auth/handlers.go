package auth

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"spendlog/internal/core"
	applog "spendlog/internal/log"
	"spendlog/internal/storage"
)

const (
	stateCookie = "oauth_state"
	stateTTL    = 10 * time.Minute
)

// DemoHook runs after the demo user has been upserted, e.g. to seed data.
type DemoHook func(ctx context.Context, u core.User) error

// Handlers serves the sign-in, callback and sign-out endpoints.
type Handlers struct {
	sessions *Sessions
	users    storage.UserStore
	google   *GoogleSignIn
	demo     bool
	onDemo   DemoHook
	secure   bool
	logger   *slog.Logger
}

type HandlersConfig struct {
	Sessions *Sessions
	Users    storage.UserStore
	// Google is nil when Google sign-in is not configured.
	Google       *GoogleSignIn
	DemoEnabled  bool
	OnDemo       DemoHook
	SecureCookie bool
	Logger       *slog.Logger
}

func NewHandlers(cfg HandlersConfig) *Handlers {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		sessions: cfg.Sessions,
		users:    cfg.Users,
		google:   cfg.Google,
		demo:     cfg.DemoEnabled,
		onDemo:   cfg.OnDemo,
		secure:   cfg.SecureCookie,
		logger:   logger,
	}
}

func (h *Handlers) GoogleEnabled() bool { return h.google != nil }

func (h *Handlers) DemoEnabled() bool { return h.demo }

// Demo signs the caller in as the shared demo account.
func (h *Handlers) Demo(w http.ResponseWriter, r *http.Request) {
	if !h.demo {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()
	u, err := h.users.UpsertUser(ctx, core.User{Email: storage.DemoEmail, Name: storage.DemoName})
	if err != nil {
		h.logger.ErrorContext(ctx, "Demo sign-in failed", "error", err)
		http.Error(w, "Sign-in failed", http.StatusInternalServerError)
		return
	}
	if h.onDemo != nil {
		if err := h.onDemo(ctx, u); err != nil {
			// the account works without sample data
			h.logger.WarnContext(ctx, "Demo preparation failed", "error", err)
		}
	}
	h.startSession(w, r, u)
}

// GoogleLogin redirects to Google with a fresh state nonce.
func (h *Handlers) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		http.NotFound(w, r)
		return
	}
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.google.AuthCodeURL(state), http.StatusFound)
}

// GoogleCallback completes the code flow and starts a session.
func (h *Handlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	cookie, err := r.Cookie(stateCookie)
	state := r.URL.Query().Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		h.logger.WarnContext(ctx, "OAuth state mismatch")
		http.Redirect(w, r, SignInPath+"?error=state", http.StatusSeeOther)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/auth", MaxAge: -1, HttpOnly: true, Secure: h.secure})

	if e := r.URL.Query().Get("error"); e != "" {
		h.logger.InfoContext(ctx, "Google sign-in cancelled", "error", e)
		http.Redirect(w, r, SignInPath+"?error=cancelled", http.StatusSeeOther)
		return
	}

	email, name, err := h.google.Exchange(ctx, r.URL.Query().Get("code"))
	if err != nil {
		h.logger.ErrorContext(ctx, "Google sign-in failed", "error", err)
		http.Redirect(w, r, SignInPath+"?error=google", http.StatusSeeOther)
		return
	}

	u, err := h.users.UpsertUser(ctx, core.User{Email: email, Name: name})
	if err != nil {
		h.logger.ErrorContext(ctx, "Cannot store user", "error", err)
		http.Error(w, "Sign-in failed", http.StatusInternalServerError)
		return
	}
	h.startSession(w, r, u)
}

// SignOut clears the session cookie.
func (h *Handlers) SignOut(w http.ResponseWriter, r *http.Request) {
	clearCookie(w, SessionCookie, h.secure)
	redirect(w, r, SignInPath)
}

func (h *Handlers) startSession(w http.ResponseWriter, r *http.Request, u core.User) {
	token, exp, err := h.sessions.Issue(u)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Cannot issue session", "error", err)
		http.Error(w, "Sign-in failed", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	h.logger.InfoContext(r.Context(), "User signed in", applog.NewFields().WithOwner(u.ID).ToSlice()...)
	redirect(w, r, "/")
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", to)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

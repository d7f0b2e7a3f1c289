package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"spendlog/internal/auth"
	"spendlog/internal/cache"
	"spendlog/internal/core"
	"spendlog/internal/dashboard"
	applog "spendlog/internal/log"
	"spendlog/internal/middleware/ratelimit"
	"spendlog/internal/middleware/security"
	"spendlog/internal/middleware/trace"
	appweb "spendlog/web"
)

// ExpenseService is what the handlers need from the service layer.
type ExpenseService interface {
	dashboard.Gateway
	Categories(ctx context.Context) ([]core.Category, error)
	Activity(ctx context.Context, ownerID string, limit int) ([]core.Activity, error)
	CheckOwner(ctx context.Context, ownerID, id string) error
	Ping(ctx context.Context) error
}

// Config carries the server's collaborators and settings.
type Config struct {
	Addr     string
	Expenses ExpenseService
	Sessions *auth.Sessions
	Auth     *auth.Handlers
	Logger   *applog.Logger
	Clock    core.Clock

	DefaultPeriod      core.Period
	Currency           string
	VisitTTL           time.Duration
	VisitCacheSize     int
	RateLimitPerMinute int
	TrustedProxies     []string
	SecureCookies      bool
}

type appMetrics struct {
	created atomic.Int64
	updated atomic.Int64
	deleted atomic.Int64
	uptime  time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	expenses  ExpenseService
	sessions  *auth.Sessions
	auth      *auth.Handlers
	logger    *applog.Logger
	clock     core.Clock

	defaultPeriod core.Period
	currency      string
	secure        bool

	// one controller per dashboard visit
	visits       *cache.LRUCache[*dashboard.Controller]
	cacheManager *cache.Manager

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = applog.FromContext(context.Background())
	}
	if cfg.Clock == nil {
		cfg.Clock = core.SystemClock{}
	}
	if !cfg.DefaultPeriod.IsValid() {
		cfg.DefaultPeriod = core.DefaultPeriod
	}
	if cfg.Currency == "" {
		cfg.Currency = "฿"
	}
	if cfg.VisitTTL <= 0 {
		cfg.VisitTTL = 30 * time.Minute
	}
	if cfg.VisitCacheSize <= 0 {
		cfg.VisitCacheSize = 1000
	}
	logger := cfg.Logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		expenses:      cfg.Expenses,
		sessions:      cfg.Sessions,
		auth:          cfg.Auth,
		logger:        logger,
		clock:         cfg.Clock,
		defaultPeriod: cfg.DefaultPeriod,
		currency:      cfg.Currency,
		secure:        cfg.SecureCookies,
		visits: cache.NewLRUCache[*dashboard.Controller](cfg.VisitCacheSize, cfg.VisitTTL).
			WithClock(cfg.Clock.Now),
		cacheManager:     cache.NewManager(logger.Slog()),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		securityDetector: security.NewDetector(),
	}
	s.appMetrics.uptime = time.Now()
	for _, proxy := range cfg.TrustedProxies {
		if err := s.securityDetector.AddTrustedProxy(proxy); err != nil {
			logger.Warn("Ignoring invalid trusted proxy", "proxy", proxy, "error", err)
		}
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)
	s.cacheManager.Register(s.visits)
	s.cacheManager.StartCleanup(5 * time.Minute)

	t, err := template.New("").Funcs(templateFuncs(cfg.Currency, s.location())).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", "error", err)
	} else {
		s.templates = t
	}

	r := mux.NewRouter()
	s.routes(r)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.middleware(r),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(r *mux.Router) {
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.HandleFunc("/readyz", s.handleReady).Methods("GET")
	r.HandleFunc("/metrics", s.handleMetrics).Methods("GET")

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	// Sign-in
	r.HandleFunc(auth.SignInPath, s.handleSignIn).Methods("GET")
	if s.auth != nil {
		r.HandleFunc("/auth/demo", s.auth.Demo).Methods("POST")
		r.HandleFunc("/auth/google/login", s.auth.GoogleLogin).Methods("GET")
		r.HandleFunc(auth.CallbackPath, s.auth.GoogleCallback).Methods("GET")
		r.HandleFunc("/auth/signout", s.auth.SignOut).Methods("POST")
	}

	// JSON API
	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.RequireAPI)
	api.HandleFunc("/expenses", s.handleListExpenses).Methods("GET")
	api.HandleFunc("/expenses", s.handleCreateExpense).Methods("POST")
	api.HandleFunc("/expenses/{id}", s.handleUpdateExpense).Methods("PUT")
	api.HandleFunc("/expenses/{id}", s.handleDeleteExpense).Methods("DELETE")
	api.HandleFunc("/categories", s.handleCategories).Methods("GET")
	api.HandleFunc("/dashboard", s.handleDashboardJSON).Methods("GET")
	api.HandleFunc("/activity", s.handleActivity).Methods("GET")
	api.HandleFunc("/me", s.handleMe).Methods("GET")

	// Dashboard page and htmx partials
	r.Handle("/", auth.RequireUI(http.HandlerFunc(s.handleDashboardPage))).Methods("GET")
	ui := r.PathPrefix("/ui").Subrouter()
	ui.Use(auth.RequireUI)
	ui.HandleFunc("/dashboard", s.handleDashboardPartial).Methods("GET")
	ui.HandleFunc("/filters", s.handleFilters).Methods("POST")
	ui.HandleFunc("/filters/reset", s.handleResetFilters).Methods("POST")
	ui.HandleFunc("/page", s.handlePage).Methods("POST")
	ui.HandleFunc("/expenses/new", s.handleCreateForm).Methods("GET")
	ui.HandleFunc("/expenses", s.handleUICreate).Methods("POST")
	ui.HandleFunc("/expenses/{id}/edit", s.handleEditForm).Methods("GET")
	ui.HandleFunc("/expenses/{id}", s.handleUIUpdate).Methods("POST")
	ui.HandleFunc("/expenses/{id}", s.handleUIDelete).Methods("DELETE")
	ui.HandleFunc("/modal/close", s.handleCloseModal).Methods("POST")
}

// middleware wraps the router, outermost first: security headers, abuse
// detection, tracing, write rate limiting, then session lookup.
func (s *Server) middleware(h http.Handler) http.Handler {
	if s.sessions != nil {
		h = auth.Middleware(s.sessions, s.logger.Slog())(h)
	}
	h = s.limitWrites(h)
	h = s.traceMiddleware.Middleware(h)
	h = s.securityDetector.Middleware(s.logger.WithComponent(applog.ComponentSecurity).Slog())(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return h
}

// limitWrites rate limits every method except GET and HEAD.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimit)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded", applog.NewFields().
		WithClientIP(s.securityDetector.ExtractClientIP(r)).
		WithHTTPRequest(r.Method, r.URL.Path, "", "").
		ToSlice()...)
	if isAPI(r) {
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
		return
	}
	http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
}

// Shutdown stops background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// renderFragment executes a template into memory for use with the
// response builder.
func (s *Server) renderFragment(name string, data any) ([]byte, error) {
	if s.templates == nil {
		return nil, errors.New("templates not loaded")
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func isAPI(r *http.Request) bool {
	return len(r.URL.Path) >= 4 && r.URL.Path[:4] == "/api"
}

// location is where calendar dates entered by users are anchored; it
// matches the midnight Period cutoffs are computed from.
func (s *Server) location() *time.Location {
	return s.clock.Now().Location()
}

func (s *Server) log(r *http.Request) *slog.Logger {
	return applog.FromContext(r.Context()).Logger
}

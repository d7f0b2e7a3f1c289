package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"spendlog/internal/auth"
	"spendlog/internal/cache"
	"spendlog/internal/cli"
	"spendlog/internal/core"
	apphttp "spendlog/internal/http"
	applog "spendlog/internal/log"
	"spendlog/internal/services"
	"spendlog/internal/storage"
)

const categoryCacheTTL = 10 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	store := cli.OpenBackend(ctx, logger, cfg)
	repo := store.Repository

	opts := []services.Option{
		services.WithLogger(logger.WithComponent(applog.ComponentExpense).Slog()),
	}

	publisher := cli.ConnectAMQP(logger, cfg)
	if publisher != nil {
		opts = append(opts, services.WithPublisher(publisher))
	}

	// Categories are shared across instances through Redis when configured.
	redisClient, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
	switch {
	case err != nil:
		logger.Warn("Redis unavailable, using in-process category cache", "error", err)
		opts = append(opts, services.WithCategoryCache(cache.NewLRUCache[[]core.Category](1, categoryCacheTTL)))
	case redisClient != nil:
		logger.Info("Using Redis category cache", "addr", cfg.RedisAddr)
		opts = append(opts, services.WithCategoryCache(
			cache.NewRedisCache[[]core.Category](redisClient, "spendlog:", categoryCacheTTL,
				logger.WithComponent(applog.ComponentCache).Slog())))
	default:
		opts = append(opts, services.WithCategoryCache(cache.NewLRUCache[[]core.Category](1, categoryCacheTTL)))
	}

	expenses := services.NewExpenseService(repo, opts...)
	sessions := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL, nil)
	secure := strings.HasPrefix(cfg.PublicURL, "https://")

	var google *auth.GoogleSignIn
	if cfg.GoogleEnabled() {
		google = auth.NewGoogleSignIn(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.PublicURL)
	}
	authLogger := logger.WithComponent(applog.ComponentAuth).Slog()
	handlers := auth.NewHandlers(auth.HandlersConfig{
		Sessions:     sessions,
		Users:        repo,
		Google:       google,
		DemoEnabled:  cfg.DemoLoginEnabled,
		OnDemo:       seedDemoOnce(repo),
		SecureCookie: secure,
		Logger:       authLogger,
	})

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		Expenses:           expenses,
		Sessions:           sessions,
		Auth:               handlers,
		Logger:             logger,
		DefaultPeriod:      cfg.Period(),
		Currency:           cfg.CurrencySymbol,
		VisitTTL:           cfg.VisitTTL,
		VisitCacheSize:     cfg.VisitCacheSize,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		SecureCookies:      secure,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if publisher != nil {
			if err := publisher.Close(); err != nil {
				logger.Warn("AMQP close error", "error", err)
			}
		}
		if redisClient != nil {
			_ = redisClient.Close()
		}
		if err := store.Cleanup(); err != nil {
			logger.Warn("Storage close error", "error", err)
		}
	})

	logger.Info("Starting spendlog server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"google_sign_in", cfg.GoogleEnabled(),
		"demo_sign_in", cfg.DemoLoginEnabled,
		"amqp_enabled", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}

// seedDemoOnce fills the demo account with sample data the first time it
// is used. Later sign-ins keep whatever the visitor changed.
func seedDemoOnce(repo storage.Repository) auth.DemoHook {
	return func(ctx context.Context, u core.User) error {
		list, err := repo.ListExpenses(ctx, u.ID)
		if err != nil {
			return err
		}
		if len(list) > 0 {
			return nil
		}
		_, n, err := storage.SeedDemo(ctx, repo, time.Now())
		if err != nil {
			return err
		}
		applog.FromContext(ctx).InfoContext(ctx, "Seeded demo account", "expenses", n)
		return nil
	}
}

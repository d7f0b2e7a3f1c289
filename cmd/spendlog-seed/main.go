package main

import (
	"context"
	"flag"
	"os"
	"time"

	"spendlog/internal/cli"
	applog "spendlog/internal/log"
	"spendlog/internal/storage"
)

func main() {
	demo := flag.Bool("demo", true, "reset the demo account with sample expenses")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentSeed)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// opening the backend applies migrations and upserts the categories
	store := cli.OpenBackend(ctx, logger, cfg)
	defer store.Cleanup()

	n, err := storage.SeedCategories(ctx, store.Repository)
	if err != nil {
		logger.Error("Failed to seed categories", "error", err)
		os.Exit(1)
	}
	logger.Info("Categories seeded", "count", n)

	if !*demo {
		return
	}
	user, count, err := storage.SeedDemo(ctx, store.Repository, time.Now())
	if err != nil {
		logger.Error("Failed to seed demo data", "error", err)
		os.Exit(1)
	}
	logger.Info("Demo data seeded", "email", user.Email, "expenses", count)
}

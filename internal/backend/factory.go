package backend

import (
	"context"
	"fmt"
	"log/slog"

	"spendlog/internal/storage"
	"spendlog/internal/storage/memory"
)

// DefaultFactory opens the in-memory, SQLite and Postgres repositories.
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		repo storage.Repository
		err  error
	)
	switch config.Type {
	case MemoryBackend:
		repo = memory.NewWithDefaults()
		f.logger.Info("Initialized memory backend")
	case SQLiteBackend:
		repo, err = storage.NewSQLiteRepository(ctx, config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case PostgresBackend:
		repo, err = storage.NewPostgresRepository(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.Info("Initialized Postgres backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if config.SeedCategories && config.Type != MemoryBackend {
		n, err := storage.SeedCategories(ctx, repo)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("seed categories: %w", err)
		}
		f.logger.Debug("Categories seeded", "count", n)
	}

	return &Result{Repository: repo, Cleanup: repo.Close}, nil
}

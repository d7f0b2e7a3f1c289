package backend

import (
	"context"

	"spendlog/internal/storage"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// Result is an opened repository and the function that closes it.
type Result struct {
	Repository storage.Repository
	Cleanup    CleanupFunc
}

// Factory opens the storage backend described by a Config.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	DatabaseURL string

	// SeedCategories upserts the built-in categories after opening.
	SeedCategories bool
}

// Type names a storage backend.
type Type string

const (
	MemoryBackend   Type = "memory"
	SQLiteBackend   Type = "sqlite"
	PostgresBackend Type = "postgres"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

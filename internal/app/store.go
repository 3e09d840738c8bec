// Package app assembles the backing store shared by the server and the admin CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/baharkarakas/paycore/internal/config"
	"github.com/baharkarakas/paycore/internal/db"
	repo "github.com/baharkarakas/paycore/internal/repository"
	"github.com/baharkarakas/paycore/internal/repository/memory"
	"github.com/baharkarakas/paycore/internal/repository/postgres"
)

// OpenStore returns the configured repositories and a func that releases them.
func OpenStore(ctx context.Context, cfg config.Config, log *slog.Logger) (repo.Repositories, func(), error) {
	switch cfg.Store {
	case "memory":
		log.Warn("using in-memory store, data is lost on exit")
		return memory.New().Repositories(), func() {}, nil
	case "postgres", "":
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return repo.Repositories{}, nil, fmt.Errorf("db connect: %w", err)
		}
		if cfg.Migrate {
			if err := db.RunMigrations(ctx, pool); err != nil {
				pool.Close()
				return repo.Repositories{}, nil, fmt.Errorf("migrations: %w", err)
			}
		}
		return postgres.NewRepositories(pool), pool.Close, nil
	}
	return repo.Repositories{}, nil, fmt.Errorf("unknown STORE %q", cfg.Store)
}

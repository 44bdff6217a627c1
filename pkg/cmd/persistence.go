// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"log/slog"

	"github.com/dukex/episodic/pkg/config"
	"github.com/dukex/episodic/pkg/persistence"
	"github.com/dukex/episodic/pkg/persistence/file"
	"github.com/dukex/episodic/pkg/persistence/postgresql"
)

// Store is the persistence selected by the configuration plus the history
// document used without a database.
type Store struct {
	persistence.Persistence

	// History is nil when stories are kept in the database.
	History persistence.HistoryStore
}

// NewPersistence opens PostgreSQL when a database URL is configured and the
// JSON file store under the data directory otherwise. migrate brings the
// schema up to date on open.
func NewPersistence(ctx context.Context, logger *slog.Logger, cfg *config.Config, migrate bool) (*Store, error) {
	if cfg.DatabaseURL == "" {
		logger.InfoContext(ctx, "Using file persistence", "data_dir", cfg.DataDir)

		return &Store{
			Persistence: file.NewPersistence(cfg.DataDir),
			History:     file.NewHistoryFile(cfg.HistoryPath()),
		}, nil
	}

	var (
		postgres *postgresql.Persistence
		err      error
	)

	if migrate {
		postgres, err = postgresql.NewPersistence(ctx, logger, cfg.DatabaseURL)
	} else {
		postgres, err = postgresql.Open(ctx, logger, cfg.DatabaseURL)
	}

	if err != nil {
		return nil, err
	}

	return &Store{Persistence: postgres}, nil
}

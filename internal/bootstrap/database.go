package bootstrap

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/index-checker/internal/config"
	"github.com/jonesrussell/index-checker/internal/database"
	"github.com/jonesrussell/index-checker/internal/logger"
)

// SetupDatabase applies pending migrations and opens the connection pool.
func SetupDatabase(cfg *config.Config, log logger.Logger) (*sqlx.DB, error) {
	if err := database.Migrate(&cfg.Database, log); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	db, err := database.Open(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}

	log.Info("Database ready", logger.String("driver", cfg.Database.Driver))
	return db, nil
}

package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/jonesrussell/index-checker/internal/config"
	"github.com/jonesrussell/index-checker/internal/logger"
)

//go:embed migrations
var migrationsFS embed.FS

// newMigrate opens a dedicated connection for the migrator. Closing the
// migrator closes that connection, never the application's pool.
func newMigrate(cfg *config.DatabaseConfig) (*migrate.Migrate, error) {
	db, err := sql.Open(cfg.Driver, DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open database connection: %w", err)
	}

	var driver migratedb.Driver
	switch cfg.Driver {
	case config.DriverSQLite:
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	case config.DriverPostgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		err = fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create %s migration driver: %w", cfg.Driver, err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+cfg.Driver)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, cfg.Driver, driver)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}

	return m, nil
}

// Migrate applies all pending migrations.
func Migrate(cfg *config.DatabaseConfig, log logger.Logger) error {
	m, err := newMigrate(cfg)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if upErr := m.Up(); upErr != nil {
		if errors.Is(upErr, migrate.ErrNoChange) {
			log.Info("No pending migrations", logger.String("driver", cfg.Driver))
			return nil
		}
		return fmt.Errorf("run migrations: %w", upErr)
	}

	version, _, _ := m.Version()
	log.Info("Migrations applied",
		logger.String("driver", cfg.Driver),
		logger.Int("version", int(version)),
	)
	return nil
}

// MigrateDown rolls back steps migrations (at least one).
func MigrateDown(cfg *config.DatabaseConfig, steps int, log logger.Logger) error {
	m, err := newMigrate(cfg)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if steps <= 0 {
		steps = 1
	}

	if downErr := m.Steps(-steps); downErr != nil {
		if errors.Is(downErr, migrate.ErrNoChange) {
			log.Info("No migrations to roll back")
			return nil
		}
		return fmt.Errorf("rollback migrations: %w", downErr)
	}

	log.Info("Migrations rolled back", logger.Int("steps", steps))
	return nil
}

// Package testhelpers holds database and logger helpers shared by tests.
package testhelpers

import (
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/index-checker/internal/config"
	"github.com/jonesrussell/index-checker/internal/database"
	"github.com/jonesrussell/index-checker/internal/logger"
)

// NewMockDB returns a sqlx handle over sqlmock. Queries are rebound for the
// sqlite3 driver, so placeholders stay "?".
func NewMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	return sqlx.NewDb(mockDB, config.DriverSQLite), mock
}

// ExpectationsMet fails the test when sqlmock expectations were not consumed.
func ExpectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	require.NoError(t, mock.ExpectationsWereMet())
}

// SQLiteConfig returns a database config for a fresh SQLite file in a temp dir.
func SQLiteConfig(t *testing.T) *config.DatabaseConfig {
	t.Helper()
	return &config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "history.db"),
	}
}

// NewSQLiteDB returns a migrated SQLite database that is closed with the test.
func NewSQLiteDB(t *testing.T) *sqlx.DB {
	t.Helper()

	cfg := SQLiteConfig(t)
	require.NoError(t, database.Migrate(cfg, logger.NewNop()))

	db, err := database.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

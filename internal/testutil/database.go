// Package testutil provides sqlite test database helpers.
//
// SetupDB opens a temporary on-disk sqlite database (removed with the test's
// temp dir) and applies all embedded migrations, so repository tests run
// against the exact production schema.
package testutil

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/require"

	"github.com/urbanfleet/fleetcore/internal/database"
	"github.com/urbanfleet/fleetcore/migrations"
)

// SetupDB creates a migrated sqlite database in the test's temp directory.
func SetupDB(t *testing.T) *sql.DB {
	t.Helper()

	db, _ := SetupDBFile(t)
	return db
}

// SetupDBFile is SetupDB plus the database file path, for tests that operate
// on the file itself.
func SetupDBFile(t *testing.T) (*sql.DB, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fleetcore_test.db")
	db, err := database.Connect(database.Config{
		Path:               path,
		MaxOpenConnections: 1,
		BusyTimeout:        5 * time.Second,
	})
	require.NoError(t, err, "failed to open test database")

	source, err := iofs.New(migrations.FS, migrations.Dir)
	require.NoError(t, err, "failed to load embedded migrations")

	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	require.NoError(t, err, "failed to create migrate driver")

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	require.NoError(t, err, "failed to create migrate instance")

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db, path
}

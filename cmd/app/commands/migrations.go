package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/urbanfleet/fleetcore/internal/app"
	"github.com/urbanfleet/fleetcore/migrations"
)

// RunMigrations applies all pending embedded schema migrations. Returns nil
// if the schema is already current.
func RunMigrations(container *app.Container) error {
	logger := container.Logger()

	db, err := container.DB()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	logger.Info("running database migrations",
		slog.String("path", container.Config().DatabasePath),
	)

	source, err := iofs.New(migrations.FS, migrations.Dir)
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}

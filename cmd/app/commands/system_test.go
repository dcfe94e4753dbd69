package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/urbanfleet/fleetcore/internal/app"
	"github.com/urbanfleet/fleetcore/internal/config"
)

func setupContainer(t *testing.T) *app.Container {
	t.Helper()

	dir := t.TempDir()
	container := app.NewContainer(&config.Config{
		DatabasePath:         filepath.Join(dir, "fleet.db"),
		DBMaxOpenConnections: 1,
		DBBusyTimeout:        5 * time.Second,
		KeyFilePath:          filepath.Join(dir, "fleet.key"),
		BackupDir:            filepath.Join(dir, "backups"),
		LogLevel:             "error",
		LockoutMaxAttempts:   3,
		FailedLoginWindow:    10 * time.Minute,
		LoginRatePerSec:      1.0,
		LoginRateBurst:       5,
		MetricsNamespace:     "fleetcore",
	})
	t.Cleanup(func() { _ = container.Shutdown(context.Background()) })

	return container
}

func TestRunMigrations(t *testing.T) {
	container := setupContainer(t)

	require.NoError(t, RunMigrations(container))

	// A second run has nothing to apply.
	require.NoError(t, RunMigrations(container))
}

func TestRunSeedKeys(t *testing.T) {
	container := setupContainer(t)

	var out bytes.Buffer
	require.NoError(t, RunSeedKeys(container, &out))
	require.Contains(t, out.String(), container.Config().KeyFilePath)

	info, err := os.Stat(container.Config().KeyFilePath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRunMetrics(t *testing.T) {
	container := setupContainer(t)

	var out bytes.Buffer
	require.NoError(t, RunMetrics(container, &out))
}

package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/urbanfleet/fleetcore/internal/app"
)

// RunSeedKeys ensures the master secret exists, generating it on first run.
// The secret file strands all ciphertext if lost, so the command prints its
// location for the deployment's backup routine.
func RunSeedKeys(container *app.Container, writer io.Writer) error {
	logger := container.Logger()

	if _, err := container.MasterKey(); err != nil {
		return fmt.Errorf("failed to load or create master key: %w", err)
	}

	path := container.Config().KeyFilePath
	logger.Info("master key ready", slog.String("path", path))
	fmt.Fprintf(writer, "Master key ready at %s\n", path)
	fmt.Fprintln(writer, "Keep a copy of this file offline; without it no stored record can be read.")

	return nil
}

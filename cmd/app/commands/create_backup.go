package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	backupUsecase "github.com/urbanfleet/fleetcore/internal/backup/usecase"
)

// RunCreateBackup writes a snapshot archive of the database.
func RunCreateBackup(
	ctx context.Context,
	backupUseCase backupUsecase.UseCase,
	logger *slog.Logger,
	writer io.Writer,
) error {
	snapshot, err := backupUseCase.CreateSnapshot(ctx, ownerActor())
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	logger.Info("snapshot created",
		slog.String("ref", snapshot.Ref),
		slog.String("path", snapshot.Path),
	)

	fmt.Fprintf(writer, "Snapshot %s written to %s\n", snapshot.Ref, snapshot.Path)
	for table, count := range snapshot.Tables {
		fmt.Fprintf(writer, "  %-16s %d rows\n", table, count)
	}

	return nil
}

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	auditDomain "github.com/urbanfleet/fleetcore/internal/audit/domain"
	auditUsecase "github.com/urbanfleet/fleetcore/internal/audit/usecase"
)

// RunVerifyAuditLogs recomputes the signature of every audit entry and
// reports tampered rows. Returns an error when any signature fails, so the
// exit code alone flags a compromised log.
func RunVerifyAuditLogs(
	ctx context.Context,
	auditUseCase auditUsecase.UseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	report, err := auditUseCase.VerifyIntegrity(ctx, ownerActor())
	if err != nil {
		return fmt.Errorf("failed to verify audit log: %w", err)
	}

	if format == "json" {
		if err := outputVerifyJSON(writer, report); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else {
		outputVerifyText(writer, report)
	}

	logger.Info("verification completed",
		slog.Int("total", report.Total),
		slog.Int("valid", report.Valid),
		slog.Int("invalid", len(report.InvalidIDs)),
	)

	if !report.Clean() {
		return fmt.Errorf("integrity check failed: %d tampered entries", len(report.InvalidIDs))
	}

	return nil
}

func outputVerifyJSON(writer io.Writer, report auditDomain.IntegrityReport) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]any{
		"total":       report.Total,
		"valid":       report.Valid,
		"invalid_ids": report.InvalidIDs,
		"clean":       report.Clean(),
	})
}

func outputVerifyText(writer io.Writer, report auditDomain.IntegrityReport) {
	fmt.Fprintf(writer, "Audit log entries checked: %d\n", report.Total)
	fmt.Fprintf(writer, "Valid signatures:          %d\n", report.Valid)
	if report.Clean() {
		fmt.Fprintln(writer, "Integrity: OK")
		return
	}
	fmt.Fprintf(writer, "Tampered entry ids:        %v\n", report.InvalidIDs)
	fmt.Fprintln(writer, "Integrity: FAILED")
}

// Package usecase implements the audit log business logic: best-effort
// recording for every other module, and the review operations available to
// Administrators and the Owner.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/urbanfleet/fleetcore/internal/audit/domain"
	"github.com/urbanfleet/fleetcore/internal/authz"
	"github.com/urbanfleet/fleetcore/internal/database"
	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
)

// EntryRepository interface defines audit entry repository operations.
type EntryRepository interface {
	Create(ctx context.Context, e *domain.Entry) error
	List(ctx context.Context) ([]*domain.Entry, error)
	CountSuspicious(ctx context.Context) (int64, error)
	CountFailedLogins(ctx context.Context, username string, since time.Time) (int, error)
}

// Recorder writes audit entries on behalf of the other modules. Recording is
// best-effort: a failure is logged and swallowed, because no business
// operation should abort for lack of an audit row. Writes bypass any ambient
// transaction, so a rolled-back operation cannot take its denial entry down
// with it.
type Recorder struct {
	entryRepo EntryRepository
	logger    *slog.Logger
}

// NewRecorder creates a new Recorder.
func NewRecorder(entryRepo EntryRepository, logger *slog.Logger) *Recorder {
	return &Recorder{entryRepo: entryRepo, logger: logger}
}

func (r *Recorder) record(ctx context.Context, e *domain.Entry) {
	if err := r.entryRepo.Create(database.DetachTx(ctx), e); err != nil {
		r.logger.Error("failed to record audit entry",
			"kind", e.Kind,
			"suspicious", e.Suspicious,
			"error", err,
		)
	}
}

// Activity records a routine entry.
func (r *Recorder) Activity(ctx context.Context, actor, description, detail string) {
	r.record(ctx, &domain.Entry{
		Kind:        domain.KindActivity,
		Actor:       actor,
		Description: description,
		Detail:      detail,
	})
}

// Suspicious records an entry flagged for review.
func (r *Recorder) Suspicious(ctx context.Context, actor, description, detail string) {
	r.record(ctx, &domain.Entry{
		Kind:        domain.KindSuspicious,
		Actor:       actor,
		Description: description,
		Detail:      detail,
		Suspicious:  true,
	})
}

// LoginSuccess records a successful authentication.
func (r *Recorder) LoginSuccess(ctx context.Context, username string) {
	r.record(ctx, &domain.Entry{
		Kind:        domain.KindLoginSuccess,
		Actor:       username,
		Description: "logged in",
	})
}

// LoginFailed records a failed authentication attempt. Not suspicious on its
// own; the session flow escalates when attempts cluster.
func (r *Recorder) LoginFailed(ctx context.Context, username, detail string) {
	r.record(ctx, &domain.Entry{
		Kind:        domain.KindLoginFailed,
		Actor:       username,
		Description: "failed login attempt",
		Detail:      detail,
	})
}

// UseCase defines the interface for audit log review operations.
type UseCase interface {
	ListEntries(ctx context.Context, actor authz.Actor) ([]*domain.Entry, error)
	SuspiciousCount(ctx context.Context) (int64, error)
	VerifyIntegrity(ctx context.Context, actor authz.Actor) (domain.IntegrityReport, error)
	DetectRepeatedFailures(ctx context.Context, username string, window time.Duration, threshold int) (bool, error)
}

// SuspiciousRecorder flags denied review attempts. Satisfied by Recorder.
type SuspiciousRecorder interface {
	Suspicious(ctx context.Context, actor, description, detail string)
}

// AuditUseCase handles audit log review.
type AuditUseCase struct {
	entryRepo EntryRepository
	audit     SuspiciousRecorder
}

// NewAuditUseCase creates a new AuditUseCase.
func NewAuditUseCase(entryRepo EntryRepository, audit SuspiciousRecorder) UseCase {
	return &AuditUseCase{entryRepo: entryRepo, audit: audit}
}

// ListEntries returns the full log, newest first.
func (uc *AuditUseCase) ListEntries(ctx context.Context, actor authz.Actor) ([]*domain.Entry, error) {
	decision := authz.CanPerform(actor, authz.ActionViewAuditLog, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied audit log access", decision.Reason)
		return nil, apperrors.Wrap(apperrors.ErrForbidden, decision.Reason)
	}

	return uc.entryRepo.List(ctx)
}

// SuspiciousCount returns the number of flagged entries. Shown to
// Administrators and the Owner right after login, so it takes no actor check.
func (uc *AuditUseCase) SuspiciousCount(ctx context.Context) (int64, error) {
	return uc.entryRepo.CountSuspicious(ctx)
}

// DetectRepeatedFailures reports whether an identity accumulated at least
// threshold failed logins within the trailing window. The window is plain
// elapsed time over occurred_at, so a cluster of attempts spanning midnight
// is still one cluster.
func (uc *AuditUseCase) DetectRepeatedFailures(ctx context.Context, username string, window time.Duration, threshold int) (bool, error) {
	count, err := uc.entryRepo.CountFailedLogins(ctx, username, time.Now().Add(-window))
	if err != nil {
		return false, err
	}
	return count >= threshold, nil
}

// VerifyIntegrity recomputes every entry's signature and reports the rows
// that no longer match.
func (uc *AuditUseCase) VerifyIntegrity(ctx context.Context, actor authz.Actor) (domain.IntegrityReport, error) {
	decision := authz.CanPerform(actor, authz.ActionViewAuditLog, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied audit integrity check", decision.Reason)
		return domain.IntegrityReport{}, apperrors.Wrap(apperrors.ErrForbidden, decision.Reason)
	}

	entries, err := uc.entryRepo.List(ctx)
	if err != nil {
		return domain.IntegrityReport{}, err
	}

	report := domain.IntegrityReport{Total: len(entries)}
	for _, e := range entries {
		if e.SignatureValid {
			report.Valid++
			continue
		}
		report.InvalidIDs = append(report.InvalidIDs, e.ID)
	}

	return report, nil
}

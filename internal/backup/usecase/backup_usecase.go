// Package usecase implements snapshot creation and the one-time restore
// grant lifecycle.
package usecase

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/urbanfleet/fleetcore/internal/authz"
	"github.com/urbanfleet/fleetcore/internal/backup/domain"
	"github.com/urbanfleet/fleetcore/internal/backup/service"
	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
	userDomain "github.com/urbanfleet/fleetcore/internal/user/domain"
)

// snapshotTables is the fixed set of tables recorded in snapshot metadata.
var snapshotTables = []string{"users", "travellers", "vehicles", "audit_entries", "restore_grants"}

// UseCase defines the interface for backup and restore business logic.
type UseCase interface {
	CreateSnapshot(ctx context.Context, actor authz.Actor) (*domain.Snapshot, error)
	GenerateRestoreCode(ctx context.Context, actor authz.Actor, adminUsername, backupRef string) (*domain.RestoreGrant, error)
	RedeemRestoreCode(ctx context.Context, actor authz.Actor, code string) error
	RevokeRestoreCode(ctx context.Context, actor authz.Actor, code string) error
	ListRestoreCodes(ctx context.Context, actor authz.Actor) ([]*domain.RestoreGrant, error)
}

// GrantRepository interface defines restore grant repository operations.
type GrantRepository interface {
	AdminToken(username string) string
	Create(ctx context.Context, grant *domain.RestoreGrant) error
	GetByCode(ctx context.Context, code string) (*domain.RestoreGrant, error)
	Consume(ctx context.Context, code string) (bool, error)
	DeleteByCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context) ([]*domain.RestoreGrant, error)
}

// UserProvider looks up the administrator a grant is issued to.
type UserProvider interface {
	GetByUsername(ctx context.Context, username string) (*userDomain.UserAccount, error)
}

// AuditRecorder records activity and suspicious entries.
type AuditRecorder interface {
	Activity(ctx context.Context, actor, description, detail string)
	Suspicious(ctx context.Context, actor, description, detail string)
}

// BackupUseCase handles snapshot and restore grant business logic.
type BackupUseCase struct {
	db        *sql.DB
	dbPath    string
	archiver  *service.Archiver
	grantRepo GrantRepository
	users     UserProvider
	audit     AuditRecorder
}

// NewBackupUseCase creates a new BackupUseCase.
func NewBackupUseCase(
	db *sql.DB,
	dbPath string,
	archiver *service.Archiver,
	grantRepo GrantRepository,
	users UserProvider,
	audit AuditRecorder,
) UseCase {
	return &BackupUseCase{
		db:        db,
		dbPath:    dbPath,
		archiver:  archiver,
		grantRepo: grantRepo,
		users:     users,
		audit:     audit,
	}
}

// denied converts a negative authorization decision into a forbidden error.
func denied(decision authz.Decision) error {
	return apperrors.Wrap(apperrors.ErrForbidden, decision.Reason)
}

// newRef builds a snapshot reference: a sortable timestamp plus a uuid so two
// snapshots in the same second never collide.
func newRef(prefix string) string {
	return fmt.Sprintf("%s%s-%s", prefix, time.Now().UTC().Format("20060102T150405Z"), uuid.NewString())
}

// newCode generates a one-time restore code from 16 random bytes.
func newCode() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", apperrors.Wrap(err, "failed to generate restore code")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CreateSnapshot archives the database file with a plaintext metadata record.
func (uc *BackupUseCase) CreateSnapshot(ctx context.Context, actor authz.Actor) (*domain.Snapshot, error) {
	decision := authz.CanPerform(actor, authz.ActionCreateBackup, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied backup creation", decision.Reason)
		return nil, denied(decision)
	}

	return uc.snapshot(ctx, actor, "")
}

// checkpoint moves committed WAL frames into the database file. The archive
// copies the file directly, so anything left in the WAL would be missing from
// the snapshot.
func (uc *BackupUseCase) checkpoint(ctx context.Context) error {
	if _, err := uc.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return apperrors.Wrap(err, "failed to checkpoint database")
	}
	return nil
}

// snapshot writes the archive without an authorization check, so the restore
// path can reuse it for the pre-restore copy.
func (uc *BackupUseCase) snapshot(ctx context.Context, actor authz.Actor, refPrefix string) (*domain.Snapshot, error) {
	if err := uc.checkpoint(ctx); err != nil {
		return nil, err
	}

	counts, err := service.TableCounts(ctx, uc.db, snapshotTables)
	if err != nil {
		return nil, err
	}

	meta := service.Metadata{
		Ref:       newRef(refPrefix),
		CreatedBy: actor.Username,
		Role:      string(actor.Role),
		CreatedAt: time.Now().UTC(),
		Tables:    counts,
	}

	path, err := uc.archiver.Create(uc.dbPath, meta)
	if err != nil {
		return nil, err
	}

	uc.audit.Activity(ctx, actor.Username, "created backup snapshot", "ref="+meta.Ref)

	return &domain.Snapshot{
		Ref:       meta.Ref,
		Path:      path,
		CreatedBy: meta.CreatedBy,
		Role:      meta.Role,
		CreatedAt: meta.CreatedAt,
		Tables:    counts,
	}, nil
}

// GenerateRestoreCode issues a one-time code binding one administrator to one
// snapshot. The returned grant carries the plaintext code; it is never shown
// again.
func (uc *BackupUseCase) GenerateRestoreCode(
	ctx context.Context,
	actor authz.Actor,
	adminUsername, backupRef string,
) (*domain.RestoreGrant, error) {
	decision := authz.CanPerform(actor, authz.ActionGenerateRestoreCode, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied restore code generation", decision.Reason)
		return nil, denied(decision)
	}

	adminUsername = strings.ToLower(strings.TrimSpace(adminUsername))
	admin, err := uc.users.GetByUsername(ctx, adminUsername)
	if err != nil {
		return nil, err
	}
	if admin.Role != authz.RoleAdministrator {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "restore codes can only be issued to administrators")
	}

	if !uc.archiver.Exists(backupRef) {
		return nil, domain.ErrSnapshotNotFound
	}

	code, err := newCode()
	if err != nil {
		return nil, err
	}

	grant := &domain.RestoreGrant{
		Code:               code,
		AdminUsernameToken: uc.grantRepo.AdminToken(adminUsername),
		BackupRef:          backupRef,
	}
	if err := uc.grantRepo.Create(ctx, grant); err != nil {
		return nil, err
	}

	uc.audit.Activity(ctx, actor.Username, "generated restore code",
		fmt.Sprintf("admin=%s ref=%s", adminUsername, backupRef))

	return grant, nil
}

// RedeemRestoreCode consumes a grant and restores its snapshot. A pre-restore
// snapshot of the current database is written before the live file is
// replaced.
func (uc *BackupUseCase) RedeemRestoreCode(ctx context.Context, actor authz.Actor, code string) error {
	decision := authz.CanPerform(actor, authz.ActionRedeemRestoreCode, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied restore code redemption", decision.Reason)
		return denied(decision)
	}

	grant, err := uc.grantRepo.GetByCode(ctx, code)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			uc.audit.Suspicious(ctx, actor.Username, "unknown restore code presented", "")
		}
		return err
	}

	if grant.AdminUsernameToken != uc.grantRepo.AdminToken(actor.Username) {
		uc.audit.Suspicious(ctx, actor.Username, "restore code identity mismatch", "ref="+grant.BackupRef)
		return domain.ErrGrantMismatch
	}

	consumed, err := uc.grantRepo.Consume(ctx, code)
	if err != nil {
		return err
	}
	if !consumed {
		uc.audit.Suspicious(ctx, actor.Username, "restore code reuse attempt", "ref="+grant.BackupRef)
		return domain.ErrGrantAlreadyUsed
	}

	if _, err := uc.snapshot(ctx, actor, "pre-restore-"); err != nil {
		return err
	}

	// The WAL must be empty before the file is swapped, or leftover frames
	// would be replayed against the restored copy.
	if err := uc.checkpoint(ctx); err != nil {
		return err
	}

	if err := uc.archiver.Restore(grant.BackupRef, uc.dbPath); err != nil {
		return err
	}

	uc.audit.Activity(ctx, actor.Username, "restored backup snapshot", "ref="+grant.BackupRef)

	return nil
}

// RevokeRestoreCode invalidates an unredeemed code.
func (uc *BackupUseCase) RevokeRestoreCode(ctx context.Context, actor authz.Actor, code string) error {
	decision := authz.CanPerform(actor, authz.ActionRevokeRestoreCode, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied restore code revocation", decision.Reason)
		return denied(decision)
	}

	removed, err := uc.grantRepo.DeleteByCode(ctx, code)
	if err != nil {
		return err
	}
	if !removed {
		return domain.ErrGrantNotFound
	}

	uc.audit.Activity(ctx, actor.Username, "revoked restore code", "")

	return nil
}

// ListRestoreCodes returns all grants with their codes truncated. The full
// code exists only in the generation response.
func (uc *BackupUseCase) ListRestoreCodes(ctx context.Context, actor authz.Actor) ([]*domain.RestoreGrant, error) {
	// Listing falls under the same owner-only policy as revocation.
	decision := authz.CanPerform(actor, authz.ActionRevokeRestoreCode, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied restore code listing", decision.Reason)
		return nil, denied(decision)
	}

	grants, err := uc.grantRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, grant := range grants {
		grant.Code = truncateCode(grant.Code)
	}

	return grants, nil
}

func truncateCode(code string) string {
	if len(code) <= 8 {
		return code
	}
	return code[:8] + "..."
}

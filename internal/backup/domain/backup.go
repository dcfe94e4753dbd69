// Package domain defines the snapshot and restore-grant entities and errors.
package domain

import (
	"time"

	"github.com/urbanfleet/fleetcore/internal/errors"
)

// Snapshot describes a backup archive on disk.
type Snapshot struct {
	Ref       string
	Path      string
	CreatedBy string
	Role      string
	CreatedAt time.Time

	// Tables maps table names to their row counts at snapshot time.
	Tables map[string]int64
}

// RestoreGrant authorizes one administrator to restore one snapshot, once.
// The administrator identity is stored as a deterministic pseudonym, so a
// loaded grant carries the token rather than the username.
type RestoreGrant struct {
	ID                 int64
	Code               string
	AdminUsernameToken string
	BackupRef          string
	Used               bool
	CreatedAt          time.Time
}

// Domain-specific errors for backup and restore operations.
var (
	// ErrSnapshotNotFound indicates the referenced archive does not exist.
	ErrSnapshotNotFound = errors.Wrap(errors.ErrNotFound, "backup snapshot not found")

	// ErrGrantNotFound indicates the restore code does not exist.
	ErrGrantNotFound = errors.Wrap(errors.ErrNotFound, "restore code not found")

	// ErrGrantAlreadyUsed indicates the restore code was consumed before.
	ErrGrantAlreadyUsed = errors.Wrap(errors.ErrConflict, "restore code already used")

	// ErrGrantMismatch indicates the redeeming administrator is not the one
	// the grant was issued to.
	ErrGrantMismatch = errors.Wrap(errors.ErrForbidden, "restore code issued to another administrator")
)

// Package repository provides persistence for restore grants.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/urbanfleet/fleetcore/internal/backup/domain"
	cryptoService "github.com/urbanfleet/fleetcore/internal/crypto/service"
	"github.com/urbanfleet/fleetcore/internal/database"
	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
)

// SQLiteRestoreGrantRepository handles restore grant persistence. The bound
// administrator identity is stored as a deterministic pseudonym only; the
// code itself is a random value with no identity content and is stored
// plaintext so redemption can hit the UNIQUE index.
type SQLiteRestoreGrantRepository struct {
	db    *sql.DB
	codec cryptoService.FieldCodec
}

// NewSQLiteRestoreGrantRepository creates a new SQLiteRestoreGrantRepository.
func NewSQLiteRestoreGrantRepository(db *sql.DB, codec cryptoService.FieldCodec) *SQLiteRestoreGrantRepository {
	return &SQLiteRestoreGrantRepository{db: db, codec: codec}
}

// AdminToken returns the stored pseudonym for an administrator username.
func (r *SQLiteRestoreGrantRepository) AdminToken(username string) string {
	return r.codec.Pseudonymize(strings.ToLower(strings.TrimSpace(username)))
}

// Create inserts a new restore grant and sets grant.ID.
func (r *SQLiteRestoreGrantRepository) Create(ctx context.Context, grant *domain.RestoreGrant) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO restore_grants (code, admin_username_token, backup_ref)
			  VALUES (?, ?, ?)`

	result, err := querier.ExecContext(ctx, query, grant.Code, grant.AdminUsernameToken, grant.BackupRef)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "restore code collision")
		}
		return apperrors.Wrap(err, "failed to create restore grant")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return apperrors.Wrap(err, "failed to read inserted grant id")
	}
	grant.ID = id

	return nil
}

// GetByCode retrieves a restore grant by its code.
func (r *SQLiteRestoreGrantRepository) GetByCode(ctx context.Context, code string) (*domain.RestoreGrant, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, code, admin_username_token, backup_ref, used, created_at
			  FROM restore_grants WHERE code = ?`

	grant := &domain.RestoreGrant{}
	err := querier.QueryRowContext(ctx, query, code).Scan(
		&grant.ID,
		&grant.Code,
		&grant.AdminUsernameToken,
		&grant.BackupRef,
		&grant.Used,
		&grant.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrGrantNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get restore grant")
	}

	return grant, nil
}

// Consume marks the grant used. The WHERE clause carries the used check so a
// concurrent double redemption resolves to exactly one winner.
func (r *SQLiteRestoreGrantRepository) Consume(ctx context.Context, code string) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx,
		`UPDATE restore_grants SET used = 1 WHERE code = ? AND used = 0`, code)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to consume restore grant")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}

	return affected == 1, nil
}

// DeleteByCode removes a grant. Returns whether a row was removed.
func (r *SQLiteRestoreGrantRepository) DeleteByCode(ctx context.Context, code string) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM restore_grants WHERE code = ?`, code)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to delete restore grant")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}

	return affected == 1, nil
}

// List returns all grants, newest first.
func (r *SQLiteRestoreGrantRepository) List(ctx context.Context) ([]*domain.RestoreGrant, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, code, admin_username_token, backup_ref, used, created_at
			  FROM restore_grants ORDER BY id DESC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list restore grants")
	}
	defer rows.Close()

	grants := make([]*domain.RestoreGrant, 0)
	for rows.Next() {
		grant := &domain.RestoreGrant{}
		err := rows.Scan(
			&grant.ID,
			&grant.Code,
			&grant.AdminUsernameToken,
			&grant.BackupRef,
			&grant.Used,
			&grant.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan restore grant")
		}
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate restore grants")
	}

	return grants, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

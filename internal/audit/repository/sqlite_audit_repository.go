// Package repository provides append-only persistence for the audit log.
// Entries are encrypted like every other protected field and signed so
// offline tampering with the database file is detectable on read.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/urbanfleet/fleetcore/internal/audit/domain"
	auditService "github.com/urbanfleet/fleetcore/internal/audit/service"
	cryptoService "github.com/urbanfleet/fleetcore/internal/crypto/service"
	"github.com/urbanfleet/fleetcore/internal/database"
	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
)

// SQLiteAuditRepository handles audit entry persistence. The log is
// append-only: there are no update or delete operations.
type SQLiteAuditRepository struct {
	db     *sql.DB
	codec  cryptoService.FieldCodec
	signer auditService.Signer
}

// NewSQLiteAuditRepository creates a new SQLiteAuditRepository.
func NewSQLiteAuditRepository(db *sql.DB, codec cryptoService.FieldCodec, signer auditService.Signer) *SQLiteAuditRepository {
	return &SQLiteAuditRepository{db: db, codec: codec, signer: signer}
}

// Create encrypts, signs and appends an entry. e.ID and e.OccurredAt are set
// on return.
func (r *SQLiteAuditRepository) Create(ctx context.Context, e *domain.Entry) error {
	querier := database.GetTx(ctx, r.db)

	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	// Timestamps are stored as text; a single zone keeps them comparable.
	e.OccurredAt = e.OccurredAt.UTC()

	actorCipher, err := r.codec.EncryptDisplay(e.Actor)
	if err != nil {
		return apperrors.Wrap(err, "failed to encrypt audit actor")
	}
	descriptionCipher, err := r.codec.EncryptDisplay(e.Description)
	if err != nil {
		return apperrors.Wrap(err, "failed to encrypt audit description")
	}
	detailCipher, err := r.codec.EncryptDisplay(e.Detail)
	if err != nil {
		return apperrors.Wrap(err, "failed to encrypt audit detail")
	}

	record := auditService.Record{
		OccurredAtUnixNano: e.OccurredAt.UnixNano(),
		EntryDate:          e.OccurredAt.Format("2006-01-02"),
		EntryTime:          e.OccurredAt.Format("15:04:05"),
		Kind:               e.Kind,
		ActorToken:         r.codec.Pseudonymize(e.Actor),
		ActorCipher:        actorCipher,
		DescriptionCipher:  descriptionCipher,
		DetailCipher:       detailCipher,
		Suspicious:         e.Suspicious,
	}
	signature := r.signer.Sign(record)

	query := `INSERT INTO audit_entries (occurred_at, entry_date, entry_time, kind, actor_token,
				actor_cipher, description_cipher, detail_cipher, suspicious, signature)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := querier.ExecContext(
		ctx,
		query,
		e.OccurredAt,
		record.EntryDate,
		record.EntryTime,
		record.Kind,
		record.ActorToken,
		record.ActorCipher,
		record.DescriptionCipher,
		record.DetailCipher,
		record.Suspicious,
		signature,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit entry")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return apperrors.Wrap(err, "failed to read inserted audit entry id")
	}
	e.ID = id

	return nil
}

const entryColumns = `id, occurred_at, entry_date, entry_time, kind, actor_token, actor_cipher,
	description_cipher, detail_cipher, suspicious, signature`

// List returns all entries, newest first. Every entry's signature is verified
// and its ciphertext decrypted; failures mark the entry instead of aborting
// the listing, so one damaged row cannot hide the rest of the log.
func (r *SQLiteAuditRepository) List(ctx context.Context) ([]*domain.Entry, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, `SELECT `+entryColumns+` FROM audit_entries ORDER BY id DESC`)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit entries")
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := make([]*domain.Entry, 0)
	for rows.Next() {
		e, err := r.scanEntry(rows.Scan)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit entry")
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit entries")
	}

	return entries, nil
}

// CountSuspicious returns the number of suspicious entries.
func (r *SQLiteAuditRepository) CountSuspicious(ctx context.Context) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	var count int64
	query := `SELECT COUNT(*) FROM audit_entries WHERE suspicious = 1`
	if err := querier.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count suspicious entries")
	}

	return count, nil
}

// CountFailedLogins counts failed login attempts for one identity since the
// given instant. The query runs on the plaintext kind column and the
// deterministic actor token, so no decryption is involved. Using real elapsed
// time means an attempt window spanning midnight is still one window.
func (r *SQLiteAuditRepository) CountFailedLogins(ctx context.Context, username string, since time.Time) (int, error) {
	querier := database.GetTx(ctx, r.db)

	var count int
	query := `SELECT COUNT(*) FROM audit_entries WHERE actor_token = ? AND kind = ? AND occurred_at >= ?`
	err := querier.QueryRowContext(ctx, query, r.codec.Pseudonymize(username), domain.KindLoginFailed, since.UTC()).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count failed logins")
	}

	return count, nil
}

// scanEntry verifies and decrypts a stored row. Signature mismatch or
// ciphertext damage is reported on the entry, never as a scan error.
func (r *SQLiteAuditRepository) scanEntry(scan func(...any) error) (*domain.Entry, error) {
	var (
		e          domain.Entry
		record     auditService.Record
		occurredAt time.Time
		signature  []byte
	)

	err := scan(&e.ID, &occurredAt, &record.EntryDate, &record.EntryTime, &record.Kind,
		&record.ActorToken, &record.ActorCipher, &record.DescriptionCipher, &record.DetailCipher,
		&record.Suspicious, &signature)
	if err != nil {
		return nil, err
	}

	e.OccurredAt = occurredAt
	e.Kind = record.Kind
	e.Suspicious = record.Suspicious

	record.OccurredAtUnixNano = occurredAt.UnixNano()
	e.SignatureValid = r.signer.Verify(record, signature)

	if e.Actor, err = r.codec.DecryptDisplay(record.ActorCipher); err != nil {
		e.Corrupted = true
		e.Actor = ""
	}
	if e.Description, err = r.codec.DecryptDisplay(record.DescriptionCipher); err != nil {
		e.Corrupted = true
		e.Description = ""
	}
	if e.Detail, err = r.codec.DecryptDisplay(record.DetailCipher); err != nil {
		e.Corrupted = true
		e.Detail = ""
	}

	return &e, nil
}

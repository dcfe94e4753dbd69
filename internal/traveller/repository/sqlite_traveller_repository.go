// Package repository provides encrypted persistence for travellers.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	cryptoService "github.com/urbanfleet/fleetcore/internal/crypto/service"
	"github.com/urbanfleet/fleetcore/internal/database"
	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
	"github.com/urbanfleet/fleetcore/internal/traveller/domain"
)

// SQLiteTravellerRepository handles traveller persistence. Identifying fields
// are stored as randomized ciphertext; the driving licence number also gets a
// deterministic token that carries the UNIQUE constraint.
type SQLiteTravellerRepository struct {
	db    *sql.DB
	codec cryptoService.FieldCodec
}

// NewSQLiteTravellerRepository creates a new SQLiteTravellerRepository.
func NewSQLiteTravellerRepository(db *sql.DB, codec cryptoService.FieldCodec) *SQLiteTravellerRepository {
	return &SQLiteTravellerRepository{db: db, codec: codec}
}

// travellerCiphers holds the encrypted form of a traveller's protected fields.
type travellerCiphers struct {
	firstName   string
	lastName    string
	birthday    string
	street      string
	houseNumber string
	email       string
	phone       string
	license     string
}

func (r *SQLiteTravellerRepository) encrypt(t *domain.Traveller) (*travellerCiphers, error) {
	var (
		c   travellerCiphers
		err error
	)

	fields := []struct {
		plain  string
		cipher *string
	}{
		{t.FirstName, &c.firstName},
		{t.LastName, &c.lastName},
		{t.Birthday, &c.birthday},
		{t.StreetName, &c.street},
		{t.HouseNumber, &c.houseNumber},
		{t.Email, &c.email},
		{t.Phone, &c.phone},
		{t.License, &c.license},
	}
	for _, f := range fields {
		if *f.cipher, err = r.codec.EncryptDisplay(f.plain); err != nil {
			return nil, apperrors.Wrap(err, "failed to encrypt traveller field")
		}
	}

	return &c, nil
}

// Create inserts a new traveller and sets t.ID.
func (r *SQLiteTravellerRepository) Create(ctx context.Context, t *domain.Traveller) error {
	querier := database.GetTx(ctx, r.db)

	ciphers, err := r.encrypt(t)
	if err != nil {
		return err
	}

	query := `INSERT INTO travellers (first_name_cipher, last_name_cipher, birthday_cipher, gender,
				street_cipher, house_number_cipher, zip_code, city, email_cipher, phone_cipher,
				license_token, license_cipher)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := querier.ExecContext(
		ctx,
		query,
		ciphers.firstName,
		ciphers.lastName,
		ciphers.birthday,
		t.Gender,
		ciphers.street,
		ciphers.houseNumber,
		t.ZipCode,
		t.City,
		ciphers.email,
		ciphers.phone,
		r.codec.Pseudonymize(t.License),
		ciphers.license,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrTravellerAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create traveller")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return apperrors.Wrap(err, "failed to read inserted traveller id")
	}
	t.ID = id

	return nil
}

const travellerColumns = `id, first_name_cipher, last_name_cipher, birthday_cipher, gender,
	street_cipher, house_number_cipher, zip_code, city, email_cipher, phone_cipher,
	license_cipher, created_at`

// GetByID retrieves and decrypts a traveller.
func (r *SQLiteTravellerRepository) GetByID(ctx context.Context, id int64) (*domain.Traveller, error) {
	querier := database.GetTx(ctx, r.db)

	row := querier.QueryRowContext(ctx, `SELECT `+travellerColumns+` FROM travellers WHERE id = ?`, id)
	t, err := r.scanTraveller(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTravellerNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get traveller by id")
	}

	return t, nil
}

// GetByLicense retrieves a traveller through the deterministic licence token.
func (r *SQLiteTravellerRepository) GetByLicense(ctx context.Context, license string) (*domain.Traveller, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + travellerColumns + ` FROM travellers WHERE license_token = ?`
	row := querier.QueryRowContext(ctx, query, r.codec.Pseudonymize(license))
	t, err := r.scanTraveller(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTravellerNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get traveller by licence")
	}

	return t, nil
}

// List returns all travellers ordered by id. Records whose ciphertext no
// longer decrypts are returned with Corrupted set and empty protected fields.
func (r *SQLiteTravellerRepository) List(ctx context.Context) ([]*domain.Traveller, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, `SELECT `+travellerColumns+` FROM travellers ORDER BY id`)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list travellers")
	}
	defer func() {
		_ = rows.Close()
	}()

	travellers := make([]*domain.Traveller, 0)
	for rows.Next() {
		t, err := r.scanTraveller(rows.Scan)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan traveller")
		}
		travellers = append(travellers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate travellers")
	}

	return travellers, nil
}

// ExistsLicense reports whether the licence's deterministic token is taken.
func (r *SQLiteTravellerRepository) ExistsLicense(ctx context.Context, license string) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	var count int
	query := `SELECT COUNT(*) FROM travellers WHERE license_token = ?`
	if err := querier.QueryRowContext(ctx, query, r.codec.Pseudonymize(license)).Scan(&count); err != nil {
		return false, apperrors.Wrap(err, "failed to check licence")
	}

	return count > 0, nil
}

// Update re-encrypts and stores the full record. Returns whether a row was
// updated.
func (r *SQLiteTravellerRepository) Update(ctx context.Context, t *domain.Traveller) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	ciphers, err := r.encrypt(t)
	if err != nil {
		return false, err
	}

	query := `UPDATE travellers SET first_name_cipher = ?, last_name_cipher = ?, birthday_cipher = ?,
				gender = ?, street_cipher = ?, house_number_cipher = ?, zip_code = ?, city = ?,
				email_cipher = ?, phone_cipher = ?, license_token = ?, license_cipher = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		ciphers.firstName,
		ciphers.lastName,
		ciphers.birthday,
		t.Gender,
		ciphers.street,
		ciphers.houseNumber,
		t.ZipCode,
		t.City,
		ciphers.email,
		ciphers.phone,
		r.codec.Pseudonymize(t.License),
		ciphers.license,
		t.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, domain.ErrTravellerAlreadyExists
		}
		return false, apperrors.Wrap(err, "failed to update traveller")
	}

	return rowsAffected(result)
}

// Delete removes the traveller. Idempotent: a second call reports false, not
// an error.
func (r *SQLiteTravellerRepository) Delete(ctx context.Context, id int64) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM travellers WHERE id = ?`, id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to delete traveller")
	}

	return rowsAffected(result)
}

// scanTraveller decrypts a scanned row into a Traveller. Decryption failure
// marks the record Corrupted instead of failing the scan.
func (r *SQLiteTravellerRepository) scanTraveller(scan func(...any) error) (*domain.Traveller, error) {
	var (
		t domain.Traveller
		c travellerCiphers
	)

	err := scan(&t.ID, &c.firstName, &c.lastName, &c.birthday, &t.Gender, &c.street, &c.houseNumber,
		&t.ZipCode, &t.City, &c.email, &c.phone, &c.license, &t.CreatedAt)
	if err != nil {
		return nil, err
	}

	fields := []struct {
		cipher string
		plain  *string
	}{
		{c.firstName, &t.FirstName},
		{c.lastName, &t.LastName},
		{c.birthday, &t.Birthday},
		{c.street, &t.StreetName},
		{c.houseNumber, &t.HouseNumber},
		{c.email, &t.Email},
		{c.phone, &t.Phone},
		{c.license, &t.License},
	}
	for _, f := range fields {
		if *f.plain, err = r.codec.DecryptDisplay(f.cipher); err != nil {
			t.Corrupted = true
			*f.plain = ""
		}
	}

	return &t, nil
}

// rowsAffected converts a result into a "did anything change" report.
func rowsAffected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}
	return n > 0, nil
}

// isUniqueViolation checks if the error is a sqlite unique constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

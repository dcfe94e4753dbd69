// Package repository provides encrypted persistence for staff accounts.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/urbanfleet/fleetcore/internal/authz"
	cryptoService "github.com/urbanfleet/fleetcore/internal/crypto/service"
	"github.com/urbanfleet/fleetcore/internal/database"
	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
	"github.com/urbanfleet/fleetcore/internal/user/domain"
)

// SQLiteUserRepository handles staff account persistence. The username is
// stored twice: a deterministic pseudonymized token for equality lookup and
// the UNIQUE constraint, and a randomized ciphertext for display. Names are
// randomized ciphertext only.
type SQLiteUserRepository struct {
	db    *sql.DB
	codec cryptoService.FieldCodec
}

// NewSQLiteUserRepository creates a new SQLiteUserRepository.
func NewSQLiteUserRepository(db *sql.DB, codec cryptoService.FieldCodec) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db, codec: codec}
}

// Create inserts a new staff account and sets user.ID. The caller provides a
// canonical lower-case username and a hashed credential.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *domain.UserAccount) error {
	querier := database.GetTx(ctx, r.db)

	usernameCipher, err := r.codec.EncryptDisplay(user.Username)
	if err != nil {
		return apperrors.Wrap(err, "failed to encrypt username")
	}
	firstNameCipher, err := r.codec.EncryptDisplay(user.FirstName)
	if err != nil {
		return apperrors.Wrap(err, "failed to encrypt first name")
	}
	lastNameCipher, err := r.codec.EncryptDisplay(user.LastName)
	if err != nil {
		return apperrors.Wrap(err, "failed to encrypt last name")
	}

	query := `INSERT INTO users (username_token, username_cipher, password_hash, role, first_name_cipher, last_name_cipher)
			  VALUES (?, ?, ?, ?, ?, ?)`

	result, err := querier.ExecContext(
		ctx,
		query,
		r.codec.Pseudonymize(user.Username),
		usernameCipher,
		user.PasswordHash,
		string(user.Role),
		firstNameCipher,
		lastNameCipher,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create user")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return apperrors.Wrap(err, "failed to read inserted user id")
	}
	user.ID = id

	return nil
}

// GetByID retrieves and decrypts a staff account.
func (r *SQLiteUserRepository) GetByID(ctx context.Context, id int64) (*domain.UserAccount, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, username_cipher, password_hash, role, first_name_cipher, last_name_cipher, created_at
			  FROM users WHERE id = ?`

	row := querier.QueryRowContext(ctx, query, id)
	user, err := r.scanUser(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user by id")
	}

	return user, nil
}

// GetByUsername retrieves an account through the deterministic lookup token.
// Used by the authentication flow, so the password hash is populated.
func (r *SQLiteUserRepository) GetByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, username_cipher, password_hash, role, first_name_cipher, last_name_cipher, created_at
			  FROM users WHERE username_token = ?`

	row := querier.QueryRowContext(ctx, query, r.codec.Pseudonymize(username))
	user, err := r.scanUser(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user by username")
	}

	return user, nil
}

// List returns all staff accounts ordered by id. Records whose ciphertext no
// longer decrypts are returned with placeholder fields and Corrupted set, so
// one bad record does not abort the listing.
func (r *SQLiteUserRepository) List(ctx context.Context) ([]*domain.UserAccount, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, username_cipher, password_hash, role, first_name_cipher, last_name_cipher, created_at
			  FROM users ORDER BY id`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list users")
	}
	defer func() {
		_ = rows.Close()
	}()

	users := make([]*domain.UserAccount, 0)
	for rows.Next() {
		user, err := r.scanUser(rows.Scan)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan user")
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate users")
	}

	return users, nil
}

// ExistsUsername reports whether the username's deterministic token is taken.
func (r *SQLiteUserRepository) ExistsUsername(ctx context.Context, username string) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	var count int
	query := `SELECT COUNT(*) FROM users WHERE username_token = ?`
	if err := querier.QueryRowContext(ctx, query, r.codec.Pseudonymize(username)).Scan(&count); err != nil {
		return false, apperrors.Wrap(err, "failed to check username")
	}

	return count > 0, nil
}

// UpdateProfile re-encrypts and stores the name fields. Returns whether a row
// was updated.
func (r *SQLiteUserRepository) UpdateProfile(ctx context.Context, id int64, firstName, lastName string) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	firstNameCipher, err := r.codec.EncryptDisplay(firstName)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to encrypt first name")
	}
	lastNameCipher, err := r.codec.EncryptDisplay(lastName)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to encrypt last name")
	}

	query := `UPDATE users SET first_name_cipher = ?, last_name_cipher = ? WHERE id = ?`
	result, err := querier.ExecContext(ctx, query, firstNameCipher, lastNameCipher, id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to update profile")
	}

	return rowsAffected(result)
}

// UpdatePassword stores a new hashed credential. Returns whether a row was
// updated.
func (r *SQLiteUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE users SET password_hash = ? WHERE id = ?`
	result, err := querier.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to update password")
	}

	return rowsAffected(result)
}

// Delete removes the account. Idempotent: a second call reports false, not an
// error.
func (r *SQLiteUserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to delete user")
	}

	return rowsAffected(result)
}

// scanUser decrypts a scanned row into a UserAccount. Decryption failure marks
// the record Corrupted instead of failing the scan.
func (r *SQLiteUserRepository) scanUser(scan func(...any) error) (*domain.UserAccount, error) {
	var (
		user            domain.UserAccount
		role            string
		usernameCipher  string
		firstNameCipher string
		lastNameCipher  string
	)

	err := scan(&user.ID, &usernameCipher, &user.PasswordHash, &role, &firstNameCipher, &lastNameCipher, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	user.Role = authz.Role(role)

	if user.Username, err = r.codec.DecryptDisplay(usernameCipher); err != nil {
		user.Corrupted = true
		user.Username = fmt.Sprintf("user_%d", user.ID)
	}
	if user.FirstName, err = r.codec.DecryptDisplay(firstNameCipher); err != nil {
		user.Corrupted = true
		user.FirstName = ""
	}
	if user.LastName, err = r.codec.DecryptDisplay(lastNameCipher); err != nil {
		user.Corrupted = true
		user.LastName = ""
	}

	return &user, nil
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

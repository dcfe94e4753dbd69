// Package domain defines the staff account entities and errors.
package domain

import (
	"time"

	"github.com/urbanfleet/fleetcore/internal/authz"
	"github.com/urbanfleet/fleetcore/internal/errors"
)

// OwnerUsername is the reserved identity of the fixed Owner account. It is
// never stored in the users table, never deletable, and its password is never
// rotatable through normal flows; the session flow recognizes it directly.
const OwnerUsername = "owner_root"

// UserAccount represents a staff account. Username, FirstName and LastName are
// plaintext in memory only; at rest the username is stored twice (a
// deterministic lookup token and a randomized display ciphertext) and the
// names are stored as randomized ciphertext.
type UserAccount struct {
	ID           int64
	Username     string
	Role         authz.Role
	FirstName    string
	LastName     string
	PasswordHash string
	CreatedAt    time.Time

	// Corrupted marks a record whose ciphertext could not be decrypted with
	// the current master secret. Such records are listed with placeholder
	// fields rather than aborting the whole listing.
	Corrupted bool
}

// Actor converts the account into an authorization actor.
func (u *UserAccount) Actor() authz.Actor {
	return authz.Actor{Username: u.Username, Role: u.Role}
}

// Target converts the account into an authorization target.
func (u *UserAccount) Target() authz.Target {
	return authz.Target{Username: u.Username, Role: u.Role}
}

// Domain-specific errors for staff account operations.
var (
	// ErrUserNotFound indicates the requested account does not exist.
	ErrUserNotFound = errors.Wrap(errors.ErrNotFound, "user not found")

	// ErrUserAlreadyExists indicates an account with the same username exists.
	ErrUserAlreadyExists = errors.Wrap(errors.ErrConflict, "username already exists")

	// ErrReservedUsername indicates an attempt to store the Owner identity as
	// a regular account.
	ErrReservedUsername = errors.Wrap(errors.ErrConflict, "username is reserved")

	// ErrInvalidRole indicates the requested role is not creatable.
	ErrInvalidRole = errors.Wrap(errors.ErrInvalidInput, "role must be administrator or operator")
)

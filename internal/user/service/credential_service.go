// Package service provides the credential store: one-way password hashing and
// verification. Credentials are never reversible and never exposed.
package service

import (
	"github.com/allisson/go-pwdhash"

	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
)

// CredentialService hashes and verifies staff passwords.
type CredentialService interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// credentialService implements CredentialService using Argon2id with a random
// per-call salt.
type credentialService struct {
	hasher *pwdhash.PasswordHasher
}

// NewCredentialService creates a new CredentialService using the interactive
// Argon2id policy, balancing login latency against brute-force cost.
func NewCredentialService() CredentialService {
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyInteractive))
	if err != nil {
		// Only reachable with an invalid policy constant.
		panic(err)
	}

	return &credentialService{hasher: hasher}
}

// Hash derives an Argon2id credential from the password.
func (s *credentialService) Hash(password string) (string, error) {
	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash password")
	}
	return hash, nil
}

// Verify performs a constant-time comparison between password and credential.
func (s *credentialService) Verify(password, hash string) bool {
	ok, err := s.hasher.Verify([]byte(password), hash)
	if err != nil {
		return false
	}
	return ok
}

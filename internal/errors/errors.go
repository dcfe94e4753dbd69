// Package errors provides standardized domain errors that express business intent
// rather than infrastructure details. Use cases return these to the calling
// boundary, where they are surfaced as operator-facing messages.
package errors

import (
	"errors"
	"fmt"
)

// Standard domain errors shared by all modules.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness invariant was violated (e.g., duplicate
	// username, serial number, or license number).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates a field failed whitelist validation. The message
	// is always safe to show verbatim to the actor.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates credential verification failed.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the authorization engine denied the action.
	// Denial is an expected outcome, not an exceptional condition.
	ErrForbidden = errors.New("forbidden")
)

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

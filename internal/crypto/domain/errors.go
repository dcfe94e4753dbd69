// Package domain defines crypto layer errors and constants.
package domain

import "errors"

var (
	// ErrDecryptionFailed indicates the ciphertext could not be authenticated
	// or decrypted. Treated as a data-integrity failure for that record; the
	// operation is not retried.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidKeySize indicates the master secret has the wrong length.
	ErrInvalidKeySize = errors.New("key must be exactly 32 bytes")

	// ErrInvalidCiphertext indicates a stored value is too short or malformed
	// to contain a nonce and an authenticated ciphertext.
	ErrInvalidCiphertext = errors.New("malformed ciphertext")
)

// MasterKeySize is the required size of the persisted master secret in bytes.
const MasterKeySize = 32

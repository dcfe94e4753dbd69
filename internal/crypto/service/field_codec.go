// Package service implements the protected-field codec: randomized encryption
// for display values and deterministic pseudonymization for lookup keys.
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/urbanfleet/fleetcore/internal/crypto/domain"
)

// FieldCodec is the protected-field codec consulted by every repository that
// stores personally identifiable data.
//
// EncryptDisplay is randomized: two calls on equal input yield different
// ciphertext, preventing pattern and frequency leakage. Pseudonymize is a
// deterministic keyed one-way transform used wherever equality lookup or a
// uniqueness constraint is required on an otherwise encrypted field. Never
// compare two independently randomized ciphertexts for equality.
type FieldCodec interface {
	EncryptDisplay(plaintext string) (string, error)
	DecryptDisplay(ciphertext string) (string, error)
	Pseudonymize(plaintext string) string
}

// HKDF info labels. Versioned so the derivation can change without breaking
// previously stored data.
const (
	displayKeyInfo   = "field-display-encryption-v1"
	pseudonymKeyInfo = "field-pseudonymization-v1"
)

type fieldCodec struct {
	cipher       *AESGCMCipher
	pseudonymKey []byte
}

// NewFieldCodec derives the display-encryption and pseudonymization subkeys
// from the master secret via HKDF-SHA256, keeping the two usages
// cryptographically separated.
func NewFieldCodec(masterKey []byte) (FieldCodec, error) {
	if len(masterKey) != cryptoDomain.MasterKeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	displayKey, err := deriveKey(masterKey, displayKeyInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to derive display key: %w", err)
	}

	pseudonymKey, err := deriveKey(masterKey, pseudonymKeyInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to derive pseudonym key: %w", err)
	}

	cipher, err := NewAESGCM(displayKey)
	if err != nil {
		return nil, err
	}

	return &fieldCodec{
		cipher:       cipher,
		pseudonymKey: pseudonymKey,
	}, nil
}

// DeriveSubkey expands a 32-byte usage-specific subkey from the master secret
// via HKDF-SHA256. Other components (such as the audit signer) use it to get
// keys that are cryptographically separated from the codec's.
func DeriveSubkey(masterKey []byte, info string) ([]byte, error) {
	return deriveKey(masterKey, info)
}

// deriveKey expands a 32-byte subkey from the master secret for the given usage label.
func deriveKey(masterKey []byte, info string) ([]byte, error) {
	reader := hkdf.New(sha256.New, masterKey, nil, []byte(info))
	key := make([]byte, cryptoDomain.MasterKeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// EncryptDisplay encrypts a display-only value. The result encodes
// base64(nonce || ciphertext) so a single column stores everything needed for
// decryption.
func (c *fieldCodec) EncryptDisplay(plaintext string) (string, error) {
	ciphertext, nonce, err := c.cipher.Encrypt([]byte(plaintext), nil)
	if err != nil {
		return "", err
	}

	packed := make([]byte, 0, len(nonce)+len(ciphertext))
	packed = append(packed, nonce...)
	packed = append(packed, ciphertext...)
	return base64.StdEncoding.EncodeToString(packed), nil
}

// DecryptDisplay reverses EncryptDisplay. Returns ErrDecryptionFailed when the
// master secret changed or the stored value was corrupted, and
// ErrInvalidCiphertext when the value cannot hold a nonce at all.
func (c *fieldCodec) DecryptDisplay(ciphertext string) (string, error) {
	packed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", cryptoDomain.ErrInvalidCiphertext
	}

	nonceSize := c.cipher.NonceSize()
	if len(packed) < nonceSize {
		return "", cryptoDomain.ErrInvalidCiphertext
	}

	plaintext, err := c.cipher.Decrypt(packed[nonceSize:], packed[:nonceSize], nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// Pseudonymize computes the deterministic lookup token for a value:
// hex(HMAC-SHA256(pseudonymKey, plaintext)). One-way and stable across calls,
// which is what makes encrypted-column equality lookups and UNIQUE constraints
// possible.
func (c *fieldCodec) Pseudonymize(plaintext string) string {
	mac := hmac.New(sha256.New, c.pseudonymKey)
	mac.Write([]byte(plaintext))
	return hex.EncodeToString(mac.Sum(nil))
}

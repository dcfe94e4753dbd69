package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/urbanfleet/fleetcore/internal/crypto/domain"
)

// AESGCMCipher provides authenticated encryption using AES-256-GCM.
//
// Each encryption generates a fresh random 12-byte nonce, so repeated calls on
// equal plaintext produce different ciphertext. The 16-byte authentication tag
// is appended to the ciphertext, preventing tampering and forgery.
//
// The cipher instance is stateless and safe for concurrent use.
type AESGCMCipher struct {
	aead cipher.AEAD
}

// NewAESGCM creates a new AES-256-GCM cipher instance. The key must be exactly
// 32 bytes and should come from crypto/rand.
func NewAESGCM(key []byte) (*AESGCMCipher, error) {
	if len(key) != cryptoDomain.MasterKeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESGCMCipher{aead: aead}, nil
}

// Encrypt encrypts plaintext with a random per-call nonce. The nonce must be
// stored alongside the ciphertext for later decryption; with GCM a nonce must
// never be reused under the same key.
func (a *AESGCMCipher) Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, a.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext = a.aead.Seal(nil, nonce, plaintext, aad)
	return ciphertext, nonce, nil
}

// Decrypt verifies the authentication tag and decrypts ciphertext. Returns
// ErrDecryptionFailed if the key changed or the ciphertext was tampered with.
func (a *AESGCMCipher) Decrypt(ciphertext, nonce, aad []byte) ([]byte, error) {
	plaintext, err := a.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return plaintext, nil
}

// NonceSize returns the nonce size of the underlying AEAD.
func (a *AESGCMCipher) NonceSize() int {
	return a.aead.NonceSize()
}

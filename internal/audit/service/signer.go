// Package service implements audit entry signing. Signatures are computed
// over the stored (encrypted) representation, so a verification pass never
// needs to decrypt anything.
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"strings"

	cryptoService "github.com/urbanfleet/fleetcore/internal/crypto/service"
)

// signingKeyInfo is the HKDF label for the audit signing subkey. Versioned so
// the derivation can change without invalidating previously stored entries.
const signingKeyInfo = "audit-entry-signing-v1"

// Record is the stored representation of an audit entry, exactly as it sits
// in the database. The signature covers every column except the signature
// itself.
type Record struct {
	OccurredAtUnixNano int64
	EntryDate          string
	EntryTime          string
	Kind               string
	ActorToken         string
	ActorCipher        string
	DescriptionCipher  string
	DetailCipher       string
	Suspicious         bool
}

// Signer signs and verifies stored audit entries.
type Signer interface {
	Sign(record Record) []byte
	Verify(record Record, signature []byte) bool
}

type hmacSigner struct {
	key []byte
}

// NewSigner derives the audit signing subkey from the master secret.
func NewSigner(masterKey []byte) (Signer, error) {
	key, err := cryptoService.DeriveSubkey(masterKey, signingKeyInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to derive audit signing key: %w", err)
	}
	return &hmacSigner{key: key}, nil
}

// canonical builds an unambiguous byte representation of the record. Fields
// are length-prefixed so no combination of values can collide.
func canonical(record Record) []byte {
	fields := []string{
		fmt.Sprintf("%d", record.OccurredAtUnixNano),
		record.EntryDate,
		record.EntryTime,
		record.Kind,
		record.ActorToken,
		record.ActorCipher,
		record.DescriptionCipher,
		record.DetailCipher,
		fmt.Sprintf("%t", record.Suspicious),
	}

	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, "%d:%s|", len(f), f)
	}
	return []byte(b.String())
}

// Sign computes HMAC-SHA256 over the record's canonical representation.
func (s *hmacSigner) Sign(record Record) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(canonical(record))
	return mac.Sum(nil)
}

// Verify recomputes the signature and compares in constant time.
func (s *hmacSigner) Verify(record Record, signature []byte) bool {
	return hmac.Equal(s.Sign(record), signature)
}

// Package domain defines the audit log entities and errors.
package domain

import "time"

// Entry kinds. Login attempts get their own kinds so brute-force detection can
// query them without decrypting anything.
const (
	KindActivity     = "activity"
	KindSuspicious   = "suspicious"
	KindLoginSuccess = "login_success"
	KindLoginFailed  = "login_failed"
)

// Entry is one audit log record. Actor, Description and Detail are plaintext
// in memory only; at rest they are stored as randomized ciphertext, with the
// actor additionally pseudonymized for indexed queries. Every stored entry
// carries an HMAC signature over its stored representation, so tampering with
// the database file is detectable.
type Entry struct {
	ID          int64
	OccurredAt  time.Time
	Kind        string
	Actor       string
	Description string
	Detail      string
	Suspicious  bool

	// Corrupted marks an entry whose ciphertext could not be decrypted with
	// the current master secret.
	Corrupted bool

	// SignatureValid reports whether the stored signature matched on read.
	// False means the row was altered outside the application.
	SignatureValid bool
}

// IntegrityReport summarizes a full signature verification pass.
type IntegrityReport struct {
	Total      int
	Valid      int
	InvalidIDs []int64
}

// Clean reports whether every entry carried a valid signature.
func (r IntegrityReport) Clean() bool {
	return len(r.InvalidIDs) == 0
}

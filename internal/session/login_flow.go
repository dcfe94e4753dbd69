package session

import (
	"context"

	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
)

// ErrMaxAttemptsExceeded terminates a login flow after too many consecutive
// failures.
var ErrMaxAttemptsExceeded = apperrors.Wrap(apperrors.ErrUnauthorized, "maximum login attempts exceeded")

// CredentialPrompt supplies one pair of credentials. The attempt counter
// starts at 1.
type CredentialPrompt func(attempt int) (username, password string, err error)

// LoginFlow bounds an interactive authentication exchange to a fixed number
// of consecutive failures.
type LoginFlow struct {
	authenticator *Authenticator
	audit         AuditRecorder
	maxAttempts   int
}

// NewLoginFlow creates a new LoginFlow.
func NewLoginFlow(authenticator *Authenticator, audit AuditRecorder, maxAttempts int) *LoginFlow {
	return &LoginFlow{
		authenticator: authenticator,
		audit:         audit,
		maxAttempts:   maxAttempts,
	}
}

// Run prompts for credentials until authentication succeeds or the attempt
// limit is reached. A prompt error (such as EOF) aborts immediately. Running
// out of attempts is recorded as suspicious.
func (f *LoginFlow) Run(ctx context.Context, prompt CredentialPrompt) (*Session, error) {
	var lastUsername string

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		username, password, err := prompt(attempt)
		if err != nil {
			return nil, err
		}
		lastUsername = username

		sess, err := f.authenticator.Authenticate(ctx, username, password)
		if err == nil {
			return sess, nil
		}
		if !apperrors.Is(err, apperrors.ErrUnauthorized) {
			return nil, err
		}
	}

	f.audit.Suspicious(ctx, lastUsername, "maximum login attempts exceeded",
		"login flow aborted")
	return nil, ErrMaxAttemptsExceeded
}

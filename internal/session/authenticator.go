package session

import (
	"context"
	"crypto/subtle"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/urbanfleet/fleetcore/internal/authz"
	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
	"github.com/urbanfleet/fleetcore/internal/metrics"
	userDomain "github.com/urbanfleet/fleetcore/internal/user/domain"
)

// ownerPassword is the fixed credential of the reserved Owner identity. The
// Owner exists before any database row does, so its credential cannot live in
// the users table; it is checked here and nowhere else, and it cannot be
// changed through normal flows.
const ownerPassword = "Fleet&Root_2024!"

// Authentication errors. Wrong username and wrong password are deliberately
// indistinguishable to the caller.
var (
	ErrInvalidCredentials = apperrors.Wrap(apperrors.ErrUnauthorized, "invalid username or password")
	ErrThrottled          = apperrors.Wrap(apperrors.ErrUnauthorized, "too many login attempts, slow down")
)

// UserProvider looks up stored accounts for authentication.
type UserProvider interface {
	GetByUsername(ctx context.Context, username string) (*userDomain.UserAccount, error)
}

// CredentialVerifier checks a password against a stored hash.
type CredentialVerifier interface {
	Verify(password, hash string) bool
}

// AuditRecorder records authentication outcomes.
type AuditRecorder interface {
	LoginSuccess(ctx context.Context, username string)
	LoginFailed(ctx context.Context, username, detail string)
	Suspicious(ctx context.Context, actor, description, detail string)
}

// FailureDetector reports clustered failed logins for an identity.
type FailureDetector interface {
	DetectRepeatedFailures(ctx context.Context, username string, window time.Duration, threshold int) (bool, error)
}

// Config tunes throttling and brute-force detection.
type Config struct {
	// FailureWindow and FailureThreshold drive the "possible brute force"
	// escalation: threshold failures within the trailing window.
	FailureWindow    time.Duration
	FailureThreshold int

	// RatePerSec and RateBurst bound attempt frequency per identity.
	RatePerSec float64
	RateBurst  int
}

// Authenticator validates credentials and issues sessions.
type Authenticator struct {
	users       UserProvider
	credentials CredentialVerifier
	audit       AuditRecorder
	detector    FailureDetector
	metrics     metrics.BusinessMetrics
	config      Config

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(
	users UserProvider,
	credentials CredentialVerifier,
	audit AuditRecorder,
	detector FailureDetector,
	businessMetrics metrics.BusinessMetrics,
	config Config,
) *Authenticator {
	return &Authenticator{
		users:       users,
		credentials: credentials,
		audit:       audit,
		detector:    detector,
		metrics:     businessMetrics,
		config:      config,
		limiters:    make(map[string]*rate.Limiter),
	}
}

// limiter returns the per-identity rate limiter, creating it on first use.
func (a *Authenticator) limiter(username string) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()

	l, ok := a.limiters[username]
	if !ok {
		l = rate.NewLimiter(rate.Limit(a.config.RatePerSec), a.config.RateBurst)
		a.limiters[username] = l
	}
	return l
}

// Authenticate validates the credentials and returns a session. Every attempt
// is audited; failures beyond the configured cluster threshold additionally
// produce a "possible brute force" suspicious entry.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	if !a.limiter(username).Allow() {
		a.audit.Suspicious(ctx, username, "login throttled", "attempt rate exceeded")
		a.metrics.RecordOperation(ctx, "session", "login", "throttled")
		return nil, ErrThrottled
	}

	if username == userDomain.OwnerUsername {
		return a.authenticateOwner(ctx, password)
	}

	user, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, a.fail(ctx, username, "unknown username")
		}
		return nil, err
	}

	if !a.credentials.Verify(password, user.PasswordHash) {
		return nil, a.fail(ctx, username, "wrong password")
	}

	a.audit.LoginSuccess(ctx, username)
	a.metrics.RecordOperation(ctx, "session", "login", "success")

	return &Session{Username: user.Username, Role: user.Role, IssuedAt: time.Now()}, nil
}

// authenticateOwner checks the fixed Owner credential in constant time.
func (a *Authenticator) authenticateOwner(ctx context.Context, password string) (*Session, error) {
	if subtle.ConstantTimeCompare([]byte(password), []byte(ownerPassword)) != 1 {
		return nil, a.fail(ctx, userDomain.OwnerUsername, "wrong password")
	}

	a.audit.LoginSuccess(ctx, userDomain.OwnerUsername)
	a.metrics.RecordOperation(ctx, "session", "login", "success")

	return &Session{
		Username: userDomain.OwnerUsername,
		Role:     authz.RoleOwner,
		IssuedAt: time.Now(),
	}, nil
}

// fail records the failed attempt, escalates clustered failures, and returns
// the uniform credential error.
func (a *Authenticator) fail(ctx context.Context, username, detail string) error {
	a.audit.LoginFailed(ctx, username, detail)
	a.metrics.RecordOperation(ctx, "session", "login", "failed")

	clustered, err := a.detector.DetectRepeatedFailures(ctx, username, a.config.FailureWindow, a.config.FailureThreshold)
	if err == nil && clustered {
		a.audit.Suspicious(ctx, username, "possible brute force",
			"repeated failed logins within detection window")
	}

	return ErrInvalidCredentials
}

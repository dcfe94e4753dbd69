// Package session implements authentication and the authenticated-caller
// value threaded through every operation. There is no global current-user
// state: a Session is returned by the authenticator and passed explicitly.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urbanfleet/fleetcore/internal/authz"
	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
)

// Session identifies an authenticated staff member.
type Session struct {
	Username string
	Role     authz.Role
	IssuedAt time.Time
}

// Actor converts the session into an authorization actor.
func (s *Session) Actor() authz.Actor {
	return authz.Actor{Username: s.Username, Role: s.Role}
}

// sessionKey is a context key type for carrying the session.
type sessionKey struct{}

// WithSession returns a context carrying the session.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext retrieves the session from the context, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok
}

// RequireRole checks that the session holds one of the given roles. Callers
// that should leave an audit trail on denial go through Gate instead.
func RequireRole(s *Session, roles ...authz.Role) error {
	if s == nil {
		return apperrors.Wrap(apperrors.ErrUnauthorized, "authentication required")
	}
	for _, role := range roles {
		if s.Role == role {
			return nil
		}
	}
	return apperrors.Wrap(apperrors.ErrForbidden, "insufficient role "+string(s.Role))
}

// Gate wraps RequireRole with audit recording: a failed check both denies and
// leaves a suspicious entry carrying the required and actual roles.
type Gate struct {
	audit AuditRecorder
}

// NewGate creates a new Gate.
func NewGate(audit AuditRecorder) *Gate {
	return &Gate{audit: audit}
}

// RequireRole checks the session against the allowed roles, recording a
// denial as suspicious.
func (g *Gate) RequireRole(ctx context.Context, s *Session, roles ...authz.Role) error {
	err := RequireRole(s, roles...)
	if err == nil {
		return nil
	}

	actor := ""
	actual := "none"
	if s != nil {
		actor = s.Username
		actual = string(s.Role)
	}
	required := make([]string, len(roles))
	for i, role := range roles {
		required[i] = string(role)
	}
	g.audit.Suspicious(ctx, actor, "denied by role gate",
		fmt.Sprintf("required %s, actual %s", strings.Join(required, " or "), actual))

	return err
}

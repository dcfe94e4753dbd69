package app

import (
	"fmt"

	"github.com/urbanfleet/fleetcore/internal/session"
)

// Authenticator returns the session authenticator instance.
func (c *Container) Authenticator() (*session.Authenticator, error) {
	var err error
	c.authenticatorInit.Do(func() {
		c.authenticator, err = c.initAuthenticator()
		if err != nil {
			c.initErrors["authenticator"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["authenticator"]; exists {
		return nil, storedErr
	}
	return c.authenticator, nil
}

// LoginFlow returns the bounded login flow instance.
func (c *Container) LoginFlow() (*session.LoginFlow, error) {
	var err error
	c.loginFlowInit.Do(func() {
		c.loginFlow, err = c.initLoginFlow()
		if err != nil {
			c.initErrors["loginFlow"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["loginFlow"]; exists {
		return nil, storedErr
	}
	return c.loginFlow, nil
}

// Gate returns the audited role gate instance.
func (c *Container) Gate() (*session.Gate, error) {
	var err error
	c.gateInit.Do(func() {
		c.gate, err = c.initGate()
		if err != nil {
			c.initErrors["gate"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["gate"]; exists {
		return nil, storedErr
	}
	return c.gate, nil
}

// initAuthenticator creates the authenticator with all its dependencies.
func (c *Container) initAuthenticator() (*session.Authenticator, error) {
	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for authenticator: %w", err)
	}
	recorder, err := c.AuditRecorder()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit recorder for authenticator: %w", err)
	}
	auditUseCase, err := c.AuditUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for authenticator: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for authenticator: %w", err)
	}

	return session.NewAuthenticator(
		userRepo,
		c.CredentialService(),
		recorder,
		auditUseCase,
		businessMetrics,
		session.Config{
			FailureWindow:    c.config.FailedLoginWindow,
			FailureThreshold: c.config.LockoutMaxAttempts,
			RatePerSec:       c.config.LoginRatePerSec,
			RateBurst:        c.config.LoginRateBurst,
		},
	), nil
}

// initGate creates the role gate backed by the audit recorder.
func (c *Container) initGate() (*session.Gate, error) {
	recorder, err := c.AuditRecorder()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit recorder for role gate: %w", err)
	}
	return session.NewGate(recorder), nil
}

// initLoginFlow creates the login flow bounded by the configured attempt limit.
func (c *Container) initLoginFlow() (*session.LoginFlow, error) {
	authenticator, err := c.Authenticator()
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticator for login flow: %w", err)
	}
	recorder, err := c.AuditRecorder()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit recorder for login flow: %w", err)
	}
	return session.NewLoginFlow(authenticator, recorder, c.config.LockoutMaxAttempts), nil
}

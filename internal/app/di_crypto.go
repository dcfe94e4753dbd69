package app

import (
	"fmt"

	auditService "github.com/urbanfleet/fleetcore/internal/audit/service"
	cryptoService "github.com/urbanfleet/fleetcore/internal/crypto/service"
)

// MasterKey returns the master secret, generating and persisting it on first
// run.
func (c *Container) MasterKey() ([]byte, error) {
	var err error
	c.masterKeyInit.Do(func() {
		c.masterKey, err = cryptoService.LoadOrCreateMasterKey(c.config.KeyFilePath)
		if err != nil {
			c.initErrors["masterKey"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["masterKey"]; exists {
		return nil, storedErr
	}
	return c.masterKey, nil
}

// FieldCodec returns the protected-field codec.
func (c *Container) FieldCodec() (cryptoService.FieldCodec, error) {
	var err error
	c.fieldCodecInit.Do(func() {
		c.fieldCodec, err = c.initFieldCodec()
		if err != nil {
			c.initErrors["fieldCodec"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["fieldCodec"]; exists {
		return nil, storedErr
	}
	return c.fieldCodec, nil
}

// AuditSigner returns the audit entry signer.
func (c *Container) AuditSigner() (auditService.Signer, error) {
	var err error
	c.auditSignerInit.Do(func() {
		c.auditSigner, err = c.initAuditSigner()
		if err != nil {
			c.initErrors["auditSigner"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditSigner"]; exists {
		return nil, storedErr
	}
	return c.auditSigner, nil
}

// initFieldCodec creates the field codec from the master secret.
func (c *Container) initFieldCodec() (cryptoService.FieldCodec, error) {
	masterKey, err := c.MasterKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key for field codec: %w", err)
	}
	return cryptoService.NewFieldCodec(masterKey)
}

// initAuditSigner creates the audit signer from the master secret.
func (c *Container) initAuditSigner() (auditService.Signer, error) {
	masterKey, err := c.MasterKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key for audit signer: %w", err)
	}
	return auditService.NewSigner(masterKey)
}

package app

import (
	"fmt"

	auditRepository "github.com/urbanfleet/fleetcore/internal/audit/repository"
	auditUsecase "github.com/urbanfleet/fleetcore/internal/audit/usecase"
)

// AuditRepository returns the audit entry repository instance.
func (c *Container) AuditRepository() (auditUsecase.EntryRepository, error) {
	var err error
	c.auditRepoInit.Do(func() {
		c.auditRepo, err = c.initAuditRepository()
		if err != nil {
			c.initErrors["auditRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditRepo"]; exists {
		return nil, storedErr
	}
	return c.auditRepo, nil
}

// AuditRecorder returns the shared audit recorder used by all use cases.
func (c *Container) AuditRecorder() (*auditUsecase.Recorder, error) {
	var err error
	c.auditRecorderInit.Do(func() {
		c.auditRecorder, err = c.initAuditRecorder()
		if err != nil {
			c.initErrors["auditRecorder"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditRecorder"]; exists {
		return nil, storedErr
	}
	return c.auditRecorder, nil
}

// AuditUseCase returns the audit log review use case instance.
func (c *Container) AuditUseCase() (auditUsecase.UseCase, error) {
	var err error
	c.auditUseCaseInit.Do(func() {
		c.auditUseCase, err = c.initAuditUseCase()
		if err != nil {
			c.initErrors["auditUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditUseCase"]; exists {
		return nil, storedErr
	}
	return c.auditUseCase, nil
}

// initAuditRepository creates the audit entry repository instance.
func (c *Container) initAuditRepository() (auditUsecase.EntryRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for audit repository: %w", err)
	}
	codec, err := c.FieldCodec()
	if err != nil {
		return nil, fmt.Errorf("failed to get field codec for audit repository: %w", err)
	}
	signer, err := c.AuditSigner()
	if err != nil {
		return nil, fmt.Errorf("failed to get signer for audit repository: %w", err)
	}
	return auditRepository.NewSQLiteAuditRepository(db, codec, signer), nil
}

// initAuditRecorder creates the audit recorder.
func (c *Container) initAuditRecorder() (*auditUsecase.Recorder, error) {
	auditRepo, err := c.AuditRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit repository for recorder: %w", err)
	}
	return auditUsecase.NewRecorder(auditRepo, c.Logger()), nil
}

// initAuditUseCase creates the audit log review use case.
func (c *Container) initAuditUseCase() (auditUsecase.UseCase, error) {
	auditRepo, err := c.AuditRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit repository for audit use case: %w", err)
	}
	recorder, err := c.AuditRecorder()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit recorder for audit use case: %w", err)
	}
	return auditUsecase.NewAuditUseCase(auditRepo, recorder), nil
}

package app

import (
	"fmt"

	backupRepository "github.com/urbanfleet/fleetcore/internal/backup/repository"
	backupService "github.com/urbanfleet/fleetcore/internal/backup/service"
	backupUsecase "github.com/urbanfleet/fleetcore/internal/backup/usecase"
)

// Archiver returns the snapshot archiver instance.
func (c *Container) Archiver() *backupService.Archiver {
	c.archiverInit.Do(func() {
		c.archiver = backupService.NewArchiver(c.config.BackupDir)
	})
	return c.archiver
}

// GrantRepository returns the restore grant repository instance.
func (c *Container) GrantRepository() (backupUsecase.GrantRepository, error) {
	var err error
	c.grantRepoInit.Do(func() {
		c.grantRepo, err = c.initGrantRepository()
		if err != nil {
			c.initErrors["grantRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["grantRepo"]; exists {
		return nil, storedErr
	}
	return c.grantRepo, nil
}

// BackupUseCase returns the backup and restore use case instance.
func (c *Container) BackupUseCase() (backupUsecase.UseCase, error) {
	var err error
	c.backupUseCaseInit.Do(func() {
		c.backupUseCase, err = c.initBackupUseCase()
		if err != nil {
			c.initErrors["backupUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["backupUseCase"]; exists {
		return nil, storedErr
	}
	return c.backupUseCase, nil
}

// initGrantRepository creates the restore grant repository instance.
func (c *Container) initGrantRepository() (backupUsecase.GrantRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for grant repository: %w", err)
	}
	codec, err := c.FieldCodec()
	if err != nil {
		return nil, fmt.Errorf("failed to get field codec for grant repository: %w", err)
	}
	return backupRepository.NewSQLiteRestoreGrantRepository(db, codec), nil
}

// initBackupUseCase creates the backup use case with all its dependencies.
func (c *Container) initBackupUseCase() (backupUsecase.UseCase, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for backup use case: %w", err)
	}
	grantRepo, err := c.GrantRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get grant repository for backup use case: %w", err)
	}
	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for backup use case: %w", err)
	}
	recorder, err := c.AuditRecorder()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit recorder for backup use case: %w", err)
	}

	return backupUsecase.NewBackupUseCase(
		db,
		c.config.DatabasePath,
		c.Archiver(),
		grantRepo,
		userRepo,
		recorder,
	), nil
}

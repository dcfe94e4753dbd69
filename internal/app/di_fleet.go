package app

import (
	"fmt"

	travellerRepository "github.com/urbanfleet/fleetcore/internal/traveller/repository"
	travellerUsecase "github.com/urbanfleet/fleetcore/internal/traveller/usecase"
	userRepository "github.com/urbanfleet/fleetcore/internal/user/repository"
	userService "github.com/urbanfleet/fleetcore/internal/user/service"
	userUsecase "github.com/urbanfleet/fleetcore/internal/user/usecase"
	vehicleRepository "github.com/urbanfleet/fleetcore/internal/vehicle/repository"
	vehicleUsecase "github.com/urbanfleet/fleetcore/internal/vehicle/usecase"
)

// CredentialService returns the password hashing service.
func (c *Container) CredentialService() userService.CredentialService {
	c.credentialsInit.Do(func() {
		c.credentials = userService.NewCredentialService()
	})
	return c.credentials
}

// UserRepository returns the staff account repository instance.
func (c *Container) UserRepository() (userUsecase.UserRepository, error) {
	var err error
	c.userRepoInit.Do(func() {
		c.userRepo, err = c.initUserRepository()
		if err != nil {
			c.initErrors["userRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userRepo"]; exists {
		return nil, storedErr
	}
	return c.userRepo, nil
}

// TravellerRepository returns the traveller repository instance.
func (c *Container) TravellerRepository() (travellerUsecase.TravellerRepository, error) {
	var err error
	c.travellerRepoInit.Do(func() {
		c.travellerRepo, err = c.initTravellerRepository()
		if err != nil {
			c.initErrors["travellerRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["travellerRepo"]; exists {
		return nil, storedErr
	}
	return c.travellerRepo, nil
}

// VehicleRepository returns the vehicle repository instance.
func (c *Container) VehicleRepository() (vehicleUsecase.VehicleRepository, error) {
	var err error
	c.vehicleRepoInit.Do(func() {
		c.vehicleRepo, err = c.initVehicleRepository()
		if err != nil {
			c.initErrors["vehicleRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["vehicleRepo"]; exists {
		return nil, storedErr
	}
	return c.vehicleRepo, nil
}

// UserUseCase returns the staff account use case instance.
func (c *Container) UserUseCase() (userUsecase.UseCase, error) {
	var err error
	c.userUseCaseInit.Do(func() {
		c.userUseCase, err = c.initUserUseCase()
		if err != nil {
			c.initErrors["userUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userUseCase"]; exists {
		return nil, storedErr
	}
	return c.userUseCase, nil
}

// TravellerUseCase returns the traveller use case instance.
func (c *Container) TravellerUseCase() (travellerUsecase.UseCase, error) {
	var err error
	c.travellerUseCaseInit.Do(func() {
		c.travellerUseCase, err = c.initTravellerUseCase()
		if err != nil {
			c.initErrors["travellerUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["travellerUseCase"]; exists {
		return nil, storedErr
	}
	return c.travellerUseCase, nil
}

// VehicleUseCase returns the vehicle use case instance, instrumented with
// business metrics.
func (c *Container) VehicleUseCase() (vehicleUsecase.UseCase, error) {
	var err error
	c.vehicleUseCaseInit.Do(func() {
		c.vehicleUseCase, err = c.initVehicleUseCase()
		if err != nil {
			c.initErrors["vehicleUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["vehicleUseCase"]; exists {
		return nil, storedErr
	}
	return c.vehicleUseCase, nil
}

// initUserRepository creates the staff account repository instance.
func (c *Container) initUserRepository() (userUsecase.UserRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for user repository: %w", err)
	}
	codec, err := c.FieldCodec()
	if err != nil {
		return nil, fmt.Errorf("failed to get field codec for user repository: %w", err)
	}
	return userRepository.NewSQLiteUserRepository(db, codec), nil
}

// initTravellerRepository creates the traveller repository instance.
func (c *Container) initTravellerRepository() (travellerUsecase.TravellerRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for traveller repository: %w", err)
	}
	codec, err := c.FieldCodec()
	if err != nil {
		return nil, fmt.Errorf("failed to get field codec for traveller repository: %w", err)
	}
	return travellerRepository.NewSQLiteTravellerRepository(db, codec), nil
}

// initVehicleRepository creates the vehicle repository instance.
func (c *Container) initVehicleRepository() (vehicleUsecase.VehicleRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for vehicle repository: %w", err)
	}
	return vehicleRepository.NewSQLiteVehicleRepository(db), nil
}

// initUserUseCase creates the staff account use case with all its dependencies.
func (c *Container) initUserUseCase() (userUsecase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for user use case: %w", err)
	}
	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for user use case: %w", err)
	}
	recorder, err := c.AuditRecorder()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit recorder for user use case: %w", err)
	}
	return userUsecase.NewUserUseCase(txManager, userRepo, c.CredentialService(), recorder), nil
}

// initTravellerUseCase creates the traveller use case with all its dependencies.
func (c *Container) initTravellerUseCase() (travellerUsecase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for traveller use case: %w", err)
	}
	travellerRepo, err := c.TravellerRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get traveller repository for traveller use case: %w", err)
	}
	recorder, err := c.AuditRecorder()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit recorder for traveller use case: %w", err)
	}
	return travellerUsecase.NewTravellerUseCase(txManager, travellerRepo, recorder), nil
}

// initVehicleUseCase creates the vehicle use case wrapped with metrics.
func (c *Container) initVehicleUseCase() (vehicleUsecase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for vehicle use case: %w", err)
	}
	vehicleRepo, err := c.VehicleRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle repository for vehicle use case: %w", err)
	}
	recorder, err := c.AuditRecorder()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit recorder for vehicle use case: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for vehicle use case: %w", err)
	}

	useCase := vehicleUsecase.NewVehicleUseCase(txManager, vehicleRepo, recorder)
	return vehicleUsecase.NewVehicleUseCaseWithMetrics(useCase, businessMetrics), nil
}

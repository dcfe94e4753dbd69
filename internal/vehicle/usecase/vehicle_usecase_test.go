package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/urbanfleet/fleetcore/internal/authz"
	"github.com/urbanfleet/fleetcore/internal/database/mocks"
	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
	"github.com/urbanfleet/fleetcore/internal/vehicle/domain"
)

// MockVehicleRepository is a mock implementation of VehicleRepository
type MockVehicleRepository struct {
	mock.Mock
}

func (m *MockVehicleRepository) Create(ctx context.Context, v *domain.Vehicle) error {
	args := m.Called(ctx, v)
	if args.Error(0) == nil {
		v.ID = 1
	}
	return args.Error(0)
}

func (m *MockVehicleRepository) GetByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vehicle), args.Error(1)
}

func (m *MockVehicleRepository) GetBySerial(ctx context.Context, serial string) (*domain.Vehicle, error) {
	args := m.Called(ctx, serial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vehicle), args.Error(1)
}

func (m *MockVehicleRepository) List(ctx context.Context) ([]*domain.Vehicle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Vehicle), args.Error(1)
}

func (m *MockVehicleRepository) Search(ctx context.Context, query string) ([]*domain.Vehicle, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Vehicle), args.Error(1)
}

func (m *MockVehicleRepository) Update(ctx context.Context, v *domain.Vehicle) (bool, error) {
	args := m.Called(ctx, v)
	return args.Bool(0), args.Error(1)
}

func (m *MockVehicleRepository) UpdateTelemetry(ctx context.Context, id int64, t domain.TelemetryUpdate) (bool, error) {
	args := m.Called(ctx, id, t)
	return args.Bool(0), args.Error(1)
}

func (m *MockVehicleRepository) Delete(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// RecordingAuditRecorder captures audit calls for assertions.
type RecordingAuditRecorder struct {
	Activities []string
	Suspicions []string
}

func (r *RecordingAuditRecorder) Activity(_ context.Context, _, description, _ string) {
	r.Activities = append(r.Activities, description)
}

func (r *RecordingAuditRecorder) Suspicious(_ context.Context, _, description, _ string) {
	r.Suspicions = append(r.Suspicions, description)
}

var (
	adminActor    = authz.Actor{Username: "admin_one", Role: authz.RoleAdministrator}
	operatorActor = authz.Actor{Username: "oper_one1", Role: authz.RoleOperator}
)

func setupUseCase(t *testing.T) (*MockVehicleRepository, *RecordingAuditRecorder, UseCase) {
	t.Helper()
	repo := new(MockVehicleRepository)
	audit := &RecordingAuditRecorder{}
	uc := NewVehicleUseCase(mocks.NewMockTxManager(t), repo, audit)
	return repo, audit, uc
}

func validInput() VehicleInput {
	return VehicleInput{
		Brand:           "Segway",
		Model:           "Ninebot Max",
		Serial:          "sgw1234567890",
		TopSpeed:        25,
		BatteryCapacity: 551,
		SoC:             80,
		SoCMin:          20,
		SoCMax:          95,
		Latitude:        51.922501234,
		Longitude:       4.479171234,
		Mileage:         0,
		InServiceDate:   "2024-03-01",
	}
}

func TestCreateVehicle(t *testing.T) {
	ctx := context.Background()

	t.Run("administrator registers vehicle", func(t *testing.T) {
		repo, audit, uc := setupUseCase(t)
		repo.On("Create", mock.Anything, mock.Anything).Return(nil)

		vehicle, err := uc.CreateVehicle(ctx, adminActor, validInput())
		require.NoError(t, err)
		assert.Equal(t, "SGW1234567890", vehicle.Serial)
		assert.Equal(t, 51.92250, vehicle.Latitude)
		assert.Equal(t, 4.47917, vehicle.Longitude)
		assert.Contains(t, audit.Activities, "registered vehicle")
	})

	t.Run("operator denied", func(t *testing.T) {
		repo, audit, uc := setupUseCase(t)

		_, err := uc.CreateVehicle(ctx, operatorActor, validInput())
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Contains(t, audit.Suspicions, "denied vehicle registration")
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("invalid input", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*VehicleInput)
		}{
			{"bad serial", func(i *VehicleInput) { i.Serial = "short" }},
			{"soc out of range", func(i *VehicleInput) { i.SoC = 10 }},
			{"inverted soc bounds", func(i *VehicleInput) { i.SoCMin = 95; i.SoCMax = 20; i.SoC = 50 }},
			{"latitude out of region", func(i *VehicleInput) { i.Latitude = 48.85 }},
			{"longitude out of region", func(i *VehicleInput) { i.Longitude = 5.1 }},
			{"bad in-service date", func(i *VehicleInput) { i.InServiceDate = "01-03-2024" }},
			{"top speed above limit", func(i *VehicleInput) { i.TopSpeed = 110 }},
			{"top speed missing", func(i *VehicleInput) { i.TopSpeed = 0 }},
			{"battery capacity below minimum", func(i *VehicleInput) { i.BatteryCapacity = 50 }},
			{"battery capacity above maximum", func(i *VehicleInput) { i.BatteryCapacity = 20000 }},
			{"negative mileage", func(i *VehicleInput) { i.Mileage = -500 }},
			{"mileage above limit", func(i *VehicleInput) { i.Mileage = 1000000 }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				repo, audit, uc := setupUseCase(t)
				input := validInput()
				tt.mutate(&input)

				_, err := uc.CreateVehicle(ctx, adminActor, input)
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
				assert.Contains(t, audit.Suspicions, "rejected vehicle registration")
				repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			})
		}
	})
}

func TestUpdateVehicle(t *testing.T) {
	ctx := context.Background()

	t.Run("serial change collision", func(t *testing.T) {
		repo, audit, uc := setupUseCase(t)
		repo.On("GetByID", mock.Anything, int64(1)).Return(&domain.Vehicle{ID: 1, Serial: "OLD1234567890"}, nil)
		repo.On("GetBySerial", mock.Anything, "SGW1234567890").Return(&domain.Vehicle{ID: 2}, nil)

		_, err := uc.UpdateVehicle(ctx, adminActor, 1, validInput())
		assert.ErrorIs(t, err, domain.ErrVehicleAlreadyExists)
		assert.Contains(t, audit.Suspicions, "rejected vehicle update")
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("serial change to free serial", func(t *testing.T) {
		repo, _, uc := setupUseCase(t)
		repo.On("GetByID", mock.Anything, int64(1)).Return(&domain.Vehicle{ID: 1, Serial: "OLD1234567890"}, nil)
		repo.On("GetBySerial", mock.Anything, "SGW1234567890").Return(nil, domain.ErrVehicleNotFound)
		repo.On("Update", mock.Anything, mock.Anything).Return(true, nil)

		vehicle, err := uc.UpdateVehicle(ctx, adminActor, 1, validInput())
		require.NoError(t, err)
		assert.Equal(t, int64(1), vehicle.ID)
	})

	t.Run("operator denied full update", func(t *testing.T) {
		_, audit, uc := setupUseCase(t)

		_, err := uc.UpdateVehicle(ctx, operatorActor, 1, validInput())
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Contains(t, audit.Suspicions, "denied vehicle update")
	})
}

func TestUpdateTelemetry(t *testing.T) {
	ctx := context.Background()
	stored := &domain.Vehicle{ID: 3, Serial: "TEL1234567890", SoCMin: 20, SoCMax: 95, Mileage: 100}

	telemetry := func() TelemetryInput {
		return TelemetryInput{
			VehicleID: 3,
			SoC:       60,
			Latitude:  51.91,
			Longitude: 4.48,
			Mileage:   150,
		}
	}

	t.Run("operator updates telemetry", func(t *testing.T) {
		repo, audit, uc := setupUseCase(t)
		repo.On("GetByID", mock.Anything, int64(3)).Return(stored, nil)
		repo.On("UpdateTelemetry", mock.Anything, int64(3), mock.Anything).Return(true, nil)

		require.NoError(t, uc.UpdateTelemetry(ctx, operatorActor, telemetry()))
		assert.Contains(t, audit.Activities, "updated vehicle telemetry")
	})

	t.Run("soc outside stored bounds", func(t *testing.T) {
		repo, _, uc := setupUseCase(t)
		repo.On("GetByID", mock.Anything, int64(3)).Return(stored, nil)

		input := telemetry()
		input.SoC = 10
		err := uc.UpdateTelemetry(ctx, operatorActor, input)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("mileage cannot decrease", func(t *testing.T) {
		repo, audit, uc := setupUseCase(t)
		repo.On("GetByID", mock.Anything, int64(3)).Return(stored, nil)

		input := telemetry()
		input.Mileage = 50
		err := uc.UpdateTelemetry(ctx, operatorActor, input)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Contains(t, audit.Suspicions, "rejected telemetry update")
	})

	t.Run("mileage above limit", func(t *testing.T) {
		_, audit, uc := setupUseCase(t)

		input := telemetry()
		input.Mileage = 1000000
		err := uc.UpdateTelemetry(ctx, operatorActor, input)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Contains(t, audit.Suspicions, "rejected telemetry update")
	})

	t.Run("coordinates outside region", func(t *testing.T) {
		_, _, uc := setupUseCase(t)

		input := telemetry()
		input.Latitude = 52.5
		err := uc.UpdateTelemetry(ctx, operatorActor, input)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestDeleteVehicle(t *testing.T) {
	ctx := context.Background()

	t.Run("administrator deletes vehicle", func(t *testing.T) {
		repo, audit, uc := setupUseCase(t)
		repo.On("Delete", mock.Anything, int64(5)).Return(true, nil)

		require.NoError(t, uc.DeleteVehicle(ctx, adminActor, 5))
		assert.Contains(t, audit.Activities, "deleted vehicle")
	})

	t.Run("operator denied", func(t *testing.T) {
		_, audit, uc := setupUseCase(t)

		err := uc.DeleteVehicle(ctx, operatorActor, 5)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Contains(t, audit.Suspicions, "denied vehicle deletion")
	})

	t.Run("not found", func(t *testing.T) {
		repo, audit, uc := setupUseCase(t)
		repo.On("Delete", mock.Anything, int64(9)).Return(false, nil)

		err := uc.DeleteVehicle(ctx, adminActor, 9)
		assert.ErrorIs(t, err, domain.ErrVehicleNotFound)
		assert.Contains(t, audit.Suspicions, "rejected vehicle deletion")
	})
}

func TestSearchVehicles(t *testing.T) {
	ctx := context.Background()

	t.Run("query too short", func(t *testing.T) {
		_, audit, uc := setupUseCase(t)

		_, err := uc.SearchVehicles(ctx, adminActor, "s")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Contains(t, audit.Suspicions, "rejected vehicle search")
	})

	t.Run("operator may search vehicles", func(t *testing.T) {
		repo, _, uc := setupUseCase(t)
		repo.On("Search", mock.Anything, "segway").Return([]*domain.Vehicle{{ID: 1}}, nil)

		vehicles, err := uc.SearchVehicles(ctx, operatorActor, "segway")
		require.NoError(t, err)
		assert.Len(t, vehicles, 1)
	})
}

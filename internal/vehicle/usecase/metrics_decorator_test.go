package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/urbanfleet/fleetcore/internal/authz"
	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
	"github.com/urbanfleet/fleetcore/internal/vehicle/domain"
)

// MockUseCase is a mock implementation of UseCase
type MockUseCase struct {
	mock.Mock
}

func (m *MockUseCase) CreateVehicle(ctx context.Context, actor authz.Actor, input VehicleInput) (*domain.Vehicle, error) {
	args := m.Called(ctx, actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vehicle), args.Error(1)
}

func (m *MockUseCase) GetVehicle(ctx context.Context, actor authz.Actor, id int64) (*domain.Vehicle, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vehicle), args.Error(1)
}

func (m *MockUseCase) ListVehicles(ctx context.Context, actor authz.Actor) ([]*domain.Vehicle, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Vehicle), args.Error(1)
}

func (m *MockUseCase) SearchVehicles(ctx context.Context, actor authz.Actor, query string) ([]*domain.Vehicle, error) {
	args := m.Called(ctx, actor, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Vehicle), args.Error(1)
}

func (m *MockUseCase) UpdateVehicle(ctx context.Context, actor authz.Actor, id int64, input VehicleInput) (*domain.Vehicle, error) {
	args := m.Called(ctx, actor, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vehicle), args.Error(1)
}

func (m *MockUseCase) UpdateTelemetry(ctx context.Context, actor authz.Actor, input TelemetryInput) error {
	args := m.Called(ctx, actor, input)
	return args.Error(0)
}

func (m *MockUseCase) DeleteVehicle(ctx context.Context, actor authz.Actor, id int64) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

// RecordingMetrics captures recorded operations for assertions.
type RecordingMetrics struct {
	Operations []string
	Statuses   []string
	Durations  int
}

func (r *RecordingMetrics) RecordOperation(_ context.Context, _, operation, status string) {
	r.Operations = append(r.Operations, operation)
	r.Statuses = append(r.Statuses, status)
}

func (r *RecordingMetrics) RecordDuration(_ context.Context, _, _ string, _ time.Duration, _ string) {
	r.Durations++
}

func TestVehicleMetricsDecorator(t *testing.T) {
	ctx := context.Background()
	actor := authz.Actor{Username: "admin_one", Role: authz.RoleAdministrator}

	t.Run("success status", func(t *testing.T) {
		next := new(MockUseCase)
		recorded := &RecordingMetrics{}
		decorated := NewVehicleUseCaseWithMetrics(next, recorded)

		next.On("ListVehicles", mock.Anything, actor).Return([]*domain.Vehicle{}, nil)

		_, err := decorated.ListVehicles(ctx, actor)
		assert.NoError(t, err)
		assert.Equal(t, []string{"vehicle_list"}, recorded.Operations)
		assert.Equal(t, []string{"success"}, recorded.Statuses)
		assert.Equal(t, 1, recorded.Durations)
	})

	t.Run("denied status", func(t *testing.T) {
		next := new(MockUseCase)
		recorded := &RecordingMetrics{}
		decorated := NewVehicleUseCaseWithMetrics(next, recorded)

		next.On("DeleteVehicle", mock.Anything, actor, int64(1)).
			Return(apperrors.Wrap(apperrors.ErrForbidden, "nope"))

		err := decorated.DeleteVehicle(ctx, actor, 1)
		assert.Error(t, err)
		assert.Equal(t, []string{"denied"}, recorded.Statuses)
	})

	t.Run("error status", func(t *testing.T) {
		next := new(MockUseCase)
		recorded := &RecordingMetrics{}
		decorated := NewVehicleUseCaseWithMetrics(next, recorded)

		next.On("UpdateTelemetry", mock.Anything, actor, mock.Anything).
			Return(apperrors.Wrap(apperrors.ErrInvalidInput, "bad"))

		err := decorated.UpdateTelemetry(ctx, actor, TelemetryInput{})
		assert.Error(t, err)
		assert.Equal(t, []string{"error"}, recorded.Statuses)
	})
}

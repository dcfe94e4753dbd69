package usecase

import (
	"context"
	"time"

	"github.com/urbanfleet/fleetcore/internal/authz"
	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
	"github.com/urbanfleet/fleetcore/internal/metrics"
	"github.com/urbanfleet/fleetcore/internal/vehicle/domain"
)

// vehicleUseCaseWithMetrics decorates UseCase with metrics instrumentation.
type vehicleUseCaseWithMetrics struct {
	next    UseCase
	metrics metrics.BusinessMetrics
}

// NewVehicleUseCaseWithMetrics wraps a vehicle UseCase with metrics recording.
func NewVehicleUseCaseWithMetrics(useCase UseCase, m metrics.BusinessMetrics) UseCase {
	return &vehicleUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// statusOf distinguishes denials from other failures so refused operations
// show up in their own series.
func statusOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case apperrors.Is(err, apperrors.ErrForbidden):
		return "denied"
	default:
		return "error"
	}
}

func (v *vehicleUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := statusOf(err)
	v.metrics.RecordOperation(ctx, "vehicle", operation, status)
	v.metrics.RecordDuration(ctx, "vehicle", operation, time.Since(start), status)
}

// CreateVehicle records metrics for vehicle registration.
func (v *vehicleUseCaseWithMetrics) CreateVehicle(
	ctx context.Context,
	actor authz.Actor,
	input VehicleInput,
) (*domain.Vehicle, error) {
	start := time.Now()
	vehicle, err := v.next.CreateVehicle(ctx, actor, input)
	v.record(ctx, "vehicle_create", start, err)
	return vehicle, err
}

// GetVehicle records metrics for single vehicle retrieval.
func (v *vehicleUseCaseWithMetrics) GetVehicle(ctx context.Context, actor authz.Actor, id int64) (*domain.Vehicle, error) {
	start := time.Now()
	vehicle, err := v.next.GetVehicle(ctx, actor, id)
	v.record(ctx, "vehicle_get", start, err)
	return vehicle, err
}

// ListVehicles records metrics for vehicle listing.
func (v *vehicleUseCaseWithMetrics) ListVehicles(ctx context.Context, actor authz.Actor) ([]*domain.Vehicle, error) {
	start := time.Now()
	vehicles, err := v.next.ListVehicles(ctx, actor)
	v.record(ctx, "vehicle_list", start, err)
	return vehicles, err
}

// SearchVehicles records metrics for vehicle search.
func (v *vehicleUseCaseWithMetrics) SearchVehicles(
	ctx context.Context,
	actor authz.Actor,
	query string,
) ([]*domain.Vehicle, error) {
	start := time.Now()
	vehicles, err := v.next.SearchVehicles(ctx, actor, query)
	v.record(ctx, "vehicle_search", start, err)
	return vehicles, err
}

// UpdateVehicle records metrics for full vehicle updates.
func (v *vehicleUseCaseWithMetrics) UpdateVehicle(
	ctx context.Context,
	actor authz.Actor,
	id int64,
	input VehicleInput,
) (*domain.Vehicle, error) {
	start := time.Now()
	vehicle, err := v.next.UpdateVehicle(ctx, actor, id, input)
	v.record(ctx, "vehicle_update", start, err)
	return vehicle, err
}

// UpdateTelemetry records metrics for telemetry updates.
func (v *vehicleUseCaseWithMetrics) UpdateTelemetry(ctx context.Context, actor authz.Actor, input TelemetryInput) error {
	start := time.Now()
	err := v.next.UpdateTelemetry(ctx, actor, input)
	v.record(ctx, "vehicle_telemetry_update", start, err)
	return err
}

// DeleteVehicle records metrics for vehicle deletion.
func (v *vehicleUseCaseWithMetrics) DeleteVehicle(ctx context.Context, actor authz.Actor, id int64) error {
	start := time.Now()
	err := v.next.DeleteVehicle(ctx, actor, id)
	v.record(ctx, "vehicle_delete", start, err)
	return err
}

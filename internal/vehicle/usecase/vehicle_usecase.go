// Package usecase implements the vehicle business logic, including the
// restricted telemetry path available to Operators.
package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/urbanfleet/fleetcore/internal/authz"
	"github.com/urbanfleet/fleetcore/internal/database"
	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
	appValidation "github.com/urbanfleet/fleetcore/internal/validation"
	"github.com/urbanfleet/fleetcore/internal/vehicle/domain"
)

// VehicleInput contains the input data for registering or updating a vehicle.
type VehicleInput struct {
	Brand               string  `json:"brand"`
	Model               string  `json:"model"`
	Serial              string  `json:"serial"`
	TopSpeed            int     `json:"top_speed"`
	BatteryCapacity     int     `json:"battery_capacity"`
	SoC                 int     `json:"soc"`
	SoCMin              int     `json:"soc_min"`
	SoCMax              int     `json:"soc_max"`
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
	OutOfService        bool    `json:"out_of_service"`
	Mileage             int     `json:"mileage"`
	LastMaintenanceDate string  `json:"last_maintenance_date"`
	InServiceDate       string  `json:"in_service_date"`
}

// TelemetryInput contains the restricted field subset Operators may modify.
type TelemetryInput struct {
	VehicleID           int64   `json:"vehicle_id"`
	SoC                 int     `json:"soc"`
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
	Mileage             int     `json:"mileage"`
	OutOfService        bool    `json:"out_of_service"`
	LastMaintenanceDate string  `json:"last_maintenance_date"`
}

// UseCase defines the interface for vehicle business logic operations.
type UseCase interface {
	CreateVehicle(ctx context.Context, actor authz.Actor, input VehicleInput) (*domain.Vehicle, error)
	GetVehicle(ctx context.Context, actor authz.Actor, id int64) (*domain.Vehicle, error)
	ListVehicles(ctx context.Context, actor authz.Actor) ([]*domain.Vehicle, error)
	SearchVehicles(ctx context.Context, actor authz.Actor, query string) ([]*domain.Vehicle, error)
	UpdateVehicle(ctx context.Context, actor authz.Actor, id int64, input VehicleInput) (*domain.Vehicle, error)
	UpdateTelemetry(ctx context.Context, actor authz.Actor, input TelemetryInput) error
	DeleteVehicle(ctx context.Context, actor authz.Actor, id int64) error
}

// VehicleRepository interface defines vehicle repository operations.
type VehicleRepository interface {
	Create(ctx context.Context, v *domain.Vehicle) error
	GetByID(ctx context.Context, id int64) (*domain.Vehicle, error)
	GetBySerial(ctx context.Context, serial string) (*domain.Vehicle, error)
	List(ctx context.Context) ([]*domain.Vehicle, error)
	Search(ctx context.Context, query string) ([]*domain.Vehicle, error)
	Update(ctx context.Context, v *domain.Vehicle) (bool, error)
	UpdateTelemetry(ctx context.Context, id int64, t domain.TelemetryUpdate) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// AuditRecorder records activity and suspicious entries. Recording is
// best-effort and never fails the calling operation.
type AuditRecorder interface {
	Activity(ctx context.Context, actor, description, detail string)
	Suspicious(ctx context.Context, actor, description, detail string)
}

// VehicleUseCase handles vehicle-related business logic.
type VehicleUseCase struct {
	txManager   database.TxManager
	vehicleRepo VehicleRepository
	audit       AuditRecorder
}

// NewVehicleUseCase creates a new VehicleUseCase.
func NewVehicleUseCase(
	txManager database.TxManager,
	vehicleRepo VehicleRepository,
	audit AuditRecorder,
) UseCase {
	return &VehicleUseCase{
		txManager:   txManager,
		vehicleRepo: vehicleRepo,
		audit:       audit,
	}
}

func (uc *VehicleUseCase) validateInput(input VehicleInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Brand,
			validation.Required.Error("brand is required"),
			appValidation.NotBlank,
			validation.Length(1, 50).Error("brand must be between 1 and 50 characters"),
		),
		validation.Field(&input.Model,
			validation.Required.Error("model is required"),
			appValidation.NotBlank,
			validation.Length(1, 50).Error("model must be between 1 and 50 characters"),
		),
		validation.Field(&input.Serial,
			validation.Required.Error("serial number is required"),
			appValidation.SerialNumber,
		),
		validation.Field(&input.TopSpeed,
			validation.Required.Error("top speed is required"),
			validation.Min(1).Error("top speed must be between 1 and 100 km/h"),
			validation.Max(100).Error("top speed must be between 1 and 100 km/h"),
		),
		validation.Field(&input.BatteryCapacity,
			validation.Required.Error("battery capacity is required"),
			validation.Min(100).Error("battery capacity must be between 100 and 10000 Wh"),
			validation.Max(10000).Error("battery capacity must be between 100 and 10000 Wh"),
		),
		validation.Field(&input.Mileage,
			validation.Min(0).Error("mileage cannot be negative"),
			validation.Max(999999).Error("mileage must be at most 999999 km"),
		),
		validation.Field(&input.InServiceDate,
			validation.Required.Error("in-service date is required"),
			appValidation.ISODate,
		),
		validation.Field(&input.LastMaintenanceDate,
			validation.Skip.When(input.LastMaintenanceDate == ""),
			appValidation.ISODate,
		),
	)
	if err := appValidation.WrapValidationError(err); err != nil {
		return err
	}

	if err := validateStateOfCharge(input.SoC, input.SoCMin, input.SoCMax); err != nil {
		return err
	}

	return validateCoordinates(input.Latitude, input.Longitude)
}

func validateStateOfCharge(soc, socMin, socMax int) error {
	if socMin < 0 || socMax > 100 || socMin >= socMax {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "state of charge range must satisfy 0 <= min < max <= 100")
	}
	if soc < socMin || soc > socMax {
		return apperrors.Wrap(apperrors.ErrInvalidInput,
			fmt.Sprintf("state of charge must be between %d and %d", socMin, socMax))
	}
	return nil
}

func validateCoordinates(latitude, longitude float64) error {
	if latitude < appValidation.LatitudeMin || latitude > appValidation.LatitudeMax ||
		longitude < appValidation.LongitudeMin || longitude > appValidation.LongitudeMax {
		return apperrors.Wrap(apperrors.ErrInvalidInput,
			fmt.Sprintf("coordinates must be within latitude %.1f-%.1f and longitude %.1f-%.1f",
				appValidation.LatitudeMin, appValidation.LatitudeMax,
				appValidation.LongitudeMin, appValidation.LongitudeMax))
	}
	return nil
}

// roundCoordinate fixes GPS values to 5 decimal places, roughly one meter of
// precision.
func roundCoordinate(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

// denied converts a negative authorization decision into a forbidden error.
func denied(decision authz.Decision) error {
	return apperrors.Wrap(apperrors.ErrForbidden, decision.Reason)
}

// reject audits a client failure as suspicious before surfacing it.
// Infrastructure errors pass through unrecorded.
func (uc *VehicleUseCase) reject(ctx context.Context, actor authz.Actor, description string, err error) error {
	if apperrors.Is(err, apperrors.ErrInvalidInput) ||
		apperrors.Is(err, apperrors.ErrConflict) ||
		apperrors.Is(err, apperrors.ErrNotFound) {
		uc.audit.Suspicious(ctx, actor.Username, description, err.Error())
	}
	return err
}

func (uc *VehicleUseCase) fromInput(input VehicleInput) *domain.Vehicle {
	return &domain.Vehicle{
		Brand:               strings.TrimSpace(input.Brand),
		Model:               strings.TrimSpace(input.Model),
		Serial:              strings.ToUpper(strings.TrimSpace(input.Serial)),
		TopSpeed:            input.TopSpeed,
		BatteryCapacity:     input.BatteryCapacity,
		SoC:                 input.SoC,
		SoCMin:              input.SoCMin,
		SoCMax:              input.SoCMax,
		Latitude:            roundCoordinate(input.Latitude),
		Longitude:           roundCoordinate(input.Longitude),
		OutOfService:        input.OutOfService,
		Mileage:             input.Mileage,
		LastMaintenanceDate: input.LastMaintenanceDate,
		InServiceDate:       input.InServiceDate,
	}
}

// CreateVehicle registers a new vehicle.
func (uc *VehicleUseCase) CreateVehicle(ctx context.Context, actor authz.Actor, input VehicleInput) (*domain.Vehicle, error) {
	decision := authz.CanPerform(actor, authz.ActionCreateVehicle, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied vehicle registration", decision.Reason)
		return nil, denied(decision)
	}

	if err := uc.validateInput(input); err != nil {
		return nil, uc.reject(ctx, actor, "rejected vehicle registration", err)
	}

	vehicle := uc.fromInput(input)
	if err := uc.vehicleRepo.Create(ctx, vehicle); err != nil {
		return nil, uc.reject(ctx, actor, "rejected vehicle registration", err)
	}

	uc.audit.Activity(ctx, actor.Username, "registered vehicle",
		fmt.Sprintf("serial=%s", vehicle.Serial))

	return vehicle, nil
}

// GetVehicle retrieves a single vehicle.
func (uc *VehicleUseCase) GetVehicle(ctx context.Context, actor authz.Actor, id int64) (*domain.Vehicle, error) {
	decision := authz.CanPerform(actor, authz.ActionViewVehicles, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied vehicle lookup", decision.Reason)
		return nil, denied(decision)
	}

	return uc.vehicleRepo.GetByID(ctx, id)
}

// ListVehicles returns all vehicles.
func (uc *VehicleUseCase) ListVehicles(ctx context.Context, actor authz.Actor) ([]*domain.Vehicle, error) {
	decision := authz.CanPerform(actor, authz.ActionViewVehicles, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied vehicle listing", decision.Reason)
		return nil, denied(decision)
	}

	return uc.vehicleRepo.List(ctx)
}

// SearchVehicles filters vehicles by a partial match on brand, model or
// serial.
func (uc *VehicleUseCase) SearchVehicles(ctx context.Context, actor authz.Actor, query string) ([]*domain.Vehicle, error) {
	decision := authz.CanPerform(actor, authz.ActionViewVehicles, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied vehicle search", decision.Reason)
		return nil, denied(decision)
	}

	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, uc.reject(ctx, actor, "rejected vehicle search",
			apperrors.Wrap(apperrors.ErrInvalidInput, "search query must have at least 2 characters"))
	}

	return uc.vehicleRepo.Search(ctx, query)
}

// UpdateVehicle replaces the full vehicle record. Requires Administrator.
func (uc *VehicleUseCase) UpdateVehicle(ctx context.Context, actor authz.Actor, id int64, input VehicleInput) (*domain.Vehicle, error) {
	decision := authz.CanPerform(actor, authz.ActionUpdateVehicle, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied vehicle update", decision.Reason)
		return nil, denied(decision)
	}

	if err := uc.validateInput(input); err != nil {
		return nil, uc.reject(ctx, actor, "rejected vehicle update", err)
	}

	vehicle := uc.fromInput(input)
	vehicle.ID = id

	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		current, err := uc.vehicleRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		// A serial change must not collide with another vehicle.
		if current.Serial != vehicle.Serial {
			if _, err := uc.vehicleRepo.GetBySerial(ctx, vehicle.Serial); err == nil {
				return domain.ErrVehicleAlreadyExists
			} else if !apperrors.Is(err, apperrors.ErrNotFound) {
				return err
			}
		}

		updated, err := uc.vehicleRepo.Update(ctx, vehicle)
		if err != nil {
			return err
		}
		if !updated {
			return domain.ErrVehicleNotFound
		}

		return nil
	})
	if err != nil {
		return nil, uc.reject(ctx, actor, "rejected vehicle update", err)
	}

	uc.audit.Activity(ctx, actor.Username, "updated vehicle",
		fmt.Sprintf("serial=%s", vehicle.Serial))

	return vehicle, nil
}

// UpdateTelemetry writes the restricted telemetry subset. This is the only
// vehicle mutation Operators may perform.
func (uc *VehicleUseCase) UpdateTelemetry(ctx context.Context, actor authz.Actor, input TelemetryInput) error {
	decision := authz.CanPerform(actor, authz.ActionUpdateVehicleTelemetry, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied telemetry update", decision.Reason)
		return denied(decision)
	}

	if input.LastMaintenanceDate != "" {
		if err := appValidation.ISODate.Validate(input.LastMaintenanceDate); err != nil {
			return uc.reject(ctx, actor, "rejected telemetry update", appValidation.WrapValidationError(err))
		}
	}
	if input.Mileage < 0 || input.Mileage > 999999 {
		return uc.reject(ctx, actor, "rejected telemetry update",
			apperrors.Wrap(apperrors.ErrInvalidInput, "mileage must be between 0 and 999999 km"))
	}
	if err := validateCoordinates(input.Latitude, input.Longitude); err != nil {
		return uc.reject(ctx, actor, "rejected telemetry update", err)
	}

	var serial string
	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		vehicle, err := uc.vehicleRepo.GetByID(ctx, input.VehicleID)
		if err != nil {
			return err
		}
		serial = vehicle.Serial

		if err := validateStateOfCharge(input.SoC, vehicle.SoCMin, vehicle.SoCMax); err != nil {
			return err
		}
		if input.Mileage < vehicle.Mileage {
			return apperrors.Wrap(apperrors.ErrInvalidInput, "mileage cannot decrease")
		}

		updated, err := uc.vehicleRepo.UpdateTelemetry(ctx, input.VehicleID, domain.TelemetryUpdate{
			SoC:                 input.SoC,
			Latitude:            roundCoordinate(input.Latitude),
			Longitude:           roundCoordinate(input.Longitude),
			Mileage:             input.Mileage,
			OutOfService:        input.OutOfService,
			LastMaintenanceDate: input.LastMaintenanceDate,
		})
		if err != nil {
			return err
		}
		if !updated {
			return domain.ErrVehicleNotFound
		}

		return nil
	})
	if err != nil {
		return uc.reject(ctx, actor, "rejected telemetry update", err)
	}

	uc.audit.Activity(ctx, actor.Username, "updated vehicle telemetry",
		fmt.Sprintf("serial=%s", serial))
	return nil
}

// DeleteVehicle removes a vehicle.
func (uc *VehicleUseCase) DeleteVehicle(ctx context.Context, actor authz.Actor, id int64) error {
	decision := authz.CanPerform(actor, authz.ActionDeleteVehicle, authz.Target{})
	if !decision.Allowed {
		uc.audit.Suspicious(ctx, actor.Username, "denied vehicle deletion", decision.Reason)
		return denied(decision)
	}

	deleted, err := uc.vehicleRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return uc.reject(ctx, actor, "rejected vehicle deletion", domain.ErrVehicleNotFound)
	}

	uc.audit.Activity(ctx, actor.Username, "deleted vehicle",
		fmt.Sprintf("vehicle_id=%d", id))

	return nil
}

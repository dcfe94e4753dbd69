// Package domain defines the vehicle entities and errors.
package domain

import (
	"time"

	"github.com/urbanfleet/fleetcore/internal/errors"
)

// Vehicle is a fleet scooter. Vehicle records carry no personal data and are
// stored in plaintext, which keeps them filterable with ordinary SQL.
type Vehicle struct {
	ID              int64
	Brand           string
	Model           string
	Serial          string
	TopSpeed        int
	BatteryCapacity int
	SoC             int
	SoCMin          int
	SoCMax          int
	Latitude        float64
	Longitude       float64
	OutOfService    bool
	Mileage         int
	// LastMaintenanceDate is empty until the first maintenance.
	LastMaintenanceDate string
	InServiceDate       string
	CreatedAt           time.Time
}

// TelemetryUpdate is the restricted field subset Operators may modify.
type TelemetryUpdate struct {
	SoC          int
	Latitude     float64
	Longitude    float64
	Mileage      int
	OutOfService bool
	// LastMaintenanceDate is optional; empty leaves the stored value.
	LastMaintenanceDate string
}

// Domain-specific errors for vehicle operations.
var (
	// ErrVehicleNotFound indicates the requested vehicle does not exist.
	ErrVehicleNotFound = errors.Wrap(errors.ErrNotFound, "vehicle not found")

	// ErrVehicleAlreadyExists indicates a vehicle with the same serial number
	// is already registered.
	ErrVehicleAlreadyExists = errors.Wrap(errors.ErrConflict, "serial number already registered")
)

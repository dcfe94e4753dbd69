// Package repository provides persistence for fleet vehicles. Vehicle records
// hold no personal data, so queries filter directly in SQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/urbanfleet/fleetcore/internal/database"
	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
	"github.com/urbanfleet/fleetcore/internal/vehicle/domain"
)

// SQLiteVehicleRepository handles vehicle persistence.
type SQLiteVehicleRepository struct {
	db *sql.DB
}

// NewSQLiteVehicleRepository creates a new SQLiteVehicleRepository.
func NewSQLiteVehicleRepository(db *sql.DB) *SQLiteVehicleRepository {
	return &SQLiteVehicleRepository{db: db}
}

const vehicleColumns = `id, brand, model, serial, top_speed, battery_capacity, soc, soc_min, soc_max,
	latitude, longitude, out_of_service, mileage, last_maintenance_date, in_service_date, created_at`

// Create inserts a new vehicle and sets v.ID.
func (r *SQLiteVehicleRepository) Create(ctx context.Context, v *domain.Vehicle) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO vehicles (brand, model, serial, top_speed, battery_capacity, soc, soc_min,
				soc_max, latitude, longitude, out_of_service, mileage, last_maintenance_date, in_service_date)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := querier.ExecContext(
		ctx,
		query,
		v.Brand,
		v.Model,
		v.Serial,
		v.TopSpeed,
		v.BatteryCapacity,
		v.SoC,
		v.SoCMin,
		v.SoCMax,
		v.Latitude,
		v.Longitude,
		v.OutOfService,
		v.Mileage,
		nullableDate(v.LastMaintenanceDate),
		v.InServiceDate,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVehicleAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create vehicle")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return apperrors.Wrap(err, "failed to read inserted vehicle id")
	}
	v.ID = id

	return nil
}

// GetByID retrieves a vehicle.
func (r *SQLiteVehicleRepository) GetByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	querier := database.GetTx(ctx, r.db)

	row := querier.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id)
	v, err := scanVehicle(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVehicleNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get vehicle by id")
	}

	return v, nil
}

// GetBySerial retrieves a vehicle by its unique serial number.
func (r *SQLiteVehicleRepository) GetBySerial(ctx context.Context, serial string) (*domain.Vehicle, error) {
	querier := database.GetTx(ctx, r.db)

	row := querier.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE serial = ?`, serial)
	v, err := scanVehicle(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVehicleNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get vehicle by serial")
	}

	return v, nil
}

// List returns all vehicles ordered by id.
func (r *SQLiteVehicleRepository) List(ctx context.Context) ([]*domain.Vehicle, error) {
	return r.query(ctx, `SELECT `+vehicleColumns+` FROM vehicles ORDER BY id`)
}

// Search filters vehicles with a case-insensitive partial match on brand,
// model or serial, directly in SQL.
func (r *SQLiteVehicleRepository) Search(ctx context.Context, query string) ([]*domain.Vehicle, error) {
	pattern := "%" + escapeLike(query) + "%"
	return r.query(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles
		 WHERE brand LIKE ? ESCAPE '\' OR model LIKE ? ESCAPE '\' OR serial LIKE ? ESCAPE '\'
		 ORDER BY id`,
		pattern, pattern, pattern)
}

// Update replaces the full vehicle record. Returns whether a row was updated.
func (r *SQLiteVehicleRepository) Update(ctx context.Context, v *domain.Vehicle) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE vehicles SET brand = ?, model = ?, serial = ?, top_speed = ?, battery_capacity = ?,
				soc = ?, soc_min = ?, soc_max = ?, latitude = ?, longitude = ?, out_of_service = ?,
				mileage = ?, last_maintenance_date = ?, in_service_date = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		v.Brand,
		v.Model,
		v.Serial,
		v.TopSpeed,
		v.BatteryCapacity,
		v.SoC,
		v.SoCMin,
		v.SoCMax,
		v.Latitude,
		v.Longitude,
		v.OutOfService,
		v.Mileage,
		nullableDate(v.LastMaintenanceDate),
		v.InServiceDate,
		v.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, domain.ErrVehicleAlreadyExists
		}
		return false, apperrors.Wrap(err, "failed to update vehicle")
	}

	return rowsAffected(result)
}

// UpdateTelemetry writes only the restricted telemetry subset. Returns whether
// a row was updated.
func (r *SQLiteVehicleRepository) UpdateTelemetry(ctx context.Context, id int64, t domain.TelemetryUpdate) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE vehicles SET soc = ?, latitude = ?, longitude = ?, mileage = ?, out_of_service = ?,
				last_maintenance_date = COALESCE(?, last_maintenance_date)
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		t.SoC,
		t.Latitude,
		t.Longitude,
		t.Mileage,
		t.OutOfService,
		nullableDate(t.LastMaintenanceDate),
		id,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to update vehicle telemetry")
	}

	return rowsAffected(result)
}

// Delete removes the vehicle. Idempotent: a second call reports false, not an
// error.
func (r *SQLiteVehicleRepository) Delete(ctx context.Context, id int64) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM vehicles WHERE id = ?`, id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to delete vehicle")
	}

	return rowsAffected(result)
}

func (r *SQLiteVehicleRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Vehicle, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query vehicles")
	}
	defer func() {
		_ = rows.Close()
	}()

	vehicles := make([]*domain.Vehicle, 0)
	for rows.Next() {
		v, err := scanVehicle(rows.Scan)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan vehicle")
		}
		vehicles = append(vehicles, v)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate vehicles")
	}

	return vehicles, nil
}

func scanVehicle(scan func(...any) error) (*domain.Vehicle, error) {
	var (
		v           domain.Vehicle
		maintenance sql.NullString
	)

	err := scan(&v.ID, &v.Brand, &v.Model, &v.Serial, &v.TopSpeed, &v.BatteryCapacity, &v.SoC,
		&v.SoCMin, &v.SoCMax, &v.Latitude, &v.Longitude, &v.OutOfService, &v.Mileage,
		&maintenance, &v.InServiceDate, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	v.LastMaintenanceDate = maintenance.String

	return &v, nil
}

// nullableDate maps an empty date string onto NULL.
func nullableDate(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// escapeLike escapes LIKE wildcards in user-provided search input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// rowsAffected converts a result into a "did anything change" report.
func rowsAffected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}
	return n > 0, nil
}

// isUniqueViolation checks if the error is a sqlite unique constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

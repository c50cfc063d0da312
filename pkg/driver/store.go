// Package driver is the ShipXpress driver subgraph.
package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/shipmesh/pkg/database"
	"github.com/example/shipmesh/pkg/models"
)

const columns = "driver_id, name_driver, phone_driver, license_driver, vehicle_id, profile_photo, created_at"

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func scan(row interface{ Scan(...any) error }) (*models.Driver, error) {
	var (
		d       models.Driver
		vehicle sql.NullInt64
		photo   sql.NullString
	)
	if err := row.Scan(&d.DriverID, &d.NameDriver, &d.PhoneDriver, &d.LicenseDriver, &vehicle, &photo, &d.CreatedAt); err != nil {
		return nil, err
	}
	if vehicle.Valid {
		d.VehicleID = &vehicle.Int64
	}
	if photo.Valid {
		d.ProfilePhoto = &photo.String
	}
	return &d, nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*models.Driver, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()

	var out []*models.Driver
	for rows.Next() {
		d, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) List(ctx context.Context) ([]*models.Driver, error) {
	return s.list(ctx, "SELECT "+columns+" FROM drivers ORDER BY created_at DESC")
}

func (s *Store) ListByVehicle(ctx context.Context, vehicleID int64) ([]*models.Driver, error) {
	return s.list(ctx, "SELECT "+columns+" FROM drivers WHERE vehicle_id = $1 ORDER BY created_at DESC", vehicleID)
}

func (s *Store) Get(ctx context.Context, id int64) (*models.Driver, error) {
	d, err := scan(s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM drivers WHERE driver_id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get driver %d: %w", id, err)
	}
	return d, nil
}

func (s *Store) Create(ctx context.Context, d *models.Driver) (*models.Driver, error) {
	created, err := scan(s.db.QueryRowContext(ctx,
		"INSERT INTO drivers (name_driver, phone_driver, license_driver, vehicle_id, profile_photo) VALUES ($1, $2, $3, $4, $5) RETURNING "+columns,
		d.NameDriver, d.PhoneDriver, d.LicenseDriver, d.VehicleID, d.ProfilePhoto))
	if err != nil {
		return nil, fmt.Errorf("create driver: %w", err)
	}
	return created, nil
}

func (s *Store) Update(ctx context.Context, id int64, set database.Assignments) (*models.Driver, error) {
	query, args, ok := set.UpdateQuery("drivers", "driver_id", id, columns)
	if !ok {
		return s.Get(ctx, id)
	}
	d, err := scan(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update driver %d: %w", id, err)
	}
	return d, nil
}

func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM drivers WHERE driver_id = $1", id)
	if err != nil {
		return false, fmt.Errorf("delete driver %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

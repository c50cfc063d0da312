// Package vehicle is the ShipXpress fleet subgraph.
package vehicle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/shipmesh/pkg/database"
	"github.com/example/shipmesh/pkg/models"
)

const columns = "vehicle_id, v_type, license_plate, capacity, status, created_at"

const DefaultType = "Truck"

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func scan(row interface{ Scan(...any) error }) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := row.Scan(&v.VehicleID, &v.VType, &v.LicensePlate, &v.Capacity, &v.Status, &v.CreatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*models.Vehicle, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	var out []*models.Vehicle
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) List(ctx context.Context) ([]*models.Vehicle, error) {
	return s.list(ctx, "SELECT "+columns+" FROM vehicles ORDER BY created_at DESC")
}

func (s *Store) ListByStatus(ctx context.Context, status string) ([]*models.Vehicle, error) {
	return s.list(ctx, "SELECT "+columns+" FROM vehicles WHERE status = $1 ORDER BY created_at DESC", status)
}

func (s *Store) Get(ctx context.Context, id int64) (*models.Vehicle, error) {
	v, err := scan(s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM vehicles WHERE vehicle_id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vehicle %d: %w", id, err)
	}
	return v, nil
}

func (s *Store) Create(ctx context.Context, v *models.Vehicle) (*models.Vehicle, error) {
	if v.VType == "" {
		v.VType = DefaultType
	}
	created, err := scan(s.db.QueryRowContext(ctx,
		"INSERT INTO vehicles (v_type, license_plate, capacity, status) VALUES ($1, $2, $3, $4) RETURNING "+columns,
		v.VType, v.LicensePlate, v.Capacity, v.Status))
	if err != nil {
		return nil, fmt.Errorf("create vehicle: %w", err)
	}
	return created, nil
}

func (s *Store) Update(ctx context.Context, id int64, set database.Assignments) (*models.Vehicle, error) {
	query, args, ok := set.UpdateQuery("vehicles", "vehicle_id", id, columns)
	if !ok {
		return s.Get(ctx, id)
	}
	v, err := scan(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update vehicle %d: %w", id, err)
	}
	return v, nil
}

func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM vehicles WHERE vehicle_id = $1", id)
	if err != nil {
		return false, fmt.Errorf("delete vehicle %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

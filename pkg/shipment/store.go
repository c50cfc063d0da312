package shipment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/shipmesh/pkg/customer"
	"github.com/example/shipmesh/pkg/database"
	"github.com/example/shipmesh/pkg/models"
	"github.com/example/shipmesh/pkg/tracking"
)

const columns = "shipment_id, customer_id, origin_address, destination_address, s_type, weight, status, vehicle_id, created_at"

// TrackFunc builds the tracking row for a freshly written shipment. A nil
// result means no row is appended.
type TrackFunc func(*models.Shipment) *models.TrackingUpdate

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func scan(row interface{ Scan(...any) error }) (*models.Shipment, error) {
	var (
		s       models.Shipment
		vehicle sql.NullInt64
	)
	if err := row.Scan(&s.ShipmentID, &s.CustomerID, &s.OriginAddress, &s.DestinationAddress,
		&s.SType, &s.Weight, &s.Status, &vehicle, &s.CreatedAt); err != nil {
		return nil, err
	}
	if vehicle.Valid {
		s.VehicleID = &vehicle.Int64
	}
	return &s, nil
}

func (s *Store) list(ctx context.Context, where string, args ...any) ([]*models.Shipment, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+columns+" FROM shipments"+where+" ORDER BY created_at DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	defer rows.Close()

	var out []*models.Shipment
	for rows.Next() {
		sh, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shipment: %w", err)
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (s *Store) List(ctx context.Context) ([]*models.Shipment, error) {
	return s.list(ctx, "")
}

func (s *Store) ListByCustomer(ctx context.Context, customerID int64) ([]*models.Shipment, error) {
	return s.list(ctx, " WHERE customer_id = $1", customerID)
}

func (s *Store) ListByStatus(ctx context.Context, status string) ([]*models.Shipment, error) {
	return s.list(ctx, " WHERE status = $1", status)
}

func (s *Store) ListByVehicle(ctx context.Context, vehicleID int64) ([]*models.Shipment, error) {
	return s.list(ctx, " WHERE vehicle_id = $1", vehicleID)
}

// Get returns nil, nil when the shipment does not exist.
func (s *Store) Get(ctx context.Context, id int64) (*models.Shipment, error) {
	sh, err := scan(s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM shipments WHERE shipment_id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shipment %d: %w", id, err)
	}
	return sh, nil
}

func (s *Store) Customer(ctx context.Context, id int64) (*models.Customer, error) {
	return customer.Get(ctx, s.db, id)
}

// Create inserts the shadow customer (when given), the shipment and its
// first tracking row in one transaction.
func (s *Store) Create(ctx context.Context, shadow *models.Customer, sh *models.Shipment, track TrackFunc) (*models.Shipment, error) {
	var created *models.Shipment
	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if shadow != nil {
			if _, err := customer.InsertShadow(ctx, tx, shadow); err != nil {
				return err
			}
		}

		var err error
		created, err = scan(tx.QueryRowContext(ctx,
			`INSERT INTO shipments (customer_id, origin_address, destination_address, s_type, weight, status, vehicle_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+columns,
			sh.CustomerID, sh.OriginAddress, sh.DestinationAddress, sh.SType, sh.Weight, sh.Status, sh.VehicleID))
		if err != nil {
			return fmt.Errorf("insert shipment: %w", err)
		}
		return appendTracking(ctx, tx, created, track)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update applies set and, through track, the status-change tracking row in
// one transaction. Returns nil, nil when the shipment does not exist.
func (s *Store) Update(ctx context.Context, id int64, set database.Assignments, track TrackFunc) (*models.Shipment, error) {
	query, args, ok := set.UpdateQuery("shipments", "shipment_id", id, columns)
	if !ok {
		return s.Get(ctx, id)
	}

	var updated *models.Shipment
	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		updated, err = scan(tx.QueryRowContext(ctx, query, args...))
		if errors.Is(err, sql.ErrNoRows) {
			updated = nil
			return nil
		}
		if err != nil {
			return fmt.Errorf("update shipment %d: %w", id, err)
		}
		return appendTracking(ctx, tx, updated, track)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func appendTracking(ctx context.Context, q database.Querier, sh *models.Shipment, track TrackFunc) error {
	if track == nil {
		return nil
	}
	tu := track(sh)
	if tu == nil {
		return nil
	}
	tu.ShipmentID = sh.ShipmentID
	_, err := tracking.Insert(ctx, q, tu)
	return err
}

func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM shipments WHERE shipment_id = $1", id)
	if err != nil {
		return false, fmt.Errorf("delete shipment %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

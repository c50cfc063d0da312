// Package tracking is the ShipXpress tracking subgraph. Its table is the
// append-only history of shipment status changes; the shipment service
// writes rows through Insert inside its own transactions.
package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/shipmesh/pkg/database"
	"github.com/example/shipmesh/pkg/models"
)

const columns = "tracking_id, shipment_id, location, status, recipient_name, recipient_phone, recipient_address, item_name, barcode, updated_at"

const newestFirst = " ORDER BY updated_at DESC, tracking_id DESC"

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func scan(row interface{ Scan(...any) error }) (*models.TrackingUpdate, error) {
	var (
		tu                                   models.TrackingUpdate
		name, phone, address, item, barcode sql.NullString
	)
	if err := row.Scan(&tu.TrackingID, &tu.ShipmentID, &tu.Location, &tu.Status,
		&name, &phone, &address, &item, &barcode, &tu.UpdatedAt); err != nil {
		return nil, err
	}
	tu.RecipientName = nullable(name)
	tu.RecipientPhone = nullable(phone)
	tu.RecipientAddress = nullable(address)
	tu.ItemName = nullable(item)
	tu.Barcode = nullable(barcode)
	return &tu, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*models.TrackingUpdate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tracking updates: %w", err)
	}
	defer rows.Close()

	var out []*models.TrackingUpdate
	for rows.Next() {
		tu, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tracking update: %w", err)
		}
		out = append(out, tu)
	}
	return out, rows.Err()
}

func (s *Store) List(ctx context.Context) ([]*models.TrackingUpdate, error) {
	return s.list(ctx, "SELECT "+columns+" FROM tracking_updates"+newestFirst)
}

func (s *Store) ListByShipment(ctx context.Context, shipmentID int64) ([]*models.TrackingUpdate, error) {
	return s.list(ctx, "SELECT "+columns+" FROM tracking_updates WHERE shipment_id = $1"+newestFirst, shipmentID)
}

func (s *Store) ListByStatus(ctx context.Context, status string) ([]*models.TrackingUpdate, error) {
	return s.list(ctx, "SELECT "+columns+" FROM tracking_updates WHERE status = $1"+newestFirst, status)
}

func (s *Store) Get(ctx context.Context, id int64) (*models.TrackingUpdate, error) {
	tu, err := scan(s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM tracking_updates WHERE tracking_id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tracking update %d: %w", id, err)
	}
	return tu, nil
}

func (s *Store) Create(ctx context.Context, tu *models.TrackingUpdate) (*models.TrackingUpdate, error) {
	return Insert(ctx, s.db, tu)
}

// Insert appends tu through q. updated_at is always the database clock.
func Insert(ctx context.Context, q database.Querier, tu *models.TrackingUpdate) (*models.TrackingUpdate, error) {
	created, err := scan(q.QueryRowContext(ctx,
		`INSERT INTO tracking_updates (shipment_id, location, status, recipient_name, recipient_phone, recipient_address, item_name, barcode, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP) RETURNING `+columns,
		tu.ShipmentID, tu.Location, tu.Status, tu.RecipientName, tu.RecipientPhone, tu.RecipientAddress, tu.ItemName, tu.Barcode))
	if err != nil {
		return nil, fmt.Errorf("insert tracking update for shipment %d: %w", tu.ShipmentID, err)
	}
	return created, nil
}

func (s *Store) Update(ctx context.Context, id int64, set database.Assignments) (*models.TrackingUpdate, error) {
	query, args, ok := set.UpdateQuery("tracking_updates", "tracking_id", id, columns)
	if !ok {
		return s.Get(ctx, id)
	}
	tu, err := scan(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update tracking update %d: %w", id, err)
	}
	return tu, nil
}

func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tracking_updates WHERE tracking_id = $1", id)
	if err != nil {
		return false, fmt.Errorf("delete tracking update %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

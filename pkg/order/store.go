package order

import (
	"context"
	"fmt"

	"github.com/example/shipmesh/pkg/database"
	"github.com/example/shipmesh/pkg/models"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

const newestFirst = "order_date DESC, order_id DESC"

func (s *Store) List(ctx context.Context) ([]*models.Order, error) {
	var orders []*models.Order
	if err := s.db.WithContext(ctx).Order(newestFirst).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *Store) ListByUser(ctx context.Context, userID int64) ([]*models.Order, error) {
	var orders []*models.Order
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order(newestFirst).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders of user %d: %w", userID, err)
	}
	return orders, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*models.Order, error) {
	var o models.Order
	if err := s.db.WithContext(ctx).First(&o, "order_id = ?", id).Error; err != nil {
		return nil, database.NotFound(err, "order", id)
	}
	return &o, nil
}

func (s *Store) Items(ctx context.Context, orderID int64) ([]*models.OrderItem, error) {
	var items []*models.OrderItem
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("order_item_id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list items of order %d: %w", orderID, err)
	}
	return items, nil
}

func (s *Store) Transitions(ctx context.Context, orderID int64) ([]*models.OrderTransition, error) {
	var ts []*models.OrderTransition
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("transition_id").Find(&ts).Error; err != nil {
		return nil, fmt.Errorf("failed to list transitions of order %d: %w", orderID, err)
	}
	return ts, nil
}

// Create inserts the order, its items and the initial transition together.
func (s *Store) Create(ctx context.Context, o *models.Order, items []*models.OrderItem) (*models.Order, error) {
	o.Status = StatusPlaced
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(o).Error; err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
		for _, it := range items {
			it.OrderID = o.OrderID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("failed to insert order items: %w", err)
			}
		}
		return tx.Create(&models.OrderTransition{
			OrderID:  o.OrderID,
			ToStatus: StatusPlaced,
			Cause:    CauseCreated,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, o.OrderID)
}

// Transition is the only writer of orders.status. It updates the status and
// any extra columns in one statement and appends the transition row. Order
// of arrival is not checked; the last writer wins. A write that would leave
// the row as it is changes nothing and reports changed == false.
func (s *Store) Transition(ctx context.Context, id int64, to, cause string, columns map[string]any) (o *models.Order, from string, changed bool, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.Order
		if err := tx.First(&cur, "order_id = ?", id).Error; err != nil {
			return database.NotFound(err, "order", id)
		}
		from = cur.Status
		if holds(&cur, to, columns) {
			return nil
		}
		changed = true

		set := map[string]any{"status": to}
		for k, v := range columns {
			set[k] = v
		}
		if err := tx.Model(&models.Order{}).Where("order_id = ?", id).Updates(set).Error; err != nil {
			return fmt.Errorf("failed to update order %d: %w", id, err)
		}
		return tx.Create(&models.OrderTransition{
			OrderID:    id,
			FromStatus: from,
			ToStatus:   to,
			Cause:      cause,
		}).Error
	})
	if err != nil {
		return nil, "", false, err
	}
	o, err = s.Get(ctx, id)
	return o, from, changed, err
}

// holds reports whether o already carries status and every column value.
func holds(o *models.Order, status string, columns map[string]any) bool {
	if o.Status != status {
		return false
	}
	for k, v := range columns {
		var cur *string
		switch k {
		case "shipment_status":
			cur = o.ShipmentStatus
		case "shipment_id":
			cur = o.ShipmentID
		default:
			return false
		}
		want, ok := v.(string)
		if !ok || cur == nil || *cur != want {
			return false
		}
	}
	return true
}

package payment

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

const newestFirst = "payment_date DESC, payment_id DESC"

func (s *Store) List(ctx context.Context) ([]*models.Payment, error) {
	var payments []*models.Payment
	if err := s.db.WithContext(ctx).Order(newestFirst).Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (s *Store) ListByOrder(ctx context.Context, orderID int64) ([]*models.Payment, error) {
	var payments []*models.Payment
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order(newestFirst).Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments of order %d: %w", orderID, err)
	}
	return payments, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.WithContext(ctx).First(&p, "payment_id = ?", id).Error; err != nil {
		return nil, database.NotFound(err, "payment", id)
	}
	return &p, nil
}

func (s *Store) Create(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}
	return s.Get(ctx, p.PaymentID)
}

func (s *Store) SetStatus(ctx context.Context, id int64, status string) (*models.Payment, error) {
	err := s.db.WithContext(ctx).Model(&models.Payment{}).Where("payment_id = ?", id).Update("payment_status", status).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update payment %d: %w", id, err)
	}
	return s.Get(ctx, id)
}

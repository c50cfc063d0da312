// Package product is the marketplace catalogue: products, categories and the
// stock counters the order service draws down.
package product

import (
	"context"
	"fmt"

	"github.com/example/shipmesh/pkg/apperr"
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

func (s *Store) find(ctx context.Context, query string, args ...any) ([]*models.Product, error) {
	var products []*models.Product
	tx := s.db.WithContext(ctx).Order("product_id")
	if query != "" {
		tx = tx.Where(query, args...)
	}
	if err := tx.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *Store) List(ctx context.Context) ([]*models.Product, error) {
	return s.find(ctx, "")
}

func (s *Store) ListByCategory(ctx context.Context, categoryID int64) ([]*models.Product, error) {
	return s.find(ctx, "category_id = ?", categoryID)
}

func (s *Store) ListBySeller(ctx context.Context, userID int64) ([]*models.Product, error) {
	return s.find(ctx, "user_id = ?", userID)
}

func (s *Store) Get(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).First(&p, "product_id = ?", id).Error; err != nil {
		return nil, database.NotFound(err, "product", id)
	}
	return &p, nil
}

func (s *Store) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return s.Get(ctx, p.ProductID)
}

// Update overwrites every editable column, the way the catalogue form
// submits them.
func (s *Store) Update(ctx context.Context, id int64, p *models.Product) (*models.Product, error) {
	err := s.db.WithContext(ctx).Model(&models.Product{}).Where("product_id = ?", id).Updates(map[string]any{
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price,
		"stock":       p.Stock,
		"category_id": p.CategoryID,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", id, err)
	}
	return s.Get(ctx, id)
}

func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&models.Product{}, "product_id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete product %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SetStock writes an absolute stock value.
func (s *Store) SetStock(ctx context.Context, id int64, stock int) (*models.Product, error) {
	err := s.db.WithContext(ctx).Model(&models.Product{}).Where("product_id = ?", id).Update("stock", stock).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update stock of product %d: %w", id, err)
	}
	return s.Get(ctx, id)
}

// Decrement takes quantity off the stock in one conditional UPDATE, so
// concurrent callers can never drive it below zero.
func (s *Store) Decrement(ctx context.Context, id int64, quantity int) (*models.Product, error) {
	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("product_id = ? AND stock >= ?", id, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return nil, fmt.Errorf("failed to decrement stock of product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("product %d: %w", id, apperr.ErrInsufficientStock)
	}
	return s.Get(ctx, id)
}

func (s *Store) Categories(ctx context.Context) ([]*models.Category, error) {
	var categories []*models.Category
	if err := s.db.WithContext(ctx).Order("category_id").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *Store) Category(ctx context.Context, id int64) (*models.Category, error) {
	var c models.Category
	if err := s.db.WithContext(ctx).First(&c, "category_id = ?", id).Error; err != nil {
		return nil, database.NotFound(err, "category", id)
	}
	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	c := &models.Category{CategoryName: name}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return c, nil
}

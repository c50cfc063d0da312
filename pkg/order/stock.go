package order

import (
	"context"
	"fmt"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/example/shipmesh/pkg/config"
	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/metrics"
)

const getProductStockQuery = `
      query GetProduct($id: ID!) {
        product(id: $id) {
          product_id
          stock
        }
      }
    `

const updateStockMutation = `
      mutation UpdateStock($id: ID!, $stock: Int!) {
        updateStock(id: $id, stock: $stock) {
          product_id
          stock
        }
      }
    `

const decrementStockMutation = `
      mutation DecrementStock($id: ID!, $quantity: Int!) {
        decrementStock(id: $id, quantity: $quantity) {
          product_id
          stock
        }
      }
    `

// StockReserver takes ordered quantities off the product service's stock.
type StockReserver interface {
	Reserve(ctx context.Context, productID int64, quantity int) error
}

// NewStockReserver picks the strategy named by choreography.stock_strategy.
func NewStockReserver(strategy string, products graphql.Caller) (StockReserver, error) {
	switch strategy {
	case config.StockReadThenWrite, "":
		return &readThenWrite{products: products}, nil
	case config.StockAtomic:
		return &atomicDecrement{products: products}, nil
	default:
		return nil, fmt.Errorf("unknown stock strategy %q", strategy)
	}
}

// readThenWrite reads the current stock and writes back stock - quantity.
// Two orders for the same product can interleave between the read and the
// write, so one decrement may be lost.
type readThenWrite struct {
	products graphql.Caller
}

func (r *readThenWrite) Reserve(ctx context.Context, productID int64, quantity int) (err error) {
	defer func() {
		metrics.StockDecrementsTotal.WithLabelValues(config.StockReadThenWrite, metrics.Outcome(err)).Inc()
	}()

	var current struct {
		Product *struct {
			Stock int `json:"stock"`
		} `json:"product"`
	}
	if err := r.products.Do(ctx, getProductStockQuery, map[string]any{"id": productID}, &current); err != nil {
		return fmt.Errorf("failed to read stock of product %d: %w", productID, err)
	}
	if current.Product == nil {
		return fmt.Errorf("product %d: %w", productID, apperr.ErrNotFound)
	}

	next := current.Product.Stock - quantity
	if next < 0 {
		return fmt.Errorf("product %d has %d left, %d ordered: %w", productID, current.Product.Stock, quantity, apperr.ErrInsufficientStock)
	}
	if err := r.products.Do(ctx, updateStockMutation, map[string]any{"id": productID, "stock": next}, nil); err != nil {
		return fmt.Errorf("failed to write stock of product %d: %w", productID, err)
	}
	return nil
}

// atomicDecrement lets the product service check and decrement in one
// conditional UPDATE.
type atomicDecrement struct {
	products graphql.Caller
}

func (a *atomicDecrement) Reserve(ctx context.Context, productID int64, quantity int) (err error) {
	defer func() {
		metrics.StockDecrementsTotal.WithLabelValues(config.StockAtomic, metrics.Outcome(err)).Inc()
	}()

	err = a.products.Do(ctx, decrementStockMutation, map[string]any{"id": productID, "quantity": quantity}, nil)
	if err != nil {
		return fmt.Errorf("failed to decrement stock of product %d: %w", productID, err)
	}
	return nil
}

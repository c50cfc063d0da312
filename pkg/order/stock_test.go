package order

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/example/shipmesh/pkg/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inventory is a product service holding one stock counter. With readers
// set, every GetProduct blocks until that many reads have happened, which
// forces concurrent read-then-write reservations to interleave.
type inventory struct {
	mu      sync.Mutex
	stock   int
	readers *sync.WaitGroup
}

func (inv *inventory) Do(ctx context.Context, query string, vars map[string]any, out any) error {
	switch query {
	case getProductStockQuery:
		inv.mu.Lock()
		stock := inv.stock
		inv.mu.Unlock()
		if inv.readers != nil {
			inv.readers.Done()
			inv.readers.Wait()
		}
		return json.Unmarshal([]byte(fmt.Sprintf(`{"product":{"product_id":"1","stock":%d}}`, stock)), out)
	case updateStockMutation:
		inv.mu.Lock()
		inv.stock = vars["stock"].(int)
		inv.mu.Unlock()
		return nil
	case decrementStockMutation:
		inv.mu.Lock()
		defer inv.mu.Unlock()
		qty := vars["quantity"].(int)
		if inv.stock < qty {
			return &graphql.RemoteError{Errors: []*graphql.Error{{
				Message:    "product 1: insufficient stock",
				Extensions: map[string]any{"code": "INSUFFICIENT_STOCK"},
			}}}
		}
		inv.stock -= qty
		return nil
	}
	return fmt.Errorf("unexpected operation %q", graphql.OperationName(query))
}

func reserveConcurrently(t *testing.T, r StockReserver, n int) {
	t.Helper()
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.Reserve(context.Background(), 1, 1)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
}

func TestReadThenWriteLosesConcurrentDecrements(t *testing.T) {
	readers := &sync.WaitGroup{}
	readers.Add(2)
	inv := &inventory{stock: 5, readers: readers}
	r, err := NewStockReserver("read_then_write", inv)
	require.NoError(t, err)

	reserveConcurrently(t, r, 2)

	assert.Equal(t, 4, inv.stock)
}

func TestAtomicKeepsConcurrentDecrements(t *testing.T) {
	inv := &inventory{stock: 5}
	r, err := NewStockReserver("atomic", inv)
	require.NoError(t, err)

	reserveConcurrently(t, r, 5)
	assert.Equal(t, 0, inv.stock)

	err = r.Reserve(context.Background(), 1, 1)
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Equal(t, 0, inv.stock)
}

func TestReadThenWriteUnknownProduct(t *testing.T) {
	r, err := NewStockReserver("read_then_write", &fakeSibling{handle: func(string, map[string]any) (string, error) {
		return `{"product":null}`, nil
	}})
	require.NoError(t, err)

	err = r.Reserve(context.Background(), 9, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

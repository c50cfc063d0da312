// Package customer is the ShipXpress customer subgraph.
package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/shipmesh/pkg/database"
	"github.com/example/shipmesh/pkg/models"
)

const columns = "customer_id, name, email, phone, address, c_type, created_at"

// MarketplaceType marks shadow rows copied from a marketplace user.
const MarketplaceType = "Marketplace"

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func scan(row interface{ Scan(...any) error }) (*models.Customer, error) {
	var c models.Customer
	if err := row.Scan(&c.CustomerID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CType, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) List(ctx context.Context) ([]*models.Customer, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+columns+" FROM customers ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []*models.Customer
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get returns nil, nil when the customer does not exist.
func (s *Store) Get(ctx context.Context, id int64) (*models.Customer, error) {
	return Get(ctx, s.db, id)
}

// Get reads one customer through q, which may be a transaction.
func Get(ctx context.Context, q database.Querier, id int64) (*models.Customer, error) {
	c, err := scan(q.QueryRowContext(ctx, "SELECT "+columns+" FROM customers WHERE customer_id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get customer %d: %w", id, err)
	}
	return c, nil
}

func (s *Store) Create(ctx context.Context, c *models.Customer) (*models.Customer, error) {
	row := s.db.QueryRowContext(ctx,
		"INSERT INTO customers (name, email, phone, address, c_type) VALUES ($1, $2, $3, $4, $5) RETURNING "+columns,
		c.Name, c.Email, c.Phone, c.Address, c.CType)
	created, err := scan(row)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return created, nil
}

// InsertShadow copies a marketplace user in under its own id and moves the
// serial sequence past it so later plain inserts do not collide.
func InsertShadow(ctx context.Context, q database.Querier, c *models.Customer) (*models.Customer, error) {
	row := q.QueryRowContext(ctx,
		"INSERT INTO customers (customer_id, name, email, phone, address, c_type) VALUES ($1, $2, $3, $4, $5, $6) RETURNING "+columns,
		c.CustomerID, c.Name, c.Email, c.Phone, c.Address, MarketplaceType)
	created, err := scan(row)
	if err != nil {
		return nil, fmt.Errorf("insert shadow customer %d: %w", c.CustomerID, err)
	}
	if _, err := q.ExecContext(ctx,
		"SELECT setval(pg_get_serial_sequence('customers', 'customer_id'), (SELECT MAX(customer_id) FROM customers))"); err != nil {
		return nil, fmt.Errorf("advance customer sequence: %w", err)
	}
	return created, nil
}

// Update applies set; an empty set returns the stored row. Returns nil, nil
// when the customer does not exist.
func (s *Store) Update(ctx context.Context, id int64, set database.Assignments) (*models.Customer, error) {
	query, args, ok := set.UpdateQuery("customers", "customer_id", id, columns)
	if !ok {
		return s.Get(ctx, id)
	}
	c, err := scan(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update customer %d: %w", id, err)
	}
	return c, nil
}

func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM customers WHERE customer_id = $1", id)
	if err != nil {
		return false, fmt.Errorf("delete customer %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

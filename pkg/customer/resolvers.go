package customer

import (
	"context"
	"fmt"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/example/shipmesh/pkg/database"
	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/models"
)

type Repository interface {
	List(ctx context.Context) ([]*models.Customer, error)
	Get(ctx context.Context, id int64) (*models.Customer, error)
	Create(ctx context.Context, c *models.Customer) (*models.Customer, error)
	Update(ctx context.Context, id int64, set database.Assignments) (*models.Customer, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// updatable maps GraphQL argument names to columns.
var updatable = []struct{ arg, column string }{
	{"name", "name"},
	{"email", "email"},
	{"phone", "phone"},
	{"address", "address"},
	{"C_type", "c_type"},
}

func NewSchema(repo Repository) (*graphql.Schema, error) {
	s, err := graphql.NewSchema(SDL)
	if err != nil {
		return nil, err
	}

	get := func(ctx context.Context, raw any) (any, error) {
		id, err := graphql.ParseID(raw)
		if err != nil {
			return nil, err
		}
		c, err := repo.Get(ctx, id)
		if c == nil || err != nil {
			return nil, err
		}
		return c, nil
	}

	s.Resolve("Query", "customers", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return repo.List(ctx)
	})
	s.Resolve("Query", "customer", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return get(ctx, p.Args["id"])
	})
	s.Entity("Customer", func(ctx context.Context, rep graphql.Args) (any, error) {
		return get(ctx, rep["customer_id"])
	})

	s.Resolve("Mutation", "createCustomer", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return repo.Create(ctx, &models.Customer{
			Name:    p.Args.String("name"),
			Email:   p.Args.String("email"),
			Phone:   p.Args.String("phone"),
			Address: p.Args.String("address"),
			CType:   p.Args.String("C_type"),
		})
	})
	s.Resolve("Mutation", "updateCustomer", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		var set database.Assignments
		for _, f := range updatable {
			if p.Args.Has(f.arg) {
				set.Set(f.column, p.Args[f.arg])
			}
		}
		c, err := repo.Update(ctx, id, set)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, fmt.Errorf("customer %d: %w", id, apperr.ErrNotFound)
		}
		return c, nil
	})
	s.Resolve("Mutation", "deleteCustomer", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		return repo.Delete(ctx, id)
	})

	return s, nil
}

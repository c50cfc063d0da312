package vehicle

import (
	"context"
	"fmt"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/example/shipmesh/pkg/database"
	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/models"
)

type Repository interface {
	List(ctx context.Context) ([]*models.Vehicle, error)
	ListByStatus(ctx context.Context, status string) ([]*models.Vehicle, error)
	Get(ctx context.Context, id int64) (*models.Vehicle, error)
	Create(ctx context.Context, v *models.Vehicle) (*models.Vehicle, error)
	Update(ctx context.Context, id int64, set database.Assignments) (*models.Vehicle, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

var updatable = []struct{ arg, column string }{
	{"V_type", "v_type"},
	{"license_plate", "license_plate"},
	{"capacity", "capacity"},
	{"status", "status"},
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
		v, err := repo.Get(ctx, id)
		if v == nil || err != nil {
			return nil, err
		}
		return v, nil
	}

	s.Resolve("Query", "vehicles", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return repo.List(ctx)
	})
	s.Resolve("Query", "vehicle", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return get(ctx, p.Args["id"])
	})
	s.Resolve("Query", "vehiclesByStatus", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return repo.ListByStatus(ctx, p.Args.String("status"))
	})
	s.Entity("Vehicle", func(ctx context.Context, rep graphql.Args) (any, error) {
		return get(ctx, rep["vehicle_id"])
	})

	s.Resolve("Mutation", "createVehicle", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return repo.Create(ctx, &models.Vehicle{
			VType:        p.Args.String("V_type"),
			LicensePlate: p.Args.String("license_plate"),
			Capacity:     p.Args.Float("capacity"),
			Status:       p.Args.String("status"),
		})
	})
	s.Resolve("Mutation", "updateVehicle", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		var set database.Assignments
		for _, f := range updatable {
			if !p.Args.Has(f.arg) {
				continue
			}
			if f.arg == "capacity" {
				set.Set(f.column, p.Args.FloatPtr(f.arg))
				continue
			}
			set.Set(f.column, p.Args[f.arg])
		}
		v, err := repo.Update(ctx, id, set)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, fmt.Errorf("vehicle %d: %w", id, apperr.ErrNotFound)
		}
		return v, nil
	})
	s.Resolve("Mutation", "deleteVehicle", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		return repo.Delete(ctx, id)
	})

	return s, nil
}

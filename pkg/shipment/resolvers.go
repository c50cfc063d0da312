package shipment

import (
	"context"

	"github.com/example/shipmesh/pkg/database"
	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/models"
)

// optionalID parses a nullable ID argument into a *int64 column value.
func optionalID(args graphql.Args, key string) (*int64, error) {
	v := args[key]
	if v == nil {
		return nil, nil
	}
	id, err := graphql.ParseID(v)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// updateSet turns the supplied updateShipment arguments into column
// assignments. Explicit nulls are kept so they write NULL.
func updateSet(args graphql.Args) (database.Assignments, error) {
	var set database.Assignments
	for _, key := range []string{"customer_id", "origin_address", "destination_address", "S_type", "weight", "status", "vehicle_id"} {
		if !args.Has(key) {
			continue
		}
		switch key {
		case "customer_id", "vehicle_id":
			id, err := optionalID(args, key)
			if err != nil {
				return nil, err
			}
			set.Set(key, id)
		case "weight":
			set.Set(key, args.FloatPtr(key))
		case "S_type":
			set.Set("s_type", args.StringPtr(key))
		default:
			set.Set(key, args.StringPtr(key))
		}
	}
	return set, nil
}

func NewSchema(repo Repository, svc *Service) (*graphql.Schema, error) {
	s, err := graphql.NewSchema(SDL)
	if err != nil {
		return nil, err
	}

	get := func(ctx context.Context, raw any) (any, error) {
		id, err := graphql.ParseID(raw)
		if err != nil {
			return nil, err
		}
		sh, err := repo.Get(ctx, id)
		if sh == nil || err != nil {
			return nil, err
		}
		return sh, nil
	}

	s.Resolve("Query", "shipments", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return repo.List(ctx)
	})
	s.Resolve("Query", "shipment", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return get(ctx, p.Args["id"])
	})
	s.Resolve("Query", "shipmentsByCustomer", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("customer_id")
		if err != nil {
			return nil, err
		}
		return repo.ListByCustomer(ctx, id)
	})
	s.Resolve("Query", "shipmentsByStatus", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return repo.ListByStatus(ctx, p.Args.String("status"))
	})
	s.Resolve("Query", "shipmentsByVehicle", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("vehicle_id")
		if err != nil {
			return nil, err
		}
		return repo.ListByVehicle(ctx, id)
	})

	s.Entity("Shipment", func(ctx context.Context, rep graphql.Args) (any, error) {
		return get(ctx, rep["shipment_id"])
	})
	s.Resolve("Shipment", "customer", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return map[string]any{"customer_id": p.Source.(*models.Shipment).CustomerID}, nil
	})
	s.Resolve("Shipment", "vehicle", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		sh := p.Source.(*models.Shipment)
		if sh.VehicleID == nil {
			return nil, nil
		}
		return map[string]any{"vehicle_id": *sh.VehicleID}, nil
	})

	s.Resolve("Mutation", "createShipment", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		customerID, err := p.Args.ID("customer_id")
		if err != nil {
			return nil, err
		}
		vehicleID, err := optionalID(p.Args, "vehicle_id")
		if err != nil {
			return nil, err
		}
		return svc.CreateShipment(ctx, CreateInput{
			CustomerID:         customerID,
			OriginAddress:      p.Args.String("origin_address"),
			DestinationAddress: p.Args.String("destination_address"),
			SType:              p.Args.String("S_type"),
			Weight:             p.Args.Float("weight"),
			Status:             p.Args.String("status"),
			VehicleID:          vehicleID,
		})
	})
	s.Resolve("Mutation", "updateShipment", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		set, err := updateSet(p.Args)
		if err != nil {
			return nil, err
		}
		return svc.UpdateShipment(ctx, id, set)
	})
	s.Resolve("Mutation", "deleteShipment", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		return repo.Delete(ctx, id)
	})

	return s, nil
}

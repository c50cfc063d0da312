package tracking

import (
	"context"
	"fmt"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/example/shipmesh/pkg/database"
	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/models"
)

type Repository interface {
	List(ctx context.Context) ([]*models.TrackingUpdate, error)
	ListByShipment(ctx context.Context, shipmentID int64) ([]*models.TrackingUpdate, error)
	ListByStatus(ctx context.Context, status string) ([]*models.TrackingUpdate, error)
	Get(ctx context.Context, id int64) (*models.TrackingUpdate, error)
	Create(ctx context.Context, tu *models.TrackingUpdate) (*models.TrackingUpdate, error)
	Update(ctx context.Context, id int64, set database.Assignments) (*models.TrackingUpdate, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

var optionalColumns = []string{"recipient_name", "recipient_phone", "recipient_address", "item_name", "barcode"}

// emptyAsNull drops "" the way the create path always has.
func emptyAsNull(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
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
		tu, err := repo.Get(ctx, id)
		if tu == nil || err != nil {
			return nil, err
		}
		return tu, nil
	}

	s.Resolve("Query", "trackingUpdates", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return repo.List(ctx)
	})
	s.Resolve("Query", "trackingUpdate", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return get(ctx, p.Args["id"])
	})
	s.Resolve("Query", "trackingUpdatesByShipment", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("shipment_id")
		if err != nil {
			return nil, err
		}
		return repo.ListByShipment(ctx, id)
	})
	s.Resolve("Query", "trackingUpdatesByStatus", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return repo.ListByStatus(ctx, p.Args.String("status"))
	})

	s.Entity("TrackingUpdate", func(ctx context.Context, rep graphql.Args) (any, error) {
		return get(ctx, rep["tracking_id"])
	})
	// Shipment is owned by the shipment subgraph; this one only contributes
	// trackingUpdates, so the representation itself is the entity.
	s.Entity("Shipment", func(ctx context.Context, rep graphql.Args) (any, error) {
		if _, err := rep.ID("shipment_id"); err != nil {
			return nil, err
		}
		return map[string]any(rep), nil
	})
	s.Resolve("Shipment", "trackingUpdates", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := graphql.AsArgs(p.Source).ID("shipment_id")
		if err != nil {
			return nil, err
		}
		return repo.ListByShipment(ctx, id)
	})
	s.Resolve("TrackingUpdate", "shipment", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return map[string]any{"shipment_id": p.Source.(*models.TrackingUpdate).ShipmentID}, nil
	})

	s.Resolve("Mutation", "createTrackingUpdate", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		shipmentID, err := p.Args.ID("shipment_id")
		if err != nil {
			return nil, err
		}
		return repo.Create(ctx, &models.TrackingUpdate{
			ShipmentID:       shipmentID,
			Location:         p.Args.String("location"),
			Status:           p.Args.String("status"),
			RecipientName:    emptyAsNull(p.Args.StringPtr("recipient_name")),
			RecipientPhone:   emptyAsNull(p.Args.StringPtr("recipient_phone")),
			RecipientAddress: emptyAsNull(p.Args.StringPtr("recipient_address")),
			ItemName:         emptyAsNull(p.Args.StringPtr("item_name")),
			Barcode:          emptyAsNull(p.Args.StringPtr("barcode")),
		})
	})
	s.Resolve("Mutation", "updateTrackingUpdate", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		var set database.Assignments
		for _, col := range append([]string{"location", "status"}, optionalColumns...) {
			if p.Args.Has(col) {
				set.Set(col, p.Args.StringPtr(col))
			}
		}
		tu, err := repo.Update(ctx, id, set)
		if err != nil {
			return nil, err
		}
		if tu == nil {
			return nil, fmt.Errorf("tracking update %d: %w", id, apperr.ErrNotFound)
		}
		return tu, nil
	})
	s.Resolve("Mutation", "deleteTrackingUpdate", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		return repo.Delete(ctx, id)
	})

	return s, nil
}

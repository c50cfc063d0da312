package order

import (
	"context"

	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/models"
)

func NewSchema(repo Repository, svc *Service) (*graphql.Schema, error) {
	s, err := graphql.NewSchema(SDL)
	if err != nil {
		return nil, err
	}

	s.Resolve("Query", "orders", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return repo.List(ctx)
	})
	s.Resolve("Query", "order", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		return repo.Get(ctx, id)
	})
	s.Resolve("Query", "ordersByUser", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("userId")
		if err != nil {
			return nil, err
		}
		return repo.ListByUser(ctx, id)
	})
	s.Resolve("Query", "orderTransitions", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("orderId")
		if err != nil {
			return nil, err
		}
		return repo.Transitions(ctx, id)
	})

	s.Resolve("Order", "shipment_status", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return svc.ShipmentStatus(ctx, p.Source.(*models.Order)), nil
	})
	s.Resolve("Order", "user", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return svc.User(ctx, p.Source.(*models.Order).UserID), nil
	})
	s.Resolve("Order", "items", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		items, err := repo.Items(ctx, p.Source.(*models.Order).OrderID)
		if err != nil {
			return []*models.OrderItem{}, nil
		}
		return items, nil
	})
	s.Resolve("Order", "transitions", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return repo.Transitions(ctx, p.Source.(*models.Order).OrderID)
	})
	s.Resolve("OrderItem", "product", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return svc.Product(ctx, p.Source.(*models.OrderItem).ProductID), nil
	})

	s.Resolve("Mutation", "createOrder", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		in := p.Args.Object("input")
		var items []ItemInput
		for _, raw := range in.List("items") {
			it := graphql.AsArgs(raw)
			items = append(items, ItemInput{
				ProductID: it.Int("product_id"),
				Quantity:  int(it.Int("quantity")),
				Price:     it.Float("price"),
			})
		}
		return svc.CreateOrder(ctx, CreateInput{UserID: in.Int("user_id"), Items: items})
	})
	s.Resolve("Mutation", "updateOrderStatus", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		return svc.UpdateStatus(ctx, id, p.Args.String("status"))
	})
	s.Resolve("Mutation", "updateShipmentStatus", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		return svc.UpdateShipmentStatus(ctx, id, p.Args.String("shipmentStatus"))
	})
	s.Resolve("Mutation", "markOrderPaid", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		orderID, err := p.Args.ID("orderId")
		if err != nil {
			return nil, err
		}
		paymentID, err := p.Args.ID("paymentId")
		if err != nil {
			return nil, err
		}
		return svc.MarkPaid(ctx, orderID, paymentID)
	})
	s.Resolve("Mutation", "sendOrderToShipXpress", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("orderId")
		if err != nil {
			return nil, err
		}
		return svc.SendToShipXpress(ctx, id)
	})

	return s, nil
}

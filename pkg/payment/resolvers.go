package payment

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

	s.Resolve("Query", "payments", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return repo.List(ctx)
	})
	s.Resolve("Query", "payment", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		return repo.Get(ctx, id)
	})
	s.Resolve("Query", "paymentsByOrder", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("orderId")
		if err != nil {
			return nil, err
		}
		return repo.ListByOrder(ctx, id)
	})
	s.Resolve("Payment", "order", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return svc.Order(ctx, p.Source.(*models.Payment).OrderID), nil
	})

	input := func(p graphql.ResolveParams) Input {
		in := p.Args.Object("input")
		return Input{OrderID: in.Int("order_id"), Amount: in.Float("amount")}
	}
	s.Resolve("Mutation", "createPayment", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return svc.CreatePayment(ctx, input(p))
	})
	s.Resolve("Mutation", "processPayment", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return svc.ProcessPayment(ctx, input(p))
	})
	s.Resolve("Mutation", "updatePaymentStatus", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		return svc.UpdateStatus(ctx, id, p.Args.String("status"))
	})

	return s, nil
}

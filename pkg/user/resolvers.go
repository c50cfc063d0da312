package user

import (
	"context"

	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/models"
)

type Repository interface {
	List(ctx context.Context) ([]*models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, in RegisterInput) (*models.User, error)
	Update(ctx context.Context, id int64, in UpdateInput) (*models.User, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

func NewSchema(repo Repository) (*graphql.Schema, error) {
	s, err := graphql.NewSchema(SDL)
	if err != nil {
		return nil, err
	}

	s.Resolve("Query", "users", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return repo.List(ctx)
	})
	s.Resolve("Query", "user", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		return repo.Get(ctx, id)
	})
	// The hash never leaves the service.
	s.Resolve("User", "password", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return nil, nil
	})

	s.Resolve("Mutation", "createUser", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		in := p.Args.Object("input")
		return repo.Create(ctx, RegisterInput{
			Name:     in.String("name"),
			Email:    in.String("email"),
			Phone:    in.StringPtr("phone"),
			Address:  in.StringPtr("address"),
			Password: in.String("password"),
		})
	})
	s.Resolve("Mutation", "updateUser", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		in := p.Args.Object("input")
		return repo.Update(ctx, id, UpdateInput{
			Name:       in.String("name"),
			Email:      in.String("email"),
			Password:   in.String("password"),
			Phone:      in.StringPtr("phone"),
			Address:    in.StringPtr("address"),
			SetPhone:   in.Has("phone"),
			SetAddress: in.Has("address"),
		})
	})
	s.Resolve("Mutation", "deleteUser", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		return repo.Delete(ctx, id)
	})

	return s, nil
}

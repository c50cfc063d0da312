package product

import (
	"context"
	"fmt"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/metrics"
	"github.com/example/shipmesh/pkg/models"
	"go.uber.org/zap"
)

type Repository interface {
	List(ctx context.Context) ([]*models.Product, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]*models.Product, error)
	ListBySeller(ctx context.Context, userID int64) ([]*models.Product, error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) (*models.Product, error)
	Update(ctx context.Context, id int64, p *models.Product) (*models.Product, error)
	Delete(ctx context.Context, id int64) (bool, error)
	SetStock(ctx context.Context, id int64, stock int) (*models.Product, error)
	Decrement(ctx context.Context, id int64, quantity int) (*models.Product, error)
	Categories(ctx context.Context) ([]*models.Category, error)
	Category(ctx context.Context, id int64) (*models.Category, error)
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
}

type seller struct {
	UserID graphql.ID `json:"user_id"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
}

// NewSchema wires the catalogue resolvers. users may be nil, in which case
// Product.seller always resolves to null.
func NewSchema(repo Repository, users graphql.Caller, logger *zap.Logger) (*graphql.Schema, error) {
	s, err := graphql.NewSchema(SDL)
	if err != nil {
		return nil, err
	}

	byID := func(key string, fn func(context.Context, int64) (any, error)) graphql.ResolveFunc {
		return func(ctx context.Context, p graphql.ResolveParams) (any, error) {
			id, err := p.Args.ID(key)
			if err != nil {
				return nil, err
			}
			return fn(ctx, id)
		}
	}

	s.Resolve("Query", "products", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return repo.List(ctx)
	})
	s.Resolve("Query", "product", byID("id", func(ctx context.Context, id int64) (any, error) {
		return repo.Get(ctx, id)
	}))
	s.Resolve("Query", "productsByCategory", byID("categoryId", func(ctx context.Context, id int64) (any, error) {
		return repo.ListByCategory(ctx, id)
	}))
	s.Resolve("Query", "productsBySeller", byID("userId", func(ctx context.Context, id int64) (any, error) {
		return repo.ListBySeller(ctx, id)
	}))
	s.Resolve("Query", "categories", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return repo.Categories(ctx)
	})
	s.Resolve("Query", "category", byID("id", func(ctx context.Context, id int64) (any, error) {
		return repo.Category(ctx, id)
	}))

	s.Resolve("Product", "category", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		prod := p.Source.(*models.Product)
		if prod.CategoryID == nil {
			return nil, nil
		}
		c, err := repo.Category(ctx, *prod.CategoryID)
		if err != nil {
			return nil, nil
		}
		return c, nil
	})
	s.Resolve("Product", "seller", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		if users == nil {
			return nil, nil
		}
		prod := p.Source.(*models.Product)
		var out struct {
			User *seller `json:"user"`
		}
		if err := users.Do(ctx, getSellerQuery, map[string]any{"id": prod.UserID}, &out); err != nil {
			logger.Warn("Seller lookup failed", zap.Int64("product_id", prod.ProductID), zap.Error(err))
			metrics.EnrichmentUnavailableTotal.WithLabelValues("seller").Inc()
			return nil, nil
		}
		return out.User, nil
	})

	s.Resolve("Mutation", "createProduct", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		prod, err := productFromInput(p.Args.Object("input"))
		if err != nil {
			return nil, err
		}
		return repo.Create(ctx, prod)
	})
	s.Resolve("Mutation", "updateProduct", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		prod, err := productFromInput(p.Args.Object("input"))
		if err != nil {
			return nil, err
		}
		return repo.Update(ctx, id, prod)
	})
	s.Resolve("Mutation", "deleteProduct", byID("id", func(ctx context.Context, id int64) (any, error) {
		return repo.Delete(ctx, id)
	}))
	s.Resolve("Mutation", "updateStock", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		stock := p.Args.Int("stock")
		if stock < 0 {
			return nil, fmt.Errorf("%w: stock cannot be negative", apperr.ErrInvalidInput)
		}
		return repo.SetStock(ctx, id, int(stock))
	})
	s.Resolve("Mutation", "decrementStock", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		qty := p.Args.Int("quantity")
		if qty <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", apperr.ErrInvalidInput)
		}
		return repo.Decrement(ctx, id, int(qty))
	})
	s.Resolve("Mutation", "createCategory", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		name := p.Args.String("categoryName")
		if name == "" {
			return nil, fmt.Errorf("%w: category name is required", apperr.ErrInvalidInput)
		}
		return repo.CreateCategory(ctx, name)
	})

	return s, nil
}

// productFromInput maps a ProductInput. An empty description or category
// is stored as null.
func productFromInput(in graphql.Args) (*models.Product, error) {
	userID, err := in.ID("user_id")
	if err != nil {
		return nil, err
	}
	prod := &models.Product{
		Name:   in.String("name"),
		Price:  in.Float("price"),
		Stock:  int(in.Int("stock")),
		UserID: userID,
	}
	if d := in.StringPtr("description"); d != nil && *d != "" {
		prod.Description = d
	}
	if c := in.StringPtr("category_id"); c != nil && *c != "" {
		id, err := graphql.ParseID(*c)
		if err != nil {
			return nil, err
		}
		prod.CategoryID = &id
	}
	return prod, nil
}

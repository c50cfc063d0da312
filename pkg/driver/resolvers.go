package driver

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/example/shipmesh/pkg/database"
	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/models"
)

type Repository interface {
	List(ctx context.Context) ([]*models.Driver, error)
	ListByVehicle(ctx context.Context, vehicleID int64) ([]*models.Driver, error)
	Get(ctx context.Context, id int64) (*models.Driver, error)
	Create(ctx context.Context, d *models.Driver) (*models.Driver, error)
	Update(ctx context.Context, id int64, set database.Assignments) (*models.Driver, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// AvatarURL is the generated placeholder for drivers without a photo.
// Spaces are escaped as %20, not +.
func AvatarURL(name string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
	return "https://ui-avatars.com/api/?name=" + escaped + "&background=FAB12F&color=fff&size=200"
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
		d, err := repo.Get(ctx, id)
		if d == nil || err != nil {
			return nil, err
		}
		return d, nil
	}

	s.Resolve("Query", "drivers", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return repo.List(ctx)
	})
	s.Resolve("Query", "driver", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		return get(ctx, p.Args["id"])
	})
	s.Resolve("Query", "driversByVehicle", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("vehicle_id")
		if err != nil {
			return nil, err
		}
		return repo.ListByVehicle(ctx, id)
	})
	s.Entity("Driver", func(ctx context.Context, rep graphql.Args) (any, error) {
		return get(ctx, rep["driver_id"])
	})

	s.Resolve("Driver", "vehicle", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		d := p.Source.(*models.Driver)
		if d.VehicleID == nil {
			return nil, nil
		}
		return map[string]any{"vehicle_id": *d.VehicleID}, nil
	})
	s.Resolve("Driver", "profile_photo", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		d := p.Source.(*models.Driver)
		if d.ProfilePhoto != nil && *d.ProfilePhoto != "" {
			return *d.ProfilePhoto, nil
		}
		return AvatarURL(d.NameDriver), nil
	})

	s.Resolve("Mutation", "createDriver", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		d := &models.Driver{
			NameDriver:    p.Args.String("name_driver"),
			PhoneDriver:   p.Args.String("phone_driver"),
			LicenseDriver: p.Args.String("license_driver"),
			VehicleID:     p.Args.IntPtr("vehicle_id"),
			ProfilePhoto:  p.Args.StringPtr("profile_photo"),
		}
		if d.ProfilePhoto != nil && *d.ProfilePhoto == "" {
			d.ProfilePhoto = nil
		}
		return repo.Create(ctx, d)
	})
	s.Resolve("Mutation", "updateDriver", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		var set database.Assignments
		for _, col := range []string{"name_driver", "phone_driver", "license_driver", "profile_photo"} {
			if p.Args.Has(col) {
				set.Set(col, p.Args.StringPtr(col))
			}
		}
		if p.Args.Has("vehicle_id") {
			set.Set("vehicle_id", p.Args.IntPtr("vehicle_id"))
		}
		d, err := repo.Update(ctx, id, set)
		if err != nil {
			return nil, err
		}
		if d == nil {
			return nil, fmt.Errorf("driver %d: %w", id, apperr.ErrNotFound)
		}
		return d, nil
	})
	s.Resolve("Mutation", "deleteDriver", func(ctx context.Context, p graphql.ResolveParams) (any, error) {
		id, err := p.Args.ID("id")
		if err != nil {
			return nil, err
		}
		return repo.Delete(ctx, id)
	})

	return s, nil
}

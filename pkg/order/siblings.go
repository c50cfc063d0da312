package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/example/shipmesh/pkg/graphql"
)

const getUserQuery = `
      query GetUser($id: ID!) {
        user(id: $id) {
          user_id
          name
          email
          address
        }
      }
    `

const getProductQuery = `
      query GetProduct($id: ID!) {
        product(id: $id) {
          product_id
          name
          price
        }
      }
    `

const createShipmentMutation = `
      mutation CreateShipment(
        $customer_id: ID!
        $origin_address: String!
        $destination_address: String!
        $S_type: String!
        $weight: Float!
        $status: String!
        $vehicle_id: ID
      ) {
        createShipment(
          customer_id: $customer_id
          origin_address: $origin_address
          destination_address: $destination_address
          S_type: $S_type
          weight: $weight
          status: $status
          vehicle_id: $vehicle_id
        ) {
          shipment_id
          status
        }
      }
    `

const shipmentStatusQuery = `
      query ShipmentStatus($id: ID!) {
        shipment(id: $id) {
          status
        }
      }
    `

type User struct {
	UserID  graphql.ID `json:"user_id"`
	Name    string     `json:"name"`
	Email   string     `json:"email"`
	Address *string    `json:"address"`
}

type Product struct {
	ProductID graphql.ID `json:"product_id"`
	Name      string     `json:"name"`
	Price     float64    `json:"price"`
}

type CreatedShipment struct {
	ShipmentID graphql.ID `json:"shipment_id"`
	Status     string     `json:"status"`
}

// Siblings are the services an order reaches over GraphQL.
type Siblings struct {
	Users      graphql.Caller
	Products   graphql.Caller
	ShipXpress graphql.Caller
}

func (s Siblings) user(ctx context.Context, id int64) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	if err := s.Users.Do(ctx, getUserQuery, map[string]any{"id": id}, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (s Siblings) product(ctx context.Context, id int64) (*Product, error) {
	var out struct {
		Product *Product `json:"product"`
	}
	if err := s.Products.Do(ctx, getProductQuery, map[string]any{"id": id}, &out); err != nil {
		return nil, err
	}
	return out.Product, nil
}

func (s Siblings) createShipment(ctx context.Context, vars map[string]any) (*CreatedShipment, error) {
	var out struct {
		CreateShipment *CreatedShipment `json:"createShipment"`
	}
	if err := s.ShipXpress.Do(ctx, createShipmentMutation, vars, &out); err != nil {
		return nil, err
	}
	if out.CreateShipment == nil {
		return nil, fmt.Errorf("%w: createShipment returned no shipment", apperr.ErrResolution)
	}
	return out.CreateShipment, nil
}

func (s Siblings) shipmentStatus(ctx context.Context, shipmentID string) (string, error) {
	var out struct {
		Shipment *struct {
			Status string `json:"status"`
		} `json:"shipment"`
	}
	if err := s.ShipXpress.Do(ctx, shipmentStatusQuery, map[string]any{"id": shipmentID}, &out); err != nil {
		return "", err
	}
	if out.Shipment == nil {
		return "", fmt.Errorf("shipment %s: %w", shipmentID, apperr.ErrNotFound)
	}
	return out.Shipment.Status, nil
}

// destinationFor falls back to "-" when the user has no usable address.
func destinationFor(u *User) string {
	if u.Address == nil || *u.Address == "-" || strings.TrimSpace(*u.Address) == "" {
		return "-"
	}
	return *u.Address
}

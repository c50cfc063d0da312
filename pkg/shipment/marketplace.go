package shipment

import (
	"context"
	"fmt"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/example/shipmesh/pkg/graphql"
)

// Operation texts sent to the marketplace. Other services match on them, so
// they are kept byte-for-byte, whitespace included.
const (
	getUserQuery = `
      query GetUser($id: ID!) {
        user(id: $id) {
          user_id
          name
          email
          phone
          address
        }
      }
    `

	ordersByUserQuery = `
      query OrdersByUser($userId: ID!) {
        ordersByUser(userId: $userId) {
          order_id
          total_amount
          status
          order_date
        }
      }
    `

	paymentsByOrderQuery = `
      query PaymentsByOrder($orderId: ID!) {
        paymentsByOrder(orderId: $orderId) {
          payment_id
          amount
          payment_status
          payment_date
        }
      }
    `

	orderShipmentsQuery = `
      query OrdersByUser($userId: ID!) {
        ordersByUser(userId: $userId) {
          order_id
          shipment_id
        }
      }
    `
)

type MarketplaceUser struct {
	UserID  graphql.ID `json:"user_id"`
	Name    string     `json:"name"`
	Email   string     `json:"email"`
	Phone   *string    `json:"phone"`
	Address *string    `json:"address"`
}

type MarketplaceOrder struct {
	OrderID     graphql.ID  `json:"order_id"`
	TotalAmount float64     `json:"total_amount"`
	Status      string      `json:"status"`
	OrderDate   string      `json:"order_date"`
	ShipmentID  *graphql.ID `json:"shipment_id"`
}

type MarketplacePayment struct {
	PaymentID     graphql.ID `json:"payment_id"`
	Amount        float64    `json:"amount"`
	PaymentStatus string     `json:"payment_status"`
	PaymentDate   string     `json:"payment_date"`
}

// MarketplaceClient queries the user, order and payment services.
type MarketplaceClient struct {
	users    *graphql.Client
	orders   *graphql.Client
	payments *graphql.Client
}

func NewMarketplaceClient(users, orders, payments *graphql.Client) *MarketplaceClient {
	return &MarketplaceClient{users: users, orders: orders, payments: payments}
}

// User fails with apperr.ErrResolution on any transport error, GraphQL error
// or null user.
func (m *MarketplaceClient) User(ctx context.Context, id string) (*MarketplaceUser, error) {
	var out struct {
		User *MarketplaceUser `json:"user"`
	}
	if err := m.users.Do(ctx, getUserQuery, map[string]any{"id": id}, &out); err != nil {
		return nil, fmt.Errorf("%w: marketplace user %s: %v", apperr.ErrResolution, id, err)
	}
	if out.User == nil {
		return nil, fmt.Errorf("%w: marketplace user %s not found", apperr.ErrResolution, id)
	}
	return out.User, nil
}

// LatestOrder returns the first order the order service lists for userID,
// or nil when there is none.
func (m *MarketplaceClient) LatestOrder(ctx context.Context, userID string) (*MarketplaceOrder, error) {
	var out struct {
		OrdersByUser []*MarketplaceOrder `json:"ordersByUser"`
	}
	if err := m.orders.Do(ctx, ordersByUserQuery, map[string]any{"userId": userID}, &out); err != nil {
		return nil, fmt.Errorf("%w: orders of user %s: %v", apperr.ErrEnrichmentUnavailable, userID, err)
	}
	if len(out.OrdersByUser) == 0 {
		return nil, nil
	}
	return out.OrdersByUser[0], nil
}

func (m *MarketplaceClient) LatestPayment(ctx context.Context, orderID string) (*MarketplacePayment, error) {
	var out struct {
		PaymentsByOrder []*MarketplacePayment `json:"paymentsByOrder"`
	}
	if err := m.payments.Do(ctx, paymentsByOrderQuery, map[string]any{"orderId": orderID}, &out); err != nil {
		return nil, fmt.Errorf("%w: payments of order %s: %v", apperr.ErrEnrichmentUnavailable, orderID, err)
	}
	if len(out.PaymentsByOrder) == 0 {
		return nil, nil
	}
	return out.PaymentsByOrder[0], nil
}

// OrderForShipment scans userID's orders for the one carrying shipmentID.
// It returns nil when no order matches.
func (m *MarketplaceClient) OrderForShipment(ctx context.Context, userID, shipmentID string) (*string, error) {
	var out struct {
		OrdersByUser []*MarketplaceOrder `json:"ordersByUser"`
	}
	if err := m.orders.Do(ctx, orderShipmentsQuery, map[string]any{"userId": userID}, &out); err != nil {
		return nil, fmt.Errorf("%w: orders of user %s: %v", apperr.ErrEnrichmentUnavailable, userID, err)
	}
	for _, o := range out.OrdersByUser {
		if o.ShipmentID != nil && o.ShipmentID.String() == shipmentID {
			id := o.OrderID.String()
			return &id, nil
		}
	}
	return nil, nil
}

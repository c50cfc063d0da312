// Package payment records marketplace payments. A successful payment marks
// the order paid and asks the order service to ship it.
package payment

import (
	"context"
	"fmt"
	"strconv"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/example/shipmesh/pkg/events"
	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/models"
	"github.com/example/shipmesh/pkg/repository"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const serviceName = "payment-service"

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
)

// tolerance is how far a payment may differ from the order total.
var tolerance = decimal.New(1, -2)

type Repository interface {
	List(ctx context.Context) ([]*models.Payment, error)
	ListByOrder(ctx context.Context, orderID int64) ([]*models.Payment, error)
	Get(ctx context.Context, id int64) (*models.Payment, error)
	Create(ctx context.Context, p *models.Payment) (*models.Payment, error)
	SetStatus(ctx context.Context, id int64, status string) (*models.Payment, error)
}

// Order is the order service's view of an order.
type Order struct {
	OrderID     graphql.ID `json:"order_id"`
	UserID      int64      `json:"user_id"`
	TotalAmount float64    `json:"total_amount"`
	Status      string     `json:"status"`
}

type Input struct {
	OrderID int64
	Amount  float64
}

type Service struct {
	repo      Repository
	orders    graphql.Caller
	publisher events.Publisher
	audit     repository.AuditLog
	logger    *zap.Logger
}

func NewService(repo Repository, orders graphql.Caller, publisher events.Publisher, audit repository.AuditLog, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		orders:    orders,
		publisher: publisher,
		audit:     audit,
		logger:    logger.Named("payment"),
	}
}

func (s *Service) fetchOrder(ctx context.Context, id int64) (*Order, error) {
	var out struct {
		Order *Order `json:"order"`
	}
	if err := s.orders.Do(ctx, getOrderQuery, map[string]any{"id": id}, &out); err != nil {
		return nil, err
	}
	return out.Order, nil
}

// Order is null whenever the order service cannot answer.
func (s *Service) Order(ctx context.Context, id int64) *Order {
	o, err := s.fetchOrder(ctx, id)
	if err != nil {
		s.logger.Debug("Order lookup failed", zap.Int64("order_id", id), zap.Error(err))
		return nil
	}
	return o
}

// checkAmount loads the order and compares totals in decimal.
func (s *Service) checkAmount(ctx context.Context, in Input) error {
	o, err := s.fetchOrder(ctx, in.OrderID)
	if err != nil || o == nil {
		if err != nil {
			s.logger.Warn("Order lookup failed", zap.Int64("order_id", in.OrderID), zap.Error(err))
		}
		return fmt.Errorf("order %d: %w", in.OrderID, apperr.ErrNotFound)
	}
	diff := decimal.NewFromFloat(in.Amount).Sub(decimal.NewFromFloat(o.TotalAmount)).Abs()
	if diff.GreaterThan(tolerance) {
		return fmt.Errorf("%w: payment amount %s does not match order total %s",
			apperr.ErrAmountMismatch, graphql.FormatFloat(in.Amount), graphql.FormatFloat(o.TotalAmount))
	}
	return nil
}

func (s *Service) record(ctx context.Context, in Input, status string) (*models.Payment, error) {
	if err := s.checkAmount(ctx, in); err != nil {
		return nil, err
	}
	p, err := s.repo.Create(ctx, &models.Payment{OrderID: in.OrderID, Amount: in.Amount, PaymentStatus: status})
	if err != nil {
		return nil, err
	}

	key := strconv.FormatInt(p.PaymentID, 10)
	s.audit.Record(ctx, &repository.AuditEntry{
		Service:  serviceName,
		Action:   events.PaymentRecorded,
		EntityID: key,
		Data:     bson.M{"order_id": p.OrderID, "amount": p.Amount, "status": status},
	})
	events.Emit(ctx, s.publisher, s.logger, events.New(events.PaymentRecorded, serviceName, strconv.FormatInt(p.OrderID, 10), map[string]any{
		"payment_id": p.PaymentID,
		"order_id":   p.OrderID,
		"amount":     p.Amount,
		"status":     status,
	}))
	return p, nil
}

// CreatePayment records a pending payment without triggering anything.
func (s *Service) CreatePayment(ctx context.Context, in Input) (*models.Payment, error) {
	return s.record(ctx, in, StatusPending)
}

// ProcessPayment records a settled payment and kicks off shipping. Only the
// amount check and the insert can fail it.
func (s *Service) ProcessPayment(ctx context.Context, in Input) (*models.Payment, error) {
	p, err := s.record(ctx, in, StatusPaid)
	if err != nil {
		return nil, err
	}
	s.settle(ctx, p)
	return p, nil
}

// UpdateStatus moves a payment between pending and paid. Moving it to paid
// triggers the same follow-up as ProcessPayment.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*models.Payment, error) {
	if status != StatusPending && status != StatusPaid {
		return nil, fmt.Errorf("%w: unknown payment status %q", apperr.ErrInvalidInput, status)
	}
	old, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if status == StatusPaid && old.PaymentStatus != StatusPaid {
		s.settle(ctx, p)
	}
	return p, nil
}

// settle tells the order service about the payment. Its failures are
// logged and never surface to the payer.
func (s *Service) settle(ctx context.Context, p *models.Payment) {
	log := s.logger.With(zap.Int64("order_id", p.OrderID), zap.Int64("payment_id", p.PaymentID))

	err := s.orders.Do(ctx, markOrderPaidMutation, map[string]any{"orderId": p.OrderID, "paymentId": p.PaymentID}, nil)
	if err != nil {
		log.Warn("Failed to mark order paid", zap.Error(err))
	}

	var out struct {
		SendOrderToShipXpress bool `json:"sendOrderToShipXpress"`
	}
	if err := s.orders.Do(ctx, sendOrderMutation, map[string]any{"orderId": p.OrderID}, &out); err != nil {
		log.Error("Error sending order to ShipXpress", zap.Error(err))
		return
	}
	log.Info("Order sent to ShipXpress", zap.Bool("shipment_created", out.SendOrderToShipXpress))
}

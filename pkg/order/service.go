// Package order is the marketplace order service. It owns the order state
// machine: every status write goes through Transition and leaves a row in
// order_transitions.
package order

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/example/shipmesh/pkg/events"
	"github.com/example/shipmesh/pkg/metrics"
	"github.com/example/shipmesh/pkg/models"
	"github.com/example/shipmesh/pkg/repository"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const serviceName = "order-service"

const (
	marketplaceShipmentType = "Marketplace Order"
	initialShipmentStatus   = "Processing"
)

type Repository interface {
	List(ctx context.Context) ([]*models.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Order, error)
	Get(ctx context.Context, id int64) (*models.Order, error)
	Items(ctx context.Context, orderID int64) ([]*models.OrderItem, error)
	Transitions(ctx context.Context, orderID int64) ([]*models.OrderTransition, error)
	Create(ctx context.Context, o *models.Order, items []*models.OrderItem) (*models.Order, error)
	Transition(ctx context.Context, id int64, to, cause string, columns map[string]any) (*models.Order, string, bool, error)
}

type Service struct {
	repo      Repository
	siblings  Siblings
	stock     StockReserver
	origin    string
	publisher events.Publisher
	audit     repository.AuditLog
	logger    *zap.Logger
}

func NewService(repo Repository, siblings Siblings, stock StockReserver, origin string, publisher events.Publisher, audit repository.AuditLog, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		siblings:  siblings,
		stock:     stock,
		origin:    origin,
		publisher: publisher,
		audit:     audit,
		logger:    logger.Named("order"),
	}
}

type ItemInput struct {
	ProductID int64
	Quantity  int
	Price     float64
}

type CreateInput struct {
	UserID int64
	Items  []ItemInput
}

// Total sums price*quantity in decimal so that amounts like 0.1+0.2 stay
// exact.
func Total(items []ItemInput) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// CreateOrder commits the order before touching stock. A reservation
// failure is returned to the caller but the order stays.
func (s *Service) CreateOrder(ctx context.Context, in CreateInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: an order needs at least one item", apperr.ErrInvalidInput)
	}
	items := make([]*models.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity of product %d must be positive", apperr.ErrInvalidInput, it.ProductID)
		}
		items = append(items, &models.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}

	o, err := s.repo.Create(ctx, &models.Order{
		UserID:      in.UserID,
		TotalAmount: Total(in.Items).InexactFloat64(),
	}, items)
	if err != nil {
		return nil, err
	}
	metrics.OrderTransitionsTotal.WithLabelValues(StatusPlaced).Inc()

	key := strconv.FormatInt(o.OrderID, 10)
	s.audit.Record(ctx, &repository.AuditEntry{
		Service:  serviceName,
		Action:   events.OrderPlaced,
		EntityID: key,
		Data:     bson.M{"user_id": o.UserID, "total_amount": o.TotalAmount, "items": len(items)},
	})
	events.Emit(ctx, s.publisher, s.logger, events.New(events.OrderPlaced, serviceName, key, map[string]any{
		"order_id":     o.OrderID,
		"user_id":      o.UserID,
		"total_amount": o.TotalAmount,
	}))

	for _, it := range in.Items {
		if err := s.stock.Reserve(ctx, it.ProductID, it.Quantity); err != nil {
			s.logger.Warn("Stock reservation failed", zap.Int64("order_id", o.OrderID), zap.Int64("product_id", it.ProductID), zap.Error(err))
			return nil, fmt.Errorf("order %d placed but stock not reserved: %w", o.OrderID, err)
		}
	}
	return o, nil
}

// transition records a status change and announces it.
func (s *Service) transition(ctx context.Context, id int64, to, cause string, columns map[string]any) (*models.Order, error) {
	o, from, changed, err := s.repo.Transition(ctx, id, to, cause, columns)
	if err != nil {
		return nil, err
	}
	if !changed {
		s.logger.Debug("Order already up to date", zap.Int64("order_id", id), zap.String("status", to))
		return o, nil
	}
	metrics.OrderTransitionsTotal.WithLabelValues(to).Inc()
	s.logger.Info("Order transitioned",
		zap.Int64("order_id", id),
		zap.String("from", from),
		zap.String("to", to),
		zap.String("cause", cause))
	events.Emit(ctx, s.publisher, s.logger, events.New(events.OrderTransitioned, serviceName, strconv.FormatInt(id, 10), map[string]any{
		"order_id": id,
		"from":     from,
		"to":       to,
		"cause":    cause,
	}))
	return o, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*models.Order, error) {
	if err := validStatus(status); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, status, CauseManual, nil)
}

func (s *Service) MarkPaid(ctx context.Context, orderID, paymentID int64) (*models.Order, error) {
	return s.transition(ctx, orderID, StatusPaid, fmt.Sprintf("%s %d", CausePayment, paymentID), nil)
}

func (s *Service) UpdateShipmentStatus(ctx context.Context, id int64, shipmentStatus string) (*models.Order, error) {
	return s.transition(ctx, id, ForShipmentStatus(shipmentStatus), CauseShipmentStatus, map[string]any{
		"shipment_status": shipmentStatus,
	})
}

// ApplyShipmentWebhook writes what ShipXpress pushed for an order.
func (s *Service) ApplyShipmentWebhook(ctx context.Context, orderID int64, shipmentID, status string) (*models.Order, error) {
	return s.transition(ctx, orderID, ForShipmentStatus(status), CauseWebhook, map[string]any{
		"shipment_status": status,
		"shipment_id":     shipmentID,
	})
}

// SendToShipXpress asks ShipXpress for a shipment covering the order and
// reports whether one was created.
func (s *Service) SendToShipXpress(ctx context.Context, orderID int64) (bool, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return false, err
	}
	items, err := s.repo.Items(ctx, orderID)
	if err != nil {
		return false, err
	}

	u, err := s.siblings.user(ctx, o.UserID)
	if err != nil {
		return false, fmt.Errorf("%w: user %d for shipment: %v", apperr.ErrResolution, o.UserID, err)
	}
	if u == nil {
		return false, fmt.Errorf("%w: user %d not found for shipment", apperr.ErrResolution, o.UserID)
	}

	weight := 0
	for _, it := range items {
		weight += it.Quantity
	}
	if weight == 0 {
		weight = 1
	}

	if _, err := s.transition(ctx, orderID, StatusShipmentRequested, CauseShipmentRequest, nil); err != nil {
		return false, err
	}

	created, err := s.siblings.createShipment(ctx, map[string]any{
		"customer_id":         o.UserID,
		"origin_address":      s.origin,
		"destination_address": destinationFor(u),
		"S_type":              marketplaceShipmentType,
		"weight":              weight,
		"status":              initialShipmentStatus,
		"vehicle_id":          nil,
	})
	if err != nil {
		return false, fmt.Errorf("failed to create shipment for order %d: %w", orderID, err)
	}

	status := created.Status
	if status == "" {
		status = initialShipmentStatus
	}
	columns := map[string]any{"shipment_status": status}
	if created.ShipmentID != "" {
		columns["shipment_id"] = created.ShipmentID.String()
	}
	if _, err := s.transition(ctx, orderID, StatusShipmentConfirmed, CauseShipmentCreated, columns); err != nil {
		return false, err
	}
	return created.ShipmentID != "", nil
}

// ShipmentStatus returns the status ShipXpress holds for the order's
// shipment, persisting it when it moved. Any failure falls back to the
// stored value.
func (s *Service) ShipmentStatus(ctx context.Context, o *models.Order) *string {
	if o.ShipmentID == nil || *o.ShipmentID == "" {
		return o.ShipmentStatus
	}
	latest, err := s.siblings.shipmentStatus(ctx, *o.ShipmentID)
	if err != nil {
		s.logger.Debug("Shipment status readback failed", zap.Int64("order_id", o.OrderID), zap.Error(err))
		return o.ShipmentStatus
	}
	if latest == "" {
		return o.ShipmentStatus
	}
	if o.ShipmentStatus == nil || *o.ShipmentStatus != latest {
		if _, err := s.transition(ctx, o.OrderID, ForShipmentStatus(latest), CauseShipmentReadback, map[string]any{
			"shipment_status": latest,
		}); err != nil {
			s.logger.Warn("Failed to persist shipment status", zap.Int64("order_id", o.OrderID), zap.Error(err))
		}
	}
	return &latest
}

// User is null whenever the user service cannot answer.
func (s *Service) User(ctx context.Context, userID int64) *User {
	u, err := s.siblings.user(ctx, userID)
	if err != nil {
		s.logger.Debug("User lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil
	}
	return u
}

func (s *Service) Product(ctx context.Context, productID int64) *Product {
	p, err := s.siblings.product(ctx, productID)
	if err != nil {
		s.logger.Debug("Product lookup failed", zap.Int64("product_id", productID), zap.Error(err))
		return nil
	}
	return p
}

// RecordWebhook keeps the raw receipt in the audit log.
func (s *Service) RecordWebhook(ctx context.Context, n ShipmentStatusWebhook, err error) {
	data := bson.M{"shipment_id": n.ShipmentID.String(), "status": n.Status, "applied": err == nil}
	if err != nil {
		data["error"] = err.Error()
		if errors.Is(err, apperr.ErrNotFound) {
			data["reason"] = "unknown_order"
		}
	}
	s.audit.Record(ctx, &repository.AuditEntry{
		Service:  serviceName,
		Action:   "shipment_webhook_received",
		EntityID: n.OrderID.String(),
		Data:     data,
	})
}

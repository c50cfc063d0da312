// Package shipment is the ShipXpress shipment subgraph. Creating a shipment
// pulls the customer, latest order and latest payment from the marketplace;
// a status change appends a tracking row and notifies the order service.
package shipment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/example/shipmesh/pkg/customer"
	"github.com/example/shipmesh/pkg/database"
	"github.com/example/shipmesh/pkg/events"
	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/metrics"
	"github.com/example/shipmesh/pkg/models"
	"github.com/example/shipmesh/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const serviceName = "shipment-service"

type Repository interface {
	List(ctx context.Context) ([]*models.Shipment, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]*models.Shipment, error)
	ListByStatus(ctx context.Context, status string) ([]*models.Shipment, error)
	ListByVehicle(ctx context.Context, vehicleID int64) ([]*models.Shipment, error)
	Get(ctx context.Context, id int64) (*models.Shipment, error)
	Customer(ctx context.Context, id int64) (*models.Customer, error)
	Create(ctx context.Context, shadow *models.Customer, sh *models.Shipment, track TrackFunc) (*models.Shipment, error)
	Update(ctx context.Context, id int64, set database.Assignments, track TrackFunc) (*models.Shipment, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type Marketplace interface {
	User(ctx context.Context, id string) (*MarketplaceUser, error)
	LatestOrder(ctx context.Context, userID string) (*MarketplaceOrder, error)
	LatestPayment(ctx context.Context, orderID string) (*MarketplacePayment, error)
	OrderForShipment(ctx context.Context, userID, shipmentID string) (*string, error)
}

type Notifier interface {
	Notify(ctx context.Context, n StatusNotification) error
}

type Service struct {
	repo      Repository
	market    Marketplace
	notifier  Notifier
	publisher events.Publisher
	audit     repository.AuditLog
	logger    *zap.Logger
}

func NewService(repo Repository, market Marketplace, notifier Notifier, publisher events.Publisher, audit repository.AuditLog, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		market:    market,
		notifier:  notifier,
		publisher: publisher,
		audit:     audit,
		logger:    logger.Named("shipment"),
	}
}

type CreateInput struct {
	CustomerID         int64
	OriginAddress      string
	DestinationAddress string
	SType              string
	Weight             float64
	Status             string
	VehicleID          *int64
}

// LocationFor maps a shipment status to the location shown on its tracking
// row.
func LocationFor(status string) string {
	switch strings.ToLower(status) {
	case "pending":
		return "Pending"
	case "processing":
		return "Processing"
	case "in transit":
		return "In transit"
	case "delivered":
		return "Delivered"
	}
	return "Order received"
}

func missingAddress(s string) bool {
	return strings.TrimSpace(s) == "" || s == "-"
}

func orEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreateShipment fails with apperr.ErrResolution, persisting nothing, when
// the customer is neither local nor known to the marketplace.
func (s *Service) CreateShipment(ctx context.Context, in CreateInput) (*models.Shipment, error) {
	customerKey := strconv.FormatInt(in.CustomerID, 10)

	cust, err := s.repo.Customer(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}
	var shadow *models.Customer
	if cust == nil {
		user, err := s.market.User(ctx, customerKey)
		if err != nil {
			s.logger.Warn("Failed to resolve customer", zap.Int64("customer_id", in.CustomerID), zap.Error(err))
			return nil, err
		}
		shadow = &models.Customer{
			CustomerID: in.CustomerID,
			Name:       user.Name,
			Email:      user.Email,
			Phone:      "-",
			Address:    "-",
			CType:      customer.MarketplaceType,
		}
		if user.Phone != nil && *user.Phone != "" {
			shadow.Phone = *user.Phone
		}
		if user.Address != nil && *user.Address != "" {
			shadow.Address = *user.Address
		}
		cust = shadow
	}

	order, payment := s.latestOrderAndPayment(ctx, customerKey)

	destination := in.DestinationAddress
	if missingAddress(destination) {
		destination = cust.Address
		if destination == "" {
			destination = "-"
		}
	}

	created, err := s.repo.Create(ctx, shadow, &models.Shipment{
		CustomerID:         in.CustomerID,
		OriginAddress:      in.OriginAddress,
		DestinationAddress: destination,
		SType:              in.SType,
		Weight:             in.Weight,
		Status:             in.Status,
		VehicleID:          in.VehicleID,
	}, func(sh *models.Shipment) *models.TrackingUpdate {
		return trackingFor(sh, in.OriginAddress, sh.Status, cust, order, payment)
	})
	if err != nil {
		s.storeFailed("create", err)
		return nil, err
	}

	s.logger.Info("Shipment created",
		zap.Int64("shipment_id", created.ShipmentID),
		zap.Int64("customer_id", created.CustomerID),
		zap.Bool("shadow_customer", shadow != nil))
	events.Emit(ctx, s.publisher, s.logger, events.New(events.ShipmentCreated, serviceName,
		strconv.FormatInt(created.ShipmentID, 10), created))
	return created, nil
}

// UpdateShipment applies set. A case-insensitive status change appends a
// tracking row in the same transaction and, after commit, sends exactly one
// webhook whose failure never fails the update.
func (s *Service) UpdateShipment(ctx context.Context, id int64, set database.Assignments) (*models.Shipment, error) {
	old, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if old == nil {
		return nil, fmt.Errorf("shipment %d: %w", id, apperr.ErrNotFound)
	}

	newStatus := assignedString(set, "status")
	statusChanged := newStatus != "" && !strings.EqualFold(newStatus, old.Status)

	if needsDestination(old, set) {
		cust, err := s.repo.Customer(ctx, old.CustomerID)
		if err != nil {
			return nil, err
		}
		if cust != nil && cust.Address != "" && cust.Address != "-" {
			set.Put("destination_address", &cust.Address)
		}
	}

	if len(set) == 0 {
		return old, nil
	}

	customerID := old.CustomerID
	if v, ok := set.Lookup("customer_id"); ok {
		if p, ok := v.(*int64); ok && p != nil {
			customerID = *p
		}
	}

	var track TrackFunc
	if statusChanged {
		cust, err := s.repo.Customer(ctx, customerID)
		if err != nil {
			return nil, err
		}
		order, payment := s.latestOrderAndPayment(ctx, strconv.FormatInt(customerID, 10))
		track = func(sh *models.Shipment) *models.TrackingUpdate {
			return trackingFor(sh, LocationFor(newStatus), newStatus, cust, order, payment)
		}
	}

	updated, err := s.repo.Update(ctx, id, set, track)
	if err != nil {
		s.storeFailed("update", err)
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("shipment %d: %w", id, apperr.ErrNotFound)
	}

	if !statusChanged {
		s.logger.Debug("Shipment updated without status change", zap.Int64("shipment_id", id), zap.String("status", updated.Status))
		return updated, nil
	}

	s.logger.Info("Shipment status changed",
		zap.Int64("shipment_id", id),
		zap.String("from", old.Status),
		zap.String("to", newStatus),
		zap.String("location", LocationFor(newStatus)))
	s.notifyStatusChange(ctx, updated, old.Status, newStatus)
	return updated, nil
}

func (s *Service) notifyStatusChange(ctx context.Context, sh *models.Shipment, from, to string) {
	shipmentKey := strconv.FormatInt(sh.ShipmentID, 10)

	orderID, err := s.market.OrderForShipment(ctx, strconv.FormatInt(sh.CustomerID, 10), shipmentKey)
	if err != nil {
		s.enrichmentUnavailable("order_match", err)
	}

	n := StatusNotification{ShipmentID: shipmentKey, OrderID: orderID, Status: to}
	err = s.notifier.Notify(ctx, n)
	metrics.WebhookDeliveriesTotal.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		s.logger.Warn("Shipment status webhook not delivered", zap.String("shipment_id", shipmentKey), zap.Error(err))
	}

	data := bson.M{"from": from, "to": to, "webhook_delivered": err == nil}
	if orderID != nil {
		data["order_id"] = *orderID
	}
	s.audit.Record(ctx, &repository.AuditEntry{
		Service:  serviceName,
		Action:   events.ShipmentStatusChanged,
		EntityID: shipmentKey,
		Data:     data,
	})
	events.Emit(ctx, s.publisher, s.logger, events.New(events.ShipmentStatusChanged, serviceName, shipmentKey, map[string]any{
		"shipment_id": shipmentKey,
		"order_id":    orderID,
		"from":        from,
		"to":          to,
	}))
}

// latestOrderAndPayment is best-effort: failures are logged, counted and
// come back as nil.
func (s *Service) latestOrderAndPayment(ctx context.Context, userID string) (*MarketplaceOrder, *MarketplacePayment) {
	order, err := s.market.LatestOrder(ctx, userID)
	if err != nil {
		s.enrichmentUnavailable("order", err)
		return nil, nil
	}
	if order == nil {
		return nil, nil
	}
	payment, err := s.market.LatestPayment(ctx, order.OrderID.String())
	if err != nil {
		s.enrichmentUnavailable("payment", err)
		return order, nil
	}
	return order, payment
}

func (s *Service) storeFailed(op string, err error) {
	s.logger.Error("Shipment write rolled back",
		zap.String("op", op),
		zap.Stringer("class", database.ClassifyError(err)),
		zap.Error(err))
}

func (s *Service) enrichmentUnavailable(source string, err error) {
	metrics.EnrichmentUnavailableTotal.WithLabelValues(source).Inc()
	s.logger.Warn("Marketplace lookup unavailable", zap.String("source", source), zap.Error(err))
}

func trackingFor(sh *models.Shipment, location, status string, cust *models.Customer, order *MarketplaceOrder, payment *MarketplacePayment) *models.TrackingUpdate {
	tu := &models.TrackingUpdate{
		ShipmentID:       sh.ShipmentID,
		Location:         location,
		Status:           status,
		RecipientAddress: orEmpty(sh.DestinationAddress),
	}
	if cust != nil {
		tu.RecipientName = orEmpty(cust.Name)
		tu.RecipientPhone = orEmpty(cust.Phone)
		if tu.RecipientAddress == nil {
			tu.RecipientAddress = orEmpty(cust.Address)
		}
	}
	if order != nil {
		tu.ItemName = orEmpty(fmt.Sprintf("Order %s - Total %s", order.OrderID, graphql.FormatFloat(order.TotalAmount)))
	}
	if payment != nil {
		tu.Barcode = orEmpty("PAY-" + payment.PaymentID.String())
	}
	return tu
}

// needsDestination reports whether the destination should be backfilled from
// the customer: it is being set to a placeholder, or left as one.
func needsDestination(old *models.Shipment, set database.Assignments) bool {
	if v, ok := set.Lookup("destination_address"); ok && present(v) {
		d := assignedString(set, "destination_address")
		return d == "" || d == "-"
	}
	return old.DestinationAddress == "" || old.DestinationAddress == "-"
}

// present is false for nil and for typed nil pointers.
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case *string:
		return t != nil
	case *int64:
		return t != nil
	case *float64:
		return t != nil
	}
	return true
}

func assignedString(set database.Assignments, column string) string {
	v, ok := set.Lookup(column)
	if !ok || !present(v) {
		return ""
	}
	switch t := v.(type) {
	case *string:
		return *t
	case string:
		return t
	}
	return fmt.Sprint(v)
}

package shipment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/example/shipmesh/pkg/database"
	"github.com/example/shipmesh/pkg/events"
	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/models"
	"github.com/example/shipmesh/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	shipments map[int64]*models.Shipment
	customers map[int64]*models.Customer
	tracking  []*models.TrackingUpdate
	shadows   []*models.Customer
	updates   []database.Assignments
	failNext  error
	nextID    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		shipments: map[int64]*models.Shipment{
			5: {ShipmentID: 5, CustomerID: 7, OriginAddress: "Warehouse", DestinationAddress: "Jl. Asia Afrika 8", SType: "Regular", Weight: 2, Status: "pending"},
			6: {ShipmentID: 6, CustomerID: 7, OriginAddress: "Warehouse", DestinationAddress: "-", SType: "Regular", Weight: 1, Status: "Processing"},
		},
		customers: map[int64]*models.Customer{
			7: {CustomerID: 7, Name: "Rina", Email: "rina@example.com", Phone: "0812", Address: "Jl. Asia Afrika 8", CType: "Regular"},
		},
		nextID: 100,
	}
}

func (f *fakeRepo) List(ctx context.Context) ([]*models.Shipment, error) { return nil, nil }

func (f *fakeRepo) ListByCustomer(ctx context.Context, customerID int64) ([]*models.Shipment, error) {
	var out []*models.Shipment
	for _, sh := range f.shipments {
		if sh.CustomerID == customerID {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListByStatus(ctx context.Context, status string) ([]*models.Shipment, error) {
	return nil, nil
}

func (f *fakeRepo) ListByVehicle(ctx context.Context, vehicleID int64) ([]*models.Shipment, error) {
	return nil, nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (*models.Shipment, error) {
	if sh, ok := f.shipments[id]; ok {
		cp := *sh
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRepo) Customer(ctx context.Context, id int64) (*models.Customer, error) {
	return f.customers[id], nil
}

func (f *fakeRepo) Create(ctx context.Context, shadow *models.Customer, sh *models.Shipment, track TrackFunc) (*models.Shipment, error) {
	if f.failNext != nil {
		return nil, f.failNext
	}
	if shadow != nil {
		f.customers[shadow.CustomerID] = shadow
		f.shadows = append(f.shadows, shadow)
	}
	f.nextID++
	sh.ShipmentID = f.nextID
	sh.CreatedAt = time.Now()
	f.shipments[sh.ShipmentID] = sh
	if tu := track(sh); tu != nil {
		f.tracking = append(f.tracking, tu)
	}
	return sh, nil
}

func (f *fakeRepo) Update(ctx context.Context, id int64, set database.Assignments, track TrackFunc) (*models.Shipment, error) {
	f.updates = append(f.updates, set)
	sh, ok := f.shipments[id]
	if !ok {
		return nil, nil
	}
	for _, a := range set {
		switch a.Column {
		case "status":
			sh.Status = *a.Value.(*string)
		case "destination_address":
			sh.DestinationAddress = *a.Value.(*string)
		case "vehicle_id":
			sh.VehicleID = a.Value.(*int64)
		}
	}
	if track != nil {
		if tu := track(sh); tu != nil {
			f.tracking = append(f.tracking, tu)
		}
	}
	cp := *sh
	return &cp, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) (bool, error) {
	_, ok := f.shipments[id]
	delete(f.shipments, id)
	return ok, nil
}

type fakeMarket struct {
	users      map[string]*MarketplaceUser
	orders     map[string][]*MarketplaceOrder
	payments   map[string][]*MarketplacePayment
	ordersErr  error
	userCalls  int
	matchCalls int
}

func (f *fakeMarket) User(ctx context.Context, id string) (*MarketplaceUser, error) {
	f.userCalls++
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, apperr.ErrResolution
}

func (f *fakeMarket) LatestOrder(ctx context.Context, userID string) (*MarketplaceOrder, error) {
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	if list := f.orders[userID]; len(list) > 0 {
		return list[0], nil
	}
	return nil, nil
}

func (f *fakeMarket) LatestPayment(ctx context.Context, orderID string) (*MarketplacePayment, error) {
	if list := f.payments[orderID]; len(list) > 0 {
		return list[0], nil
	}
	return nil, nil
}

func (f *fakeMarket) OrderForShipment(ctx context.Context, userID, shipmentID string) (*string, error) {
	f.matchCalls++
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	for _, o := range f.orders[userID] {
		if o.ShipmentID != nil && o.ShipmentID.String() == shipmentID {
			id := o.OrderID.String()
			return &id, nil
		}
	}
	return nil, nil
}

type fakeNotifier struct {
	sent []StatusNotification
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, n StatusNotification) error {
	f.sent = append(f.sent, n)
	return f.err
}

type recordingAudit struct {
	repository.NopAuditLog
	entries []*repository.AuditEntry
}

func (r *recordingAudit) Record(ctx context.Context, e *repository.AuditEntry) {
	r.entries = append(r.entries, e)
}

func strPtr(s string) *string { return &s }

func shipmentRef(id string) *graphql.ID {
	v := graphql.ID(id)
	return &v
}

func newMarket() *fakeMarket {
	return &fakeMarket{
		users: map[string]*MarketplaceUser{
			"42": {UserID: "42", Name: "Dewi", Email: "dewi@example.com", Address: strPtr("Jl. Braga 3, Bandung")},
		},
		orders: map[string][]*MarketplaceOrder{
			"7":  {{OrderID: "31", TotalAmount: 150000, Status: "shipment_confirmed", ShipmentID: shipmentRef("5")}},
			"42": {{OrderID: "12", TotalAmount: 12.5, Status: "paid"}},
		},
		payments: map[string][]*MarketplacePayment{
			"31": {{PaymentID: "9", Amount: 150000, PaymentStatus: "paid"}},
			"12": {{PaymentID: "4", Amount: 12.5, PaymentStatus: "paid"}},
		},
	}
}

type fixture struct {
	repo     *fakeRepo
	market   *fakeMarket
	notifier *fakeNotifier
	audit    *recordingAudit
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{repo: newFakeRepo(), market: newMarket(), notifier: &fakeNotifier{}, audit: &recordingAudit{}}
	f.svc = NewService(f.repo, f.market, f.notifier, events.NopPublisher{}, f.audit, zap.NewNop())
	return f
}

func TestCreateShipmentShadowsMarketplaceCustomer(t *testing.T) {
	f := newFixture()

	created, err := f.svc.CreateShipment(context.Background(), CreateInput{
		CustomerID: 42, OriginAddress: "Warehouse", DestinationAddress: " ", SType: "Marketplace Order", Weight: 3, Status: "Processing",
	})
	require.NoError(t, err)

	require.Len(t, f.repo.shadows, 1)
	shadow := f.repo.shadows[0]
	assert.Equal(t, int64(42), shadow.CustomerID)
	assert.Equal(t, "Marketplace", shadow.CType)
	assert.Equal(t, "-", shadow.Phone)
	assert.Equal(t, "Jl. Braga 3, Bandung", created.DestinationAddress)

	require.Len(t, f.repo.tracking, 1)
	tu := f.repo.tracking[0]
	assert.Equal(t, "Warehouse", tu.Location)
	assert.Equal(t, "Processing", tu.Status)
	assert.Equal(t, "Dewi", *tu.RecipientName)
	assert.Equal(t, "-", *tu.RecipientPhone)
	assert.Equal(t, "Jl. Braga 3, Bandung", *tu.RecipientAddress)
	assert.Equal(t, "Order 12 - Total 12.5", *tu.ItemName)
	assert.Equal(t, "PAY-4", *tu.Barcode)
}

func TestCreateShipmentWithLocalCustomerSkipsMarketplaceUser(t *testing.T) {
	f := newFixture()

	created, err := f.svc.CreateShipment(context.Background(), CreateInput{
		CustomerID: 7, OriginAddress: "Gudang Cikarang", DestinationAddress: "Jl. Dago 1", SType: "Express", Weight: 1, Status: "pending",
	})
	require.NoError(t, err)

	assert.Zero(t, f.market.userCalls)
	assert.Empty(t, f.repo.shadows)
	assert.Equal(t, "Jl. Dago 1", created.DestinationAddress)
	assert.Equal(t, "Order 31 - Total 150000", *f.repo.tracking[0].ItemName)
}

func TestCreateShipmentUnresolvableCustomerPersistsNothing(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateShipment(context.Background(), CreateInput{CustomerID: 404, OriginAddress: "W", DestinationAddress: "X", SType: "R", Weight: 1, Status: "pending"})

	assert.ErrorIs(t, err, apperr.ErrResolution)
	assert.Len(t, f.repo.shipments, 2)
	assert.Empty(t, f.repo.tracking)
	assert.Empty(t, f.repo.shadows)
}

func TestCreateShipmentDegradesWhenEnrichmentUnavailable(t *testing.T) {
	f := newFixture()
	f.market.ordersErr = errors.New("order service down")

	_, err := f.svc.CreateShipment(context.Background(), CreateInput{CustomerID: 7, OriginAddress: "W", DestinationAddress: "-", SType: "R", Weight: 1, Status: "pending"})
	require.NoError(t, err)

	tu := f.repo.tracking[0]
	assert.Nil(t, tu.ItemName)
	assert.Nil(t, tu.Barcode)
	assert.Equal(t, "Jl. Asia Afrika 8", *tu.RecipientAddress)
}

func TestUpdateShipmentStatusChangeScenario(t *testing.T) {
	f := newFixture()

	var set database.Assignments
	set.Set("status", strPtr("In Transit"))
	updated, err := f.svc.UpdateShipment(context.Background(), 5, set)
	require.NoError(t, err)
	assert.Equal(t, "In Transit", updated.Status)

	require.Len(t, f.repo.tracking, 1)
	tu := f.repo.tracking[0]
	assert.Equal(t, "In transit", tu.Location)
	assert.Equal(t, "In Transit", tu.Status)
	assert.Equal(t, "PAY-9", *tu.Barcode)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, StatusNotification{ShipmentID: "5", OrderID: strPtr("31"), Status: "In Transit"}, f.notifier.sent[0])

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "5", f.audit.entries[0].EntityID)
}

func TestUpdateShipmentSameStatusDifferentCaseIsNoChange(t *testing.T) {
	f := newFixture()

	var set database.Assignments
	set.Set("status", strPtr("PENDING"))
	_, err := f.svc.UpdateShipment(context.Background(), 5, set)
	require.NoError(t, err)

	assert.Len(t, f.repo.updates, 1)
	assert.Empty(t, f.repo.tracking)
	assert.Empty(t, f.notifier.sent)
}

func TestUpdateShipmentWebhookFailureDoesNotFailUpdate(t *testing.T) {
	f := newFixture()
	f.notifier.err = apperr.ErrWebhookDelivery
	f.market.ordersErr = errors.New("order service down")

	var set database.Assignments
	set.Set("status", strPtr("Delivered"))
	updated, err := f.svc.UpdateShipment(context.Background(), 5, set)
	require.NoError(t, err)
	assert.Equal(t, "Delivered", updated.Status)

	require.Len(t, f.notifier.sent, 1)
	assert.Nil(t, f.notifier.sent[0].OrderID)
	assert.Equal(t, "Delivered", f.repo.tracking[0].Location)
}

func TestUpdateShipmentBackfillsPlaceholderDestination(t *testing.T) {
	f := newFixture()

	var set database.Assignments
	set.Set("vehicle_id", (*int64)(nil))
	updated, err := f.svc.UpdateShipment(context.Background(), 6, set)
	require.NoError(t, err)
	assert.Equal(t, "Jl. Asia Afrika 8", updated.DestinationAddress)

	set = nil
	set.Set("destination_address", strPtr("-"))
	updated, err = f.svc.UpdateShipment(context.Background(), 5, set)
	require.NoError(t, err)
	assert.Equal(t, "Jl. Asia Afrika 8", updated.DestinationAddress)
}

func TestUpdateShipmentEdgeCases(t *testing.T) {
	f := newFixture()

	_, err := f.svc.UpdateShipment(context.Background(), 99, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	unchanged, err := f.svc.UpdateShipment(context.Background(), 5, nil)
	require.NoError(t, err)
	assert.Equal(t, "pending", unchanged.Status)
	assert.Empty(t, f.repo.updates)
}

func TestLocationFor(t *testing.T) {
	tests := map[string]string{
		"pending":    "Pending",
		"PROCESSING": "Processing",
		"In Transit": "In transit",
		"delivered":  "Delivered",
		"Selesai":    "Order received",
		"":           "Order received",
	}
	for status, want := range tests {
		assert.Equal(t, want, LocationFor(status), status)
	}
}

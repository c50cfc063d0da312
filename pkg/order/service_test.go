package order

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/example/shipmesh/pkg/database/sqlitetest"
	"github.com/example/shipmesh/pkg/events"
	"github.com/example/shipmesh/pkg/models"
	"github.com/example/shipmesh/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type call struct {
	query string
	vars  map[string]any
}

// fakeSibling answers each operation with canned JSON data.
type fakeSibling struct {
	mu     sync.Mutex
	calls  []call
	handle func(query string, vars map[string]any) (string, error)
}

func (f *fakeSibling) Do(ctx context.Context, query string, vars map[string]any, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{query: query, vars: vars})
	f.mu.Unlock()

	data, err := f.handle(query, vars)
	if err != nil || out == nil {
		return err
	}
	return json.Unmarshal([]byte(data), out)
}

func (f *fakeSibling) callsTo(query string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.query == query {
			out = append(out, c)
		}
	}
	return out
}

type recordingAudit struct {
	repository.NopAuditLog
	entries []*repository.AuditEntry
}

func (r *recordingAudit) Record(ctx context.Context, e *repository.AuditEntry) {
	r.entries = append(r.entries, e)
}

type recordingPublisher struct {
	events.NopPublisher
	published []events.Event
}

func (r *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	r.published = append(r.published, e)
	return nil
}

func (r *recordingPublisher) count(eventType string) int {
	n := 0
	for _, e := range r.published {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

type fixture struct {
	store      *Store
	users      *fakeSibling
	products   *fakeSibling
	shipxpress *fakeSibling
	audit      *recordingAudit
	events     *recordingPublisher
	svc        *Service
}

func newFixture(t *testing.T, strategy string) *fixture {
	t.Helper()
	f := &fixture{
		store: NewStore(sqlitetest.New(t, &models.Order{}, &models.OrderItem{}, &models.OrderTransition{})),
		users: &fakeSibling{handle: func(string, map[string]any) (string, error) {
			return `{"user":{"user_id":"7","name":"Dewi","email":"dewi@example.com","address":"Jl. Braga 3"}}`, nil
		}},
		products: &fakeSibling{handle: func(query string, _ map[string]any) (string, error) {
			if query == getProductStockQuery {
				return `{"product":{"product_id":"1","stock":10}}`, nil
			}
			return `{"product":{"product_id":"1","name":"Kopi","price":85000}}`, nil
		}},
		shipxpress: &fakeSibling{handle: func(query string, _ map[string]any) (string, error) {
			if query == shipmentStatusQuery {
				return `{"shipment":{"status":"In Transit"}}`, nil
			}
			return `{"createShipment":{"shipment_id":"12","status":"Processing"}}`, nil
		}},
		audit:  &recordingAudit{},
		events: &recordingPublisher{},
	}
	stock, err := NewStockReserver(strategy, f.products)
	require.NoError(t, err)
	f.svc = NewService(f.store, Siblings{Users: f.users, Products: f.products, ShipXpress: f.shipxpress},
		stock, "Warehouse", f.events, f.audit, zap.NewNop())
	return f
}

func (f *fixture) place(t *testing.T, items ...ItemInput) *models.Order {
	t.Helper()
	o, err := f.svc.CreateOrder(context.Background(), CreateInput{UserID: 7, Items: items})
	require.NoError(t, err)
	return o
}

func transitionStatuses(t *testing.T, s *Store, orderID int64) []string {
	t.Helper()
	ts, err := s.Transitions(context.Background(), orderID)
	require.NoError(t, err)
	var out []string
	for _, tr := range ts {
		out = append(out, tr.ToStatus)
	}
	return out
}

func TestCreateOrderTotalsAndReservesStock(t *testing.T) {
	f := newFixture(t, "read_then_write")

	o := f.place(t, ItemInput{ProductID: 1, Quantity: 3, Price: 0.1}, ItemInput{ProductID: 1, Quantity: 1, Price: 0.2})

	assert.Equal(t, 0.5, o.TotalAmount)
	assert.Equal(t, StatusPlaced, o.Status)
	assert.Equal(t, []string{StatusPlaced}, transitionStatuses(t, f.store, o.OrderID))

	items, err := f.store.Items(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	writes := f.products.callsTo(updateStockMutation)
	require.Len(t, writes, 2)
	assert.Equal(t, 7, writes[0].vars["stock"])
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, events.OrderPlaced, f.audit.entries[0].Action)
}

func TestTotalIsExact(t *testing.T) {
	total := Total([]ItemInput{{Quantity: 3, Price: 19.99}, {Quantity: 1, Price: 0.03}})
	assert.Equal(t, "60", total.String())
}

func TestCreateOrderInsufficientStockKeepsOrder(t *testing.T) {
	f := newFixture(t, "read_then_write")

	_, err := f.svc.CreateOrder(context.Background(), CreateInput{UserID: 7, Items: []ItemInput{{ProductID: 1, Quantity: 11, Price: 5}}})

	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Empty(t, f.products.callsTo(updateStockMutation))
	orders, err := f.store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestCreateOrderRejectsEmptyOrders(t *testing.T) {
	f := newFixture(t, "atomic")

	_, err := f.svc.CreateOrder(context.Background(), CreateInput{UserID: 7})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.svc.CreateOrder(context.Background(), CreateInput{UserID: 7, Items: []ItemInput{{ProductID: 1, Quantity: 0, Price: 1}}})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestCreateOrderAtomicUsesDecrement(t *testing.T) {
	f := newFixture(t, "atomic")

	f.place(t, ItemInput{ProductID: 1, Quantity: 2, Price: 5})

	calls := f.products.callsTo(decrementStockMutation)
	require.Len(t, calls, 1)
	assert.Equal(t, 2, calls[0].vars["quantity"])
	assert.Empty(t, f.products.callsTo(getProductStockQuery))
}

func TestSendToShipXpress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "atomic")
	o := f.place(t, ItemInput{ProductID: 1, Quantity: 2, Price: 5}, ItemInput{ProductID: 2, Quantity: 1, Price: 5})

	ok, err := f.svc.SendToShipXpress(ctx, o.OrderID)
	require.NoError(t, err)
	assert.True(t, ok)

	calls := f.shipxpress.callsTo(createShipmentMutation)
	require.Len(t, calls, 1)
	vars := calls[0].vars
	assert.Equal(t, int64(7), vars["customer_id"])
	assert.Equal(t, "Warehouse", vars["origin_address"])
	assert.Equal(t, "Jl. Braga 3", vars["destination_address"])
	assert.Equal(t, "Marketplace Order", vars["S_type"])
	assert.Equal(t, 3, vars["weight"])
	assert.Equal(t, "Processing", vars["status"])
	assert.Contains(t, vars, "vehicle_id")
	assert.Nil(t, vars["vehicle_id"])

	got, err := f.store.Get(ctx, o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusShipmentConfirmed, got.Status)
	assert.Equal(t, "12", *got.ShipmentID)
	assert.Equal(t, "Processing", *got.ShipmentStatus)
	assert.Equal(t, []string{StatusPlaced, StatusShipmentRequested, StatusShipmentConfirmed}, transitionStatuses(t, f.store, o.OrderID))
}

func TestSendToShipXpressMissingAddressAndWeight(t *testing.T) {
	f := newFixture(t, "atomic")
	f.users.handle = func(string, map[string]any) (string, error) {
		return `{"user":{"user_id":"7","name":"Dewi","email":"dewi@example.com","address":"  "}}`, nil
	}
	o, _, _, err := f.store.Transition(context.Background(), f.place(t, ItemInput{ProductID: 1, Quantity: 1, Price: 1}).OrderID, StatusPaid, CausePayment, nil)
	require.NoError(t, err)
	require.NoError(t, f.store.db.Where("order_id = ?", o.OrderID).Delete(&models.OrderItem{}).Error)

	_, err = f.svc.SendToShipXpress(context.Background(), o.OrderID)
	require.NoError(t, err)

	vars := f.shipxpress.callsTo(createShipmentMutation)[0].vars
	assert.Equal(t, "-", vars["destination_address"])
	assert.Equal(t, 1, vars["weight"])
}

func TestSendToShipXpressUnknownUser(t *testing.T) {
	f := newFixture(t, "atomic")
	f.users.handle = func(string, map[string]any) (string, error) { return `{"user":null}`, nil }
	o := f.place(t, ItemInput{ProductID: 1, Quantity: 1, Price: 1})

	ok, err := f.svc.SendToShipXpress(context.Background(), o.OrderID)

	assert.False(t, ok)
	assert.ErrorIs(t, err, apperr.ErrResolution)
	assert.Empty(t, f.shipxpress.callsTo(createShipmentMutation))
	assert.Equal(t, []string{StatusPlaced}, transitionStatuses(t, f.store, o.OrderID))
}

func TestSendToShipXpressFailureLeavesRequest(t *testing.T) {
	f := newFixture(t, "atomic")
	f.shipxpress.handle = func(string, map[string]any) (string, error) { return "", errors.New("connection refused") }
	o := f.place(t, ItemInput{ProductID: 1, Quantity: 1, Price: 1})

	_, err := f.svc.SendToShipXpress(context.Background(), o.OrderID)

	require.Error(t, err)
	got, err := f.store.Get(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusShipmentRequested, got.Status)
	assert.Nil(t, got.ShipmentID)
}

func TestSendToShipXpressUnknownOrder(t *testing.T) {
	f := newFixture(t, "atomic")
	_, err := f.svc.SendToShipXpress(context.Background(), 404)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestShipmentStatusReadback(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "atomic")
	o := f.place(t, ItemInput{ProductID: 1, Quantity: 1, Price: 1})

	assert.Nil(t, f.svc.ShipmentStatus(ctx, o))
	assert.Empty(t, f.shipxpress.calls)

	o, err := f.svc.ApplyShipmentWebhook(ctx, o.OrderID, "12", "Processing")
	require.NoError(t, err)

	got := f.svc.ShipmentStatus(ctx, o)
	require.NotNil(t, got)
	assert.Equal(t, "In Transit", *got)
	stored, err := f.store.Get(ctx, o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "In Transit", *stored.ShipmentStatus)
	assert.Equal(t, StatusInTransit, stored.Status)

	f.shipxpress.handle = func(string, map[string]any) (string, error) { return "", errors.New("timeout") }
	assert.Equal(t, "In Transit", *f.svc.ShipmentStatus(ctx, stored))
}

func TestUpdateStatusAcceptsOnlyKnownStates(t *testing.T) {
	f := newFixture(t, "atomic")
	o := f.place(t, ItemInput{ProductID: 1, Quantity: 1, Price: 1})

	_, err := f.svc.UpdateStatus(context.Background(), o.OrderID, "Dipesan")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	got, err := f.svc.UpdateStatus(context.Background(), o.OrderID, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
}

func TestMarkPaidRecordsCause(t *testing.T) {
	f := newFixture(t, "atomic")
	o := f.place(t, ItemInput{ProductID: 1, Quantity: 1, Price: 1})

	_, err := f.svc.MarkPaid(context.Background(), o.OrderID, 9)
	require.NoError(t, err)

	ts, err := f.store.Transitions(context.Background(), o.OrderID)
	require.NoError(t, err)
	require.Len(t, ts, 2)
	assert.Equal(t, StatusPlaced, ts[1].FromStatus)
	assert.Equal(t, StatusPaid, ts[1].ToStatus)
	assert.Equal(t, "payment 9", ts[1].Cause)
}

func TestTransitionWithoutChangeWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "atomic")
	o := f.place(t, ItemInput{ProductID: 1, Quantity: 1, Price: 1})

	_, from, changed, err := f.store.Transition(ctx, o.OrderID, StatusPlaced, CauseManual, nil)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, StatusPlaced, from)

	_, _, changed, err = f.store.Transition(ctx, o.OrderID, StatusInTransit, CauseWebhook, map[string]any{"shipment_status": "In Transit"})
	require.NoError(t, err)
	assert.True(t, changed)
	_, _, changed, err = f.store.Transition(ctx, o.OrderID, StatusInTransit, CauseWebhook, map[string]any{"shipment_status": "Out for delivery"})
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Equal(t, []string{StatusPlaced, StatusInTransit, StatusInTransit}, transitionStatuses(t, f.store, o.OrderID))
}

func TestForShipmentStatus(t *testing.T) {
	assert.Equal(t, StatusCompleted, ForShipmentStatus("Delivered"))
	assert.Equal(t, StatusCompleted, ForShipmentStatus("Selesai"))
	assert.Equal(t, StatusInTransit, ForShipmentStatus("delivered"))
	assert.Equal(t, StatusInTransit, ForShipmentStatus("In Transit"))
	assert.Equal(t, StatusInTransit, ForShipmentStatus(""))
}

func TestNewStockReserverRejectsUnknownStrategy(t *testing.T) {
	_, err := NewStockReserver("optimistic", &fakeSibling{})
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "optimistic"))
}

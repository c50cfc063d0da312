package order

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/shipmesh/pkg/events"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func postWebhook(t *testing.T, f *fixture, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST(WebhookPath, WebhookHandler(f.svc, zap.NewNop()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestWebhookAppliesStatus(t *testing.T) {
	f := newFixture(t, "atomic")
	o := f.place(t, ItemInput{ProductID: 1, Quantity: 1, Price: 1})

	w := postWebhook(t, f, `{"shipmentId":"5","orderId":"1","status":"In Transit"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"Shipment status updated"}`, w.Body.String())

	got, err := f.store.Get(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusInTransit, got.Status)
	assert.Equal(t, "5", *got.ShipmentID)
	assert.Equal(t, "In Transit", *got.ShipmentStatus)

	w = postWebhook(t, f, `{"shipmentId":5,"orderId":1,"status":"Delivered"}`)
	require.Equal(t, http.StatusOK, w.Code)
	got, err = f.store.Get(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
}

func TestWebhookRedeliveryIsIdempotent(t *testing.T) {
	f := newFixture(t, "atomic")
	o := f.place(t, ItemInput{ProductID: 1, Quantity: 1, Price: 1})
	body := `{"shipmentId":"5","orderId":"1","status":"Delivered"}`

	require.Equal(t, http.StatusOK, postWebhook(t, f, body).Code)
	first, err := f.store.Get(context.Background(), o.OrderID)
	require.NoError(t, err)
	transitions := transitionStatuses(t, f.store, o.OrderID)
	emitted := f.events.count(events.OrderTransitioned)

	require.Equal(t, http.StatusOK, postWebhook(t, f, body).Code)
	second, err := f.store.Get(context.Background(), o.OrderID)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, *first.ShipmentStatus, *second.ShipmentStatus)
	assert.Equal(t, *first.ShipmentID, *second.ShipmentID)
	assert.Equal(t, []string{StatusPlaced, StatusCompleted}, transitions)
	assert.Equal(t, transitions, transitionStatuses(t, f.store, o.OrderID))
	assert.Equal(t, emitted, f.events.count(events.OrderTransitioned))

	// A different status for the same shipment is a real change again.
	require.Equal(t, http.StatusOK, postWebhook(t, f, `{"shipmentId":"5","orderId":"1","status":"Selesai"}`).Code)
	assert.Equal(t, []string{StatusPlaced, StatusCompleted, StatusCompleted}, transitionStatuses(t, f.store, o.OrderID))
	assert.Equal(t, emitted+1, f.events.count(events.OrderTransitioned))
}

func TestWebhookRejectsIncompletePayloads(t *testing.T) {
	f := newFixture(t, "atomic")
	f.place(t, ItemInput{ProductID: 1, Quantity: 1, Price: 1})

	for _, body := range []string{
		`{"shipmentId":"5","status":"Delivered"}`,
		`{"shipmentId":"5","orderId":null,"status":"Delivered"}`,
		`{"orderId":"1","status":"Delivered"}`,
		`{"shipmentId":"5","orderId":"1","status":""}`,
		`not json`,
	} {
		w := postWebhook(t, f, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Contains(t, w.Body.String(), "error")
	}
	assert.Equal(t, []string{StatusPlaced}, transitionStatuses(t, f.store, 1))
}

func TestWebhookUnknownOrder(t *testing.T) {
	f := newFixture(t, "atomic")

	w := postWebhook(t, f, `{"shipmentId":"5","orderId":"77","status":"Delivered"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "77", f.audit.entries[0].EntityID)
	assert.Equal(t, false, f.audit.entries[0].Data["applied"])
}

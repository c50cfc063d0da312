package order

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/example/shipmesh/pkg/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, s *graphql.Schema, query string) string {
	t.Helper()
	resp := s.Execute(context.Background(), graphql.Request{Query: query})
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(b)
}

func TestSchemaOrderLifecycle(t *testing.T) {
	f := newFixture(t, "atomic")
	schema, err := NewSchema(f.store, f.svc)
	require.NoError(t, err)

	out := execute(t, schema, `mutation {
  createOrder(input: {user_id: 7, items: [{product_id: 1, quantity: 2, price: 42500}]}) {
    order_id total_amount status shipment_status
    user { name }
    items { product_id quantity product { name } }
  }
}`)
	assert.JSONEq(t, `{"data":{"createOrder":{
		"order_id":"1","total_amount":85000,"status":"order_placed","shipment_status":null,
		"user":{"name":"Dewi"},
		"items":[{"product_id":1,"quantity":2,"product":{"name":"Kopi"}}]
	}}}`, out)

	out = execute(t, schema, `mutation { markOrderPaid(orderId: "1", paymentId: "3") { status } }`)
	assert.JSONEq(t, `{"data":{"markOrderPaid":{"status":"paid"}}}`, out)

	out = execute(t, schema, `mutation { sendOrderToShipXpress(orderId: "1") }`)
	assert.JSONEq(t, `{"data":{"sendOrderToShipXpress":true}}`, out)

	out = execute(t, schema, `{ orderTransitions(orderId: "1") { from_status to_status cause } }`)
	assert.JSONEq(t, `{"data":{"orderTransitions":[
		{"from_status":"","to_status":"order_placed","cause":"order_created"},
		{"from_status":"order_placed","to_status":"paid","cause":"payment 3"},
		{"from_status":"paid","to_status":"shipment_requested","cause":"shipment_request"},
		{"from_status":"shipment_requested","to_status":"shipment_confirmed","cause":"shipment_created"}
	]}}`, out)
}

func TestSchemaUserUnavailableIsNull(t *testing.T) {
	f := newFixture(t, "atomic")
	f.users.handle = func(string, map[string]any) (string, error) { return `{"user":null}`, nil }
	f.place(t, ItemInput{ProductID: 1, Quantity: 1, Price: 1})
	schema, err := NewSchema(f.store, f.svc)
	require.NoError(t, err)

	out := execute(t, schema, `{ ordersByUser(userId: "7") { order_id user { name } } }`)
	assert.JSONEq(t, `{"data":{"ordersByUser":[{"order_id":"1","user":null}]}}`, out)
}

func TestSchemaUnknownOrder(t *testing.T) {
	f := newFixture(t, "atomic")
	schema, err := NewSchema(f.store, f.svc)
	require.NoError(t, err)

	resp := schema.Execute(context.Background(), graphql.Request{Query: `{ order(id: "8") { order_id } }`})
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "NOT_FOUND", resp.Errors[0].Extensions["code"])
}

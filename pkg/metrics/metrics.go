package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GraphQLOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipmesh_graphql_operations_total",
		Help: "GraphQL operations served, by operation type and outcome.",
	},
		[]string{"operation", "outcome"},
	)

	SiblingCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipmesh_sibling_calls_total",
		Help: "Outbound GraphQL calls to sibling services.",
	},
		[]string{"operation", "outcome"},
	)

	EnrichmentUnavailableTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipmesh_enrichment_unavailable_total",
		Help: "Optional sibling lookups that degraded to null data.",
	},
		[]string{"source"},
	)

	WebhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipmesh_webhook_deliveries_total",
		Help: "Shipment status webhooks sent to the order service.",
	},
		[]string{"outcome"},
	)

	WebhooksReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipmesh_webhooks_received_total",
		Help: "Shipment status webhooks accepted by the order service.",
	},
		[]string{"order_status"},
	)

	StockDecrementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipmesh_stock_decrements_total",
		Help: "Post-commit stock decrements, by strategy and outcome.",
	},
		[]string{"strategy", "outcome"},
	)

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipmesh_order_transitions_total",
		Help: "Recorded order state transitions.",
	},
		[]string{"to"},
	)

	SubgraphFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipmesh_gateway_subgraph_fetches_total",
		Help: "Gateway requests sent to subgraphs.",
	},
		[]string{"subgraph", "outcome"},
	)
)

// Outcome turns an error into the label value used across counters.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

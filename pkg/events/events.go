// Package events publishes choreography events to Kafka. Publishing is
// optional: without brokers the NopPublisher swallows everything.
package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	OrderPlaced           = "order.placed"
	OrderTransitioned     = "order.transitioned"
	PaymentRecorded       = "payment.recorded"
	ShipmentCreated       = "shipment.created"
	ShipmentStatusChanged = "shipment.status_changed"
)

// Event is the envelope written to the topic. AggregateID doubles as the
// message key so one aggregate's events share a partition.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	AggregateID string    `json:"aggregate_id"`
	Source      string    `json:"source"`
	OccurredAt  time.Time `json:"occurred_at"`
	Payload     any       `json:"payload"`
}

func New(eventType, source, aggregateID string, payload any) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		AggregateID: aggregateID,
		Source:      source,
		OccurredAt:  time.Now().UTC(),
		Payload:     payload,
	}
}

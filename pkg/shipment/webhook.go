package shipment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/shipmesh/pkg/apperr"
	"go.uber.org/zap"
)

const defaultWebhookTimeout = 30 * time.Second

var errDeliveryExpired = errors.New("delivery expired before it was sent")

// StatusNotification is the body posted to the order service's
// /webhook/shipment-status endpoint.
type StatusNotification struct {
	ShipmentID string  `json:"shipmentId"`
	OrderID    *string `json:"orderId"`
	Status     string  `json:"status"`
}

// Messages
type deliverNotification struct {
	Notification StatusNotification
	// Deadline is when the caller stops waiting. Zero means no deadline.
	Deadline time.Time
}

type deliveryResult struct {
	Err error
}

// webhookActor posts notifications one at a time, in mailbox order.
type webhookActor struct {
	url    string
	http   *http.Client
	logger *zap.Logger
}

func (a *webhookActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *deliverNotification:
		if !msg.Deadline.IsZero() && time.Now().After(msg.Deadline) {
			a.logger.Warn("Webhook delivery expired in queue",
				zap.String("shipment_id", msg.Notification.ShipmentID),
				zap.String("status", msg.Notification.Status),
				zap.Time("deadline", msg.Deadline))
			ctx.Respond(&deliveryResult{Err: errDeliveryExpired})
			return
		}

		err := a.post(msg.Notification)
		if err != nil {
			a.logger.Warn("Webhook delivery failed",
				zap.String("shipment_id", msg.Notification.ShipmentID),
				zap.String("status", msg.Notification.Status),
				zap.Error(err))
		} else {
			a.logger.Info("Webhook delivered",
				zap.String("shipment_id", msg.Notification.ShipmentID),
				zap.String("status", msg.Notification.Status))
		}
		ctx.Respond(&deliveryResult{Err: err})

	case *actor.Started:
		a.logger.Info("Webhook actor started", zap.String("url", a.url))

	case *actor.Stopped:
		a.logger.Info("Webhook actor stopped")
	}
}

func (a *webhookActor) post(n StatusNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	resp, err := a.http.Post(a.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %s: %s", a.url, resp.Status, bytes.TrimSpace(detail))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// WebhookDispatcher hands notifications to a single webhook actor and waits
// for its answer. Deliveries from one process are serialized; nothing orders
// them across processes.
type WebhookDispatcher struct {
	system  *actor.ActorSystem
	pid     *actor.PID
	timeout time.Duration
}

func NewWebhookDispatcher(url string, timeout time.Duration, logger *zap.Logger) (*WebhookDispatcher, error) {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}

	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return &webhookActor{
			url:    url,
			http:   &http.Client{Timeout: timeout},
			logger: logger.Named("webhook-actor"),
		}
	})
	pid, err := system.Root.SpawnNamed(props, "webhook-actor")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn webhook actor: %w", err)
	}

	// The future also covers time spent queued behind earlier deliveries.
	return &WebhookDispatcher{system: system, pid: pid, timeout: 2 * timeout}, nil
}

// Notify delivers n at most once. A notification still queued when the
// caller gives up is dropped, never posted late. Any failure wraps
// apperr.ErrWebhookDelivery.
func (d *WebhookDispatcher) Notify(ctx context.Context, n StatusNotification) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: shipment %s: %v", apperr.ErrWebhookDelivery, n.ShipmentID, err)
	}

	deadline := time.Now().Add(d.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}

	msg := &deliverNotification{Notification: n, Deadline: deadline}
	result, err := d.system.Root.RequestFuture(d.pid, msg, time.Until(deadline)).Result()
	if err != nil {
		return fmt.Errorf("%w: shipment %s: %v", apperr.ErrWebhookDelivery, n.ShipmentID, err)
	}
	if res, ok := result.(*deliveryResult); ok && res.Err != nil {
		return fmt.Errorf("%w: shipment %s: %v", apperr.ErrWebhookDelivery, n.ShipmentID, res.Err)
	}
	return nil
}

// Close drains queued deliveries and stops the actor.
func (d *WebhookDispatcher) Close() {
	_ = d.system.Root.PoisonFuture(d.pid).Wait()
}

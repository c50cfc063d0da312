package order

import (
	"errors"
	"net/http"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const WebhookPath = "/webhook/shipment-status"

// ShipmentStatusWebhook is what ShipXpress posts when a shipment changes
// status.
type ShipmentStatusWebhook struct {
	ShipmentID graphql.ID `json:"shipmentId" binding:"required"`
	OrderID    graphql.ID `json:"orderId" binding:"required"`
	Status     string     `json:"status" binding:"required"`
}

// WebhookHandler applies shipment status pushes. Repeated deliveries simply
// rewrite the same values.
func WebhookHandler(svc *Service, logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("webhook")
	return func(c *gin.Context) {
		var n ShipmentStatusWebhook
		if err := c.ShouldBindJSON(&n); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: shipmentId, orderId, status"})
			return
		}
		metrics.WebhooksReceivedTotal.WithLabelValues(ForShipmentStatus(n.Status)).Inc()

		orderID, err := graphql.ParseID(n.OrderID.String())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		_, err = svc.ApplyShipmentWebhook(c.Request.Context(), orderID, n.ShipmentID.String(), n.Status)
		svc.RecordWebhook(c.Request.Context(), n, err)
		if err != nil {
			logger.Error("Webhook error", zap.Int64("order_id", orderID), zap.Error(err))
			if errors.Is(err, apperr.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		logger.Info("Shipment status updated",
			zap.Int64("order_id", orderID),
			zap.String("shipment_id", n.ShipmentID.String()),
			zap.String("status", n.Status))
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Shipment status updated"})
	}
}

package main

import (
	"context"
	"fmt"

	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/server"
	"github.com/example/shipmesh/pkg/shipment"
	"go.uber.org/zap"
)

func main() {
	// Load config
	app, err := server.New(server.ConfigPath("config/shipment-service.yaml"))
	if err != nil {
		panic(fmt.Sprintf("Failed to start shipment service: %v", err))
	}
	cfg := app.Config
	logger := app.Logger

	// Setup database
	db, err := app.Postgres(context.Background())
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	store := shipment.NewStore(db)

	// Marketplace lookups enrich shipments with the buyer's latest order
	// and payment.
	market := shipment.NewMarketplaceClient(
		app.Clients.Client("user-service", cfg.Services.User),
		app.Clients.Client("order-service", cfg.Services.Order),
		app.Clients.Client("payment-service", cfg.Services.Payment),
	)

	// Start webhook actor
	webhooks, err := shipment.NewWebhookDispatcher(cfg.Services.OrderWebhook, cfg.Choreography.WebhookTimeout, logger)
	if err != nil {
		logger.Fatal("Failed to start webhook dispatcher", zap.Error(err))
	}
	app.OnClose(webhooks.Close)

	// Create service
	svc := shipment.NewService(store, market, webhooks, app.Publisher(), app.AuditLog(), logger)
	schema, err := shipment.NewSchema(store, svc)
	if err != nil {
		logger.Fatal("Failed to build schema", zap.Error(err))
	}
	graphql.Mount(app.Router, "/graphql", schema, logger)

	// Start server
	logger.Info("Starting Shipment service",
		zap.Int("port", cfg.Server.Port),
		zap.String("order_webhook", cfg.Services.OrderWebhook))
	if err := app.Run(); err != nil {
		logger.Fatal("Shipment service stopped with error", zap.Error(err))
	}
}

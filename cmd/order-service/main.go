package main

import (
	"fmt"

	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/models"
	"github.com/example/shipmesh/pkg/order"
	"github.com/example/shipmesh/pkg/server"
	"go.uber.org/zap"
)

func main() {
	// Load config
	app, err := server.New(server.ConfigPath("config/order-service.yaml"))
	if err != nil {
		panic(fmt.Sprintf("Failed to start order service: %v", err))
	}
	cfg := app.Config
	logger := app.Logger

	// Setup database
	db, err := app.MySQL(&models.Order{}, &models.OrderItem{}, &models.OrderTransition{})
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	store := order.NewStore(db)

	// Sibling services
	siblings := order.Siblings{
		Users:      app.Clients.Client("user-service", cfg.Services.User),
		Products:   app.Clients.Client("product-service", cfg.Services.Product),
		ShipXpress: app.Clients.Client("gateway", cfg.Services.ShipXpress),
	}
	stock, err := order.NewStockReserver(cfg.Choreography.StockStrategy, siblings.Products)
	if err != nil {
		logger.Fatal("Invalid stock strategy", zap.Error(err))
	}

	// Create service
	svc := order.NewService(store, siblings, stock, cfg.Choreography.WarehouseOrigin, app.Publisher(), app.AuditLog(), logger)
	schema, err := order.NewSchema(store, svc)
	if err != nil {
		logger.Fatal("Failed to build schema", zap.Error(err))
	}
	// Register routes
	graphql.Mount(app.Router, "/graphql", schema, logger)
	app.Router.POST(order.WebhookPath, order.WebhookHandler(svc, logger))

	// Start server
	logger.Info("Starting Order service",
		zap.Int("port", cfg.Server.Port),
		zap.String("stock_strategy", cfg.Choreography.StockStrategy))
	if err := app.Run(); err != nil {
		logger.Fatal("Order service stopped with error", zap.Error(err))
	}
}

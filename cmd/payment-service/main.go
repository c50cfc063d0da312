package main

import (
	"fmt"

	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/models"
	"github.com/example/shipmesh/pkg/payment"
	"github.com/example/shipmesh/pkg/server"
	"go.uber.org/zap"
)

func main() {
	// Load config
	app, err := server.New(server.ConfigPath("config/payment-service.yaml"))
	if err != nil {
		panic(fmt.Sprintf("Failed to start payment service: %v", err))
	}
	logger := app.Logger

	// Setup database
	db, err := app.MySQL(&models.Payment{})
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	store := payment.NewStore(db)

	// Create service
	orders := app.Clients.Client("order-service", app.Config.Services.Order)
	svc := payment.NewService(store, orders, app.Publisher(), app.AuditLog(), logger)
	schema, err := payment.NewSchema(store, svc)
	if err != nil {
		logger.Fatal("Failed to build schema", zap.Error(err))
	}
	graphql.Mount(app.Router, "/graphql", schema, logger)

	// Start server
	logger.Info("Starting Payment service", zap.Int("port", app.Config.Server.Port))
	if err := app.Run(); err != nil {
		logger.Fatal("Payment service stopped with error", zap.Error(err))
	}
}

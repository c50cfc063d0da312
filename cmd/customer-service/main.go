package main

import (
	"context"
	"fmt"

	"github.com/example/shipmesh/pkg/customer"
	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/server"
	"go.uber.org/zap"
)

func main() {
	// Load config and logger
	app, err := server.New(server.ConfigPath("config/customer-service.yaml"))
	if err != nil {
		panic(fmt.Sprintf("Failed to start customer service: %v", err))
	}
	logger := app.Logger

	// Setup database
	db, err := app.Postgres(context.Background())
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}

	// Build schema
	schema, err := customer.NewSchema(customer.NewStore(db))
	if err != nil {
		logger.Fatal("Failed to build schema", zap.Error(err))
	}
	graphql.Mount(app.Router, "/graphql", schema, logger)

	// Start server
	logger.Info("Starting Customer service", zap.Int("port", app.Config.Server.Port))
	if err := app.Run(); err != nil {
		logger.Fatal("Customer service stopped with error", zap.Error(err))
	}
}

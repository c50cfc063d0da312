package main

import (
	"context"
	"fmt"

	"github.com/example/shipmesh/pkg/tracking"
	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/server"
	"go.uber.org/zap"
)

func main() {
	// Load config
	app, err := server.New(server.ConfigPath("config/tracking-service.yaml"))
	if err != nil {
		panic(fmt.Sprintf("Failed to start tracking service: %v", err))
	}
	logger := app.Logger

	db, err := app.Postgres(context.Background())
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}

	// Build schema
	schema, err := tracking.NewSchema(tracking.NewStore(db))
	if err != nil {
		logger.Fatal("Failed to build schema", zap.Error(err))
	}
	graphql.Mount(app.Router, "/graphql", schema, logger)

	// Start server and block until shutdown
	logger.Info("Starting Tracking service", zap.Int("port", app.Config.Server.Port))
	if err := app.Run(); err != nil {
		logger.Fatal("Tracking service stopped with error", zap.Error(err))
	}
}

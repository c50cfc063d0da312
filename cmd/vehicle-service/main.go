package main

import (
	"context"
	"fmt"

	"github.com/example/shipmesh/pkg/vehicle"
	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/server"
	"go.uber.org/zap"
)

func main() {
	// Load config
	app, err := server.New(server.ConfigPath("config/vehicle-service.yaml"))
	if err != nil {
		panic(fmt.Sprintf("Failed to start vehicle service: %v", err))
	}
	logger := app.Logger

	// Connect to PostgreSQL and migrate vehicles
	db, err := app.Postgres(context.Background())
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}

	schema, err := vehicle.NewSchema(vehicle.NewStore(db))
	if err != nil {
		logger.Fatal("Failed to build schema", zap.Error(err))
	}
	// Register routes
	graphql.Mount(app.Router, "/graphql", schema, logger)

	logger.Info("Starting Vehicle service", zap.Int("port", app.Config.Server.Port))
	if err := app.Run(); err != nil {
		logger.Fatal("Vehicle service stopped with error", zap.Error(err))
	}
}

package main

import (
	"context"
	"fmt"

	"github.com/example/shipmesh/pkg/driver"
	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/server"
	"go.uber.org/zap"
)

func main() {
	app, err := server.New(server.ConfigPath("config/driver-service.yaml"))
	if err != nil {
		panic(fmt.Sprintf("Failed to start driver service: %v", err))
	}
	logger := app.Logger

	// Setup database
	db, err := app.Postgres(context.Background())
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}

	schema, err := driver.NewSchema(driver.NewStore(db))
	if err != nil {
		logger.Fatal("Failed to build schema", zap.Error(err))
	}
	graphql.Mount(app.Router, "/graphql", schema, logger)

	// Start server
	logger.Info("Starting Driver service", zap.Int("port", app.Config.Server.Port))
	if err := app.Run(); err != nil {
		logger.Fatal("Driver service stopped with error", zap.Error(err))
	}
}

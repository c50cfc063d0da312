package main

import (
	"context"
	"fmt"

	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/models"
	"github.com/example/shipmesh/pkg/server"
	"github.com/example/shipmesh/pkg/user"
	"go.uber.org/zap"
)

func main() {
	// Load config
	app, err := server.New(server.ConfigPath("config/user-service.yaml"))
	if err != nil {
		panic(fmt.Sprintf("Failed to start user service: %v", err))
	}
	logger := app.Logger

	// Setup database
	db, err := app.MySQL(&models.User{})
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}

	// Redis cache in front of MySQL
	store := user.NewStore(db, app.Cache(context.Background()), app.AuditLog(), logger)
	schema, err := user.NewSchema(store)
	if err != nil {
		logger.Fatal("Failed to build schema", zap.Error(err))
	}
	graphql.Mount(app.Router, "/graphql", schema, logger)

	// Start server
	logger.Info("Starting User service", zap.Int("port", app.Config.Server.Port))
	if err := app.Run(); err != nil {
		logger.Fatal("User service stopped with error", zap.Error(err))
	}
}

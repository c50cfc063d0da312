package main

import (
	"fmt"

	"github.com/example/shipmesh/pkg/graphql"
	"github.com/example/shipmesh/pkg/models"
	"github.com/example/shipmesh/pkg/product"
	"github.com/example/shipmesh/pkg/server"
	"go.uber.org/zap"
)

func main() {
	app, err := server.New(server.ConfigPath("config/product-service.yaml"))
	if err != nil {
		panic(fmt.Sprintf("Failed to start product service: %v", err))
	}
	logger := app.Logger

	// Setup database
	db, err := app.MySQL(&models.Category{}, &models.Product{})
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}

	// Seller lookups go to the user service
	users := app.Clients.Client("user-service", app.Config.Services.User)
	schema, err := product.NewSchema(product.NewStore(db), users, logger)
	if err != nil {
		logger.Fatal("Failed to build schema", zap.Error(err))
	}
	graphql.Mount(app.Router, "/graphql", schema, logger)

	// Start server
	logger.Info("Starting Product service", zap.Int("port", app.Config.Server.Port))
	if err := app.Run(); err != nil {
		logger.Fatal("Product service stopped with error", zap.Error(err))
	}
}

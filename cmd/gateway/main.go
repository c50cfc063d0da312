package main

import (
	"context"
	"fmt"
	"time"

	"github.com/example/shipmesh/gateway"
	"github.com/example/shipmesh/pkg/server"
	"go.uber.org/zap"
)

const composeRetry = 5 * time.Second

func main() {
	// Load config
	app, err := server.New(server.ConfigPath("config/gateway.yaml"))
	if err != nil {
		panic(fmt.Sprintf("Failed to start gateway: %v", err))
	}
	cfg := app.Config
	logger := app.Logger

	// The gateway listens on its own address section.
	cfg.Server.Host = cfg.Gateway.Host
	cfg.Server.Port = cfg.Gateway.Port

	logger.Info("Starting API Gateway",
		zap.Int("port", cfg.Gateway.Port),
		zap.String("host", cfg.Gateway.Host),
		zap.Int("subgraphs", len(cfg.Gateway.Subgraphs)))

	// Create gateway
	gw := gateway.NewGateway(&cfg.Gateway, app.Clients, logger)
	gw.SetupRoutes(app.Router)

	// Subgraphs may come up after the gateway; /graphql answers 503 until
	// the first composition succeeds.
	ctx, cancel := context.WithCancel(context.Background())
	app.OnClose(cancel)
	go func() {
		for {
			err := gw.Compose(ctx)
			if err == nil {
				return
			}
			logger.Warn("Supergraph composition failed, retrying", zap.Error(err), zap.Duration("retry_in", composeRetry))
			select {
			case <-ctx.Done():
				return
			case <-time.After(composeRetry):
			}
		}
	}()

	// Start server
	if err := app.Run(); err != nil {
		logger.Fatal("Gateway stopped with error", zap.Error(err))
	}
}

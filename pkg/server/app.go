// Package server is the process skeleton every cmd shares: config, logger,
// router, discovery, sibling clients, gRPC health and graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/example/shipmesh/pkg/clients"
	"github.com/example/shipmesh/pkg/config"
	"github.com/example/shipmesh/pkg/database"
	"github.com/example/shipmesh/pkg/discovery"
	"github.com/example/shipmesh/pkg/events"
	"github.com/example/shipmesh/pkg/grpc"
	"github.com/example/shipmesh/pkg/logger"
	"github.com/example/shipmesh/pkg/repository"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Router  *gin.Engine
	Clients *clients.Manager

	discovery *discovery.ServiceDiscovery
	health    *grpc.HealthServer
	closers   []func()
}

// New loads configPath and builds the shared runtime. Discovery is optional:
// without etcd the configured URLs are used as is.
func New(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("service", cfg.Server.Name))

	app := &App{
		Config: cfg,
		Logger: log,
		Router: NewRouter(cfg.Server.Name, log),
	}

	var disc clients.Discoverer
	sd, err := discovery.NewServiceDiscovery(&cfg.Etcd, log)
	switch {
	case errors.Is(err, discovery.ErrDisabled):
		log.Info("Service discovery disabled, using configured URLs")
	case err != nil:
		log.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
	default:
		app.discovery = sd
		disc = sd
	}

	app.Clients = clients.NewManager(disc, cfg.Services.Timeout, log)
	app.OnClose(app.Clients.Close)

	if cfg.Server.GRPCPort > 0 {
		app.health = grpc.NewHealthServer(cfg.Server.Name, cfg.Server.Host, cfg.Server.GRPCPort, log)
	}

	return app, nil
}

// OnClose registers fn to run at shutdown, in reverse order.
func (a *App) OnClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Publisher returns a Kafka publisher when brokers are configured.
func (a *App) Publisher() events.Publisher {
	if len(a.Config.Kafka.Brokers) == 0 {
		return events.NopPublisher{}
	}
	p := events.NewKafkaPublisher(a.Config.Kafka.Brokers, a.Config.Kafka.Topic, a.Logger)
	a.OnClose(func() {
		if err := p.Close(); err != nil {
			a.Logger.Warn("Failed to close event publisher", zap.Error(err))
		}
	})
	return p
}

// AuditLog returns the MongoDB audit log, or a no-op when unconfigured or
// unreachable.
func (a *App) AuditLog() repository.AuditLog {
	if a.Config.MongoDB.URI == "" {
		return repository.NopAuditLog{}
	}
	audit, err := repository.NewMongoAuditLog(&a.Config.MongoDB, a.Logger)
	if err != nil {
		a.Logger.Warn("Audit log disabled", zap.Error(err))
		return repository.NopAuditLog{}
	}
	a.OnClose(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = audit.Close(ctx)
	})
	return audit
}

// Postgres opens the ShipXpress database and applies its DDL.
func (a *App) Postgres(ctx context.Context) (*sql.DB, error) {
	db, err := database.NewConnection(&a.Config.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate Postgres: %w", err)
	}
	a.OnClose(func() { _ = db.Close() })
	a.Logger.Info("Connected to Postgres")
	return db, nil
}

// MySQL opens the marketplace database and migrates models.
func (a *App) MySQL(models ...any) (*gorm.DB, error) {
	db, err := database.OpenMySQL(&a.Config.MySQL, a.Logger, models...)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		a.OnClose(func() { _ = sqlDB.Close() })
	}
	return db, nil
}

// Cache returns the Redis cache, or a no-op when Redis is unconfigured or
// unreachable.
func (a *App) Cache(ctx context.Context) repository.Cache {
	if a.Config.Redis.Addr == "" {
		return repository.NopCache{}
	}
	cache := repository.NewRedisCache(&a.Config.Redis)
	if err := cache.Ping(ctx); err != nil {
		a.Logger.Warn("Redis connection failed, caching disabled", zap.Error(err))
		_ = cache.Close()
		return repository.NopCache{}
	}
	a.OnClose(func() { _ = cache.Close() })
	a.Logger.Info("Redis connected successfully")
	return cache
}

// ConfigPath lets SHIPMESH_CONFIG override a command's default config file.
func ConfigPath(fallback string) string {
	if p := os.Getenv(config.EnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	return fallback
}

func (a *App) instance() *discovery.ServiceInstance {
	return &discovery.ServiceInstance{
		Name: a.Config.Server.Name,
		Host: a.Config.Server.Host,
		Port: a.Config.Server.Port,
	}
}

// Run serves HTTP (and gRPC health when configured) until SIGINT/SIGTERM.
func (a *App) Run() error {
	defer a.close()

	addr := net.JoinHostPort(a.Config.Server.Host, strconv.Itoa(a.Config.Server.Port))
	srv := &http.Server{Addr: addr, Handler: a.Router}

	serverErr := make(chan error, 2)
	go func() {
		a.Logger.Info("HTTP server starting", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	if a.health != nil {
		go func() {
			if err := a.health.Serve(); err != nil {
				serverErr <- fmt.Errorf("grpc health: %w", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.discovery != nil {
		if err := a.discovery.Register(ctx, a.instance()); err != nil {
			a.Logger.Warn("Failed to register service", zap.Error(err))
		} else {
			a.Logger.Info("Service registered in etcd", zap.String("address", a.instance().Addr()))
		}
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("Received shutdown signal")
	case runErr = <-serverErr:
		a.Logger.Error("Server error", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.discovery != nil {
		if err := a.discovery.Deregister(shutdownCtx, a.instance()); err != nil {
			a.Logger.Error("Failed to deregister service", zap.Error(err))
		}
	}
	if a.health != nil {
		a.health.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("Failed to shut down HTTP server", zap.Error(err))
	}

	a.Logger.Info("Service stopped")
	return runErr
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	if a.discovery != nil {
		_ = a.discovery.Close()
	}
	_ = a.Logger.Sync()
}

func metricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

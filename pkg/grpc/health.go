// Package grpc exposes the standard gRPC health service next to each
// service's HTTP listener so orchestrators can check it.
package grpc

import (
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type HealthServer struct {
	name   string
	addr   string
	server *grpc.Server
	health *health.Server
	logger *zap.Logger
}

func NewHealthServer(name, host string, port int, logger *zap.Logger) *HealthServer {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &HealthServer{
		name:   name,
		addr:   net.JoinHostPort(host, fmt.Sprint(port)),
		server: srv,
		health: hs,
		logger: logger.Named("grpc"),
	}
}

// Serve blocks until Stop is called.
func (s *HealthServer) Serve() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.ServeListener(lis)
}

func (s *HealthServer) ServeListener(lis net.Listener) error {
	s.SetServing(true)
	s.logger.Info("gRPC health server started", zap.String("address", lis.Addr().String()))
	return s.server.Serve(lis)
}

// SetServing flips both the overall and the named service status.
func (s *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.name, status)
}

func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}

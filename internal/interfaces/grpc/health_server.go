// Package grpc exposes the auth service's gRPC surface: the standard health
// service, with serving status tied to the identity circuit breaker.
package grpc

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/turtacn/perimeter/internal/infrastructure/resilience"
	"github.com/turtacn/perimeter/pkg/logger"
)

// HealthServer serves grpc.health.v1.Health. The overall status and the
// per-breaker service names follow the breakers' state.
type HealthServer struct {
	server *grpc.Server
	health *health.Server
	port   int
	log    logger.Logger
}

// NewHealthServer creates the server with every service SERVING.
func NewHealthServer(port int, log logger.Logger, targets ...string) *HealthServer {
	ic := NewInterceptorChain(log)
	s := &HealthServer{
		server: grpc.NewServer(ic.ChainUnaryInterceptors()),
		health: health.NewServer(),
		port:   port,
		log:    log.WithComponent("grpc-health"),
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	for _, t := range targets {
		s.health.SetServingStatus(t, healthpb.HealthCheckResponse_SERVING)
	}
	return s
}

// BreakerListener returns a resilience state listener. An OPEN breaker marks
// its target and the overall service NOT_SERVING; leaving OPEN restores both.
func (s *HealthServer) BreakerListener() func(name string, from, to resilience.State) {
	return func(name string, from, to resilience.State) {
		status := healthpb.HealthCheckResponse_SERVING
		if to == resilience.StateOpen {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		s.health.SetServingStatus(name, status)
		s.health.SetServingStatus("", status)
		s.log.Info(context.Background(), "Health status changed",
			logger.String("target", name),
			logger.String("status", status.String()),
		)
	}
}

// Health returns the underlying health service.
func (s *HealthServer) Health() healthpb.HealthServer {
	return s.health
}

// Run serves on the configured port until ctx is done.
func (s *HealthServer) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port %d: %w", s.port, err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "Starting gRPC server", logger.Int("port", s.port))
		errCh <- s.server.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.health.Shutdown()
		s.server.GracefulStop()
		s.log.Info(context.Background(), "gRPC server stopped")
		return nil
	}
}

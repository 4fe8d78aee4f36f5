package httpapi

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"medclaim.org/internal/obs"
)

// GRPCServer exposes the standard gRPC health service. Its serving status
// follows the same readiness probe as /readyz.
type GRPCServer struct {
	server    *grpc.Server
	health    *health.Server
	readiness readinessChecker
	version   string
}

// NewGRPCServer creates the gRPC server and registers the health service.
func NewGRPCServer(r readinessChecker, version string, opts ...grpc.ServerOption) *GRPCServer {
	if r == nil {
		r = ReadyProbe{}
	}
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(loggingUnaryInterceptor)}, opts...)
	s := &GRPCServer{
		server:    grpc.NewServer(opts...),
		health:    health.NewServer(),
		readiness: r,
		version:   version,
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Sync runs the readiness probe once and publishes the result.
func (s *GRPCServer) Sync(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if err := s.readiness.Check(ctx); err != nil {
		st = healthpb.HealthCheckResponse_NOT_SERVING
		obs.Warn("readiness check failed", map[string]any{"error": err.Error(), "transport": "grpc"})
	}
	obs.SetReady(st == healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(serviceName, st)
	return st
}

// Watch re-syncs health every interval until ctx ends.
func (s *GRPCServer) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	s.Sync(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sync(ctx)
			}
		}
	}()
}

// Serve blocks serving on lis.
func (s *GRPCServer) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

// Stop marks the service as not serving and drains in-flight calls.
func (s *GRPCServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}

func loggingUnaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	fields := map[string]any{
		"method":      info.FullMethod,
		"code":        status.Code(err).String(),
		"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
	}
	if err != nil {
		obs.Error("grpc_request_complete", err, fields)
	} else {
		obs.Info("grpc_request_complete", fields)
	}
	return resp, err
}

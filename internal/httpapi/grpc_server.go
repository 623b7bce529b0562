package httpapi

import (
	"context"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"graceparish.org/internal/obs"
)

// GRPCHealth implements grpc.health.v1.Health backed by the readiness probe.
type GRPCHealth struct {
	healthpb.UnimplementedHealthServer

	readiness readinessChecker
}

// NewGRPCHealth creates the gRPC health service.
func NewGRPCHealth(r readinessChecker) *GRPCHealth {
	if r == nil {
		r = ReadyProbe{}
	}
	return &GRPCHealth{readiness: r}
}

// Register attaches the service to srv.
func (s *GRPCHealth) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, s)
}

// Check evaluates readiness. The service name is ignored; every name reports the process state.
func (s *GRPCHealth) Check(ctx context.Context, _ *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if err := s.readiness.Check(ctx); err != nil {
		obs.SetReady(false)
		obs.Warn("readiness check failed", map[string]any{"err": err, "service": serviceName})
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	obs.SetReady(true)
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}

package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service key that follows the engine state.
const ServiceName = "wkarma.Engine"

// EngineState is the part of the engine the health service watches.
type EngineState interface {
	Paused() bool
	Running() bool
}

// HealthServer exposes the standard gRPC health protocol. The overall
// status and ServiceName report SERVING only while the engine runs unpaused.
type HealthServer struct {
	*grpc.Server
	health *health.Server
	engine EngineState
}

func NewGrpcServer(engine EngineState) *HealthServer {
	s := &HealthServer{
		Server: grpc.NewServer(),
		health: health.NewServer(),
		engine: engine,
	}
	grpc_health_v1.RegisterHealthServer(s.Server, s.health)
	s.Sync()
	return s
}

// Sync publishes the current engine state and returns it.
func (s *HealthServer) Sync() grpc_health_v1.HealthCheckResponse_ServingStatus {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if s.engine.Running() && !s.engine.Paused() {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return status
}

// Watch re-syncs every interval until ctx is done, then marks everything
// NOT_SERVING.
func (s *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			return
		case <-ticker.C:
			s.Sync()
		}
	}
}

// Check answers a health query in process.
func (s *HealthServer) Check(ctx context.Context, service string) (grpc_health_v1.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.health.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

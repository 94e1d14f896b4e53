package handler

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/storefront/internal/supervisor"
)

const ServiceName = "storefront"

// GRPCHandler exposes grpc.health.v1.Health. Both the overall status and the
// storefront service report SERVING only while the store is connected.
type GRPCHandler struct {
	health *health.Server
}

func NewGRPCHandler() *GRPCHandler {
	h := &GRPCHandler{health: health.NewServer()}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

func (h *GRPCHandler) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.health)
}

// OnStateChange is registered as a supervisor listener.
func (h *GRPCHandler) OnStateChange(state supervisor.State) {
	switch state {
	case supervisor.Connected:
		h.set(healthpb.HealthCheckResponse_SERVING)
	case supervisor.ShuttingDown:
		h.health.Shutdown()
	default:
		h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	}
}

func (h *GRPCHandler) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
}

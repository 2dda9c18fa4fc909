package server

import (
	"context"
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Health exposes the standard gRPC health service so that
// supervisors can tell whether the serial session is still up.
type Health struct {
	Addr string
	// used instead of listening on Addr when set
	Listener net.Listener

	srv    *grpc.Server
	health *health.Server
}

func NewHealth(addr string) *Health {
	h := &Health{
		Addr:   addr,
		srv:    grpc.NewServer(),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(h.srv, h.health)
	return h
}

// SetServing flips the status reported for service
func (h *Health) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus(service, status)
	log.Debug().Str("service", service).Stringer("status", status).Msg("health status")
}

func (h *Health) Serve(ctx context.Context) error {
	listener := h.Listener
	if listener == nil {
		var err error
		if listener, err = net.Listen("tcp", h.Addr); err != nil {
			log.Error().Err(err).Msg("failed to listen")
			return err
		}
	}
	log.Info().Stringer("addr", listener.Addr()).Msg("gRPC health server starting...")

	errChan := make(chan error, 1)
	go func() {
		errChan <- h.srv.Serve(listener)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		h.health.Shutdown()
		h.srv.GracefulStop()
		return ctx.Err()
	}
}

func (h *Health) String() string {
	return "gRPC health " + h.Addr
}

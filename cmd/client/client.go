package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var ErrNotServing = errors.New("plotter is not serving")

type HealthClient struct {
	healthpb.HealthClient
	Service string
	Out     io.Writer
}

// Check asks once, failing unless the session is up
func (cl *HealthClient) Check(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := cl.HealthClient.Check(ctx, &healthpb.HealthCheckRequest{Service: cl.Service})
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	fmt.Fprintf(cl.Out, "%s: %s\n", cl.Service, resp.Status)
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		return ErrNotServing
	}
	return nil
}

// Watch prints every status change until the stream ends,
// returning ErrNotServing once the session is reported gone.
func (cl *HealthClient) Watch(ctx context.Context) error {
	log.Debug().Str("service", cl.Service).Msg("connected to gRPC health server, starts polling")
	defer log.Debug().Msg("client finished")

	stream, err := cl.HealthClient.Watch(ctx, &healthpb.HealthCheckRequest{Service: cl.Service})
	if err != nil {
		return fmt.Errorf("health watch: %w", err)
	}
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			log.Debug().Msg("streaming finished")
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("stream read: %w", err)
		}
		fmt.Fprintf(cl.Out, "%s: %s\n", cl.Service, msg.Status)
		if msg.Status == healthpb.HealthCheckResponse_NOT_SERVING {
			return ErrNotServing
		}
	}
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sudotouchwoman/serialscope/pkg/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	// probes the health endpoint serialcircle exposes with -grpc-addr.
	// Exits non-zero while the serial session is down.
	addr := "localhost:9090"
	service := "serialcircle"
	timeout := 2 * time.Second
	flag.StringVar(&addr, "a", addr, "gRPC Dial Address")
	flag.StringVar(&service, "service", service, "Service name to check")
	flag.DurationVar(&timeout, "timeout", timeout, "Check timeout")
	watch := flag.Bool("watch", false, "Keep printing status changes")
	debug := flag.Bool("debug", false, "Verbose logging")
	flag.Parse()

	logging.Setup(os.Stderr, *debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cc, err := grpc.Dial(
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect")
	}
	defer cc.Close()

	cl := &HealthClient{
		HealthClient: healthpb.NewHealthClient(cc),
		Service:      service,
		Out:          os.Stdout,
	}
	if *watch {
		err = cl.Watch(ctx)
	} else {
		err = cl.Check(ctx, timeout)
	}
	if err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("unhealthy")
		cc.Close()
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/sudotouchwoman/serialscope/pkg/circle"
	"github.com/sudotouchwoman/serialscope/pkg/logging"
	"github.com/sudotouchwoman/serialscope/pkg/record"
	"github.com/sudotouchwoman/serialscope/pkg/serial"
	"github.com/sudotouchwoman/serialscope/pkg/server"
	"github.com/sudotouchwoman/serialscope/pkg/web"
	"github.com/sudotouchwoman/serialscope/pkg/window"
	"github.com/thejerf/suture/v4"
)

const healthService = "serialcircle"

func main() {
	cfg, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logging.Setup(os.Stderr, cfg.debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory := &serial.SessionFactory{}
	if cfg.simulate {
		sim := server.NewSimulator(server.DefaultPeriod)
		sim.GarbageEvery = 25
		factory = sim.Factory()
		cfg.props.Device = server.SimulatedDevice
	}
	code := run(ctx, cfg, factory, os.Stdout)
	stop()
	os.Exit(code)
}

// run plots until interrupted or until the connection fails.
// It must be called from the main goroutine: the window canvas needs it.
func run(ctx context.Context, cfg config, factory *serial.SessionFactory, out io.Writer) int {
	fmt.Fprintln(out, "Plotting data off serial port. Hit ctrl-C to exit...")

	reader := &record.Reader{Out: out}
	if cfg.jq != "" {
		jq, err := record.NewJQExtractor(cfg.jq)
		if err != nil {
			log.Error().Err(err).Str("filter", cfg.jq).Msg("bad jq filter")
			return 2
		}
		reader.Extract = jq
	}

	session, err := factory.Open(cfg.props)
	if err != nil {
		serial.ReportFailure(out, err, factory.ListPorts)
		return 1
	}
	defer session.Close()
	reader.Source = session
	fmt.Fprintf(out, "Listening on %s at %d baud rate...\n", cfg.props.Device, cfg.props.Baud)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	supervisor := suture.New("serialcircle", suture.Spec{
		EventHook: func(e suture.Event) {
			log.Debug().Str("event", e.String()).Msg("supervisor")
		},
	})

	var (
		hub        *web.Hub
		windowView *window.Canvas
		canvas     circle.Canvas
	)
	switch cfg.view {
	case viewWindow:
		windowView = window.NewCanvas()
		canvas = windowView
	default:
		hub = web.NewHub()
		hub.Serial = cfg.props.Device
		canvas = hub
		sockets := &web.CircleSockClientFactory{Ctx: ctx, Hub: hub}
		supervisor.Add(&web.Server{HTTP: &http.Server{
			Addr:    cfg.addr,
			Handler: web.NewRouter(hub, sockets),
		}})
		fmt.Fprintf(out, "Open http://%s in a browser to watch the circle.\n", cfg.addr)
	}

	var health *server.Health
	if cfg.grpcAddr != "" {
		health = server.NewHealth(cfg.grpcAddr)
		health.SetServing(healthService, true)
		supervisor.Add(health)
	}

	svc := circle.NewService(circle.NewVisualizer(reader, canvas))
	supervisor.Add(svc)
	stopped := supervisor.ServeBackground(ctx)

	// a dead connection stops everything else too
	go func() {
		select {
		case <-svc.Done():
			if health != nil {
				health.SetServing(healthService, false)
			}
			if hub != nil {
				hub.Close(svc.Err())
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	if windowView != nil {
		if err := windowView.Run(ctx, "Serial Circle Plotter"); err != nil {
			log.Error().Err(err).Msg("window closed with error")
		}
		cancel()
	} else {
		<-ctx.Done()
	}
	// releasing the port unblocks a read made without a timeout
	session.Close()
	if err := <-stopped; err != nil && !errors.Is(err, context.Canceled) {
		log.Debug().Err(err).Msg("supervisor stopped")
	}

	if err := svc.Err(); err != nil {
		serial.ReportFailure(out, err, factory.ListPorts)
		return 1
	}
	return 0
}

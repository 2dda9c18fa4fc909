package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sudotouchwoman/serialscope/pkg/echo"
	"github.com/sudotouchwoman/serialscope/pkg/logging"
	"github.com/sudotouchwoman/serialscope/pkg/serial"
	"github.com/sudotouchwoman/serialscope/pkg/server"
)

type config struct {
	props    serial.Props
	simulate bool
	debug    bool
}

func main() {
	// Sends whatever is typed to the device and prints the line
	// it answers with. Pairs with a sketch echoing its input back.
	cfg := config{props: serial.Props{
		Device:  "COM13",
		Baud:    9600,
		Timeout: time.Second,
	}}
	flag.StringVar(&cfg.props.Device, "com", cfg.props.Device, "Serial port name")
	flag.IntVar(&cfg.props.Baud, "baud", cfg.props.Baud, "Baud rate")
	flag.DurationVar(&cfg.props.Timeout, "timeout", cfg.props.Timeout, "Read timeout")
	flag.BoolVar(&cfg.simulate, "simulate", false, "Talk to a simulated echo device instead of a real port")
	flag.BoolVar(&cfg.debug, "debug", false, "Verbose logging")
	flag.Parse()

	logging.Setup(os.Stderr, cfg.debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory := &serial.SessionFactory{}
	if cfg.simulate {
		factory = server.NewSimulator(0).Factory()
		cfg.props.Device = server.SimulatedDevice
	}
	code := run(ctx, cfg, factory, os.Stdin, os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg config, factory *serial.SessionFactory, in io.Reader, out io.Writer) int {
	session, err := factory.Open(cfg.props)
	if err != nil {
		serial.ReportFailure(out, err, factory.ListPorts)
		return 1
	}
	defer session.Close()
	fmt.Fprintf(out, "Connected to %s. Hit ctrl-C to exit...\n", cfg.props)

	writer := echo.Writer{
		Session: session,
		In:      in,
		Out:     out,
	}
	if err := writer.Run(ctx); err != nil {
		log.Error().Err(err).Msg("interactive writer stopped")
		if serial.IsConnectionError(err) {
			serial.ReportFailure(out, err, factory.ListPorts)
		} else {
			fmt.Fprintf(out, "Could not read your input: %v\n", err)
		}
		return 1
	}
	return 0
}

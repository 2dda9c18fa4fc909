package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/sudotouchwoman/serialscope/pkg/serial"
)

const (
	defaultPort = "COM3"
	defaultBaud = 115200

	viewWeb    = "web"
	viewWindow = "window"
)

const epilog = `
Example usage:
  1. serialcircle COM3 9600
  2. serialcircle "/dev/cu.usbmodem11301" 115200
  3. serialcircle -view window /dev/ttyUSB0
  4. serialcircle -simulate
`

type config struct {
	props    serial.Props
	view     string
	addr     string
	grpcAddr string
	jq       string
	simulate bool
	debug    bool
}

// parseArgs reads flags followed by the optional [port] [baud] pair
func parseArgs(args []string, output io.Writer) (config, error) {
	cfg := config{props: serial.Props{
		Device:  defaultPort,
		Baud:    defaultBaud,
		Timeout: time.Second,
	}}

	fs := flag.NewFlagSet("serialcircle", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.view, "view", viewWeb, "Canvas to draw on: web or window")
	fs.StringVar(&cfg.addr, "addr", "localhost:8080", "Web canvas listen address")
	fs.StringVar(&cfg.grpcAddr, "grpc-addr", "", "Optional gRPC health endpoint address")
	fs.StringVar(&cfg.jq, "jq", "", "jq filter extracting the value from JSON lines, e.g. '.value'")
	fs.DurationVar(&cfg.props.Timeout, "timeout", cfg.props.Timeout, "Read timeout")
	fs.BoolVar(&cfg.simulate, "simulate", false, "Plot a simulated sine wave instead of a real port")
	fs.BoolVar(&cfg.debug, "debug", false, "Verbose logging")
	fs.Usage = func() {
		fmt.Fprint(output, "Serial Circle Plotter\n\n")
		fmt.Fprint(output, "usage: serialcircle [flags] [port] [baud]\n\n")
		fmt.Fprint(output, "positional arguments:\n")
		fmt.Fprintf(output, "  port\tSerial port name (e.g., COM1 or /dev/ttyUSB0) (default %q)\n", defaultPort)
		fmt.Fprintf(output, "  baud\tBaud rate (e.g., 9600) (default %d)\n\n", defaultBaud)
		fmt.Fprint(output, "flags:\n")
		fs.PrintDefaults()
		fmt.Fprint(output, epilog)
	}

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	rest := fs.Args()
	if len(rest) > 2 {
		fs.Usage()
		return cfg, fmt.Errorf("unexpected arguments: %q", rest[2:])
	}
	if len(rest) > 0 {
		cfg.props.Device = rest[0]
	}
	if len(rest) > 1 {
		baud, err := strconv.Atoi(rest[1])
		if err != nil || baud <= 0 {
			fs.Usage()
			return cfg, fmt.Errorf("invalid baud rate %q", rest[1])
		}
		cfg.props.Baud = baud
	}

	switch cfg.view {
	case viewWeb, viewWindow:
	default:
		fs.Usage()
		return cfg, errors.New("view must be web or window")
	}
	return cfg, nil
}

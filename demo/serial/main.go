package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sudotouchwoman/serialscope/pkg/logging"
	"github.com/sudotouchwoman/serialscope/pkg/serial"
)

func main() {
	// go.bug.st/serial library demo. Lists the ports or connects
	// to a given one and dumps every raw line it sends, which is
	// handy to see what a sketch really prints before plotting it
	props := serial.Props{Device: "/dev/ttyUSB0", Baud: 115200, Timeout: time.Second}
	flag.StringVar(&props.Device, "com", props.Device, "Serial port name")
	flag.IntVar(&props.Baud, "baud", props.Baud, "Baud rate")
	list := flag.Bool("list", false, "List serial ports and exit")
	flag.Parse()

	logging.Setup(os.Stderr, true)

	factory := &serial.SessionFactory{}
	if *list {
		if err := listPorts(factory, os.Stdout); err != nil {
			log.Fatal().Err(err).Msg("list ports")
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	session, err := factory.Open(props)
	if err != nil {
		serial.ReportFailure(os.Stdout, err, factory.ListPorts)
		os.Exit(1)
	}
	defer session.Close()

	if err := dump(ctx, session, os.Stdout); err != nil {
		log.Error().Err(err).Msg("dump")
	}
}

func listPorts(factory *serial.SessionFactory, out io.Writer) error {
	ports, err := factory.ListPorts()
	if err != nil {
		return err
	}
	for _, p := range ports {
		fmt.Fprintln(out, p)
	}
	return nil
}

// dump prints raw lines, quoted, until the context is done.
// Timeouts show up as nothing at all.
func dump(ctx context.Context, session interface{ ReadLine() ([]byte, error) }, out io.Writer) error {
	for ctx.Err() == nil {
		line, err := session.ReadLine()
		if err != nil {
			return err
		}
		if len(line) > 0 {
			fmt.Fprintf(out, "%q\n", line)
		}
	}
	return nil
}

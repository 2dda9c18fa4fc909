package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sudotouchwoman/serialscope/pkg/circle"
	"github.com/sudotouchwoman/serialscope/pkg/logging"
	"github.com/sudotouchwoman/serialscope/pkg/web"
)

// errRemote is a failure reported by the plotter itself
var errRemote = errors.New("plotter reported an error")

func main() {
	// sample websocket client (used as a demo and for debugging):
	// follows a running serialcircle and prints every frame
	socketUrl := "ws://localhost:8080/ws"
	flag.StringVar(&socketUrl, "url", socketUrl, "serialcircle websocket endpoint")
	debug := flag.Bool("debug", false, "Verbose logging")
	flag.Parse()

	logging.Setup(os.Stderr, *debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, socketUrl, nil)
	if err != nil {
		log.Fatal().Err(err).Str("url", socketUrl).Msg("dial")
	}
	defer conn.Close()

	if err := follow(ctx, conn, os.Stdout); err != nil {
		log.Error().Err(err).Msg("stopped following")
		os.Exit(1)
	}
}

// follow prints frames until the context is done or the plotter goes away
func follow(ctx context.Context, conn *websocket.Conn, out io.Writer) error {
	// unblock the reader on interrupt
	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		log.Debug().RawJSON("frame", msg).Msg("received")

		// frames and failures share the socket, tell them apart by the error field
		var failure web.ErrorMessage
		if err := json.Unmarshal(msg, &failure); err == nil && failure.Error != "" {
			return fmt.Errorf("%w: %s", errRemote, failure.Error)
		}
		var state circle.State
		if err := json.Unmarshal(msg, &state); err != nil {
			log.Warn().Err(err).Msg("unmarshal")
			continue
		}
		fmt.Fprintf(out, "frame %d: radius %.2f (value %.3f)\n", state.Seq, state.Radius, state.Value)
	}
}

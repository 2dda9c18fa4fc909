package web

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultReadTimeout = time.Minute

// CircleSockClientFactory produces CircleSockClients
// attached to the hub and configured with timeouts
type CircleSockClientFactory struct {
	Ctx         context.Context
	Hub         *Hub
	ReadTimeout time.Duration
	Logger      *zerolog.Logger
}

func (f *CircleSockClientFactory) New(conn *websocket.Conn) SockHandler {
	select {
	case <-f.Ctx.Done():
		return nil
	default:
	}
	logger := log.Logger
	if f.Logger != nil {
		logger = *f.Logger
	}
	timeout := f.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	updates, unsubscribe := f.Hub.Subscribe()
	return &CircleSockClient{
		Ctx:         f.Ctx,
		Conn:        conn,
		Updates:     updates,
		Unsubscribe: unsubscribe,
		Timeout:     timeout,
		Logger:      logger.With().Str("remote", conn.RemoteAddr().String()).Logger(),
	}
}

// CircleSockClient pushes circle frames to one browser.
// Browsers never send anything meaningful; reading only keeps
// control frames flowing and notices when the page goes away.
type CircleSockClient struct {
	Ctx         context.Context
	Conn        *websocket.Conn
	Updates     <-chan []byte
	Unsubscribe func()
	Timeout     time.Duration
	Logger      zerolog.Logger
}

// Read blocks until the client disconnects. On return the client
// is unsubscribed, which closes Updates and thereby ends Write.
func (cl *CircleSockClient) Read() {
	defer func() {
		cl.Unsubscribe()
		cl.Logger.Debug().Msg("cleaned up after client disconnected")
	}()

	cl.Conn.SetReadDeadline(time.Now().Add(cl.Timeout))
	cl.Conn.SetPongHandler(func(string) error {
		// update timeout on each pong
		return cl.Conn.SetReadDeadline(time.Now().Add(cl.Timeout))
	})
	for {
		if _, _, err := cl.Conn.NextReader(); err != nil {
			cl.Logger.Debug().Err(err).Msg("next reader")
			return
		}
	}
}

// Write forwards frames until Updates is closed or the factory
// context is done. Pings are sent at half the read timeout.
func (cl *CircleSockClient) Write() {
	ticker := time.NewTicker(cl.Timeout / 2)
	defer func() {
		ticker.Stop()
		cl.Conn.Close()
	}()

	for {
		select {
		case <-cl.Ctx.Done():
			cl.writeClose(websocket.CloseGoingAway)
			return
		case msg, open := <-cl.Updates:
			if !open {
				cl.writeClose(websocket.CloseNormalClosure)
				return
			}
			cl.Conn.SetWriteDeadline(time.Now().Add(cl.Timeout))
			if err := cl.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				cl.Logger.Debug().Err(err).Msg("send")
				return
			}
		case <-ticker.C:
			cl.Conn.SetWriteDeadline(time.Now().Add(cl.Timeout))
			if err := cl.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cl.Logger.Debug().Err(err).Msg("ping")
				return
			}
		}
	}
}

func (cl *CircleSockClient) writeClose(code int) {
	cl.Conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, ""),
		time.Now().Add(time.Second),
	)
}

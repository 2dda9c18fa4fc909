package web

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

//go:embed static
var static embed.FS

// Http handler for ws endpoint
func SocketHandler(factory SockHandlerFactory, upgrader *websocket.Upgrader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("upgrade error")
			return
		}
		if handler := factory.New(ws); handler != nil {
			go handler.Write()
			handler.Read()
			return
		}
		ws.Close()
	})
}

// Serves the latest frame, 204 until the first redraw
func StateHandler(hub *Hub) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last := hub.Last()
		if last == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(last)
	})
}

// NewRouter wires the page, the ws endpoint and the state endpoint
func NewRouter(hub *Hub, factory SockHandlerFactory) *mux.Router {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	assets, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}

	router := mux.NewRouter()
	router.Handle("/ws", SocketHandler(factory, &upgrader))
	router.Handle("/state", StateHandler(hub)).Methods(http.MethodGet)
	router.PathPrefix("/").Handler(http.FileServer(http.FS(assets))).Methods(http.MethodGet)
	router.Use(PanicRecovery, LogResponseCode)
	return router
}

// Server runs an http.Server as a suture service
type Server struct {
	HTTP            *http.Server
	ShutdownTimeout time.Duration
}

func (s *Server) Serve(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.HTTP.Addr).Msg("starting web canvas")
		errChan <- s.HTTP.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		timeout := s.ShutdownTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.HTTP.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("web canvas shutdown")
		}
		return ctx.Err()
	}
}

func (s *Server) String() string {
	return "web canvas " + s.HTTP.Addr
}

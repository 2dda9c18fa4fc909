package web

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

type proxyResponseWriter struct {
	// helper struct to extract http response code
	// once handler returns
	http.ResponseWriter
	code int
}

func (rwi *proxyResponseWriter) WriteHeader(code int) {
	rwi.code = code
	rwi.ResponseWriter.WriteHeader(code)
}

// the ws upgrade needs the underlying connection
func (rwi *proxyResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rwi.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rwi.code = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func LogResponseCode(next http.Handler) http.Handler {
	// log incoming requests and their corresponding response codes
	// the response code is 200 by default as custom handlers may not
	// call the WriteHeader method directly
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxyWriter := &proxyResponseWriter{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(proxyWriter, r)
		log.Debug().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("code", proxyWriter.code).
			Dur("took", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("served")
	})
}

func PanicRecovery(next http.Handler) http.Handler {
	// recover if for some reason execution panics
	// and respond with a 500 status code
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("panic", err).Msg("handler panicked")
				http.Error(
					w,
					http.StatusText(http.StatusInternalServerError),
					http.StatusInternalServerError,
				)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

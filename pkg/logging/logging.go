// Package logging configures the zerolog logger shared by the tools.
// Diagnostics go to stderr so that stdout only carries the transcript
// the user interacts with.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs a console logger on w as the global logger
// and returns it. Debug lowers the level from info to debug.
func Setup(w io.Writer, debug bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
	}).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestSetup(t *testing.T) {
	prevLevel, prevLogger := zerolog.GlobalLevel(), log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(prevLevel)
		log.Logger = prevLogger
	})

	var buf bytes.Buffer
	Setup(&buf, false)
	log.Debug().Msg("hidden")
	log.Info().Str("port", "COM3").Msg("opened serial session")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "opened serial session")
	assert.Contains(t, buf.String(), "COM3")

	buf.Reset()
	Setup(&buf, true)
	log.Debug().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

package web

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type SockHandler interface {
	Read()
	Write()
}

// Creates a handler per upgraded connection
type SockHandlerFactory interface {
	New(*websocket.Conn) SockHandler
}

// Sent to browsers when the stream ends abnormally,
// state frames are plain circle.State documents
type ErrorMessage struct {
	Serial string `json:"serial,omitempty"`
	Error  string `json:"error"`
}

func JsonifyError(err error, serial string) []byte {
	msg, err := json.Marshal(&ErrorMessage{
		Serial: serial,
		Error:  err.Error(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("marshal")
	}
	log.Debug().RawJSON("msg", msg).Msg("jsonify")
	return msg
}

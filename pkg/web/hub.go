package web

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sudotouchwoman/serialscope/pkg/circle"
)

var ErrHubClosed = errors.New("hub closed already")

// peer buffer, leave some space so that slow browsers
// do not make us skip frames right away
const peerBuffer = 10

// Hub is the web canvas: every redraw is encoded once and
// broadcasted to whichever browsers are currently connected.
// Slow peers miss frames instead of stalling the visualizer.
type Hub struct {
	Logger *zerolog.Logger
	// device the frames come from, named in the error frame
	Serial string

	mu     sync.RWMutex
	peers  []chan []byte
	last   []byte
	closed bool
}

func NewHub() *Hub {
	return &Hub{peers: []chan []byte{}}
}

// Redraw implements circle.Canvas
func (h *Hub) Redraw(s circle.State) error {
	msg, err := json.Marshal(&s)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	h.last = msg
	h.mu.Unlock()

	h.broadcast(msg)
	return nil
}

// Last is the most recent frame, nil before the first redraw
func (h *Hub) Last() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}

// Subscribe registers a new peer. The latest frame, if any, is
// queued right away so a fresh page does not start out blank.
// The returned cancel func removes the peer and closes its channel.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, peerBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if h.last != nil {
		ch <- h.last
	}
	h.peers = append(h.peers, ch)
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.removePeer(ch) })
	}
}

// Close tells every peer why the stream ended, then disconnects them
func (h *Hub) Close(cause error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	h.closed = true

	var msg []byte
	if cause != nil {
		msg = JsonifyError(cause, h.Serial)
	}
	for _, peer := range h.peers {
		if msg != nil {
			select {
			case peer <- msg:
			default:
			}
		}
		close(peer)
	}
	h.peers = nil
	return nil
}

// Peers is the number of connected browsers
func (h *Hub) Peers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

func (h *Hub) broadcast(msg []byte) {
	// sends happen under the read lock: peers are only
	// closed with the write lock held
	h.mu.RLock()
	defer h.mu.RUnlock()
	for i, peer := range h.peers {
		select {
		case peer <- msg:
		default:
			h.logger().Debug().Int("peer", i).Msg("skip redirect to slow peer")
		}
	}
}

func (h *Hub) removePeer(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, peer := range h.peers {
		if peer == ch {
			h.peers[i] = h.peers[len(h.peers)-1]
			h.peers = h.peers[:len(h.peers)-1]
			close(ch)
			h.logger().Debug().Msg("removed peer")
			return
		}
	}
}

func (h *Hub) logger() *zerolog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return &log.Logger
}

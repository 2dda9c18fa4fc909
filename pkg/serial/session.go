package serial

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Session owns one open device for the lifetime of the process.
// A single control loop reads and writes through it; only Close may
// be called from another goroutine, to unblock a pending read.
type Session struct {
	ID    string
	Props Props

	port    Port
	log     zerolog.Logger
	now     func() time.Time
	buf     []byte
	pending []byte

	closeOnce sync.Once
	closed    atomic.Bool
}

func newSession(id string, props Props, port Port, logger zerolog.Logger) *Session {
	return &Session{
		ID:    id,
		Props: props,
		port:  port,
		log:   logger,
		now:   time.Now,
		buf:   make([]byte, 256),
	}
}

// Write sends p to the device, blocking until the transport
// accepted every byte.
func (s *Session) Write(p []byte) error {
	if s.closed.Load() {
		return s.fail("write", ErrAlreadyClosed)
	}
	for len(p) > 0 {
		n, err := s.port.Write(p)
		if err != nil {
			return s.fail("write", err)
		}
		if n == 0 {
			return s.fail("write", io.ErrShortWrite)
		}
		s.log.Debug().Bytes("chunk", p[:n]).Msg("wrote")
		p = p[n:]
	}
	return nil
}

// ReadLine blocks until a newline arrives or the read timeout
// elapses. The returned line keeps its trailing newline. On timeout
// whatever was buffered so far is returned, possibly nothing, with
// a nil error: the caller gets no guarantee the line is complete.
// Bytes received after the newline are kept for the next call.
func (s *Session) ReadLine() ([]byte, error) {
	if s.closed.Load() {
		return nil, s.fail("read", ErrAlreadyClosed)
	}
	var deadline time.Time
	if s.Props.Timeout > 0 {
		deadline = s.now().Add(s.Props.Timeout)
	}
	for {
		if line, ok := s.takeLine(); ok {
			return line, nil
		}
		if !deadline.IsZero() {
			now := s.now()
			if !now.Before(deadline) {
				return s.takePending(), nil
			}
			// a read started late must not outlive the deadline
			if err := s.port.SetReadTimeout(deadline.Sub(now)); err != nil {
				return nil, s.fail("read", err)
			}
		}
		n, err := s.port.Read(s.buf)
		if n > 0 {
			s.pending = append(s.pending, s.buf[:n]...)
		}
		if err != nil {
			return nil, s.fail("read", err)
		}
		if n == 0 {
			// port level timeout, no more bytes are coming for now
			return s.takePending(), nil
		}
	}
}

func (s *Session) takeLine() ([]byte, bool) {
	i := bytes.IndexByte(s.pending, '\n')
	if i < 0 {
		return nil, false
	}
	line := make([]byte, i+1)
	copy(line, s.pending)
	s.pending = s.pending[:copy(s.pending, s.pending[i+1:])]
	return line, true
}

func (s *Session) takePending() []byte {
	partial := make([]byte, len(s.pending))
	copy(partial, s.pending)
	s.pending = s.pending[:0]
	if len(partial) > 0 {
		s.log.Debug().Bytes("partial", partial).Msg("read timed out mid-line")
	}
	return partial
}

// Close releases the device handle. Only the first call reaches
// the device, later calls report ErrAlreadyClosed. A read blocked
// on the device fails once the handle is gone.
func (s *Session) Close() error {
	err := ErrAlreadyClosed
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		err = s.port.Close()
		s.log.Info().Err(err).Msg("closed serial session")
	})
	return err
}

func (s *Session) fail(op string, err error) error {
	if errors.Is(err, io.EOF) {
		err = errors.New("device closed the connection")
	}
	s.log.Error().Err(err).Str("op", op).Msg("serial session failed")
	return &ConnectionError{
		Device: s.Props.Device,
		Baud:   s.Props.Baud,
		Op:     op,
		Err:    err,
	}
}

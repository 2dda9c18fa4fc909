package echo

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopbackSession echoes every write back as a CRLF terminated
// line, the way the companion sketch does.
type loopbackSession struct {
	writes   [][]byte
	pending  [][]byte
	wroteAt  time.Time
	readAt   time.Time
	writeErr error
	readErr  error
	silent   bool
}

func (l *loopbackSession) Write(p []byte) error {
	if l.writeErr != nil {
		return l.writeErr
	}
	l.writes = append(l.writes, append([]byte(nil), p...))
	l.wroteAt = time.Now()
	if l.silent {
		return nil
	}
	l.pending = append(l.pending, append(append([]byte(nil), p...), '\r', '\n'))
	return nil
}

func (l *loopbackSession) ReadLine() ([]byte, error) {
	l.readAt = time.Now()
	if l.readErr != nil {
		return nil, l.readErr
	}
	if len(l.pending) == 0 {
		return []byte{}, nil
	}
	line := l.pending[0]
	l.pending = l.pending[1:]
	return line, nil
}

func newWriter(session Session, in string, out *bytes.Buffer) *Writer {
	logger := zerolog.Nop()
	return &Writer{
		Session: session,
		In:      strings.NewReader(in),
		Out:     out,
		Logger:  &logger,
	}
}

func TestWriter_Run(t *testing.T) {
	session := &loopbackSession{}
	var out bytes.Buffer
	w := newWriter(session, "200\n", &out)

	require.NoError(t, w.Run(context.Background()))

	require.Len(t, session.writes, 1)
	assert.Equal(t, []byte("200"), session.writes[0])
	assert.GreaterOrEqual(t, session.readAt.Sub(session.wroteAt), DefaultDelay)
	assert.Equal(t,
		DefaultPrompt+"Sending... \"200\"\n"+
			"200\n"+
			"\n"+
			DefaultPrompt+"\n",
		out.String())
}

func TestWriter_ForwardsAnything(t *testing.T) {
	// out of range and non numeric input reach the device untouched
	session := &loopbackSession{}
	var out bytes.Buffer
	w := newWriter(session, "999\nhello\n\n", &out)
	w.Delay = time.Millisecond

	require.NoError(t, w.Run(context.Background()))

	require.Len(t, session.writes, 3)
	assert.Equal(t, "999", string(session.writes[0]))
	assert.Equal(t, "hello", string(session.writes[1]))
	assert.Empty(t, session.writes[2])
	assert.Contains(t, out.String(), "hello\n\n")
	assert.Contains(t, out.String(), "Invalid value received from serial.\n")
}

func TestWriter_LongAndUnterminatedLines(t *testing.T) {
	long := strings.Repeat("7", 70000)
	session := &loopbackSession{}
	var out bytes.Buffer
	w := newWriter(session, long+"\n12\r\nlast", &out)
	w.Delay = time.Millisecond

	require.NoError(t, w.Run(context.Background()))

	require.Len(t, session.writes, 3)
	assert.Equal(t, long, string(session.writes[0]))
	assert.Equal(t, "12", string(session.writes[1]))
	assert.Equal(t, "last", string(session.writes[2]))
}

func TestWriter_InputFailure(t *testing.T) {
	cause := errors.New("terminal went away")
	session := &loopbackSession{}
	var out bytes.Buffer
	w := newWriter(session, "", &out)
	w.In = io.MultiReader(strings.NewReader("1\n"), iotest.ErrReader(cause))
	w.Delay = time.Millisecond

	err := w.Run(context.Background())
	assert.ErrorIs(t, err, cause)
	require.Len(t, session.writes, 1)
	assert.Equal(t, "1", string(session.writes[0]))
}

func TestWriter_NoReply(t *testing.T) {
	// the device stays silent: the read timeout hands back an empty record
	session := &loopbackSession{silent: true}
	var out bytes.Buffer
	w := newWriter(session, "", &out)
	w.Delay = time.Millisecond

	require.NoError(t, w.Step(context.Background(), "7"))
	assert.Equal(t,
		"Sending... \"7\"\n"+
			"Invalid value received from serial.\n"+
			"\n"+
			"\n",
		out.String())
}

func TestWriter_ConnectionFailure(t *testing.T) {
	cause := errors.New("device unplugged")

	t.Run("write", func(t *testing.T) {
		var out bytes.Buffer
		w := newWriter(&loopbackSession{writeErr: cause}, "1\n2\n", &out)
		assert.ErrorIs(t, w.Run(context.Background()), cause)
	})

	t.Run("read", func(t *testing.T) {
		var out bytes.Buffer
		w := newWriter(&loopbackSession{readErr: cause}, "1\n", &out)
		w.Delay = time.Millisecond
		assert.ErrorIs(t, w.Run(context.Background()), cause)
	})
}

func TestWriter_Interrupt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	w := newWriter(&loopbackSession{}, "", &out)
	// a reader that never produces input, like an idle terminal
	w.In = blockingReader{}
	assert.NoError(t, w.Run(ctx))
}

type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	<-make(chan struct{})
	return 0, nil
}

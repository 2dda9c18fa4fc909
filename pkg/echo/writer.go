package echo

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sudotouchwoman/serialscope/pkg/record"
)

const (
	DefaultPrompt = "Enter a number (0 - 255): "
	DefaultDelay  = 50 * time.Millisecond
)

// Session is what the writer needs from a serial session
type Session interface {
	Write([]byte) error
	ReadLine() ([]byte, error)
}

// Writer forwards whatever the user types to the device and
// prints the line the device answers with. The prompt mentions
// 0-255 but nothing is validated: any text goes out as-is.
type Writer struct {
	Session Session
	In      io.Reader
	Out     io.Writer
	Prompt  string
	Delay   time.Duration
	Logger  *zerolog.Logger
}

// Run loops until the context is canceled or the input ends.
// Both are a clean exit; a connection failure is returned, and so is
// a failure to read the input.
func (w *Writer) Run(ctx context.Context) error {
	lines := pumpLines(ctx, w.In)
	for {
		fmt.Fprint(w.Out, w.prompt())
		select {
		case <-ctx.Done():
			fmt.Fprintln(w.Out)
			return nil
		case line, open := <-lines:
			if !open {
				fmt.Fprintln(w.Out)
				return nil
			}
			if line.err != nil {
				fmt.Fprintln(w.Out)
				return fmt.Errorf("read input: %w", line.err)
			}
			if err := w.Step(ctx, line.text); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
		}
	}
}

// Step sends one line of user input and echoes the reply
func (w *Writer) Step(ctx context.Context, text string) error {
	logger := log.Logger
	if w.Logger != nil {
		logger = *w.Logger
	}

	payload := []byte(text)
	fmt.Fprintf(w.Out, "Sending... %q\n", payload)
	if err := w.Session.Write(payload); err != nil {
		return err
	}
	logger.Debug().Int("bytes", len(payload)).Msg("sent user input")

	// give the device a moment to answer
	if err := sleep(ctx, w.delay()); err != nil {
		return err
	}

	reader := record.Reader{
		Source: w.Session,
		Out:    w.Out,
		Quiet:  true,
		Logger: w.Logger,
	}
	rec, err := reader.Read()
	if err != nil {
		return err
	}
	fmt.Fprintln(w.Out, echoText(rec))
	fmt.Fprintln(w.Out)
	return nil
}

func (w *Writer) prompt() string {
	if w.Prompt == "" {
		return DefaultPrompt
	}
	return w.Prompt
}

func (w *Writer) delay() time.Duration {
	if w.Delay <= 0 {
		return DefaultDelay
	}
	return w.Delay
}

// echoText shows the reply as received, minus the line ending.
// Bytes that are not text are shown quoted.
func echoText(rec record.Record) string {
	if !utf8.Valid(rec.Raw) {
		return fmt.Sprintf("%q", rec.Raw)
	}
	return strings.TrimRight(string(rec.Raw), "\r\n")
}

type inputLine struct {
	text string
	err  error
}

// pumpLines reads the input on its own goroutine so that the loop
// can still notice an interrupt while the user has not typed anything.
// Lines have no length limit; the line ending is dropped.
func pumpLines(ctx context.Context, in io.Reader) <-chan inputLine {
	lines := make(chan inputLine)
	go func() {
		defer close(lines)
		reader := bufio.NewReader(in)
		for {
			text, err := reader.ReadString('\n')
			if err != nil && err != io.EOF {
				select {
				case <-ctx.Done():
				case lines <- inputLine{err: err}:
				}
				return
			}
			// a last line without a newline still counts
			if text != "" {
				text = strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")
				select {
				case <-ctx.Done():
					return
				case lines <- inputLine{text: text}:
				}
			}
			if err == io.EOF {
				return
			}
		}
	}()
	return lines
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

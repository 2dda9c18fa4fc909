package record

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LineSource hands out one newline terminated record per call.
// *serial.Session is the production source.
type LineSource interface {
	ReadLine() ([]byte, error)
}

// Extractor turns decoded text into a number
type Extractor interface {
	Extract(text string) (float64, error)
}

// Record is one line read from the device. Value is only
// meaningful when OK is set; otherwise Err says why.
type Record struct {
	Raw   []byte
	Text  string
	Value float64
	OK    bool
	Err   error
}

// Reader reads and interprets one record at a time.
// Malformed records never surface as errors: they come back
// with OK unset and a diagnostic is printed to Out.
type Reader struct {
	Source  LineSource
	Out     io.Writer
	Extract Extractor
	// Quiet suppresses the "Received:" line for callers
	// that print the record themselves
	Quiet  bool
	Logger *zerolog.Logger
}

// Read blocks for one record. The returned error is the
// source's (a connection failure), never a decode or parse one.
func (r *Reader) Read() (Record, error) {
	raw, err := r.Source.ReadLine()
	if err != nil {
		return Record{}, err
	}
	rec := Parse(raw, r.Extract)

	logger := log.Logger
	if r.Logger != nil {
		logger = *r.Logger
	}
	out := r.Out
	if out == nil {
		out = io.Discard
	}

	var decodeErr *DecodeError
	if !errors.As(rec.Err, &decodeErr) && !r.Quiet {
		fmt.Fprintf(out, "Received: %s from serial.\n", rec.Text)
	}
	if !rec.OK {
		fmt.Fprintln(out, "Invalid value received from serial.")
		logger.Debug().Err(rec.Err).Bytes("raw", raw).Msg("skipping record")
	}
	return rec, nil
}

// Parse decodes raw as UTF-8, trims surrounding whitespace and
// parses the remainder. A nil extractor means plain decimal text.
func Parse(raw []byte, extract Extractor) Record {
	rec := Record{Raw: raw}
	if offset, ok := invalidUTF8(raw); ok {
		rec.Err = &DecodeError{Raw: raw, Offset: offset}
		return rec
	}
	rec.Text = strings.TrimSpace(string(raw))

	var (
		value float64
		err   error
	)
	switch {
	case rec.Text == "":
		err = errors.New("empty record")
	case extract != nil:
		value, err = extract.Extract(rec.Text)
	default:
		value, err = strconv.ParseFloat(rec.Text, 64)
	}
	if err != nil {
		rec.Err = &ParseError{Text: rec.Text, Err: err}
		return rec
	}
	rec.Value = value
	rec.OK = true
	return rec
}

func invalidUTF8(p []byte) (int, bool) {
	for i := 0; i < len(p); {
		r, size := utf8.DecodeRune(p[i:])
		if r == utf8.RuneError && size == 1 {
			return i, true
		}
		i += size
	}
	return 0, false
}

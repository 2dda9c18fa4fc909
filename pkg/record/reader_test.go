package record

import (
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dummySource struct {
	lines [][]byte
	err   error
}

func (d *dummySource) ReadLine() ([]byte, error) {
	if len(d.lines) == 0 {
		if d.err != nil {
			return nil, d.err
		}
		return []byte{}, nil
	}
	line := d.lines[0]
	d.lines = d.lines[1:]
	return line, nil
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		raw   []byte
		value float64
		ok    bool
	}{
		{name: "plain", raw: []byte("3.14\n"), value: 3.14, ok: true},
		{name: "crlf", raw: []byte("0.5\r\n"), value: 0.5, ok: true},
		{name: "padded", raw: []byte("  -2 \n"), value: -2, ok: true},
		{name: "exponent", raw: []byte("1e-3\n"), value: 0.001, ok: true},
		{name: "integer", raw: []byte("255"), value: 255, ok: true},
		{name: "word", raw: []byte("banana\n")},
		{name: "empty timeout", raw: []byte{}},
		{name: "blank line", raw: []byte("\r\n")},
		{name: "partial number", raw: []byte("3.1x\n")},
		{name: "out of range", raw: []byte("1e400\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Parse(tt.raw, nil)
			assert.Equal(t, tt.ok, rec.OK)
			if tt.ok {
				assert.NoError(t, rec.Err)
				assert.Equal(t, tt.value, rec.Value)
				return
			}
			var parseErr *ParseError
			assert.ErrorAs(t, rec.Err, &parseErr)
			assert.Zero(t, rec.Value)
		})
	}
}

func TestParse_InvalidUTF8(t *testing.T) {
	rec := Parse([]byte{'1', '.', 0xff, '\n'}, nil)
	assert.False(t, rec.OK)

	var decodeErr *DecodeError
	require.ErrorAs(t, rec.Err, &decodeErr)
	assert.Equal(t, 2, decodeErr.Offset)
}

func TestReader_Read(t *testing.T) {
	logger := zerolog.Nop()
	var out strings.Builder
	reader := Reader{
		Source: &dummySource{lines: [][]byte{
			[]byte("3.14\n"),
			[]byte("banana\n"),
			{0xc3, 0x28, '\n'},
		}},
		Out:    &out,
		Logger: &logger,
	}

	rec, err := reader.Read()
	require.NoError(t, err)
	assert.True(t, rec.OK)
	assert.Equal(t, 3.14, rec.Value)
	assert.Equal(t, "3.14", rec.Text)

	rec, err = reader.Read()
	require.NoError(t, err)
	assert.False(t, rec.OK)

	rec, err = reader.Read()
	require.NoError(t, err)
	assert.False(t, rec.OK)

	assert.Equal(t,
		"Received: 3.14 from serial.\n"+
			"Received: banana from serial.\n"+
			"Invalid value received from serial.\n"+
			"Invalid value received from serial.\n",
		out.String())
}

func TestReader_Quiet(t *testing.T) {
	logger := zerolog.Nop()
	var out strings.Builder
	reader := Reader{
		Source: &dummySource{lines: [][]byte{[]byte("ok\n")}},
		Out:    &out,
		Quiet:  true,
		Logger: &logger,
	}
	rec, err := reader.Read()
	require.NoError(t, err)
	assert.Equal(t, "ok", rec.Text)
	assert.Equal(t, "Invalid value received from serial.\n", out.String())
}

func TestReader_SourceError(t *testing.T) {
	cause := errors.New("unplugged")
	reader := Reader{Source: &dummySource{err: cause}}
	_, err := reader.Read()
	assert.ErrorIs(t, err, cause)
}

func TestJQExtractor(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		text   string
		value  float64
		fail   bool
	}{
		{name: "field", filter: ".value", text: `{"value": 0.5}`, value: 0.5},
		{name: "nested", filter: ".sensors[1].v", text: `{"sensors":[{"v":1},{"v":2.5}]}`, value: 2.5},
		{name: "integer arithmetic", filter: ".a + .b", text: `{"a":1,"b":2}`, value: 3},
		{name: "string result", filter: ".name", text: `{"name":"pot"}`, fail: true},
		{name: "missing field", filter: ".value", text: `{}`, fail: true},
		{name: "not json", filter: ".value", text: `0.5 volts`, fail: true},
		{name: "empty output", filter: "empty", text: `{}`, fail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jq, err := NewJQExtractor(tt.filter)
			require.NoError(t, err)

			rec := Parse([]byte(tt.text+"\n"), jq)
			if tt.fail {
				assert.False(t, rec.OK)
				var parseErr *ParseError
				assert.ErrorAs(t, rec.Err, &parseErr)
				return
			}
			require.True(t, rec.OK, "err: %v", rec.Err)
			assert.Equal(t, tt.value, rec.Value)
		})
	}
}

func TestNewJQExtractor_BadFilter(t *testing.T) {
	_, err := NewJQExtractor(".value |")
	assert.Error(t, err)
}

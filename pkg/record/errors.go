package record

import "fmt"

// DecodeError means the record was not valid UTF-8 text
type DecodeError struct {
	Raw    []byte
	Offset int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid utf-8 at byte %d of %q", e.Offset, e.Raw)
}

// ParseError means the text decoded fine but held no usable number
type ParseError struct {
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %v", e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

package serial

import (
	"errors"
	"fmt"
)

var ErrAlreadyClosed = errors.New("session is closed")

// ConnectionError reports that the device could not be opened
// or that the transport failed while the session was in use.
type ConnectionError struct {
	Device string
	Baud   int
	Op     string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("serial %s %s (%d baud): %v", e.Op, e.Device, e.Baud, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsConnectionError reports whether err carries a ConnectionError
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

package serial

import (
	"fmt"
	"io"
	"time"
)

// Port is the part of a serial device handle a session relies on.
// go.bug.st/serial ports satisfy it, so do the simulator and test fakes.
// A Read that returns (0, nil) is treated as an expired read timeout.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(time.Duration) error
}

// Props describe the session to open
type Props struct {
	Device  string
	Baud    int
	Timeout time.Duration
}

func (p Props) String() string {
	return fmt.Sprintf("%s at %d baud", p.Device, p.Baud)
}

package serial

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

type PortInfo struct {
	Name         string
	Product      string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
}

// String renders the port the way serial monitors usually list them,
// e.g. "/dev/ttyACM0 - Arduino Uno [USB VID:PID=2341:0043 SER=7503]"
func (p PortInfo) String() string {
	var sb strings.Builder
	sb.WriteString(p.Name)
	if p.Product != "" {
		sb.WriteString(" - ")
		sb.WriteString(p.Product)
	}
	if p.IsUSB {
		fmt.Fprintf(&sb, " [USB VID:PID=%s:%s", p.VID, p.PID)
		if p.SerialNumber != "" {
			fmt.Fprintf(&sb, " SER=%s", p.SerialNumber)
		}
		sb.WriteString("]")
	}
	return sb.String()
}

// ReportFailure tells the user which port could not be used
// and lists the ports that are currently available instead.
func ReportFailure(w io.Writer, err error, list Lister) {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		fmt.Fprintf(w, "Error opening or reading from %s at %d baud. Make sure the device is connected.\n",
			connErr.Device, connErr.Baud)
		fmt.Fprintf(w, "  %s failed: %v\n", connErr.Op, connErr.Err)
	} else {
		fmt.Fprintf(w, "Error: %v\n", err)
	}

	fmt.Fprintln(w, "Available serial ports:")
	ports, listErr := list()
	switch {
	case listErr != nil:
		fmt.Fprintf(w, "  (could not list ports: %v)\n", listErr)
	case len(ports) == 0:
		fmt.Fprintln(w, "  (none found)")
	default:
		for _, port := range ports {
			fmt.Fprintln(w, " ", port)
		}
	}
}

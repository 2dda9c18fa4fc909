package serial

import (
	"errors"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Opener opens a device handle in the given mode
type Opener func(device string, mode *serial.Mode) (Port, error)

// Lister enumerates the ports currently present on the system
type Lister func() ([]PortInfo, error)

// SessionFactory opens sessions and enumerates ports. The zero value
// talks to real hardware; Opener and Lister can be swapped for the
// simulator or for tests.
type SessionFactory struct {
	Opener Opener
	Lister Lister
	Logger *zerolog.Logger

	mu sync.Mutex
}

func (sf *SessionFactory) Open(props Props) (*Session, error) {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	opener := sf.Opener
	if opener == nil {
		opener = openNative
	}
	logger := log.Logger
	if sf.Logger != nil {
		logger = *sf.Logger
	}

	id := ulid.Make().String()
	logger = logger.With().
		Str("session", id).
		Str("port", props.Device).
		Int("baud", props.Baud).
		Logger()

	if props.Baud <= 0 {
		return nil, &ConnectionError{
			Device: props.Device, Baud: props.Baud, Op: "open",
			Err: fmt.Errorf("invalid baud rate %d", props.Baud),
		}
	}

	port, err := opener(props.Device, &serial.Mode{
		// 8N1, the only framing the devices we talk to use
		BaudRate: props.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		logger.Error().Err(err).Msg("serial.Open()")
		return nil, &ConnectionError{Device: props.Device, Baud: props.Baud, Op: "open", Err: err}
	}

	timeout := props.Timeout
	if timeout <= 0 {
		timeout = serial.NoTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		logger.Error().Err(err).Msg("set read timeout")
		return nil, &ConnectionError{Device: props.Device, Baud: props.Baud, Op: "open", Err: err}
	}

	logger.Info().Dur("timeout", props.Timeout).Msg("opened serial session")
	return newSession(id, props, port, logger), nil
}

// ListPorts queries the serial library for the ports on this machine.
// An empty slice is returned when nothing is plugged in.
func (sf *SessionFactory) ListPorts() ([]PortInfo, error) {
	if sf.Lister != nil {
		return sf.Lister()
	}
	return listNative()
}

func openNative(device string, mode *serial.Mode) (Port, error) {
	return serial.Open(device, mode)
}

func listNative() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err == nil {
		ports := make([]PortInfo, 0, len(details))
		for _, d := range details {
			ports = append(ports, PortInfo{
				Name:         d.Name,
				Product:      d.Product,
				IsUSB:        d.IsUSB,
				VID:          d.VID,
				PID:          d.PID,
				SerialNumber: d.SerialNumber,
			})
		}
		return ports, nil
	}

	// detailed enumeration is not available everywhere,
	// plain names are better than nothing
	names, namesErr := serial.GetPortsList()
	if namesErr != nil {
		return nil, fmt.Errorf("list ports: %w", errors.Join(err, namesErr))
	}
	ports := make([]PortInfo, 0, len(names))
	for _, name := range names {
		ports = append(ports, PortInfo{Name: name})
	}
	return ports, nil
}

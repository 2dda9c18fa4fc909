package server

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sudotouchwoman/serialscope/pkg/serial"
	bugst "go.bug.st/serial"
)

const (
	SimulatedDevice = "simulated"
	// about what a sketch printing in a loop with a short delay produces
	DefaultPeriod = 50 * time.Millisecond
)

var ErrSimulatorClosed = errors.New("simulated port is closed")

// Simulator stands in for a microcontroller so the tools can run
// without hardware. With a positive Period it prints one reading
// per period, a slow wave in [0, 1]; everything written to it is
// echoed back as a line, the way the echo sketch does.
type Simulator struct {
	Period time.Duration
	// every n-th reading is garbled when positive
	GarbageEvery int
	Wave         func(elapsed time.Duration) float64

	mu      sync.Mutex
	timeout time.Duration
	start   time.Time
	next    time.Time
	count   int
	pending []byte
	echo    chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func NewSimulator(period time.Duration) *Simulator {
	now := time.Now()
	return &Simulator{
		Period:  period,
		Wave:    SineWave(5 * time.Second),
		timeout: bugst.NoTimeout,
		start:   now,
		next:    now.Add(period),
		echo:    make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

// Factory returns a session factory whose only port is s
func (s *Simulator) Factory() *serial.SessionFactory {
	return &serial.SessionFactory{
		Opener: func(string, *bugst.Mode) (serial.Port, error) {
			return s, nil
		},
		Lister: func() ([]serial.PortInfo, error) {
			return []serial.PortInfo{{Name: SimulatedDevice, Product: "serialscope simulator"}}, nil
		},
	}
}

// SineWave oscillates between 0 and 1 once per period
func SineWave(period time.Duration) func(time.Duration) float64 {
	return func(elapsed time.Duration) float64 {
		phase := 2 * math.Pi * elapsed.Seconds() / period.Seconds()
		return 0.5 + 0.5*math.Sin(phase)
	}
}

func (s *Simulator) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		var timeout <-chan time.Time
		if s.timeout >= 0 {
			timer := time.NewTimer(s.timeout)
			defer timer.Stop()
			timeout = timer.C
		}
		var tick <-chan time.Time
		if s.Period > 0 {
			timer := time.NewTimer(time.Until(s.next))
			defer timer.Stop()
			tick = timer.C
		}

		select {
		case <-s.closed:
			return 0, ErrSimulatorClosed
		case line := <-s.echo:
			s.pending = line
		case now := <-tick:
			s.pending = s.reading(now)
			s.next = s.next.Add(s.Period)
			if s.next.Before(now) {
				// we fell behind, do not burst to catch up
				s.next = now.Add(s.Period)
			}
		case <-timeout:
			return 0, nil
		}
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *Simulator) reading(now time.Time) []byte {
	s.count++
	if s.GarbageEvery > 0 && s.count%s.GarbageEvery == 0 {
		return []byte("#noise\r\n")
	}
	return []byte(fmt.Sprintf("%.3f\r\n", s.Wave(now.Sub(s.start))))
}

func (s *Simulator) Write(p []byte) (int, error) {
	select {
	case <-s.closed:
		return 0, ErrSimulatorClosed
	default:
	}
	line := make([]byte, 0, len(p)+2)
	line = append(line, p...)
	line = append(line, '\r', '\n')
	select {
	case s.echo <- line:
	default:
		// the sketch drops input when its buffer is full, so do we
	}
	return len(p), nil
}

func (s *Simulator) SetReadTimeout(t time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = t
	return nil
}

func (s *Simulator) Close() error {
	err := ErrSimulatorClosed
	s.closeOnce.Do(func() {
		close(s.closed)
		err = nil
	})
	return err
}

package circle

import (
	"context"
	"errors"
	"sync"

	"github.com/thejerf/suture/v4"
)

// Service runs a Visualizer under a suture supervisor.
// There is no reconnect: once the connection fails the error is
// kept, Done is closed and the supervisor is told not to restart us.
type Service struct {
	Visualizer *Visualizer

	once sync.Once
	done chan struct{}
	err  error
}

func NewService(v *Visualizer) *Service {
	return &Service{Visualizer: v, done: make(chan struct{})}
}

func (s *Service) Serve(ctx context.Context) error {
	err := s.Visualizer.Run(ctx)
	if err == nil {
		return ctx.Err()
	}
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
	return errors.Join(suture.ErrDoNotRestart, err)
}

// Done is closed once the visualizer stopped for good
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Err is the connection failure that stopped the visualizer
func (s *Service) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

func (s *Service) String() string {
	return "circle visualizer"
}

package circle

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sudotouchwoman/serialscope/pkg/record"
)

const DefaultPause = 10 * time.Millisecond

// RecordReader yields one record per call, see record.Reader
type RecordReader interface {
	Read() (record.Record, error)
}

// Canvas is a plotting surface able to show a circle state
type Canvas interface {
	Redraw(State) error
}

// Visualizer maps every parsed value to the circle radius and
// asks the canvas to redraw. Records without a value leave the
// last good radius in place and trigger no redraw.
type Visualizer struct {
	Reader RecordReader
	Canvas Canvas
	Pause  time.Duration
	Logger *zerolog.Logger

	state State
}

func NewVisualizer(reader RecordReader, canvas Canvas) *Visualizer {
	return &Visualizer{
		Reader: reader,
		Canvas: canvas,
		Pause:  DefaultPause,
		state:  NewState(),
	}
}

// State returns a copy of the current circle
func (v *Visualizer) State() State {
	return v.state
}

// Apply updates the radius from rec and reports whether it changed.
// Non finite values are refused: no canvas can draw them.
func (v *Visualizer) Apply(rec record.Record) bool {
	if !rec.OK {
		return false
	}
	// huge finite values overflow once scaled
	radius := rec.Value * Scale
	if math.IsNaN(radius) || math.IsInf(radius, 0) {
		v.logger().Warn().Float64("value", rec.Value).Msg("ignoring value without a finite radius")
		return false
	}
	v.state.Value = rec.Value
	v.state.Radius = radius
	v.state.Seq++
	v.state.Iat = time.Now()
	return true
}

// Step reads one record and redraws when it carried a value.
// Only connection failures are returned.
func (v *Visualizer) Step() error {
	rec, err := v.Reader.Read()
	if err != nil {
		return err
	}
	if v.Apply(rec) {
		v.redraw()
	}
	return nil
}

// Run draws the initial circle and loops until the context is
// canceled (nil) or the connection fails (the error). A read failing
// after cancellation is the port being released, not a failure.
func (v *Visualizer) Run(ctx context.Context) error {
	v.redraw()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := v.Step(); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		// let the canvas catch up
		if err := sleep(ctx, v.Pause); err != nil {
			return nil
		}
	}
}

func (v *Visualizer) redraw() {
	if err := v.Canvas.Redraw(v.state); err != nil {
		v.logger().Warn().Err(err).Msg("redraw failed")
	}
}

func (v *Visualizer) logger() *zerolog.Logger {
	if v.Logger != nil {
		return v.Logger
	}
	return &log.Logger
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

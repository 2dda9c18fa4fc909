// Package window draws the circle in a native window.
//
// ebiten wants the main goroutine, so the visualizer loop runs
// elsewhere and only hands frames over through Redraw; the game
// loop picks up the latest one on every tick.
package window

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/sudotouchwoman/serialscope/pkg/circle"
)

const (
	// logical pixels, one per plot unit plus a margin for the frame
	margin = 20
	side   = 2*int(circle.Limit) + 2*margin
)

var (
	darkRed   = color.RGBA{R: 0x8b, A: 0xff}
	gridColor = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	axisColor = color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}
)

// Canvas implements circle.Canvas on top of an ebiten game
type Canvas struct {
	mu    sync.Mutex
	state circle.State
}

func NewCanvas() *Canvas {
	return &Canvas{state: circle.NewState()}
}

func (c *Canvas) Redraw(s circle.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	return nil
}

// Current is the frame the next Draw will show
func (c *Canvas) Current() circle.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run opens the window and blocks until it is closed
// or the context is done.
func (c *Canvas) Run(ctx context.Context, title string) error {
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(side*3/2, side*3/2)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60)
	return ebiten.RunGame(&game{ctx: ctx, canvas: c})
}

type game struct {
	ctx    context.Context
	canvas *Canvas
}

func (g *game) Update() error {
	select {
	case <-g.ctx.Done():
		return ebiten.Termination
	default:
		return nil
	}
}

func (g *game) Draw(screen *ebiten.Image) {
	s := g.canvas.Current()
	screen.Fill(color.White)
	drawGrid(screen, s)

	if r := math.Abs(s.Radius); r > 0 {
		cx, cy := toScreen(s, s.CenterX, s.CenterY)
		vector.DrawFilledCircle(screen, cx, cy, float32(r), darkRed, true)
		vector.StrokeCircle(screen, cx, cy, float32(r), 1, color.Black, true)
	}
	// debug text is white, give it a dark strip to sit on
	vector.DrawFilledRect(screen, 0, 0, float32(side), 16, axisColor, false)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("radius %.2f  frame %d", s.Radius, s.Seq), margin, 2)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return side, side
}

// toScreen maps plot coordinates (y up) to pixels (y down)
func toScreen(s circle.State, x, y float64) (float32, float32) {
	px := margin + (x - s.XLim[0])
	py := margin + (s.YLim[1] - y)
	return float32(px), float32(py)
}

func drawGrid(screen *ebiten.Image, s circle.State) {
	for v := -circle.Limit; v <= circle.Limit; v += 50 {
		x0, y0 := toScreen(s, v, s.YLim[0])
		x1, y1 := toScreen(s, v, s.YLim[1])
		vector.StrokeLine(screen, x0, y0, x1, y1, 1, gridColor, false)
		x0, y0 = toScreen(s, s.XLim[0], v)
		x1, y1 = toScreen(s, s.XLim[1], v)
		vector.StrokeLine(screen, x0, y0, x1, y1, 1, gridColor, false)
	}
	x0, y0 := toScreen(s, s.XLim[0], s.YLim[1])
	x1, y1 := toScreen(s, s.XLim[1], s.YLim[0])
	vector.StrokeRect(screen, x0, y0, x1-x0, y1-y0, 1, axisColor, false)
}

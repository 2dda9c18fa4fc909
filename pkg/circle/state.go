package circle

import "time"

const (
	// Scale maps a received value to a radius in plot units
	Scale = 200.0
	// Limit bounds both axes to [-Limit, Limit]
	Limit = 200.0

	FaceColor = "darkred"
	EdgeColor = "black"
)

// State is everything a canvas needs to draw the circle.
// Only the radius changes over a session; Seq counts accepted
// values so remote canvases can drop stale frames.
type State struct {
	Radius  float64    `json:"radius"`
	CenterX float64    `json:"cx"`
	CenterY float64    `json:"cy"`
	Face    string     `json:"face"`
	Edge    string     `json:"edge"`
	XLim    [2]float64 `json:"xlim"`
	YLim    [2]float64 `json:"ylim"`
	Value   float64    `json:"value"`
	Seq     uint64     `json:"seq"`
	Iat     time.Time  `json:"iat"`
}

// NewState is a zero radius circle at the origin
func NewState() State {
	return State{
		Face: FaceColor,
		Edge: EdgeColor,
		XLim: [2]float64{-Limit, Limit},
		YLim: [2]float64{-Limit, Limit},
		Iat:  time.Now(),
	}
}

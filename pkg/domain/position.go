package domain

// Position is a point in scene space.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// ParkedPosition is where shared actors are sent when a region is left.
// Moving far away doubles as a crude deactivation signal for the host.
var ParkedPosition = Position{X: 1000, Y: 1000, Z: 1000}

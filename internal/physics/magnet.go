package physics

import (
	"math"

	"github.com/san-kum/forcegraph/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

// MagnetParams configures an inverse-square force. Negative constants repel.
type MagnetParams struct {
	Constant        float64 `yaml:"constant" toml:"constant" json:"constant"`
	MinimumDistance float64 `yaml:"minimum_distance" toml:"minimum_distance" json:"minimum_distance"`
}

var DefaultMagnet = MagnetParams{Constant: -2000, MinimumDistance: 10}

type Magnet struct {
	A, B *dynamo.Particle
	MagnetParams
	Age int

	force r2.Vec
}

func (m *Magnet) Force() r2.Vec { return m.force }

func (m *Magnet) Touches(p *dynamo.Particle) bool {
	return m.A == p || m.B == p
}

func (m *Magnet) apply() {
	d := r2.Sub(m.A.Pos, m.B.Pos)
	dist := r2.Norm(d)

	// Coincident particles have no direction to push along.
	var v r2.Vec
	if dist != 0 {
		u := r2.Scale(1/dist, d)
		r := math.Max(dist, m.MinimumDistance)
		v = r2.Scale(-m.Constant/(r*r), u)
	}
	applyDelta(m.A, m.B, r2.Sub(v, m.force))
	m.force = v
}

func (m *Magnet) detach() {
	applyDelta(m.A, m.B, r2.Scale(-1, m.force))
	m.force = r2.Vec{}
}

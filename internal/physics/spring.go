package physics

import (
	"github.com/san-kum/forcegraph/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

type SpringParams struct {
	Constant   float64 `yaml:"constant" toml:"constant" json:"constant"`
	Damping    float64 `yaml:"damping" toml:"damping" json:"damping"`
	RestLength float64 `yaml:"rest_length" toml:"rest_length" json:"rest_length"`
}

var (
	DefaultParentSpring  = SpringParams{Constant: 0.5, Damping: 0.2, RestLength: 20}
	DefaultRelatedSpring = SpringParams{Constant: 0.2, Damping: 0.2, RestLength: 20}
)

// Spring pulls its endpoints towards RestLength apart.
type Spring struct {
	A, B *dynamo.Particle
	SpringParams
	Age int

	// force is the vector most recently added to A (and subtracted from B).
	force r2.Vec
}

func (s *Spring) Force() r2.Vec { return s.force }

func (s *Spring) Touches(p *dynamo.Particle) bool {
	return s.A == p || s.B == p
}

func (s *Spring) apply() {
	d := r2.Sub(s.A.Pos, s.B.Pos)
	length := r2.Norm(d)

	var u r2.Vec
	if length != 0 {
		u = r2.Scale(1/length, d)
	}

	springForce := -(length - s.RestLength) * s.Constant
	dampingForce := -s.Damping * r2.Dot(u, r2.Sub(s.A.Vel, s.B.Vel))

	v := r2.Scale(springForce+dampingForce, u)
	applyDelta(s.A, s.B, r2.Sub(v, s.force))
	s.force = v
}

// detach takes the spring's last contribution back out of its endpoints.
func (s *Spring) detach() {
	applyDelta(s.A, s.B, r2.Scale(-1, s.force))
	s.force = r2.Vec{}
}

func applyDelta(a, b *dynamo.Particle, delta r2.Vec) {
	if a.Receives() {
		a.Force = r2.Add(a.Force, delta)
	}
	if b.Receives() {
		b.Force = r2.Sub(b.Force, delta)
	}
}

type pair struct {
	a, b *dynamo.Particle
}

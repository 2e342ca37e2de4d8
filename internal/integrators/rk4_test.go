package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/forcegraph/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

// anchorSystem pulls every particle towards the origin with F = -k x.
type anchorSystem struct {
	particles []*dynamo.Particle
	k         float64
	passes    int
}

func (s *anchorSystem) Len() int                        { return len(s.particles) }
func (s *anchorSystem) At(i int) *dynamo.Particle       { return s.particles[i] }
func (s *anchorSystem) Movable(p *dynamo.Particle) bool { return !p.Fixed }
func (s *anchorSystem) ApplyForces() {
	s.passes++
	for _, p := range s.particles {
		if p != nil {
			p.Force = r2.Scale(-s.k, p.Pos)
		}
	}
}

func TestRK4FreeParticle(t *testing.T) {
	p := &dynamo.Particle{ID: "a", Mass: 1, Vel: r2.Vec{X: 12}}
	sys := &anchorSystem{particles: []*dynamo.Particle{p}}
	integ := NewRK4()

	integ.Step(sys, 1)

	// k1 sees the full velocity, later stages the retained half.
	if math.Abs(p.Pos.X-3.5) > 1e-12 {
		t.Errorf("position: got %.6f, expected 3.5", p.Pos.X)
	}
	if math.Abs(p.Vel.X-6) > 1e-12 {
		t.Errorf("velocity: got %.6f, expected 6", p.Vel.X)
	}
	if sys.passes != 4 {
		t.Errorf("expected 4 force passes, got %d", sys.passes)
	}
}

func TestRK4SkipsImmovable(t *testing.T) {
	fixed := &dynamo.Particle{ID: "f", Mass: 1, Fixed: true, Pos: r2.Vec{X: 5}, Vel: r2.Vec{Y: 3}}
	sys := &anchorSystem{particles: []*dynamo.Particle{nil, fixed}, k: 1}

	NewRK4().Step(sys, 1)

	if fixed.Pos != (r2.Vec{X: 5}) || fixed.Vel != (r2.Vec{Y: 3}) {
		t.Errorf("fixed particle moved: pos=%v vel=%v", fixed.Pos, fixed.Vel)
	}
}

func TestIntegratorsSettle(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			integ, err := New(name, 0)
			if err != nil {
				t.Fatalf("new %s: %v", name, err)
			}
			p := &dynamo.Particle{ID: "a", Mass: 1, Pos: r2.Vec{X: 100, Y: -40}}
			sys := &anchorSystem{particles: []*dynamo.Particle{p}, k: 0.2}

			start := r2.Norm(p.Pos)
			for i := 0; i < 200; i++ {
				integ.Step(sys, 1)
			}
			if !p.IsValid() {
				t.Fatalf("state diverged: %v", p.Pos)
			}
			if r2.Norm(p.Pos) > start/10 {
				t.Errorf("expected particle near anchor, got distance %.3f", r2.Norm(p.Pos))
			}
		})
	}
}

func TestNewUnknown(t *testing.T) {
	if _, err := New("leapfrog", 0.5); err == nil {
		t.Error("expected error for unknown integrator")
	}
}

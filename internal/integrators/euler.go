package integrators

import (
	"github.com/san-kum/forcegraph/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

// Euler is a semi-implicit Euler stepper: one force pass per step, velocity
// first, then position from the new velocity.
type Euler struct {
	Retention float64
}

func NewEuler() *Euler {
	return &Euler{Retention: DefaultRetention}
}

func (e *Euler) Reset() {}

func (e *Euler) Step(sys dynamo.System, dt float64) {
	sys.ApplyForces()
	for i := 0; i < sys.Len(); i++ {
		p := sys.At(i)
		if p == nil || !sys.Movable(p) {
			continue
		}
		p.Vel = r2.Add(r2.Scale(e.Retention, p.Vel), r2.Scale(dt/p.Mass, p.Force))
		p.Pos = r2.Add(p.Pos, r2.Scale(dt, p.Vel))
	}
}

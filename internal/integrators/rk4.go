package integrators

import (
	"github.com/san-kum/forcegraph/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultRetention is the share of velocity a particle carries into a step.
// Anything below one bleeds energy so the layout comes to rest.
const DefaultRetention = 0.5

// RK4 is a fourth order Runge-Kutta stepper over forces and velocities.
// Every stage reapplies the system's forces at the trial positions.
type RK4 struct {
	Retention float64

	kf, kv [4][]r2.Vec
}

func NewRK4() *RK4 {
	return &RK4{Retention: DefaultRetention}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.kf[0]) < n {
		for k := range r.kf {
			r.kf[k] = make([]r2.Vec, n)
			r.kv[k] = make([]r2.Vec, n)
		}
	}
}

func (r *RK4) Reset() {
	for k := range r.kf {
		clear(r.kf[k])
		clear(r.kv[k])
	}
}

func (r *RK4) Step(sys dynamo.System, dt float64) {
	n := sys.Len()
	r.ensureScratch(n)

	for i := 0; i < n; i++ {
		if p := sys.At(i); p != nil && sys.Movable(p) {
			p.OrigPos = p.Pos
			p.OrigVel = r2.Scale(r.Retention, p.Vel)
		}
	}

	stage := [3]float64{0.5 * dt, 0.5 * dt, dt}
	for k := 0; k < 4; k++ {
		sys.ApplyForces()
		for i := 0; i < n; i++ {
			p := sys.At(i)
			if p == nil || !sys.Movable(p) {
				continue
			}
			r.kf[k][i] = p.Force
			r.kv[k][i] = p.Vel
			if k < 3 {
				h := stage[k]
				p.Pos = r2.Add(p.OrigPos, r2.Scale(h, r.kv[k][i]))
				p.Vel = r2.Add(p.OrigVel, r2.Scale(h/p.Mass, r.kf[k][i]))
			}
		}
	}

	w := r.Retention * dt / 6
	for i := 0; i < n; i++ {
		p := sys.At(i)
		if p == nil || !sys.Movable(p) {
			continue
		}
		v := weighted(r.kv[0][i], r.kv[1][i], r.kv[2][i], r.kv[3][i])
		f := weighted(r.kf[0][i], r.kf[1][i], r.kf[2][i], r.kf[3][i])
		p.Pos = r2.Add(p.OrigPos, r2.Scale(w, v))
		p.Vel = r2.Add(p.OrigVel, r2.Scale(w/p.Mass, f))
	}
}

func weighted(k1, k2, k3, k4 r2.Vec) r2.Vec {
	return r2.Add(r2.Add(k1, r2.Scale(2, r2.Add(k2, k3))), k4)
}

// Package physics provides the particle model behind the graph layout.
//
// A [Model] owns an arena of [dynamo.Particle] values addressed through an
// ordered id table, plus the two kinds of pairwise force acting on them:
//
//   - [Spring]: Hooke spring with damping, used for parent/child and
//     relation edges
//   - [Magnet]: inverse-square repulsion between every pair of nodes
//
// Newly created forces are also placed in an active window for a bounded
// number of ticks, which gives fresh structure extra weight while the
// layout absorbs it.
//
// # Settling
//
// [Model.Update] ticks the model and asks its [Throttle] how long the
// scheduler should wait before the next tick. When almost nothing moved
// the throttle asks the scheduler to stop; any structural change wakes it
// again.
//
//	m := physics.New(integrators.NewRK4())
//	a := &dynamo.Particle{ID: "a", Mass: 1}
//	b := &dynamo.Particle{ID: "b", Mass: 1, Pos: r2.Vec{X: 10}}
//	_ = m.AddParticle(a)
//	_ = m.AddParticle(b)
//	_, _ = m.AddSpring("a", "b", physics.DefaultRelatedSpring)
//	delay, running := m.Update()
//
// # Moving Subgraphs
//
// [Model.Extract] and [Model.Implant] move a set of particles, together
// with the forces wholly inside that set, from one model to another without
// copying. Forces crossing the boundary are returned detached so the caller
// can park them and hand them back to [Model.Restore] later.
package physics

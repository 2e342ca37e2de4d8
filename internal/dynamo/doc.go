// Package dynamo provides the core primitives shared by the layout engine.
//
// The package defines the types every other layer agrees on:
//
//   - [Particle]: a positioned point mass standing for a graph node or for
//     the control point of a relation edge
//   - [System]: the view an [Integrator] needs of a particle model
//   - [Integrator]: numerical stepper advancing every movable particle
//   - [Drawer]: the narrow renderer hook the model calls after each tick
//   - [TickStats]: what a single tick did, reported to [TickObserver]s
//
// # Identifiers
//
// Particles are addressed by [ID]. Two ids are reserved for entities that
// exist only while a drag-to-relate gesture is in flight: [TempNode] for the
// floating drag handle and [TempRelation] for the relation being created.
// Once the data source confirms the relation it is rekeyed to its permanent
// id.
//
// # Thread Safety
//
// Nothing in this package is safe for concurrent use. Particles belong to
// exactly one model and are mutated only from the scheduler loop.
package dynamo

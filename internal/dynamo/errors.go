package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for particle model operations.
var (
	// ErrUnknownParticle indicates an id with no live particle behind it.
	ErrUnknownParticle = errors.New("dynamo: unknown particle")

	// ErrDuplicateParticle indicates an attempt to add an id that is already live.
	ErrDuplicateParticle = errors.New("dynamo: particle already exists")

	// ErrSelfPair indicates a spring or magnet whose two endpoints are the same particle.
	ErrSelfPair = errors.New("dynamo: force endpoints must differ")

	// ErrInvalidState indicates a particle position or velocity became NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrInvalidConfig indicates configuration values the engine cannot run with.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")
)

// ParticleError wraps an error with the particle and operation it concerns.
type ParticleError struct {
	Op      string
	ID      ID
	Wrapped error
}

func (e *ParticleError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.ID, e.Wrapped)
}

func (e *ParticleError) Unwrap() error {
	return e.Wrapped
}

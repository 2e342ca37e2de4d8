package integrators

import (
	"testing"

	"github.com/san-kum/forcegraph/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

func benchSystem(n int) *anchorSystem {
	s := &anchorSystem{k: 0.1}
	for i := 0; i < n; i++ {
		s.particles = append(s.particles, &dynamo.Particle{
			ID:   dynamo.ID(rune('a' + i%26)),
			Mass: 1,
			Pos:  r2.Vec{X: float64(i), Y: float64(n - i)},
		})
	}
	return s
}

func BenchmarkEuler(b *testing.B) {
	integrator := NewEuler()
	sys := benchSystem(100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		integrator.Step(sys, 1)
	}
}

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4()
	sys := benchSystem(100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		integrator.Step(sys, 1)
	}
}

func BenchmarkRK4_1000(b *testing.B) {
	integrator := NewRK4()
	sys := benchSystem(1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		integrator.Step(sys, 1)
	}
}

package physics

import "time"

// Throttle maps the fraction of particles that visibly moved during a tick
// to the delay before the next one.
type Throttle struct {
	MinParticles int
	StopBelow    float64
	SlowBelow    float64
	EaseBelow    float64
	Slow         time.Duration
	Ease         time.Duration
	Fast         time.Duration
}

func DefaultThrottle() Throttle {
	return Throttle{
		MinParticles: 25,
		StopBelow:    0.01,
		SlowBelow:    0.05,
		EaseBelow:    0.10,
		Slow:         50 * time.Millisecond,
		Ease:         5 * time.Millisecond,
		Fast:         time.Millisecond,
	}
}

// Next returns the delay before the next tick, or false when the layout
// has settled and the scheduler should stop. Small graphs never settle.
func (t Throttle) Next(redrawn, live int) (time.Duration, bool) {
	if live <= t.MinParticles {
		return t.Fast, true
	}
	e := float64(redrawn) / float64(live)
	switch {
	case e < t.StopBelow:
		return 0, false
	case e < t.SlowBelow:
		return t.Slow, true
	case e < t.EaseBelow:
		return t.Ease, true
	default:
		return t.Fast, true
	}
}

// Fraction is the moved fraction Next reasons about, or 1 for graphs too
// small to throttle.
func (t Throttle) Fraction(redrawn, live int) float64 {
	if live <= t.MinParticles || live == 0 {
		return 1
	}
	return float64(redrawn) / float64(live)
}

package metrics

import "github.com/san-kum/forcegraph/internal/dynamo"

// Energy averages the kinetic energy of the layout over observed ticks.
type Energy struct {
	name    string
	samples int
	total   float64
}

func NewEnergy() *Energy {
	return &Energy{name: "energy"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(s dynamo.TickStats) {
	e.total += s.Kinetic
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *Energy) Reset() {
	e.total = 0
	e.samples = 0
}

// Settle records the tick on which the layout first came to rest.
type Settle struct {
	name string
	tick int
}

func NewSettle() *Settle {
	return &Settle{name: "settle_tick"}
}

func (s *Settle) Name() string { return s.name }

func (s *Settle) Observe(st dynamo.TickStats) {
	if st.Stopped && s.tick == 0 {
		s.tick = st.Tick
	}
}

// Value is zero until the layout has settled.
func (s *Settle) Value() float64 { return float64(s.tick) }

func (s *Settle) Reset() { s.tick = 0 }

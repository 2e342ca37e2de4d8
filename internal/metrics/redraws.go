package metrics

import "github.com/san-kum/forcegraph/internal/dynamo"

// Redraws is the mean fraction of live particles redrawn per tick.
type Redraws struct {
	name    string
	sum     float64
	samples int
}

func NewRedraws() *Redraws {
	return &Redraws{
		name: "redraw_fraction",
	}
}

func (r *Redraws) Name() string {
	return r.name
}

func (r *Redraws) Observe(s dynamo.TickStats) {
	if s.Live == 0 {
		return
	}
	r.sum += float64(s.Redrawn) / float64(s.Live)
	r.samples++
}

func (r *Redraws) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return r.sum / float64(r.samples)
}

func (r *Redraws) Reset() {
	r.sum = 0
	r.samples = 0
}

// Default returns the metrics every run reports.
func Default() []dynamo.Metric {
	return []dynamo.Metric{NewEnergy(), NewSettle(), NewRedraws()}
}

package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/san-kum/forcegraph/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnergyAverages(t *testing.T) {
	m := NewEnergy()
	assert.Zero(t, m.Value())
	m.Observe(dynamo.TickStats{Kinetic: 2})
	m.Observe(dynamo.TickStats{Kinetic: 4})
	assert.InDelta(t, 3.0, m.Value(), 1e-12)
	m.Reset()
	assert.Zero(t, m.Value())
}

func TestSettleKeepsFirstStop(t *testing.T) {
	m := NewSettle()
	m.Observe(dynamo.TickStats{Tick: 1})
	assert.Zero(t, m.Value())
	m.Observe(dynamo.TickStats{Tick: 7, Stopped: true})
	m.Observe(dynamo.TickStats{Tick: 9, Stopped: true})
	assert.Equal(t, 7.0, m.Value())
}

func TestRedrawsSkipsEmptyTicks(t *testing.T) {
	m := NewRedraws()
	m.Observe(dynamo.TickStats{})
	m.Observe(dynamo.TickStats{Redrawn: 1, Live: 4})
	m.Observe(dynamo.TickStats{Redrawn: 3, Live: 4})
	assert.InDelta(t, 0.5, m.Value(), 1e-12)
}

func TestDefaultNames(t *testing.T) {
	var names []string
	for _, m := range Default() {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{"energy", "settle_tick", "redraw_fraction"}, names)
}

func TestRecorderTicks(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.OnTick(dynamo.TickStats{Live: 30, Fraction: 0.2, Kinetic: 1.5, Delay: time.Millisecond})
	r.OnTick(dynamo.TickStats{Live: 30, Fraction: 0.005, Stopped: true})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.ticks))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.settles))
	assert.Equal(t, 0.005, testutil.ToFloat64(r.fraction))
	assert.Equal(t, 30.0, testutil.ToFloat64(r.live))
	assert.Equal(t, 1, testutil.CollectAndCount(r.delay))
}

func TestRecorderController(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.Queued("node", 3)
	r.Admitted("node")
	r.Queued("node", 2)
	r.Admitted("edge")
	r.Failed("add relation")
	r.Failed("add relation")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.admitted.WithLabelValues("node")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.admitted.WithLabelValues("edge")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.depth.WithLabelValues("node")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.failures.WithLabelValues("add relation")))
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)
	r.OnTick(dynamo.TickStats{Live: 3})

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "forcegraph_scheduler_ticks_total 1"))
}

func TestRecorderRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRecorder(reg)
	assert.Panics(t, func() { NewRecorder(reg) })
}

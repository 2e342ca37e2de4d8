package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/san-kum/forcegraph/internal/dynamo"
)

const namespace = "forcegraph"

// Recorder exports scheduler ticks and controller activity to Prometheus.
// It is a dynamo.TickObserver and a layout.Observer.
type Recorder struct {
	ticks    prometheus.Counter
	settles  prometheus.Counter
	fraction prometheus.Gauge
	live     prometheus.Gauge
	kinetic  prometheus.Gauge
	delay    prometheus.Histogram
	admitted *prometheus.CounterVec
	depth    *prometheus.GaugeVec
	failures *prometheus.CounterVec
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Total layout ticks run",
		}),
		settles: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "settles_total",
			Help:      "Times the layout came to rest and the scheduler stopped",
		}),
		fraction: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "layout",
			Name:      "moved_fraction",
			Help:      "Fraction of live particles redrawn on the last tick",
		}),
		live: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "layout",
			Name:      "live_particles",
			Help:      "Particles in the active context",
		}),
		kinetic: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "layout",
			Name:      "kinetic_energy",
			Help:      "Kinetic energy of the active context after the last tick",
		}),
		delay: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "delay_seconds",
			Help:      "Delay chosen before the next tick",
			Buckets:   []float64{0.001, 0.005, 0.05, 0.1},
		}),
		admitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "admitted_total",
			Help:      "Queued items materialized, by kind",
		}, []string{"kind"}),
		depth: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "queue_depth",
			Help:      "Items waiting in each admission queue",
		}, []string{"kind"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "commit_failures_total",
			Help:      "Data-source calls that failed, by operation",
		}, []string{"op"}),
	}
}

func (r *Recorder) OnTick(s dynamo.TickStats) {
	r.ticks.Inc()
	if s.Stopped {
		r.settles.Inc()
	}
	r.fraction.Set(s.Fraction)
	r.live.Set(float64(s.Live))
	r.kinetic.Set(s.Kinetic)
	r.delay.Observe(s.Delay.Seconds())
}

func (r *Recorder) Admitted(kind string)          { r.admitted.WithLabelValues(kind).Inc() }
func (r *Recorder) Queued(kind string, depth int) { r.depth.WithLabelValues(kind).Set(float64(depth)) }
func (r *Recorder) Failed(op string)              { r.failures.WithLabelValues(op).Inc() }

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

package loader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reload outcomes recorded in the result label
const (
	resultApplied   = "applied"
	resultUnchanged = "unchanged"
	resultFailed    = "failed"
)

// Metrics holds the Prometheus collectors the watcher reports to.
type Metrics struct {
	reloads     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastApplied *prometheus.GaugeVec
	watchErrors prometheus.Counter
}

// NewMetrics registers the loader collectors with reg. A nil reg uses the
// default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		reloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ako_layer_reloads_total",
			Help: "Layer reloads triggered by file changes, by layer and result",
		}, []string{"layer", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ako_layer_reload_duration_seconds",
			Help:    "Time spent re-reading and parsing the sources of a layer",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"layer"}),
		lastApplied: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ako_layer_last_applied_timestamp_seconds",
			Help: "Unix time of the last reload that changed a layer",
		}, []string{"layer"}),
		watchErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "ako_watch_errors_total",
			Help: "Errors reported by the file system watcher",
		}),
	}
}

func (m *Metrics) observe(layer, result string, seconds float64) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(layer, result).Inc()
	m.duration.WithLabelValues(layer).Observe(seconds)
	if result == resultApplied {
		m.lastApplied.WithLabelValues(layer).SetToCurrentTime()
	}
}

func (m *Metrics) watchError() {
	if m == nil {
		return
	}
	m.watchErrors.Inc()
}

package memory

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics publishes the manager's gauges and counters to a Prometheus
// registry. A nil registry is accepted for tests that don't care about
// observability.
type Metrics struct {
	heapPercentage  prometheus.Gauge
	cleanupDuration prometheus.Histogram
	cleanupFreed    prometheus.Counter
	cleanupCount    prometheus.Counter
}

// NewMetrics registers the memory manager's metrics with reg. Pass nil to
// build unregistered (but still usable) metrics, useful in tests that
// don't run a Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		heapPercentage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "memory_usage_heap_percentage",
			Help: "Fraction of the configured heap ceiling currently in use.",
		}),
		cleanupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "memory_cleanup_duration_seconds",
			Help:    "Duration of each memory cleanup pass.",
			Buckets: prometheus.DefBuckets,
		}),
		cleanupFreed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memory_cleanup_freed_total",
			Help: "Count of resources freed across all cleanup passes.",
		}),
		cleanupCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memory_cleanup_count_total",
			Help: "Count of cleanup passes performed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.heapPercentage, m.cleanupDuration, m.cleanupFreed, m.cleanupCount)
	}
	return m
}

// SetHeapPercentage publishes the latest heap-usage fraction.
func (m *Metrics) SetHeapPercentage(u float64) {
	m.heapPercentage.Set(u)
}

// ObserveCleanup records one completed cleanup pass.
func (m *Metrics) ObserveCleanup(elapsed time.Duration, freed int64) {
	m.cleanupDuration.Observe(elapsed.Seconds())
	m.cleanupCount.Inc()
	if freed > 0 {
		m.cleanupFreed.Add(float64(freed))
	}
}

// Package metrics wraps a Prometheus registry with named constructor
// helpers for gauges/counters/histograms. The memory manager registers its
// own metrics on this registry's Registerer; the template cache and the
// stage executor publish nothing here.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry owns one prometheus.Registerer and names every metric it
// constructs with a common namespace, so two subsystems never collide on
// a bare metric name.
type Registry struct {
	namespace string
	reg       *prometheus.Registry
}

// New returns a Registry backed by a fresh prometheus.Registry.
func New(namespace string) *Registry {
	return &Registry{namespace: namespace, reg: prometheus.NewRegistry()}
}

// Registerer exposes the underlying prometheus.Registerer, e.g. for
// wiring an HTTP /metrics handler.
func (r *Registry) Registerer() prometheus.Registerer { return r.reg }

// Gatherer exposes the underlying prometheus.Gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) name(n string) string {
	if r.namespace == "" {
		return n
	}
	return r.namespace + "_" + n
}

// NewGauge registers and returns a named gauge.
func (r *Registry) NewGauge(name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: r.name(name), Help: help})
	r.reg.MustRegister(g)
	return g
}

// NewCounter registers and returns a named counter.
func (r *Registry) NewCounter(name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: r.name(name), Help: help})
	r.reg.MustRegister(c)
	return c
}

// NewHistogram registers and returns a named histogram using the default
// Prometheus bucket layout.
func (r *Registry) NewHistogram(name, help string) prometheus.Histogram {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{Name: r.name(name), Help: help, Buckets: prometheus.DefBuckets})
	r.reg.MustRegister(h)
	return h
}

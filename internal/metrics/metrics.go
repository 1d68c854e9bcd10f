// Package metrics exposes the engine's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "itinerary"

// Metrics records engine events. It satisfies service.Recorder. A nil
// *Metrics records nothing.
type Metrics struct {
	reg *prometheus.Registry

	detailsRetired  prometheus.Counter
	detailsPurged   prometheus.Counter
	purgeFailures   prometheus.Counter
	recomputeTiming prometheus.Histogram
}

// New builds the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		detailsRetired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "details_retired_total",
			Help:      "Details retired because a newer write overlapped them.",
		}),
		detailsPurged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "details_purged_total",
			Help:      "Retired details permanently deleted by the retention purge.",
		}),
		purgeFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purge_failures_total",
			Help:      "Retention purge runs that failed.",
		}),
		recomputeTiming: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cost_recompute_seconds",
			Help:      "Time spent recomputing a plan's total cost.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) DetailsRetired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.detailsRetired.Add(float64(n))
}

func (m *Metrics) DetailsPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.detailsPurged.Add(float64(n))
}

func (m *Metrics) PurgeFailed() {
	if m == nil {
		return
	}
	m.purgeFailures.Inc()
}

func (m *Metrics) ObserveRecompute(d time.Duration) {
	if m == nil {
		return
	}
	m.recomputeTiming.Observe(d.Seconds())
}

// Package metrics exposes Prometheus counters for location resolution and
// stock fetches.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bloodstock"

// Fetch result labels.
const (
	FetchOK       = "ok"
	FetchEmpty    = "empty"
	FetchError    = "error"
	FetchRejected = "rejected"
)

// Metrics owns a private registry so tests and multiple servers never collide
// on the global default registry.
type Metrics struct {
	registry *prometheus.Registry

	resolutions   *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	stockRows     prometheus.Counter
	hierarchy     *prometheus.GaugeVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Location resolutions by policy and outcome.",
		}, []string{"policy", "outcome"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_fetches_total",
			Help:      "Stock requests by result.",
		}, []string{"result"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stock_fetch_duration_seconds",
			Help:      "Wall time of stock requests, including resolution.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		stockRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_rows_total",
			Help:      "Blood bank rows returned to callers.",
		}),
		hierarchy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hierarchy_entries",
			Help:      "Entries in the loaded hierarchy by kind.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		m.resolutions,
		m.fetches,
		m.fetchDuration,
		m.stockRows,
		m.hierarchy,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveResolution counts one resolution. policy is "pipeline" or "single".
func (m *Metrics) ObserveResolution(policy, outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(policy, outcome).Inc()
}

// ObserveFetch records one stock request.
func (m *Metrics) ObserveFetch(result string, rows int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(result).Inc()
	m.fetchDuration.Observe(elapsed.Seconds())
	if rows > 0 {
		m.stockRows.Add(float64(rows))
	}
}

// SetHierarchySize publishes the loaded hierarchy size.
func (m *Metrics) SetHierarchySize(states, districts, groups, components int) {
	if m == nil {
		return
	}
	m.hierarchy.WithLabelValues("states").Set(float64(states))
	m.hierarchy.WithLabelValues("districts").Set(float64(districts))
	m.hierarchy.WithLabelValues("blood_groups").Set(float64(groups))
	m.hierarchy.WithLabelValues("blood_components").Set(float64(components))
}

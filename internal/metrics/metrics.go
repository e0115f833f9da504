// Package metrics exposes pipeline run counters for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AriZeto/data-engineering-test-ArielZeto/internal/core"
)

// Run outcome labels.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Row kind labels for cleaner_rows_total.
const (
	KindRead       = "read"
	KindDuplicate  = "duplicate"
	KindWritten    = "written"
	KindFilled     = "filled"
	KindZeros      = "zeros_stripped"
	KindWhitespace = "whitespace_stripped"
)

// Metrics holds the collectors for pipeline runs on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	Runs        *prometheus.CounterVec
	Rows        *prometheus.CounterVec
	RunDuration prometheus.Histogram
}

// New registers the pipeline collectors plus Go runtime and process
// collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cleaner_runs_total",
			Help: "Pipeline runs by outcome.",
		}, []string{"status"}),
		Rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cleaner_rows_total",
			Help: "Records and cells processed, by kind.",
		}, []string{"kind"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cleaner_run_duration_seconds",
			Help:    "Wall time of a pipeline run.",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
		}),
	}

	reg.MustRegister(
		m.Runs,
		m.Rows,
		m.RunDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRun records the outcome of one run.
func (m *Metrics) ObserveRun(r core.Report) {
	status := StatusSuccess
	if !r.Succeeded() {
		status = StatusFailure
	}
	m.Runs.WithLabelValues(status).Inc()
	m.RunDuration.Observe(r.Duration.Seconds())

	m.Rows.WithLabelValues(KindRead).Add(float64(r.RowsRead))
	m.Rows.WithLabelValues(KindDuplicate).Add(float64(r.DuplicatesRemoved))
	m.Rows.WithLabelValues(KindWritten).Add(float64(r.RowsWritten))
	m.Rows.WithLabelValues(KindFilled).Add(float64(r.CellsFilled))
	m.Rows.WithLabelValues(KindZeros).Add(float64(r.ZerosStripped))
	m.Rows.WithLabelValues(KindWhitespace).Add(float64(r.WhitespaceStripped))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

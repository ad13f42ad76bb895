// Package metrics exposes Prometheus collectors for distribution runs,
// intercepted requests and override store operations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/battlewithbytes/webbrand/internal/distribute"
	"github.com/battlewithbytes/webbrand/internal/logo"
)

const namespace = "webbrand"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	files       *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	intercepted *prometheus.CounterVec
	storeOps    *prometheus.CounterVec
}

// New registers the collectors, plus the Go runtime and process collectors,
// on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "distribution_files_total",
			Help:      "Bundle files handled by distribution runs.",
		}, []string{"role", "outcome"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "distribution_runs_total",
			Help:      "Distribution and restore runs.",
		}, []string{"trigger", "result"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "distribution_run_duration_seconds",
			Help:      "Wall time of distribution runs.",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5},
		}, []string{"trigger"}),
		intercepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intercepted_requests_total",
			Help:      "Requests for branding assets answered by the interceptor.",
		}, []string{"role", "source"}),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Override store operations.",
		}, []string{"op", "result"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.files,
		m.runs,
		m.runDuration,
		m.intercepted,
		m.storeOps,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveReport counts a finished run and its files.
func (m *Metrics) ObserveReport(rep *distribute.Report) {
	result := "ok"
	switch {
	case rep.Skipped != "":
		result = "skipped"
	case rep.Failed() > 0:
		result = "failed"
	}
	m.runs.WithLabelValues(rep.Trigger, result).Inc()
	if !rep.Finished.IsZero() {
		m.runDuration.WithLabelValues(rep.Trigger).Observe(rep.Finished.Sub(rep.Started).Seconds())
	}
	for _, f := range rep.Files {
		m.files.WithLabelValues(string(f.Role), string(f.Outcome)).Inc()
	}
}

// ObserveIntercept counts one intercepted request. role is empty for
// rejected paths.
func (m *Metrics) ObserveIntercept(role logo.Role, source string) {
	m.intercepted.WithLabelValues(string(role), source).Inc()
}

// ObserveStoreOp counts a store operation; the result label is "ok" or the
// error kind.
func (m *Metrics) ObserveStoreOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = logo.KindOf(err).String()
	}
	m.storeOps.WithLabelValues(op, result).Inc()
}

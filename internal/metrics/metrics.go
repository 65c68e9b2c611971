// Package metrics exposes pipeline counters over an optional Prometheus
// endpoint for scheduled deployments.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry
	server   *http.Server

	fetched  *prometheus.CounterVec
	kept     *prometheus.CounterVec
	written  *prometheus.CounterVec
	runs     *prometheus.CounterVec
	duration prometheus.Summary
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.fetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gh2csv",
		Name:      "records_fetched_total",
		Help:      "Raw records fetched from the source",
	}, []string{"target"})
	m.kept = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gh2csv",
		Name:      "records_kept_total",
		Help:      "Records surviving the filter stages",
	}, []string{"target"})
	m.written = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gh2csv",
		Name:      "rows_written_total",
		Help:      "Rows written to output files",
	}, []string{"target"})
	m.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gh2csv",
		Name:      "runs_total",
		Help:      "Target runs by outcome",
	}, []string{"target", "status"})
	m.duration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: "gh2csv",
		Name:      "run_duration_seconds",
		Help:      "Time spent processing one target",
	})

	m.registry.MustRegister(m.fetched, m.kept, m.written, m.runs, m.duration)
	return m
}

// ObserveRun records the outcome of one target run.
func (m *Metrics) ObserveRun(target, status string, fetched, kept, written int, d time.Duration) {
	m.fetched.WithLabelValues(target).Add(float64(fetched))
	m.kept.WithLabelValues(target).Add(float64(kept))
	m.written.WithLabelValues(target).Add(float64(written))
	m.runs.WithLabelValues(target, status).Inc()
	m.duration.Observe(d.Seconds())
}

// Serve exposes /metrics on addr and blocks until the server stops.
func (m *Metrics) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	m.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the metrics server if one is running.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}

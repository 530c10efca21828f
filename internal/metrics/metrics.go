// Package metrics registers the Prometheus instrumentation for import runs
// and serves it via the standard /metrics handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eventsammler"

// Metrics bundles the collectors for one process.
type Metrics struct {
	registry *prometheus.Registry

	EventsScraped  *prometheus.CounterVec
	EventsInserted *prometheus.CounterVec
	EventsIgnored  *prometheus.CounterVec
	ScrapeErrors   *prometheus.CounterVec
	ImportDuration *prometheus.HistogramVec
}

// New creates and registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		EventsScraped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_scraped_total",
			Help:      "Raw records scraped, error markers included",
		}, []string{"source"}),
		EventsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_inserted_total",
			Help:      "Events newly inserted into the store",
		}, []string{"source"}),
		EventsIgnored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_ignored_total",
			Help:      "Events skipped as duplicates of a stored identity",
		}, []string{"source"}),
		ScrapeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrape_errors_total",
			Help:      "Error-marker records produced by failed page fetches",
		}, []string{"source"}),
		ImportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Wall time of one import run per source",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"source"}),
	}

	reg.MustRegister(
		m.EventsScraped, m.EventsInserted, m.EventsIgnored,
		m.ScrapeErrors, m.ImportDuration,
	)
	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

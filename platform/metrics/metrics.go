// Package metrics exposes Prometheus instrumentation for the service.
// This is part of the platform layer and contains no business logic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors registered for this process.
type Metrics struct {
	registry *prometheus.Registry

	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	recommendations prometheus.Counter
	cacheLookups    *prometheus.CounterVec
}

// New creates a registry with process and Go runtime collectors plus the
// application collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry: registry,
		refreshTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldops_analytics_refresh_total",
			Help: "Analytics rollup refresh attempts by outcome.",
		}, []string{"status"}),
		refreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fieldops_analytics_refresh_duration_seconds",
			Help:    "Duration of analytics rollup refresh cycles.",
			Buckets: prometheus.DefBuckets,
		}),
		recommendations: factory.NewCounter(prometheus.CounterOpts{
			Name: "fieldops_assignment_recommendations_total",
			Help: "Technician assignment recommendations computed.",
		}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldops_dashboard_cache_lookups_total",
			Help: "Dashboard cache lookups by result.",
		}, []string{"result"}),
	}
}

// ObserveRefresh records one analytics refresh cycle.
func (m *Metrics) ObserveRefresh(duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.refreshTotal.WithLabelValues(status).Inc()
	m.refreshDuration.Observe(duration.Seconds())
}

// RecommendationComputed counts a scoring engine run.
func (m *Metrics) RecommendationComputed() {
	if m == nil {
		return
	}
	m.recommendations.Inc()
}

// CacheLookup records a dashboard cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

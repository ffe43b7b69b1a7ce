// Package metrics holds the Prometheus collectors shared by the service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	global *Metrics
	once   sync.Once
)

// Metrics holds every collector registered by the service.
//
//   - curalink_http_requests_total{method,route,status}
//   - curalink_http_request_duration_seconds{method,route}
//   - curalink_cache_hits_total{source} / curalink_cache_misses_total{source}
//   - curalink_upstream_errors_total{source}
//   - curalink_events_published_total{event}
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	CacheHitsTotal      *prometheus.CounterVec
	CacheMissesTotal    *prometheus.CounterVec
	UpstreamErrorsTotal *prometheus.CounterVec
	EventsPublished     *prometheus.CounterVec
}

// Get returns the process-wide collectors, registering them on first use.
// Registration happens once so repeated calls (tests, multiple servers) never
// trigger duplicate registration panics.
func Get() *Metrics {
	once.Do(func() {
		global = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "curalink_http_requests_total",
					Help: "Total HTTP requests by method, route pattern and status code",
				},
				[]string{"method", "route", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "curalink_http_request_duration_seconds",
					Help:    "HTTP request duration in seconds",
					Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
				},
				[]string{"method", "route"},
			),
			CacheHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "curalink_cache_hits_total",
					Help: "Search cache hits by source",
				},
				[]string{"source"},
			),
			CacheMissesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "curalink_cache_misses_total",
					Help: "Search cache misses by source",
				},
				[]string{"source"},
			),
			UpstreamErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "curalink_upstream_errors_total",
					Help: "Failed calls to external data sources",
				},
				[]string{"source"},
			),
			EventsPublished: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "curalink_events_published_total",
					Help: "Domain events published on the in-process bus",
				},
				[]string{"event"},
			),
		}
	})
	return global
}

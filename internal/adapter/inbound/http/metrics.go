// Package http provides the HTTP transport adapter for the proxy.
package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/signetgate/signetgate/internal/domain/secret"
)

// Metrics holds all Prometheus metrics for the gateway.
// Pass to components that need to record metrics.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	UpstreamErrors  *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signetgate",
				Name:      "requests_total",
				Help:      "Total number of proxied requests",
			},
			[]string{"method", "status"}, // status=ok/error
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "signetgate",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets, // 5ms to 10s
			},
			[]string{"method"},
		),
		UpstreamErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signetgate",
				Name:      "upstream_errors_total",
				Help:      "Total upstream calls that failed at the transport level",
			},
			[]string{"kind"}, // kind=connect/timeout/other
		),
	}
}

// RecordUpstreamError implements the proxy core's UpstreamErrorRecorder.
func (m *Metrics) RecordUpstreamError(kind string) {
	m.UpstreamErrors.WithLabelValues(kind).Inc()
}

// RegisterCacheMetrics exposes secret cache counters and size on the
// registry. Counters are sampled from the cache's own atomics so the cache
// stays free of metrics dependencies.
func RegisterCacheMetrics(reg prometheus.Registerer, cache *secret.Cache) {
	reg.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: "signetgate",
			Name:      "secret_cache_hits_total",
			Help:      "Secret cache lookups served without a store call",
		},
		func() float64 { return float64(cache.Stats().Hits) },
	))
	reg.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: "signetgate",
			Name:      "secret_cache_misses_total",
			Help:      "Secret cache lookups that required a store fetch",
		},
		func() float64 { return float64(cache.Stats().Misses) },
	))
	reg.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: "signetgate",
			Name:      "secret_fetch_errors_total",
			Help:      "Secret store fetches that failed",
		},
		func() float64 { return float64(cache.Stats().FetchErrors) },
	))
	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "signetgate",
			Name:      "secret_cache_entries",
			Help:      "Number of cached secret entries",
		},
		func() float64 { return float64(cache.Len()) },
	))
}

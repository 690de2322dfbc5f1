package metrics

import (
	"time"

	"dayaml-tools/checker/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks requests served by the HTTP and tool servers.
//
// Metrics:
//   - dayaml_requests_total: requests by endpoint and status
//   - dayaml_request_duration_seconds: request duration by endpoint
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "requests_total",
				Help:      "Total number of validation requests served",
			},
			[]string{"endpoint", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of validation requests in seconds",
				Buckets:   DurationBuckets,
			},
			[]string{"endpoint"},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
	)

	return rm
}

// RecordRequest records a completed request.
func (rm *RequestMetrics) RecordRequest(endpoint, status string, duration time.Duration) {
	rm.requestsTotal.WithLabelValues(endpoint, status).Inc()
	rm.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

package metrics

import (
	"strconv"
	"time"

	"dayaml-tools/checker/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckMetrics tracks interview file checks.
//
// Metrics:
//   - dayaml_files_checked_total: files checked by status and jinja
//   - dayaml_files_skipped_total: files on the skip list
//   - dayaml_check_duration_seconds: time to check one file
//   - dayaml_findings_total: findings by type and experimental flag
type CheckMetrics struct {
	filesTotal    *prometheus.CounterVec
	skippedTotal  prometheus.Counter
	checkDuration prometheus.Histogram
	findingsTotal *prometheus.CounterVec
}

// NewCheckMetrics creates and registers check metrics with the provided registry.
func NewCheckMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CheckMetrics {
	cm := &CheckMetrics{
		filesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "files_checked_total",
				Help:      "Total number of interview files checked",
			},
			[]string{"status", "jinja"},
		),

		skippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "files_skipped_total",
				Help:      "Total number of collected files skipped without checking",
			},
		),

		checkDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "check_duration_seconds",
				Help:      "Time taken to check one interview file",
				Buckets:   DurationBuckets,
			},
		),

		findingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "findings_total",
				Help:      "Total number of findings reported",
			},
			[]string{"type", "experimental"},
		),
	}

	registry.MustRegister(
		cm.filesTotal,
		cm.skippedTotal,
		cm.checkDuration,
		cm.findingsTotal,
	)

	return cm
}

// RecordCheck records one checked file.
func (cm *CheckMetrics) RecordCheck(status string, jinja bool, duration time.Duration) {
	cm.filesTotal.WithLabelValues(status, strconv.FormatBool(jinja)).Inc()
	cm.checkDuration.Observe(duration.Seconds())
}

// RecordFinding records one finding.
func (cm *CheckMetrics) RecordFinding(errType string, experimental bool) {
	cm.findingsTotal.WithLabelValues(errType, strconv.FormatBool(experimental)).Inc()
}

package metrics

import (
	"fmt"
	"sync"
	"time"

	"dayaml-tools/checker/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// DurationBuckets are the histogram buckets for check and request
// durations, from a fraction of a millisecond to several seconds.
var DurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// Collector owns every Prometheus metric of the checker. It implements the
// dayaml.Recorder interface so a Checker can report to it directly.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	checkMetrics   *CheckMetrics
	requestMetrics *RequestMetrics

	// Cardinality tracking for request paths
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector registering into registry. If registry is
// nil, a fresh registry is created.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Metrics, nil)
//	checker := dayaml.NewChecker(dayaml.WithMetrics(collector))
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		checkMetrics:       NewCheckMetrics(cfg, registry),
		requestMetrics:     NewRequestMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(100),
	}
}

// Registry returns the registry metrics are registered in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordCheck records one checked file.
//
// Parameters:
//   - status: "ok" or "errors"
//   - jinja: whether the file was rendered as a template first
//   - duration: time spent checking the file
func (c *Collector) RecordCheck(status string, jinja bool, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.checkMetrics.RecordCheck(status, jinja, duration)
}

// RecordFinding records one finding of the given error type.
func (c *Collector) RecordFinding(errType string, experimental bool) {
	if !c.config.Enabled {
		return
	}
	c.checkMetrics.RecordFinding(errType, experimental)
}

// RecordSkipped records a file that was collected but not checked.
func (c *Collector) RecordSkipped() {
	if !c.config.Enabled {
		return
	}
	c.checkMetrics.skippedTotal.Inc()
}

// RecordRequest records a completed HTTP request or remote tool call.
//
// Parameters:
//   - endpoint: request path or tool method
//   - status: HTTP status code or "ok"/"error"
//   - duration: time spent serving the request
func (c *Collector) RecordRequest(endpoint, status string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	// Unknown paths are aggregated so a scanner cannot explode the label set.
	labelSet := fmt.Sprintf("request:%s", endpoint)
	if !c.cardinalityLimiter.Allow(labelSet) {
		endpoint = "other"
	}
	c.requestMetrics.RecordRequest(endpoint, status, duration)
}

// CardinalityLimiter prevents unbounded metric cardinality by tracking
// unique label sets and rejecting new ones once a limit is reached.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}

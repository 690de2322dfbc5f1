// Package metrics provides Prometheus metrics for the checker.
//
// # Metrics Categories
//
//   - Check Metrics: files checked, skipped files, check duration and
//     findings by error type
//   - Request Metrics: requests served by the HTTP and tool servers
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Metrics, nil)
//	checker := dayaml.NewChecker(dayaml.WithMetrics(collector))
//	mux.Handle(cfg.Metrics.Path, collector.Handler())
//
// When MetricsConfig.Enabled is false every Record method is a no-op.
package metrics

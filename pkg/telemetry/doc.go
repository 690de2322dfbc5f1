// Package telemetry groups the checker's observability packages.
//
//   - logging: structured logging on log/slog with request and file
//     context.
//   - metrics: Prometheus counters and histograms for checked files,
//     findings and served requests.
//   - health: liveness, readiness and version endpoints.
package telemetry

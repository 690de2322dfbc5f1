// Package server provides an HTTP service that validates interview files.
//
// # Endpoints
//
//   - POST /validate: check one interview. The body is either JSON
//     {"content": "...", "filename": "..."} or the raw YAML with the file
//     name in the "filename" query parameter. The response is the result
//     report {"valid": bool, "errors": [...]}.
//   - GET /healthz: liveness check.
//   - GET /readyz: readiness check. It checks a built-in interview and
//     fails once shutdown has begun.
//   - GET /version: build information.
//   - GET /metrics (configurable): Prometheus metrics, when enabled.
//
// Every response carries an X-Request-ID header; a client-supplied ID is
// kept. Requests are logged with that ID. When server.rate_limit is set,
// /validate answers 429 over the request rate and 503 over the concurrency
// limit.
//
// Start serves HTTPS when server.tls.enabled is set. The certificate must be
// inside its validity window; one that expires within 30 days is logged.
//
// # Basic Usage
//
//	srv := server.NewServer(cfg, checker, collector, logger)
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
package server

// Package health implements the liveness, readiness and version endpoints
// of the validation server.
//
// Liveness only reports that the process answers. Readiness runs every
// registered check concurrently, each bounded by the checker's timeout, and
// answers 503 when any of them fails:
//
//	hc := health.New(2 * time.Second)
//	hc.Register("checker", func(ctx context.Context) error {
//	    return selfCheck(ctx)
//	})
//	mux.Handle("GET /healthz", hc.LivenessHandler())
//	mux.Handle("GET /readyz", hc.ReadinessHandler())
//	mux.Handle("GET /version", health.VersionHandler(info))
package health

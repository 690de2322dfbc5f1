// Package ratelimit bounds how fast and how many validation requests the
// HTTP API serves.
//
// A Limiter combines a token bucket, for the sustained request rate and its
// burst, with a counting semaphore for requests in flight. Either may be
// disabled by leaving its setting at zero.
//
//	limiter := ratelimit.New(ratelimit.Config{
//	    RequestsPerSecond: 20,
//	    Burst:             40,
//	    MaxConcurrent:     8,
//	})
//	if d := limiter.Allow(); !d.Allowed {
//	    // reject, retry after d.RetryAfter
//	}
//	if !limiter.Acquire() {
//	    // reject
//	}
//	defer limiter.Release()
package ratelimit

package ratelimit

import (
	"math"
	"time"
)

// Config selects the limits to enforce. Zero values disable a limit.
type Config struct {
	// RequestsPerSecond is the sustained request rate.
	RequestsPerSecond float64

	// Burst is the number of requests allowed at once above the rate.
	// Defaults to twice RequestsPerSecond, and at least 1.
	Burst int

	// MaxConcurrent is the number of requests served at the same time.
	MaxConcurrent int
}

// Enabled reports whether cfg enforces any limit.
func (cfg Config) Enabled() bool {
	return cfg.RequestsPerSecond > 0 || cfg.MaxConcurrent > 0
}

// Decision is the outcome of a rate check.
type Decision struct {
	Allowed bool

	// Reason explains a rejection.
	Reason string

	// Limit is the burst size and Remaining the requests left in it.
	Limit     int64
	Remaining int64

	// RetryAfter is how long until a request would be allowed.
	RetryAfter time.Duration
}

// Limiter enforces a request rate and a concurrency limit.
type Limiter struct {
	requests   *TokenBucket
	concurrent *ConcurrentLimiter
}

// New creates a limiter for cfg.
func New(cfg Config) *Limiter {
	return newLimiter(cfg, time.Now)
}

func newLimiter(cfg Config, now func() time.Time) *Limiter {
	l := &Limiter{}
	if cfg.RequestsPerSecond > 0 {
		burst := int64(cfg.Burst)
		if burst <= 0 {
			burst = max(1, int64(math.Ceil(cfg.RequestsPerSecond*2)))
		}
		l.requests = newTokenBucket(burst, cfg.RequestsPerSecond, now)
	}
	if cfg.MaxConcurrent > 0 {
		l.concurrent = NewConcurrentLimiter(cfg.MaxConcurrent)
	}
	return l
}

// Allow takes one request from the rate budget.
func (l *Limiter) Allow() Decision {
	if l.requests == nil {
		return Decision{Allowed: true}
	}
	if !l.requests.Take(1) {
		return Decision{
			Reason:     "request rate limit exceeded",
			Limit:      l.requests.Capacity(),
			Remaining:  0,
			RetryAfter: l.requests.TimeUntilAvailable(1),
		}
	}
	return Decision{
		Allowed:   true,
		Limit:     l.requests.Capacity(),
		Remaining: l.requests.Remaining(),
	}
}

// Acquire takes a concurrency slot. It always succeeds when no concurrency
// limit is set. A successful Acquire must be paired with Release.
func (l *Limiter) Acquire() bool {
	if l.concurrent == nil {
		return true
	}
	return l.concurrent.Acquire()
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	if l.concurrent != nil {
		l.concurrent.Release()
	}
}

// InFlight returns the number of requests holding a slot.
func (l *Limiter) InFlight() int64 {
	if l.concurrent == nil {
		return 0
	}
	return l.concurrent.Current()
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"dayaml-tools/checker/pkg/config"
	"dayaml-tools/checker/pkg/dayaml"
	"dayaml-tools/checker/pkg/ratelimit"
	"dayaml-tools/checker/pkg/telemetry/health"
	"dayaml-tools/checker/pkg/telemetry/logging"
	"dayaml-tools/checker/pkg/telemetry/metrics"
)

// Server serves interview validation over HTTP.
type Server struct {
	config        *config.ServerConfig
	metricsConfig *config.MetricsConfig
	checker       *dayaml.Checker
	collector     *metrics.Collector
	logger        *logging.Logger

	health  *health.Checker
	version health.VersionInfo

	httpServer   *http.Server
	listener     net.Listener
	shutdownOnce sync.Once
	draining     atomic.Bool
	mu           sync.RWMutex
	isRunning    bool
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the build information served on /version.
func WithVersion(info health.VersionInfo) Option {
	return func(s *Server) {
		s.version = info
	}
}

// selfCheckInterview must check clean; readiness fails otherwise.
const selfCheckInterview = `question: |
  What is your name?
fields:
  - First name: user_first_name
  - Last name: user_last_name
---
code: |
  full_name = user_first_name + " " + user_last_name
`

// NewServer creates a server. collector may be nil to disable the metrics
// endpoint; logger may be nil to discard logs.
func NewServer(cfg *config.Config, checker *dayaml.Checker, collector *metrics.Collector, logger *logging.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		config:        &cfg.Server,
		metricsConfig: &cfg.Metrics,
		checker:       checker,
		collector:     collector,
		logger:        logger.With("component", "server"),
		health:        health.New(cfg.Server.ReadTimeout),
		version:       health.VersionInfo{Version: "dev"},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.health.Register("checker", s.selfCheck)
	s.health.Register("server", func(context.Context) error {
		if s.draining.Load() {
			return errors.New("shutting down")
		}
		return nil
	})
	return s
}

// selfCheck validates a known-clean interview so readiness fails when the
// checker cannot run.
func (s *Server) selfCheck(ctx context.Context) error {
	result := s.checker.Check(ctx, "selfcheck.yml", selfCheckInterview)
	if result.HasErrors() {
		return fmt.Errorf("self-check reported %d errors, first: %s", len(result.Errors), result.Errors[0].Message)
	}
	return nil
}

// Start listens on the configured address and serves until ctx is canceled
// or the server fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := s.listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled or the server fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting validation server", "address", ln.Addr().String(), "tls", s.config.TLS.Enabled)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if ok {
			return err
		}
		return nil
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.draining.Store(true)
		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("validation server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the address the server is listening on, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	var limiter *ratelimit.Limiter
	limits := ratelimit.Config{
		RequestsPerSecond: s.config.RateLimit.RequestsPerSecond,
		Burst:             s.config.RateLimit.Burst,
		MaxConcurrent:     s.config.RateLimit.MaxConcurrent,
	}
	if limits.Enabled() {
		limiter = ratelimit.New(limits)
	}
	mux.Handle("POST /validate", rateLimitMiddleware(limiter)(&validateHandler{
		checker:  s.checker,
		logger:   s.logger,
		maxBytes: s.config.MaxBodyBytes,
	}))
	mux.Handle("GET /healthz", s.health.LivenessHandler())
	mux.Handle("GET /readyz", s.health.ReadinessHandler())
	mux.Handle("GET /version", health.VersionHandler(s.version))
	if s.collector != nil && s.metricsConfig.Enabled {
		mux.Handle("GET "+s.metricsConfig.Path, s.collector.Handler())
	}

	var handler http.Handler = mux
	handler = metricsMiddleware(s.collector)(handler)
	handler = loggingMiddleware(s.logger)(handler)
	handler = requestIDMiddleware(handler)
	handler = recoveryMiddleware(s.logger)(handler)
	return handler
}

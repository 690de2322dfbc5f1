package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dayaml-tools/checker/pkg/config"
	"dayaml-tools/checker/pkg/dayaml"
	"dayaml-tools/checker/pkg/ratelimit"
	"dayaml-tools/checker/pkg/telemetry/health"
	"dayaml-tools/checker/pkg/telemetry/logging"
	"dayaml-tools/checker/pkg/telemetry/metrics"
)

func newTestServer(t *testing.T) (*Server, *metrics.Collector) {
	t.Helper()
	cfg := config.Default()
	cfg.Server.MaxBodyBytes = 1024
	collector := metrics.NewCollector(&cfg.Metrics, nil)
	checker := dayaml.NewChecker(dayaml.WithMetrics(collector))
	return NewServer(cfg, checker, collector, nil), collector
}

func TestValidateHandler(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	tests := []struct {
		name        string
		contentType string
		target      string
		body        string
		wantStatus  int
		wantValid   bool
		wantErrors  int
		wantFile    string
	}{
		{
			name:        "valid json body",
			contentType: "application/json",
			target:      "/validate",
			body:        `{"content": "question: hi\nfield: name\n", "filename": "a.yml"}`,
			wantStatus:  http.StatusOK,
			wantValid:   true,
		},
		{
			name:        "json body with errors",
			contentType: "application/json; charset=utf-8",
			target:      "/validate",
			body:        `{"content": "question: hi\nbogus: 1\n", "filename": "b.yml"}`,
			wantStatus:  http.StatusOK,
			wantErrors:  1,
			wantFile:    "b.yml",
		},
		{
			name:        "raw yaml body",
			contentType: "application/yaml",
			target:      "/validate?filename=c.yml",
			body:        "code: |\n  x = (\n",
			wantStatus:  http.StatusOK,
			wantErrors:  1,
			wantFile:    "c.yml",
		},
		{
			name:        "raw body without name",
			contentType: "text/plain",
			target:      "/validate",
			body:        "question: hi\nbogus: 1\n",
			wantStatus:  http.StatusOK,
			wantErrors:  1,
			wantFile:    dayaml.DefaultFileName,
		},
		{
			name:        "malformed json",
			contentType: "application/json",
			target:      "/validate",
			body:        `{"content": `,
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "unknown json field",
			contentType: "application/json",
			target:      "/validate",
			body:        `{"yaml": "question: hi"}`,
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "body too large",
			contentType: "text/plain",
			target:      "/validate",
			body:        "question: " + strings.Repeat("x", 2048) + "\n",
			wantStatus:  http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if rec.Header().Get(RequestIDHeader) == "" {
				t.Error("response is missing a request ID")
			}
			if tt.wantStatus != http.StatusOK {
				var resp ErrorResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Error == "" {
					t.Errorf("error body = %q", rec.Body.String())
				}
				return
			}

			var report dayaml.Report
			if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
				t.Fatalf("response is not a report: %v", err)
			}
			if report.Valid != tt.wantValid {
				t.Errorf("valid = %v, want %v", report.Valid, tt.wantValid)
			}
			if len(report.Errors) != tt.wantErrors {
				t.Fatalf("errors = %v, want %d", report.Errors, tt.wantErrors)
			}
			if tt.wantErrors > 0 && report.Errors[0].Filename != tt.wantFile {
				t.Errorf("filename = %q, want %q", report.Errors[0].Filename, tt.wantFile)
			}
		})
	}
}

func TestValidateMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/validate", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "client-id")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "client-id" {
		t.Errorf("request ID = %q, want client-id", got)
	}
}

func TestRequestLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := logging.New(logging.Config{Level: "info", Format: "text", Writer: buf})
	if err != nil {
		t.Fatalf("logging.New() error = %v", err)
	}
	srv := NewServer(config.Default(), dayaml.NewChecker(), nil, logger)

	req := httptest.NewRequest(http.MethodPost, "/validate?filename=a.yml", strings.NewReader("question: hi\n"))
	req.Header.Set(RequestIDHeader, "req-7")
	srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

	output := buf.String()
	for _, want := range []string{"validated interview", "file=a.yml", "request completed", "request_id=req-7", "status=200"} {
		if !strings.Contains(output, want) {
			t.Errorf("log output missing %q:\n%s", want, output)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/validate", strings.NewReader("question: hi\n"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"dayaml_files_checked_total", `dayaml_requests_total{endpoint="/validate",status="200"} 1`} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestMetricsDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Enabled = false
	collector := metrics.NewCollector(&cfg.Metrics, nil)
	srv := NewServer(cfg, dayaml.NewChecker(), collector, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Server.RateLimit.RequestsPerSecond = 0.001
	cfg.Server.RateLimit.Burst = 2
	handler := NewServer(cfg, dayaml.NewChecker(), nil, nil).Handler()

	validate := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/validate", strings.NewReader("question: hi\n")))
		return rec
	}

	for i := range 2 {
		if rec := validate(); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
	}

	rec := validate()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "2" {
		t.Errorf("X-RateLimit-Limit = %q, want 2", got)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error == "" {
		t.Errorf("error body = %q (%v)", rec.Body.String(), err)
	}

	live := httptest.NewRecorder()
	handler.ServeHTTP(live, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if live.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", live.Code)
	}
}

func TestConcurrencyLimit(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{MaxConcurrent: 1})
	release := make(chan struct{})
	handler := rateLimitMiddleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))

	first := make(chan int, 1)
	go func() {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/validate", nil))
		first <- rec.Code
	}()

	deadline := time.Now().Add(2 * time.Second)
	for limiter.InFlight() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("first request never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/validate", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	close(release)
	if code := <-first; code != http.StatusOK {
		t.Errorf("first request status = %d, want 200", code)
	}
	if limiter.InFlight() != 0 {
		t.Errorf("InFlight() = %d after completion", limiter.InFlight())
	}
}

func TestReadiness(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var report health.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	for _, name := range []string{"checker", "server"} {
		if report.Checks[name].Status != health.StatusOK {
			t.Errorf("Checks[%s] = %+v", name, report.Checks[name])
		}
	}

	srv.draining.Store(true)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status while draining = %d, want 503", rec.Code)
	}
}

func TestVersionEndpoint(t *testing.T) {
	srv := NewServer(config.Default(), dayaml.NewChecker(), nil, nil,
		WithVersion(health.VersionInfo{Version: "1.2.3", Commit: "abc"}))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info health.VersionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc" {
		t.Errorf("info = %+v", info)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(logging.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestServeAndShutdown(t *testing.T) {
	srv, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	deadline := time.Now().Add(2 * time.Second)
	var resp *http.Response
	for time.Now().Before(deadline) {
		resp, err = http.Get("http://" + ln.Addr().String() + "/healthz")
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server did not come up: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if !srv.IsRunning() || srv.Addr() == "" {
		t.Error("server should report running with an address")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
	if srv.IsRunning() {
		t.Error("server should not be running after shutdown")
	}
}

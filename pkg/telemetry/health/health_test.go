package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name            string
		timeout         time.Duration
		expectedTimeout time.Duration
	}{
		{"default timeout", 0, DefaultTimeout},
		{"custom timeout", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(tt.timeout)
			if checker.timeout != tt.expectedTimeout {
				t.Errorf("expected timeout %v, got %v", tt.expectedTimeout, checker.timeout)
			}
			if len(checker.checks) != 0 {
				t.Errorf("expected 0 checks, got %d", len(checker.checks))
			}
		})
	}
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
		wantFailed []string
	}{
		{
			name:       "no checks",
			wantStatus: StatusReady,
		},
		{
			name: "all passing",
			checks: map[string]CheckFunc{
				"checker": func(context.Context) error { return nil },
				"server":  func(context.Context) error { return nil },
			},
			wantStatus: StatusReady,
		},
		{
			name: "one failing",
			checks: map[string]CheckFunc{
				"checker": func(context.Context) error { return nil },
				"server":  func(context.Context) error { return errors.New("shutting down") },
			},
			wantStatus: StatusNotReady,
			wantFailed: []string{"server"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(time.Second)
			for name, check := range tt.checks {
				checker.Register(name, check)
			}

			report := checker.Readiness(context.Background())
			if report.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", report.Status, tt.wantStatus)
			}
			if len(report.Checks) != len(tt.checks) {
				t.Errorf("got %d results, want %d", len(report.Checks), len(tt.checks))
			}
			for _, name := range tt.wantFailed {
				if report.Checks[name].Status != StatusUnhealthy {
					t.Errorf("Checks[%s] = %+v, want unhealthy", name, report.Checks[name])
				}
			}
		})
	}
}

func TestReadinessTimeout(t *testing.T) {
	checker := New(20 * time.Millisecond)
	release := make(chan struct{})
	defer close(release)
	checker.Register("slow", func(ctx context.Context) error {
		<-release
		return nil
	})

	report := checker.Readiness(context.Background())
	result := report.Checks["slow"]
	if result.Status != StatusUnhealthy || result.Message != ErrCheckTimeout.Error() {
		t.Errorf("slow check = %+v, want timeout", result)
	}
}

func TestRegisterReplaces(t *testing.T) {
	checker := New(time.Second)
	checker.Register("checker", func(context.Context) error { return errors.New("broken") })
	checker.Register("checker", func(context.Context) error { return nil })

	if report := checker.Readiness(context.Background()); !report.Ready() {
		t.Errorf("report = %+v, want ready", report)
	}
}

func TestHandlers(t *testing.T) {
	failing := New(time.Second)
	failing.Register("checker", func(context.Context) error { return errors.New("broken") })

	tests := []struct {
		name       string
		handler    http.Handler
		method     string
		wantStatus int
		wantBody   bool
	}{
		{"liveness", New(0).LivenessHandler(), http.MethodGet, http.StatusOK, true},
		{"readiness ok", New(0).ReadinessHandler(), http.MethodGet, http.StatusOK, true},
		{"readiness failing", failing.ReadinessHandler(), http.MethodGet, http.StatusServiceUnavailable, true},
		{"head has no body", New(0).LivenessHandler(), http.MethodHead, http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler.ServeHTTP(rec, httptest.NewRequest(tt.method, "/", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Content-Type"); got != "application/json" {
				t.Errorf("Content-Type = %q", got)
			}
			if (rec.Body.Len() > 0) != tt.wantBody {
				t.Errorf("body = %q", rec.Body.String())
			}
		})
	}
}

func TestVersionHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler(VersionInfo{Version: "1.2.3", Commit: "abc"}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc" || info.GoVersion == "" {
		t.Errorf("info = %+v", info)
	}
}

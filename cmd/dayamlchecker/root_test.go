package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dayaml-tools/checker/pkg/cli"
)

const (
	validInterview   = "question: |\n  What is your name?\nfield: name\n"
	invalidInterview = "question: |\n  Q1\nquestion: |\n  Q2\n"
)

// execute runs a fresh root command with args and returns its output and
// exit code.
func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, code int) {
	t.Helper()

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	code = exitCode(cmd.Execute(), &errOut)
	return out.String(), errOut.String(), code
}

// writeInterviews creates a directory holding a clean file, a file with a
// duplicate key and a file on the skip list.
func writeInterviews(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"good.yml":     validInterview,
		"bad.yml":      invalidInterview,
		"examples.yml": invalidInterview,
		"notes.txt":    "not yaml",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}

func TestCheckCommand(t *testing.T) {
	dir := writeInterviews(t)

	tests := []struct {
		name        string
		args        []string
		wantCode    int
		wantOut     []string
		wantMissing []string
	}{
		{
			name:     "default output",
			args:     []string{dir},
			wantCode: cli.ExitErrors,
			wantOut: []string{
				"errors (1): bad.yml\n  REAL ERROR: At bad.yml:3:",
				"skipped: examples.yml\n",
				"ok: good.yml\n",
				"Summary: 1 ok, 1 errors, 1 skipped (3 total)\n",
			},
		},
		{
			name:        "minimal",
			args:        []string{"--minimal", dir},
			wantCode:    cli.ExitErrors,
			wantOut:     []string{"\nFound 1 errors:\nREAL ERROR: At bad.yml:3:", "Summary: 1 ok, 1 errors, 1 skipped (3 total)"},
			wantMissing: []string{"ok: good.yml", "skipped:"},
		},
		{
			name:        "quiet",
			args:        []string{"-q", dir},
			wantCode:    cli.ExitErrors,
			wantOut:     []string{"errors (1): bad.yml"},
			wantMissing: []string{"ok: good.yml", "skipped:", "Summary:"},
		},
		{
			name:        "no summary",
			args:        []string{"--no-summary", dir},
			wantCode:    cli.ExitErrors,
			wantOut:     []string{"ok: good.yml"},
			wantMissing: []string{"Summary:"},
		},
		{
			name:     "clean file",
			args:     []string{filepath.Join(dir, "good.yml")},
			wantCode: cli.ExitOK,
			wantOut:  []string{"ok: good.yml\n", "Summary: 1 ok (1 total)\n"},
		},
		{
			name:     "single worker keeps order",
			args:     []string{"--workers", "1", dir},
			wantCode: cli.ExitErrors,
			wantOut:  []string{"errors (1): bad.yml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, code := execute(t, "", tt.args...)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, tt.wantCode, stderr)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(stdout, want) {
					t.Errorf("output missing %q:\n%s", want, stdout)
				}
			}
			for _, unwanted := range tt.wantMissing {
				if strings.Contains(stdout, unwanted) {
					t.Errorf("output should not contain %q:\n%s", unwanted, stdout)
				}
			}
		})
	}
}

func TestCheckCommandOrder(t *testing.T) {
	dir := writeInterviews(t)

	stdout, _, _ := execute(t, "", "--workers", "8", dir)

	bad := strings.Index(stdout, "bad.yml")
	skipped := strings.Index(stdout, "examples.yml")
	good := strings.Index(stdout, "good.yml")
	if !(bad < skipped && skipped < good) {
		t.Errorf("files not reported in walk order:\n%s", stdout)
	}
}

func TestCheckCommandJSON(t *testing.T) {
	dir := writeInterviews(t)

	stdout, _, code := execute(t, "", "--format", "json", dir)
	if code != cli.ExitErrors {
		t.Errorf("exit code = %d, want %d", code, cli.ExitErrors)
	}

	var report cli.Report
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if len(report.Files) != 3 {
		t.Fatalf("len(Files) = %d, want 3", len(report.Files))
	}
	if report.Summary == nil || report.Summary.Errors != 1 || report.Summary.OK != 1 || report.Summary.Skipped != 1 {
		t.Errorf("Summary = %+v", report.Summary)
	}
	bad := report.Files[0]
	if bad.File != "bad.yml" || bad.Status != "errors" || len(bad.Errors) != 1 {
		t.Fatalf("Files[0] = %+v", bad)
	}
	if bad.Errors[0].Line != 3 || bad.Errors[0].Experimental {
		t.Errorf("Errors[0] = %+v", bad.Errors[0])
	}
}

func TestCheckCommandSkipFilesFromConfig(t *testing.T) {
	dir := writeInterviews(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("check:\n  skip_files:\n    - bad.yml\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, code := execute(t, "", "--config", cfgPath, dir)
	if code != cli.ExitOK {
		t.Errorf("exit code = %d, want %d (stderr: %s)", code, cli.ExitOK, stderr)
	}
	if !strings.Contains(stdout, "skipped: bad.yml") {
		t.Errorf("bad.yml not skipped:\n%s", stdout)
	}
}

func TestCheckCommandErrors(t *testing.T) {
	empty := t.TempDir()
	dir := writeInterviews(t)

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStderr string
	}{
		{
			name:       "no yaml files",
			args:       []string{empty},
			wantCode:   cli.ExitErrors,
			wantStderr: "No YAML files found.\n",
		},
		{
			name:     "no paths",
			args:     nil,
			wantCode: cli.ExitUsage,
		},
		{
			name:       "missing path",
			args:       []string{filepath.Join(empty, "missing")},
			wantCode:   cli.ExitErrors,
			wantStderr: "Error: command check failed",
		},
		{
			name:       "unknown format",
			args:       []string{"--format", "xml", dir},
			wantCode:   cli.ExitUsage,
			wantStderr: `unknown output format "xml"`,
		},
		{
			name:     "unknown flag",
			args:     []string{"--bogus", dir},
			wantCode: cli.ExitUsage,
		},
		{
			name:       "invalid workers",
			args:       []string{"--workers", "0", dir},
			wantCode:   cli.ExitUsage,
			wantStderr: "workers must be at least 1",
		},
		{
			name:       "watch with json",
			args:       []string{"--watch", "--format", "json", dir},
			wantCode:   cli.ExitUsage,
			wantStderr: "--watch cannot be combined with --format json",
		},
		{
			name:       "metrics without watch",
			args:       []string{"--metrics-listen", "127.0.0.1:0", dir},
			wantCode:   cli.ExitUsage,
			wantStderr: "--metrics-listen requires --watch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := execute(t, "", tt.args...)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, tt.wantCode, stderr)
			}
			if tt.wantStderr != "" && !strings.Contains(stderr, tt.wantStderr) {
				t.Errorf("stderr = %q, want it to contain %q", stderr, tt.wantStderr)
			}
		})
	}
}

func TestMinimalAndQuietAreExclusive(t *testing.T) {
	dir := writeInterviews(t)

	_, _, code := execute(t, "", "-m", "-q", dir)
	if code == cli.ExitOK {
		t.Error("expected --minimal with --quiet to fail")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantStderr string
	}{
		{"nil", nil, cli.ExitOK, ""},
		{"silent exit", cli.Exit(cli.ExitErrors), cli.ExitErrors, ""},
		{"usage", usageError(errors.New("bad flag")), cli.ExitUsage, "Error: bad flag\n"},
		{"config", cli.NewConfigError("config.yaml", "broken"), cli.ExitUsage, "Error: config error in config.yaml: broken\n"},
		{"command", cli.NewCommandError("check", errors.New("boom")), cli.ExitErrors, "Error: command check failed: boom\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			if got := exitCode(tt.err, &stderr); got != tt.wantCode {
				t.Errorf("exitCode() = %d, want %d", got, tt.wantCode)
			}
			if stderr.String() != tt.wantStderr {
				t.Errorf("stderr = %q, want %q", stderr.String(), tt.wantStderr)
			}
		})
	}
}

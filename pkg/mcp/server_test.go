package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dayaml-tools/checker/pkg/config"
	"dayaml-tools/checker/pkg/dayaml"
	"dayaml-tools/checker/pkg/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	s, err := NewServer(dayaml.NewChecker(), "test", opts...)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return s
}

func call(t *testing.T, s *Server, msg string) *JSONRPCResponse {
	t.Helper()
	return s.HandleMessage(context.Background(), []byte(msg))
}

func toolCall(name string, args map[string]any) string {
	params, _ := json.Marshal(map[string]any{"name": name, "arguments": args})
	return `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":` + string(params) + `}`
}

func decodeReport(t *testing.T, resp *JSONRPCResponse) dayaml.Report {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(*CallResult)
	if !ok {
		t.Fatalf("result = %T, want *CallResult", resp.Result)
	}
	if result.IsError || len(result.Content) != 1 {
		t.Fatalf("result = %+v", result)
	}
	var report dayaml.Report
	if err := json.Unmarshal([]byte(result.Content[0].Text), &report); err != nil {
		t.Fatalf("result text is not a report: %v", err)
	}
	return report
}

func TestInitialize(t *testing.T) {
	s := newTestServer(t)
	resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)

	if resp.Error != nil {
		t.Fatalf("error = %+v", resp.Error)
	}
	result := resp.Result.(map[string]any)
	if result["protocolVersion"] != ProtocolVersion {
		t.Errorf("protocolVersion = %v", result["protocolVersion"])
	}
	info := result["serverInfo"].(map[string]any)
	if info["name"] != ServerName || info["version"] != "test" {
		t.Errorf("serverInfo = %v", info)
	}
	if string(resp.ID) != "1" {
		t.Errorf("id = %s, want 1", resp.ID)
	}
}

func TestNotificationsHaveNoResponse(t *testing.T) {
	s := newTestServer(t)
	if resp := call(t, s, `{"jsonrpc":"2.0","method":"notifications/initialized"}`); resp != nil {
		t.Errorf("response = %+v, want nil", resp)
	}
}

func TestToolsList(t *testing.T) {
	s := newTestServer(t)
	resp := call(t, s, `{"jsonrpc":"2.0","id":"a","method":"tools/list"}`)

	tools := resp.Result.(map[string]any)["tools"].([]Tool)
	if len(tools) != 1 || tools[0].Name != ValidateToolName {
		t.Fatalf("tools = %+v", tools)
	}
	if tools[0].InputSchema["type"] != "object" {
		t.Errorf("input schema = %v", tools[0].InputSchema)
	}
}

func TestValidateTool(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		args       map[string]any
		wantValid  bool
		wantErrors int
		wantFile   string
		wantLine   int
	}{
		{
			name:      "valid interview",
			args:      map[string]any{"yaml_text": "question: hi\nfield: name\n"},
			wantValid: true,
		},
		{
			name:       "unknown key",
			args:       map[string]any{"yaml_text": "question: hi\nbogus: 1\n"},
			wantErrors: 1,
			wantFile:   dayaml.DefaultFileName,
			wantLine:   1,
		},
		{
			name:       "named file",
			args:       map[string]any{"yaml_text": "code: |\n  x = (\n", "filename": "a.yml"},
			wantErrors: 1,
			wantFile:   "a.yml",
			wantLine:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := decodeReport(t, call(t, s, toolCall(ValidateToolName, tt.args)))
			if report.Valid != tt.wantValid {
				t.Errorf("valid = %v, want %v", report.Valid, tt.wantValid)
			}
			if len(report.Errors) != tt.wantErrors {
				t.Fatalf("errors = %+v, want %d", report.Errors, tt.wantErrors)
			}
			if tt.wantErrors > 0 {
				if report.Errors[0].Filename != tt.wantFile || report.Errors[0].Line != tt.wantLine {
					t.Errorf("error = %+v", report.Errors[0])
				}
			}
		})
	}
}

func TestValidateToolPath(t *testing.T) {
	s := newTestServer(t)
	path := filepath.Join(t.TempDir(), "interview.yml")
	if err := os.WriteFile(path, []byte("question: hi\nbogus: 1\n"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	report := decodeReport(t, call(t, s, toolCall(ValidateToolName, map[string]any{"path": path})))
	if len(report.Errors) != 1 || report.Errors[0].Filename != path {
		t.Errorf("errors = %+v", report.Errors)
	}

	resp := call(t, s, toolCall(ValidateToolName, map[string]any{"path": filepath.Join(t.TempDir(), "missing.yml")}))
	result := resp.Result.(*CallResult)
	if !result.IsError {
		t.Error("reading a missing file should be a tool error")
	}
}

func TestValidateToolRejectsBadArguments(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing text", map[string]any{}},
		{"wrong type", map[string]any{"yaml_text": 3}},
		{"unknown argument", map[string]any{"yaml_text": "a: b", "extra": true}},
		{"text and path", map[string]any{"yaml_text": "a: b", "path": "x.yml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, s, toolCall(ValidateToolName, tt.args))
			if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
				t.Errorf("response = %+v, want invalid params", resp)
			}
		})
	}
}

func TestProtocolErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		msg      string
		wantCode int
	}{
		{"parse error", `{"jsonrpc":`, CodeParseError},
		{"not jsonrpc", `{"id":1,"method":"ping"}`, CodeInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`, CodeMethodNotFound},
		{"unknown tool", toolCall("format_yaml", map[string]any{}), CodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, s, tt.msg)
			if resp == nil || resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("response = %+v, want code %d", resp, tt.wantCode)
			}
		})
	}
}

func TestServe(t *testing.T) {
	cfg := config.Default()
	collector := metrics.NewCollector(&cfg.Metrics, nil)
	s := newTestServer(t, WithMetrics(collector))

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
		toolCall(ValidateToolName, map[string]any{"yaml_text": "question: hi\n"}),
	}, "\n") + "\n"

	out := &bytes.Buffer{}
	if err := s.Serve(context.Background(), strings.NewReader(input), out); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d responses, want 3:\n%s", len(lines), out.String())
	}
	var last struct {
		ID     int `json:"id"`
		Result struct {
			StructuredContent dayaml.Report `json:"structuredContent"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(lines[2]), &last); err != nil {
		t.Fatalf("last response is not JSON: %v", err)
	}
	if last.ID != 7 || !last.Result.StructuredContent.Valid {
		t.Errorf("last response = %s", lines[2])
	}

	count, err := testutil.GatherAndCount(collector.Registry(), "dayaml_requests_total")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if count != 4 {
		t.Errorf("request series = %d, want 4", count)
	}
}

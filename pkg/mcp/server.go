package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"dayaml-tools/checker/pkg/dayaml"
	"dayaml-tools/checker/pkg/telemetry/logging"
	"dayaml-tools/checker/pkg/telemetry/metrics"

	"github.com/google/uuid"
)

// ServerName is reported to clients during initialize.
const ServerName = "docassemble-yaml-checker"

// Server answers JSON-RPC 2.0 requests, one JSON object per line, and
// exposes the interview validation tool.
type Server struct {
	version   string
	tool      *validateTool
	logger    *logging.Logger
	collector *metrics.Collector

	writeMu sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records each request in collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Server) {
		s.collector = collector
	}
}

// NewServer creates a server reporting version in initialize.
func NewServer(checker *dayaml.Checker, version string, opts ...Option) (*Server, error) {
	tool, err := newValidateTool(checker)
	if err != nil {
		return nil, err
	}
	s := &Server{
		version: version,
		tool:    tool,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "mcp")
	return s, nil
}

// Serve reads requests from r and writes responses to w until r is
// exhausted or ctx is canceled. Requests are handled in order.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		reader := bufio.NewReader(r)
		for {
			line, err := reader.ReadBytes('\n')
			if len(bytes.TrimSpace(line)) > 0 {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- err
				}
				return
			}
		}
	}()

	s.logger.Info("serving tool requests", "version", s.version)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return fmt.Errorf("reading requests: %w", err)
				default:
					return nil
				}
			}
			if resp := s.HandleMessage(ctx, line); resp != nil {
				if err := s.write(w, resp); err != nil {
					return err
				}
			}
		}
	}
}

// HandleMessage processes one message and returns the response, or nil for
// notifications.
func (s *Server) HandleMessage(ctx context.Context, line []byte) *JSONRPCResponse {
	var req JSONRPCRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return errorResponse(nil, CodeParseError, "Parse error", err.Error())
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return errorResponse(req.ID, CodeInvalidRequest, "Invalid Request", "expected jsonrpc 2.0 with a method")
	}

	start := time.Now()
	ctx = logging.WithRequestID(ctx, uuid.NewString())
	result, rpcErr := s.dispatch(ctx, &req)

	status := "ok"
	if rpcErr != nil {
		status = "error"
	}
	if s.collector != nil {
		s.collector.RecordRequest(req.Method, status, time.Since(start))
	}
	s.logger.DebugContext(ctx, "handled request", "method", req.Method, "status", status)

	if req.IsNotification() {
		return nil
	}
	if rpcErr != nil {
		return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (s *Server) dispatch(ctx context.Context, req *JSONRPCRequest) (any, *JSONRPCError) {
	switch req.Method {
	case "initialize":
		return map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    ServerName,
				"version": s.version,
			},
		}, nil
	case "notifications/initialized", "notifications/cancelled":
		return nil, nil
	case "ping":
		return map[string]any{}, nil
	case "tools/list":
		return map[string]any{"tools": []Tool{s.tool.definition()}}, nil
	case "tools/call":
		return s.handleToolsCall(ctx, req.Params)
	default:
		return nil, &JSONRPCError{Code: CodeMethodNotFound, Message: "Method not found", Data: req.Method}
	}
}

func (s *Server) handleToolsCall(ctx context.Context, raw json.RawMessage) (any, *JSONRPCError) {
	var params callParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &JSONRPCError{Code: CodeInvalidParams, Message: "Invalid params", Data: err.Error()}
	}
	if params.Name != ValidateToolName {
		return nil, &JSONRPCError{Code: CodeInvalidParams, Message: "Tool not found", Data: params.Name}
	}

	ctx = logging.WithTool(ctx, params.Name)
	s.logger.InfoContext(ctx, "tool call")

	result, err := s.tool.call(ctx, params.Arguments)
	if err != nil {
		s.logger.WarnContext(ctx, "tool call rejected", "error", err)
		return nil, &JSONRPCError{Code: CodeInvalidParams, Message: "Invalid params", Data: err.Error()}
	}
	return result, nil
}

func (s *Server) write(w io.Writer, resp *JSONRPCResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	data = append(data, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}

func errorResponse(id json.RawMessage, code int, message, data string) *JSONRPCResponse {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message, Data: data},
	}
}

package dayaml

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"dayaml-tools/checker/pkg/dayaml/ast"
	"dayaml-tools/checker/pkg/dayaml/errors"
	"dayaml-tools/checker/pkg/dayaml/jinja"
	"dayaml-tools/checker/pkg/dayaml/parser"
	"dayaml-tools/checker/pkg/dayaml/validator"
)

// DefaultFileName names text checked without a file.
const DefaultFileName = "<string input>"

// Status values of a Result.
const (
	StatusOK     = "ok"
	StatusErrors = "errors"
)

// Recorder receives per-file measurements. The telemetry collector
// implements it.
type Recorder interface {
	RecordCheck(status string, jinja bool, duration time.Duration)
	RecordFinding(errType string, experimental bool)
}

// Result is the outcome of checking one file.
type Result struct {
	File     string
	Errors   []*errors.Error
	Jinja    bool // the file was rendered as a template first
	Duration time.Duration
}

// HasErrors reports whether any finding was produced.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// Status returns StatusOK or StatusErrors.
func (r *Result) Status() string {
	if r.HasErrors() {
		return StatusErrors
	}
	return StatusOK
}

// RealCount returns the number of non-experimental findings.
func (r *Result) RealCount() int {
	n := 0
	for _, e := range r.Errors {
		if !e.Experimental {
			n++
		}
	}
	return n
}

// Checker runs the full pipeline over interview files. A Checker has no
// per-file state and may be shared between goroutines.
type Checker struct {
	parser       *parser.Parser
	validator    *validator.Validator
	logger       *slog.Logger
	recorder     Recorder
	contextLines int
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger used for per-file debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics reports every check to r.
func WithMetrics(r Recorder) Option {
	return func(c *Checker) {
		c.recorder = r
	}
}

// WithContextLines attaches n lines of surrounding source to each error.
func WithContextLines(n int) Option {
	return func(c *Checker) {
		c.contextLines = n
	}
}

// WithMaxDepth limits how deeply a document may nest.
func WithMaxDepth(depth int) Option {
	return func(c *Checker) {
		c.parser.WithMaxDepth(depth)
	}
}

// NewChecker creates a Checker.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		parser:    parser.NewParser(),
		validator: validator.New(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check validates text and returns every finding in document order. name is
// used as the file of each error.
func (c *Checker) Check(ctx context.Context, name, text string) *Result {
	if name == "" {
		name = DefaultFileName
	}
	start := time.Now()
	result := &Result{File: name}
	list := errors.NewErrorList()

	source, findings := c.findings(text, result)
	list.AddFindings(name, findings)
	if c.contextLines > 0 {
		errors.AddContext(list, source, c.contextLines)
	}

	result.Errors = list.Errors
	result.Duration = time.Since(start)

	c.logger.DebugContext(ctx, "checked interview file",
		"file", name,
		"status", result.Status(),
		"errors", len(result.Errors),
		"real", result.RealCount(),
		"jinja", result.Jinja,
		"duration", result.Duration,
	)
	if c.recorder != nil {
		c.recorder.RecordCheck(result.Status(), result.Jinja, result.Duration)
		for _, e := range result.Errors {
			c.recorder.RecordFinding(string(e.Type), e.Experimental)
		}
	}
	return result
}

// findings runs preprocessing, loading and validation. It returns the text
// the finding lines refer to.
func (c *Checker) findings(text string, result *Result) (string, []errors.Finding) {
	body, base := text, 1
	if jinja.ContainsSyntax(text) {
		result.Jinja = true
		if !jinja.HasHeader(text) {
			return text, []errors.Finding{{
				Type:    errors.ErrorTypeStructural,
				Message: jinja.MissingHeaderMessage,
				Line:    1,
			}}
		}
		rendered, renderErrs := jinja.Preprocess(text)
		if len(renderErrs) > 0 {
			findings := make([]errors.Finding, 0, len(renderErrs))
			for _, msg := range renderErrs {
				findings = append(findings, errors.Finding{Type: errors.ErrorTypeSyntax, Message: msg, Line: 1})
			}
			return text, findings
		}
		// The header line is dropped so it is not seen as template opt-in
		// again; lines still count from the rendered file's first line.
		text, body, base = rendered, jinja.StripHeader(rendered), 2
	}

	findings := c.validator.ValidateDocuments(c.parser.ParseString(body))
	return text, errors.Shift(findings, base)
}

// CheckFile reads and checks the file at path.
func (c *Checker) CheckFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return c.Check(ctx, path, string(data)), nil
}

var defaultChecker = NewChecker()

// FindErrorsFromString checks text and returns its findings. An empty file
// name is reported as "<string input>".
func FindErrorsFromString(text, file string) []*errors.Error {
	return defaultChecker.Check(context.Background(), file, text).Errors
}

// FindErrors reads and checks the file at path.
func FindErrors(path string) ([]*errors.Error, error) {
	result, err := defaultChecker.CheckFile(context.Background(), path)
	if err != nil {
		return nil, err
	}
	return result.Errors, nil
}

// IOError describes a file that could not be read as an error record.
func IOError(path string, err error) *errors.Error {
	return errors.New(errors.ErrorTypeIO, err.Error(), ast.Location{File: path, Line: 1})
}

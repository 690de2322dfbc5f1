package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"dayaml-tools/checker/pkg/dayaml"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is a single JSON report written after every file is checked.
	FormatJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --format value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

// Mode selects how much the text reporter prints.
type Mode int

const (
	// ModeDefault prints one line per file.
	ModeDefault Mode = iota
	// ModeMinimal prints a dot per clean file and details only for failures.
	ModeMinimal
	// ModeQuiet prints only failures.
	ModeQuiet
)

// Summary counts files by outcome.
type Summary struct {
	OK      int `json:"ok"`
	Errors  int `json:"errors"`
	Skipped int `json:"skipped"`
}

// Total returns the number of files seen.
func (s Summary) Total() int {
	return s.OK + s.Errors + s.Skipped
}

// String renders the summary line, leaving out zero counts.
func (s Summary) String() string {
	var parts []string
	if s.OK > 0 {
		parts = append(parts, fmt.Sprintf("%d ok", s.OK))
	}
	if s.Errors > 0 {
		parts = append(parts, fmt.Sprintf("%d errors", s.Errors))
	}
	if s.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", s.Skipped))
	}
	if len(parts) == 0 {
		parts = append(parts, "0 files processed")
	}
	return fmt.Sprintf("Summary: %s (%d total)", strings.Join(parts, ", "), s.Total())
}

// Reporter receives file outcomes in the order files were collected.
// Implementations are safe for concurrent use but callers should report in
// order for stable output.
type Reporter interface {
	Skipped(path string)
	Result(result *dayaml.Result)
	// Finish writes any trailing output. summary is false when the summary
	// line was turned off.
	Finish(s Summary, summary bool) error
}

// NewReporter creates a reporter for format and mode writing to w.
func NewReporter(w io.Writer, format OutputFormat, mode Mode) Reporter {
	if format == FormatJSON {
		return &JSONReporter{writer: w}
	}
	return &TextReporter{writer: w, mode: mode}
}

// TextReporter prints results as they arrive.
type TextReporter struct {
	mu     sync.Mutex
	writer io.Writer
	mode   Mode
}

// Skipped announces a file that was not checked.
func (r *TextReporter) Skipped(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mode == ModeDefault {
		fmt.Fprintf(r.writer, "skipped: %s\n", path)
	}
}

// Result prints the outcome of one file.
func (r *TextReporter) Result(result *dayaml.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !result.HasErrors() {
		switch r.mode {
		case ModeMinimal:
			if result.Jinja {
				fmt.Fprint(r.writer, "j")
			} else {
				fmt.Fprint(r.writer, ".")
			}
		case ModeDefault:
			label := "ok"
			if result.Jinja {
				label = "ok (jinja)"
			}
			fmt.Fprintf(r.writer, "%s: %s\n", label, result.File)
		}
		return
	}

	if r.mode == ModeMinimal {
		note := ""
		if result.Jinja {
			note = " (in Jinja-preprocessed file)"
		}
		fmt.Fprintln(r.writer)
		fmt.Fprintf(r.writer, "Found %d errors%s:\n", len(result.Errors), note)
		for _, e := range result.Errors {
			fmt.Fprintln(r.writer, e.String())
		}
		return
	}

	note := ""
	if result.Jinja {
		note = " (jinja)"
	}
	fmt.Fprintf(r.writer, "errors (%d)%s: %s\n", len(result.Errors), note, result.File)
	for _, e := range result.Errors {
		fmt.Fprintf(r.writer, "  %s\n", e.String())
		if e.Context != "" {
			for _, line := range strings.Split(strings.TrimRight(e.Context, "\n"), "\n") {
				fmt.Fprintf(r.writer, "    %s\n", line)
			}
		}
	}
}

// Finish terminates the dot line and prints the summary.
func (r *TextReporter) Finish(s Summary, summary bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mode == ModeMinimal {
		if _, err := fmt.Fprintln(r.writer); err != nil {
			return err
		}
	}
	if r.mode == ModeQuiet || !summary {
		return nil
	}
	_, err := fmt.Fprintln(r.writer, s.String())
	return err
}

// FileReport is the JSON form of one checked file.
type FileReport struct {
	File   string        `json:"file"`
	Status string        `json:"status"`
	Jinja  bool          `json:"jinja,omitempty"`
	Errors []ErrorReport `json:"errors,omitempty"`
}

// ErrorReport is the JSON form of one finding.
type ErrorReport struct {
	Type         string `json:"type"`
	Message      string `json:"message"`
	Line         int    `json:"line"`
	Experimental bool   `json:"experimental"`
	Suggestion   string `json:"suggestion,omitempty"`
}

// Report is the complete JSON document.
type Report struct {
	Files   []FileReport `json:"files"`
	Summary *Summary     `json:"summary,omitempty"`
}

// JSONReporter buffers results and writes one Report on Finish.
type JSONReporter struct {
	mu     sync.Mutex
	writer io.Writer
	report Report
}

// Skipped records a skipped file.
func (r *JSONReporter) Skipped(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.report.Files = append(r.report.Files, FileReport{File: path, Status: "skipped"})
}

// Result records a checked file.
func (r *JSONReporter) Result(result *dayaml.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fr := FileReport{File: result.File, Status: result.Status(), Jinja: result.Jinja}
	for _, e := range result.Errors {
		fr.Errors = append(fr.Errors, ErrorReport{
			Type:         string(e.Type),
			Message:      e.Message,
			Line:         e.Location.Line,
			Experimental: e.Experimental,
			Suggestion:   e.Suggestion,
		})
	}
	r.report.Files = append(r.report.Files, fr)
}

// Finish writes the report.
func (r *JSONReporter) Finish(s Summary, summary bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.report.Files == nil {
		r.report.Files = []FileReport{}
	}
	if summary {
		r.report.Summary = &s
	}
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r.report)
}

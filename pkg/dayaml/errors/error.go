package errors

import (
	"fmt"
	"strings"

	"dayaml-tools/checker/pkg/dayaml/ast"
)

// ErrorType categorizes a finding.
type ErrorType string

const (
	ErrorTypeSyntax     ErrorType = "syntax"     // Malformed document text, duplicate keys
	ErrorTypeStructural ErrorType = "structural" // Unknown keys, block-type conflicts, bad shapes
	ErrorTypeEmbedded   ErrorType = "embedded"   // Embedded-language syntax failure
	ErrorTypeSemantic   ErrorType = "semantic"   // Heuristic scope and usage findings
	ErrorTypeIO         ErrorType = "io"         // File I/O error
)

// IsExperimental reports whether findings of this type are best-effort.
func (t ErrorType) IsExperimental() bool {
	return t == ErrorTypeSemantic
}

// Error is one finding attributed to an absolute file location.
type Error struct {
	Type         ErrorType    // Category of error
	Message      string       // Error message
	Location     ast.Location // Source location (file, line)
	Experimental bool         // Best-effort finding that may be a false positive
	Context      string       // Surrounding lines of source (optional)
	Suggestion   string       // Suggested fix (optional)
}

// New creates an error whose experimental flag follows its type.
func New(errType ErrorType, message string, location ast.Location) *Error {
	return &Error{
		Type:         errType,
		Message:      message,
		Location:     location,
		Experimental: errType.IsExperimental(),
	}
}

// String renders the error in the single-line report format.
func (e *Error) String() string {
	if e.Experimental {
		return fmt.Sprintf("At %s: %s", e.Location, e.Message)
	}
	return fmt.Sprintf("REAL ERROR: At %s: %s", e.Location, e.Message)
}

// Error implements the error interface with context and suggestion attached.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.String())
	sb.WriteString("\n")

	if e.Context != "" {
		sb.WriteString("  |\n")
		sb.WriteString(e.Context)
		sb.WriteString("  |\n")
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  = suggestion: %s\n", e.Suggestion))
	}

	return sb.String()
}

// Finding is a validator result with a line relative to the inspected value.
// Line 1 is the first line of the value's text.
type Finding struct {
	Type       ErrorType
	Message    string
	Line       int
	Suggestion string
}

// Findingf creates a finding at a relative line.
func Findingf(errType ErrorType, line int, format string, args ...any) Finding {
	return Finding{Type: errType, Message: fmt.Sprintf(format, args...), Line: line}
}

// Shift returns the findings with their relative lines moved down by
// base-1, so that line 1 lands on base.
func Shift(findings []Finding, base int) []Finding {
	out := make([]Finding, len(findings))
	for i, f := range findings {
		if f.Line < 1 {
			f.Line = 1
		}
		f.Line += base - 1
		out[i] = f
	}
	return out
}

// ErrorList collects findings for one file in document order.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList creates a new empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*Error, 0),
	}
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *Error) {
	el.Errors = append(el.Errors, err)
}

// AddError creates and adds a new error with the given parameters.
func (el *ErrorList) AddError(errType ErrorType, message string, location ast.Location) {
	el.Add(New(errType, message, location))
}

// AddFindings converts findings with absolute lines into errors for file.
func (el *ErrorList) AddFindings(file string, findings []Finding) {
	for _, f := range findings {
		e := New(f.Type, f.Message, ast.Location{File: file, Line: f.Line})
		e.Suggestion = f.Suggestion
		el.Add(e)
	}
}

// Merge appends every error of other.
func (el *ErrorList) Merge(other *ErrorList) {
	if other == nil {
		return
	}
	el.Errors = append(el.Errors, other.Errors...)
}

// HasErrors returns true if the error list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of errors in the list.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// Real returns the non-experimental errors.
func (el *ErrorList) Real() []*Error {
	var result []*Error
	for _, err := range el.Errors {
		if !err.Experimental {
			result = append(result, err)
		}
	}
	return result
}

// Error implements the error interface.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d error(s):\n", el.Count()))
	for _, err := range el.Errors {
		sb.WriteString(err.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// ToError returns nil if the error list is empty, otherwise returns the error list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// ByType returns all errors of the given type.
func (el *ErrorList) ByType(errType ErrorType) []*Error {
	var result []*Error
	for _, err := range el.Errors {
		if err.Type == errType {
			result = append(result, err)
		}
	}
	return result
}

// HasErrorType returns true if the error list contains at least one error of the given type.
func (el *ErrorList) HasErrorType(errType ErrorType) bool {
	for _, err := range el.Errors {
		if err.Type == errType {
			return true
		}
	}
	return false
}

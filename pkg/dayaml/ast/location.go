package ast

import "fmt"

// Location represents the source location of a finding in the original interview file.
type Location struct {
	File   string // Path to the interview file
	Line   int    // Line number (1-based)
	Column int    // Column number (1-based, 0 when unknown)
}

// String returns a human-readable representation of the location.
// Format: "file:line"
func (l Location) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// IsValid returns true if the location has valid file and line information.
func (l Location) IsValid() bool {
	return l.File != "" && l.Line > 0
}

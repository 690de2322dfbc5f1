package errors

import (
	"fmt"
	"strings"
)

// ExtractContext returns the lines around line (1-based) of text with line
// numbers, marking the offending line with "->".
func ExtractContext(text string, line, contextLines int) string {
	if line < 1 {
		return ""
	}
	lines := strings.Split(text, "\n")
	errorLine := line - 1
	if errorLine >= len(lines) {
		return ""
	}

	startLine := max(errorLine-contextLines, 0)
	endLine := min(errorLine+contextLines, len(lines)-1)

	var sb strings.Builder
	width := len(fmt.Sprintf("%d", endLine+1))
	for i := startLine; i <= endLine; i++ {
		prefix := "  "
		if i == errorLine {
			prefix = "->"
		}
		sb.WriteString(fmt.Sprintf("%s %*d | %s\n", prefix, width, i+1, lines[i]))
	}
	return sb.String()
}

// AddContext fills the Context of every error in the list from text.
func AddContext(el *ErrorList, text string, contextLines int) {
	for _, err := range el.Errors {
		if err.Location.Line > 0 {
			err.Context = ExtractContext(text, err.Location.Line, contextLines)
		}
	}
}

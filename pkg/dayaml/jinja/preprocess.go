package jinja

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Header is the opt-in marker that must be the first line of a file using
// template syntax.
const Header = "# use jinja"

// MissingHeaderMessage is reported when template syntax appears without the header.
const MissingHeaderMessage = "File contains Jinja syntax but is missing '# use jinja' on the first line. " +
	"Per docassemble documentation, add '# use jinja' as the very first line to enable Jinja2 processing, " +
	"or remove the Jinja syntax from the file."

var syntaxPattern = regexp.MustCompile(`(?s)(\{\{.*?\}\}|\{%-?.*?-?%\}|\{#.*?#\})`)

// ContainsSyntax reports whether text contains any template construct.
func ContainsSyntax(text string) bool {
	return syntaxPattern.MatchString(text)
}

// HasHeader reports whether the first line is exactly the opt-in marker.
func HasHeader(text string) bool {
	first, _, _ := strings.Cut(text, "\n")
	return strings.TrimRight(first, " \t\r") == Header
}

// Preprocess renders text with every variable undefined. It returns the
// rendered text and any errors as messages; on error the text is returned
// unchanged.
func Preprocess(text string) (string, []string) {
	out, err := Render(text, nil)
	if err == nil {
		return out, nil
	}

	var syntaxErr *TemplateSyntaxError
	if errors.As(err, &syntaxErr) {
		return text, []string{fmt.Sprintf("Jinja2 syntax error at line %d: %s", syntaxErr.Line, syntaxErr.Message)}
	}
	return text, []string{"Jinja2 template error: " + err.Error()}
}

// StripHeader removes the marker line, returning the remainder.
func StripHeader(text string) string {
	if !HasHeader(text) {
		return text
	}
	_, rest, _ := strings.Cut(text, "\n")
	return rest
}

// Package lang holds the checkers for the languages embedded in interview
// files: python for code blocks, mako for question text, and jsexpr for the
// browser-side visibility expressions.
//
// Each checker works on one fragment and reports lines relative to that
// fragment, line 1 being the fragment's first line.
package lang

// SyntaxError is a syntax failure inside an embedded fragment.
type SyntaxError struct {
	Line    int    // 1-based, relative to the fragment
	Column  int    // 1-based
	Message string // message without any language prefix
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return e.Message
}

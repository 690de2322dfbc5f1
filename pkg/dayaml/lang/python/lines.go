package python

import (
	"fmt"
	"slices"
	"strings"

	"dayaml-tools/checker/pkg/dayaml/lang"
)

// logicalLine is one statement line after joining bracketed, backslash and
// triple-quoted continuations. Blank and comment-only lines are dropped.
type logicalLine struct {
	line    int // 1-based line of the first physical line
	indent  int
	keyword string
	colon   bool // a ':' outside brackets and strings
	opener  bool // the line ends with that ':'
	open    bool // a bracket is still open at the end of the source
}

// compound statements and the clauses that may follow them at the same
// indentation.
var (
	compoundKeywords = map[string]bool{
		"if": true, "elif": true, "else": true, "for": true, "while": true,
		"with": true, "try": true, "except": true, "finally": true,
		"def": true, "class": true,
	}
	clauseFollows = map[string][]string{
		"elif":    {"if", "elif"},
		"else":    {"if", "elif", "for", "while", "except"},
		"except":  {"try", "except"},
		"finally": {"try", "except", "else"},
	}
)

// scanLines splits src into logical lines.
func scanLines(src string) []logicalLine {
	var (
		out       []logicalLine
		cur       *logicalLine
		depth     int
		quote     byte
		triple    bool
		continued bool
		endsColon bool
		row       = 1
		lineStart int
	)
	flush := func() {
		if cur != nil {
			cur.opener = endsColon
			cur.open = depth > 0
			out = append(out, *cur)
		}
		cur = nil
		endsColon = false
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		if c == '\n' {
			row++
			lineStart = i + 1
			if quote != 0 && triple {
				continue
			}
			quote = 0
			if depth == 0 && !continued {
				flush()
			}
			continued = false
			continue
		}

		if quote != 0 {
			switch {
			case c == '\\':
				if i+1 < len(src) && src[i+1] == '\n' {
					row++
					lineStart = i + 2
				}
				i++
			case c == quote && !triple:
				quote = 0
			case c == quote && strings.HasPrefix(src[i:], strings.Repeat(string(quote), 3)):
				quote = 0
				i += 2
			}
			if quote == 0 {
				endsColon = false
			}
			continue
		}

		switch c {
		case ' ', '\t', '\r', '\f':
			continue
		case '#':
			if j := strings.IndexByte(src[i:], '\n'); j >= 0 {
				i += j - 1
			} else {
				i = len(src)
			}
			continue
		}

		if cur == nil {
			cur = &logicalLine{
				line:    row,
				indent:  indentWidth(src[lineStart:i]),
				keyword: leadingKeyword(src[i:]),
			}
		}

		endsColon = false
		switch c {
		case '\\':
			rest := strings.TrimLeft(src[i+1:], "\r")
			if rest == "" || rest[0] == '\n' {
				continued = true
			}
		case '\'', '"':
			quote = c
			triple = strings.HasPrefix(src[i:], strings.Repeat(string(c), 3))
			if triple {
				i += 2
			}
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case ':':
			if depth == 0 && (i+1 >= len(src) || src[i+1] != '=') {
				cur.colon = true
				endsColon = true
			}
		}
	}
	flush()
	return out
}

func indentWidth(prefix string) int {
	w := 0
	for _, c := range prefix {
		switch c {
		case ' ':
			w++
		case '\t':
			w = (w/8 + 1) * 8
		case '\f':
			w = 0
		}
	}
	return w
}

func leadingKeyword(s string) string {
	word := func(s string) string {
		end := 0
		for end < len(s) && (s[end] == '_' || s[end] >= 'a' && s[end] <= 'z' ||
			s[end] >= 'A' && s[end] <= 'Z' || s[end] >= '0' && s[end] <= '9') {
			end++
		}
		return s[:end]
	}
	w := word(s)
	if w == "async" {
		return word(strings.TrimLeft(s[len(w):], " \t"))
	}
	return w
}

// blockName describes what an opener starts, the way indentation errors
// name it.
func blockName(keyword string) string {
	switch keyword {
	case "def":
		return "function definition"
	case "class":
		return "class definition"
	case "":
		return "statement"
	}
	return fmt.Sprintf("'%s' statement", keyword)
}

// checkLines finds indentation and clause-order errors the tree parser
// recovers from silently. It also returns the earliest line a parser error
// for the same mistake may point at.
func checkLines(src string) (*lang.SyntaxError, int) {
	lines := scanLines(src)
	indents := []int{0}
	type clause struct {
		keyword, head  string
		line, headLine int
	}
	blocks := make(map[int]clause)
	var pending *logicalLine

	fail := func(after, line int, format string, args ...any) (*lang.SyntaxError, int) {
		return &lang.SyntaxError{Line: line, Column: 1, Message: fmt.Sprintf(format, args...)}, after
	}

	for i := range lines {
		ln := &lines[i]
		top := indents[len(indents)-1]
		before := ln.line
		if i > 0 {
			before = lines[i-1].line
		}
		switch {
		case pending != nil:
			if ln.indent <= top {
				return fail(pending.line, ln.line, "expected an indented block after %s on line %d", blockName(pending.keyword), pending.line)
			}
			indents = append(indents, ln.indent)
		case ln.indent > top:
			return fail(before, ln.line, "unexpected indent")
		case ln.indent < top:
			for len(indents) > 1 && indents[len(indents)-1] > ln.indent {
				indents = indents[:len(indents)-1]
			}
			if indents[len(indents)-1] != ln.indent {
				return fail(before, ln.line, "unindent does not match any outer indentation level")
			}
		}
		for col := range blocks {
			if col > ln.indent {
				delete(blocks, col)
			}
		}

		prev, hasPrev := blocks[ln.indent]
		if allowed, ok := clauseFollows[ln.keyword]; ok {
			if !hasPrev || !slices.Contains(allowed, prev.keyword) ||
				(ln.keyword == "else" && prev.keyword == "except" && prev.head != "try") ||
				(ln.keyword == "finally" && prev.head != "try") {
				if hasPrev {
					before = min(before, prev.headLine)
				}
				return fail(before, ln.line, "invalid syntax")
			}
		} else if hasPrev && prev.keyword == "try" {
			return fail(prev.line, ln.line, "expected 'except' or 'finally' block")
		}
		if compoundKeywords[ln.keyword] && !ln.colon && !ln.open {
			return fail(before, ln.line, "expected ':'")
		}

		cl := clause{keyword: ln.keyword, head: ln.keyword, line: ln.line, headLine: ln.line}
		if _, ok := clauseFollows[ln.keyword]; ok {
			cl.head, cl.headLine = prev.head, prev.headLine
		}
		blocks[ln.indent] = cl

		pending = nil
		if ln.opener {
			pending = ln
		}
	}

	if pending != nil {
		return fail(pending.line, pending.line, "expected an indented block after %s on line %d", blockName(pending.keyword), pending.line)
	}
	return nil, 0
}

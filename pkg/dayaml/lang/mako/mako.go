// Package mako checks the text-templating fragments used for question text
// and other interview prose.
//
// The checker follows the template lexer closely enough to find the errors
// an author actually makes: unbalanced control lines, unterminated
// expressions and tags, and embedded code that does not parse.
package mako

import (
	"fmt"
	"regexp"
	"strings"

	"dayaml-tools/checker/pkg/dayaml/lang"
	"dayaml-tools/checker/pkg/dayaml/lang/python"
)

var (
	tagStart = regexp.MustCompile(`^<%([\w.:]+)((?:\s+[\w:]+\s*=\s*(?:'[^']*'|"[^"]*"))*)\s*(/)?>`)
	tagEnd   = regexp.MustCompile(`^</%[\t ]*([^\t >]+?)[\t ]*>`)
	control  = regexp.MustCompile(`^[ \t]*%[ \t]*(end)?(\w+)?(.*)$`)
)

// knownTags are the built-in tag names; names containing ':' are namespace calls.
var knownTags = map[string]bool{
	"def":       true,
	"block":     true,
	"call":      true,
	"namespace": true,
	"include":   true,
	"inherit":   true,
	"page":      true,
	"text":      true,
	"doc":       true,
}

// primaryKeywords open a control block; ternaries may follow them.
var primaryKeywords = map[string][]string{
	"if":    {"elif", "else"},
	"for":   {"else"},
	"while": {"else"},
	"try":   {"except", "finally", "else"},
	"with":  nil,
}

type controlFrame struct {
	keyword string
	line    int
}

type tagFrame struct {
	name string
	line int
}

type scanner struct {
	text     string
	pos      int
	line     int
	controls []controlFrame
	tags     []tagFrame
}

// Check returns the first error in a template fragment, or nil.
func Check(text string) *lang.SyntaxError {
	s := &scanner{text: text, line: 1}
	return s.run()
}

func (s *scanner) errorf(line int, format string, args ...any) *lang.SyntaxError {
	return &lang.SyntaxError{Line: line, Column: 1, Message: fmt.Sprintf(format, args...)}
}

func (s *scanner) advance(n int) {
	s.line += strings.Count(s.text[s.pos:s.pos+n], "\n")
	s.pos += n
}

func (s *scanner) atLineStart() bool {
	return s.pos == 0 || s.text[s.pos-1] == '\n'
}

func (s *scanner) run() *lang.SyntaxError {
	for s.pos < len(s.text) {
		rest := s.text[s.pos:]

		if s.atLineStart() {
			lineText := rest
			if i := strings.IndexByte(rest, '\n'); i >= 0 {
				lineText = rest[:i]
			}
			trimmed := strings.TrimLeft(lineText, " \t")
			switch {
			case strings.HasPrefix(trimmed, "##"):
				s.advance(len(lineText))
				continue
			case strings.HasPrefix(trimmed, "%") && !strings.HasPrefix(trimmed, "%%"):
				if err := s.controlLine(lineText); err != nil {
					return err
				}
				s.advance(len(lineText))
				continue
			}
		}

		switch {
		case strings.HasPrefix(rest, "\\\n"):
			s.advance(2)
		case strings.HasPrefix(rest, "${"):
			if err := s.expression(); err != nil {
				return err
			}
		case strings.HasPrefix(rest, "</%"):
			if err := s.closeTag(); err != nil {
				return err
			}
		case strings.HasPrefix(rest, "<%"):
			if err := s.openTagOrBlock(); err != nil {
				return err
			}
		default:
			s.advance(1)
		}
	}

	if len(s.tags) > 0 {
		top := s.tags[len(s.tags)-1]
		return s.errorf(top.line, "Unclosed tag: <%%%s>", top.name)
	}
	if len(s.controls) > 0 {
		top := s.controls[len(s.controls)-1]
		return s.errorf(top.line, "Unterminated control keyword: '%s'", top.keyword)
	}
	return nil
}

func (s *scanner) controlLine(lineText string) *lang.SyntaxError {
	m := control.FindStringSubmatch(lineText)
	if m == nil {
		return nil
	}
	isEnd, keyword, remainder := m[1] != "", m[2], strings.TrimSpace(m[3])

	if isEnd {
		if len(s.controls) == 0 {
			text := strings.TrimSpace(strings.TrimSpace(lineText)[1:])
			return s.errorf(s.line, "No starting keyword '%s' for '%s'", keyword, text)
		}
		top := s.controls[len(s.controls)-1]
		if top.keyword != keyword {
			return s.errorf(s.line, "Keyword 'end%s' doesn't match keyword '%s'", keyword, top.keyword)
		}
		s.controls = s.controls[:len(s.controls)-1]
		return nil
	}

	fragment := strings.TrimSpace(keyword + " " + remainder)
	if _, primary := primaryKeywords[keyword]; primary {
		if err := checkFragment(keyword, fragment, s.line); err != nil {
			return err
		}
		s.controls = append(s.controls, controlFrame{keyword: keyword, line: s.line})
		return nil
	}

	if len(s.controls) > 0 {
		top := s.controls[len(s.controls)-1]
		for _, ternary := range primaryKeywords[top.keyword] {
			if ternary == keyword {
				return checkFragment(keyword, fragment, s.line)
			}
		}
		if isControlKeyword(keyword) {
			return s.errorf(s.line, "Keyword '%s' not a legal ternary for keyword '%s'", keyword, top.keyword)
		}
	}
	return s.errorf(s.line, "Fragment '%s' is not a partial control statement", fragment)
}

func isControlKeyword(keyword string) bool {
	switch keyword {
	case "elif", "else", "except", "finally":
		return true
	}
	return false
}

// checkFragment compiles a control line header as a block opener.
func checkFragment(keyword, fragment string, line int) *lang.SyntaxError {
	if !strings.HasSuffix(fragment, ":") {
		return &lang.SyntaxError{Line: line, Column: 1, Message: fmt.Sprintf("Fragment '%s' is not a partial control statement", fragment)}
	}

	var src string
	switch keyword {
	case "elif", "else":
		src = "if True:\n    pass\n" + fragment + "\n    pass\n"
	case "except", "finally":
		src = "try:\n    pass\n" + fragment + "\n    pass\n"
	default:
		src = fragment + "\n    pass\n"
	}
	if err := python.Check(src); err != nil {
		return &lang.SyntaxError{Line: line, Column: 1, Message: fmt.Sprintf("(SyntaxError) %s (%q)", err.Message, fragment)}
	}
	return nil
}

func (s *scanner) expression() *lang.SyntaxError {
	start := s.line
	body := s.text[s.pos+2:]
	end, pipe := scanPython(body, '}')
	if end < 0 {
		return s.errorf(start, "Expected: '}'")
	}

	expr := body[:end]
	var filters string
	if pipe >= 0 {
		expr, filters = body[:pipe], body[pipe+1:end]
	}
	if err := python.CheckExpression(strings.TrimSpace(expr)); err != nil {
		line := min(err.Line, strings.Count(strings.TrimSpace(expr), "\n")+1)
		return s.errorf(start+line-1, "(SyntaxError) %s (%q)", err.Message, strings.TrimSpace(expr))
	}
	for _, f := range strings.Split(filters, ",") {
		f = strings.TrimSpace(f)
		if pipe >= 0 && f == "" {
			return s.errorf(start, "Expected a filter name after '|'")
		}
		if f != "" {
			if err := python.CheckExpression(f); err != nil {
				return s.errorf(start, "(SyntaxError) %s (%q)", err.Message, f)
			}
		}
	}

	s.advance(2 + end + 1)
	return nil
}

func (s *scanner) openTagOrBlock() *lang.SyntaxError {
	rest := s.text[s.pos:]
	start := s.line

	if m := tagStart.FindStringSubmatch(rest); m != nil {
		name, selfClosing := m[1], m[3] == "/"
		if !knownTags[name] && !strings.Contains(name, ":") {
			return s.errorf(start, "No such tag: '%s'", name)
		}
		s.advance(len(m[0]))
		if selfClosing {
			return nil
		}
		if name == "text" || name == "doc" {
			closing := "</%" + name + ">"
			idx := strings.Index(s.text[s.pos:], closing)
			if idx < 0 {
				return s.errorf(start, "Unclosed tag: <%%%s>", name)
			}
			s.advance(idx + len(closing))
			return nil
		}
		s.tags = append(s.tags, tagFrame{name: name, line: start})
		return nil
	}

	// Python block: <% code %> or <%! code %>
	bodyStart := 2
	if strings.HasPrefix(rest, "<%!") {
		bodyStart = 3
	}
	end := strings.Index(rest[bodyStart:], "%>")
	if end < 0 {
		return s.errorf(start, "Unclosed python block")
	}
	code := rest[bodyStart : bodyStart+end]
	if err := python.Check(dedent(code)); err != nil {
		return s.errorf(start+err.Line-1, "(SyntaxError) %s", err.Message)
	}
	s.advance(bodyStart + end + 2)
	return nil
}

func (s *scanner) closeTag() *lang.SyntaxError {
	m := tagEnd.FindStringSubmatch(s.text[s.pos:])
	if m == nil {
		s.advance(3)
		return nil
	}
	name := m[1]
	if len(s.tags) == 0 {
		return s.errorf(s.line, "Closing tag without opening tag: </%%%s>", name)
	}
	top := s.tags[len(s.tags)-1]
	if top.name != name {
		return s.errorf(s.line, "Closing tag </%%%s> does not match tag: <%%%s>", name, top.name)
	}
	s.tags = s.tags[:len(s.tags)-1]
	s.advance(len(m[0]))
	return nil
}

// scanPython finds the first terminator outside strings and brackets.
// It also returns the position of the first top-level '|', or -1.
func scanPython(text string, terminator byte) (end, pipe int) {
	pipe = -1
	depth := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '\'' || c == '"':
			quote := text[i : i+1]
			if strings.HasPrefix(text[i:], strings.Repeat(quote, 3)) {
				quote = strings.Repeat(quote, 3)
			}
			j := i + len(quote)
			for j < len(text) && !strings.HasPrefix(text[j:], quote) {
				if text[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(text) {
				return -1, pipe
			}
			i = j + len(quote) - 1
		case c == '(' || c == '[' || c == '{':
			depth++
		case (c == ')' || c == ']' || c == '}') && depth > 0:
			depth--
		case c == terminator && depth == 0:
			return i, pipe
		case c == '|' && depth == 0 && pipe < 0:
			pipe = i
		}
	}
	return -1, pipe
}

// dedent removes the common leading whitespace of the non-blank lines.
func dedent(code string) string {
	lines := strings.Split(code, "\n")
	common := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		indent := len(l) - len(strings.TrimLeft(l, " \t"))
		if common < 0 || indent < common {
			common = indent
		}
	}
	if common <= 0 {
		return code
	}
	for i, l := range lines {
		if len(l) >= common {
			lines[i] = l[common:]
		} else {
			lines[i] = strings.TrimLeft(l, " \t")
		}
	}
	return strings.Join(lines, "\n")
}

package jinja

import (
	"fmt"
	"regexp"
	"strings"
)

type tokenKind int

const (
	tokText tokenKind = iota
	tokVarBegin
	tokVarEnd
	tokBlockBegin
	tokBlockEnd
	tokName
	tokString
	tokInt
	tokFloat
	tokOp
	tokEOF
)

func (k tokenKind) String() string {
	switch k {
	case tokText:
		return "template data"
	case tokVarBegin:
		return "begin of print statement"
	case tokVarEnd:
		return "end of print statement"
	case tokBlockBegin:
		return "begin of statement block"
	case tokBlockEnd:
		return "end of statement block"
	case tokName:
		return "name"
	case tokString:
		return "string"
	case tokInt:
		return "integer"
	case tokFloat:
		return "float"
	case tokOp:
		return "operator"
	}
	return "end of template"
}

type token struct {
	kind  tokenKind
	value string
	line  int
}

func (t token) String() string {
	switch t.kind {
	case tokName, tokOp, tokInt, tokFloat:
		return "'" + t.value + "'"
	case tokString:
		return "string"
	}
	return t.kind.String()
}

// TemplateSyntaxError is a template that cannot be parsed.
type TemplateSyntaxError struct {
	Line    int
	Message string
}

// Error implements the error interface.
func (e *TemplateSyntaxError) Error() string {
	return e.Message
}

func syntaxErrorf(line int, format string, args ...any) *TemplateSyntaxError {
	return &TemplateSyntaxError{Line: line, Message: fmt.Sprintf(format, args...)}
}

var (
	endRaw = regexp.MustCompile(`\{%(-?)\s*endraw\s*(-?)%\}`)
	// Operators, longest first.
	operators = []string{"**", "//", "==", "!=", "<=", ">=", "+", "-", "*", "/", "%", "~", "<", ">", "=", ".", ",", ":", "|", "(", ")", "[", "]", "{", "}"}
)

type lexer struct {
	src        string
	pos        int
	line       int
	tokens     []token
	stripNext  bool
	braceDepth int
}

func tokenize(src string) ([]token, error) {
	l := &lexer{src: src, line: 1}
	if err := l.run(); err != nil {
		return nil, err
	}
	l.emit(tokEOF, "")
	return l.tokens, nil
}

func (l *lexer) emit(kind tokenKind, value string) {
	l.tokens = append(l.tokens, token{kind: kind, value: value, line: l.line})
}

func (l *lexer) emitText(text string) {
	newlines := strings.Count(text, "\n")
	if l.stripNext {
		text = strings.TrimLeft(text, " \t\r\n")
		l.stripNext = false
	}
	if text != "" {
		l.tokens = append(l.tokens, token{kind: tokText, value: text, line: l.line})
	}
	l.line += newlines
}

// stripPrevious removes trailing whitespace from the preceding text token.
func (l *lexer) stripPrevious() {
	n := len(l.tokens)
	if n == 0 || l.tokens[n-1].kind != tokText {
		return
	}
	l.tokens[n-1].value = strings.TrimRight(l.tokens[n-1].value, " \t\r\n")
	if l.tokens[n-1].value == "" {
		l.tokens = l.tokens[:n-1]
	}
}

func (l *lexer) run() error {
	for l.pos < len(l.src) {
		idx := nextDelimiter(l.src[l.pos:])
		if idx < 0 {
			l.emitText(l.src[l.pos:])
			l.pos = len(l.src)
			return nil
		}
		l.emitText(l.src[l.pos : l.pos+idx])
		l.pos += idx

		opener := l.src[l.pos : l.pos+2]
		l.pos += 2
		if strings.HasPrefix(l.src[l.pos:], "-") {
			l.stripPrevious()
			l.pos++
		}

		switch opener {
		case "{#":
			if err := l.comment(); err != nil {
				return err
			}
		case "{{":
			l.emit(tokVarBegin, "")
			if err := l.tag("}}"); err != nil {
				return err
			}
		case "{%":
			if raw, err := l.rawBlock(); raw || err != nil {
				if err != nil {
					return err
				}
				continue
			}
			l.emit(tokBlockBegin, "")
			if err := l.tag("%}"); err != nil {
				return err
			}
		}
	}
	return nil
}

func nextDelimiter(s string) int {
	best := -1
	for _, d := range []string{"{{", "{%", "{#"} {
		if i := strings.Index(s, d); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}

func (l *lexer) comment() error {
	end := strings.Index(l.src[l.pos:], "#}")
	if end < 0 {
		return syntaxErrorf(l.line, "Missing end of comment tag")
	}
	body := l.src[l.pos : l.pos+end]
	l.line += strings.Count(body, "\n")
	if strings.HasSuffix(body, "-") {
		l.stripNext = true
	}
	l.pos += end + 2
	return nil
}

// rawBlock handles {% raw %}...{% endraw %}; it reports whether it consumed one.
func (l *lexer) rawBlock() (bool, error) {
	rest := l.src[l.pos:]
	trimmed := strings.TrimLeft(rest, " \t\r\n")
	if !strings.HasPrefix(trimmed, "raw") {
		return false, nil
	}
	after := strings.TrimLeft(trimmed[3:], " \t\r\n")
	stripAfterOpen := false
	switch {
	case strings.HasPrefix(after, "-%}"):
		stripAfterOpen = true
		after = after[3:]
	case strings.HasPrefix(after, "%}"):
		after = after[2:]
	default:
		return false, nil
	}
	startLine := l.line
	consumed := len(rest) - len(after)
	l.line += strings.Count(rest[:consumed], "\n")
	l.pos += consumed

	m := endRaw.FindStringSubmatchIndex(l.src[l.pos:])
	if m == nil {
		return true, syntaxErrorf(startLine, "Missing end of raw directive")
	}
	body := l.src[l.pos : l.pos+m[0]]
	if stripAfterOpen {
		body = strings.TrimLeft(body, " \t\r\n")
	}
	if m[3] > m[2] {
		body = strings.TrimRight(body, " \t\r\n")
	}
	l.stripNext = false
	l.tokens = append(l.tokens, token{kind: tokText, value: body, line: l.line})
	l.line += strings.Count(l.src[l.pos:l.pos+m[1]], "\n")
	l.pos += m[1]
	if m[5] > m[4] {
		l.stripNext = true
	}
	return true, nil
}

// tag tokenizes an expression up to the closing delimiter.
func (l *lexer) tag(closer string) error {
	startLine := l.line
	l.braceDepth = 0
	endKind := tokVarEnd
	if closer == "%}" {
		endKind = tokBlockEnd
	}

	for {
		// skip whitespace
		for l.pos < len(l.src) && strings.IndexByte(" \t\r\n", l.src[l.pos]) >= 0 {
			if l.src[l.pos] == '\n' {
				l.line++
			}
			l.pos++
		}
		if l.pos >= len(l.src) {
			return syntaxErrorf(startLine, "unexpected end of template, expected '%s'.", endKind)
		}
		rest := l.src[l.pos:]

		if l.braceDepth == 0 {
			if strings.HasPrefix(rest, "-"+closer) {
				l.emit(endKind, "")
				l.pos += 1 + len(closer)
				l.stripNext = true
				return nil
			}
			if strings.HasPrefix(rest, closer) {
				l.emit(endKind, "")
				l.pos += len(closer)
				return nil
			}
		}

		c := rest[0]
		switch {
		case isNameStart(c):
			j := 1
			for j < len(rest) && isNameChar(rest[j]) {
				j++
			}
			l.emit(tokName, rest[:j])
			l.pos += j
		case c >= '0' && c <= '9':
			j, isFloat := scanNumber(rest)
			kind := tokInt
			if isFloat {
				kind = tokFloat
			}
			l.emit(kind, strings.ReplaceAll(rest[:j], "_", ""))
			l.pos += j
		case c == '\'' || c == '"':
			s, n, err := scanString(rest)
			if err != nil {
				return syntaxErrorf(l.line, "unexpected char %q at %d", c, l.pos)
			}
			l.emit(tokString, s)
			l.line += strings.Count(rest[:n], "\n")
			l.pos += n
		default:
			op := ""
			for _, candidate := range operators {
				if strings.HasPrefix(rest, candidate) {
					op = candidate
					break
				}
			}
			if op == "" {
				return syntaxErrorf(l.line, "unexpected char %q at %d", c, l.pos)
			}
			switch op {
			case "(", "[", "{":
				l.braceDepth++
			case ")", "]", "}":
				if l.braceDepth == 0 {
					return syntaxErrorf(l.line, "unexpected '%s'", op)
				}
				l.braceDepth--
			}
			l.emit(tokOp, op)
			l.pos += len(op)
		}
	}
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

func scanNumber(s string) (int, bool) {
	j := 0
	isFloat := false
	for j < len(s) && ((s[j] >= '0' && s[j] <= '9') || s[j] == '_') {
		j++
	}
	if j+1 < len(s) && s[j] == '.' && s[j+1] >= '0' && s[j+1] <= '9' {
		isFloat = true
		j++
		for j < len(s) && ((s[j] >= '0' && s[j] <= '9') || s[j] == '_') {
			j++
		}
	}
	if j < len(s) && (s[j] == 'e' || s[j] == 'E') {
		k := j + 1
		if k < len(s) && (s[k] == '+' || s[k] == '-') {
			k++
		}
		if k < len(s) && s[k] >= '0' && s[k] <= '9' {
			isFloat = true
			j = k
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
		}
	}
	return j, isFloat
}

// scanString reads a quoted string literal and returns its value and length.
func scanString(s string) (string, int, error) {
	q := s[0]
	var sb strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			i++
			switch s[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\', '\'', '"':
				sb.WriteByte(s[i])
			default:
				sb.WriteByte('\\')
				sb.WriteByte(s[i])
			}
		case c == q:
			return sb.String(), i + 1, nil
		default:
			sb.WriteByte(c)
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}

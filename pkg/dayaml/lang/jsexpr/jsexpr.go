// Package jsexpr checks the browser-side boolean expressions used by the
// "js show if" family of field modifiers.
package jsexpr

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"dayaml-tools/checker/pkg/dayaml/lang"
)

// ReferenceFunction is the function an expression calls to read an on-screen field.
const ReferenceFunction = "val"

var interpolation = regexp.MustCompile(`(?s)\$\{[^}]*\}`)

// ValCall is one call to the reference function.
type ValCall struct {
	Line    int    // 1-based, relative to the expression
	Literal bool   // the sole argument is a quoted string literal
	Name    string // literal value when Literal is true
	Raw     string // argument source text, or "<missing>"
}

// Result is the outcome of parsing an expression.
type Result struct {
	ValCalls []ValCall
}

// Check parses expr after replacing template interpolations with a truthy
// placeholder and collects its reference calls in source order.
func Check(expr string) (*Result, *lang.SyntaxError) {
	source := []byte(interpolation.ReplaceAllString(expr, "true"))

	p := sitter.NewParser()
	p.SetLanguage(javascript.GetLanguage())
	tree, err := p.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, &lang.SyntaxError{Line: 1, Column: 1, Message: err.Error()}
	}
	root := tree.RootNode()
	if serr := firstError(root, source); serr != nil {
		return nil, serr
	}
	if ret := outsideFunction(root, "return_statement"); ret != nil {
		line := int(ret.StartPoint().Row) + 1
		return nil, &lang.SyntaxError{
			Line:    line,
			Column:  int(ret.StartPoint().Column) + 1,
			Message: fmt.Sprintf("Line %d: Illegal return statement", line),
		}
	}

	result := &Result{}
	collect(root, source, result)
	return result, nil
}

func collect(n *sitter.Node, source []byte, result *Result) {
	if n == nil {
		return
	}
	if n.Type() == "call_expression" {
		fn := n.ChildByFieldName("function")
		if fn != nil && fn.Type() == "identifier" && fn.Content(source) == ReferenceFunction {
			result.ValCalls = append(result.ValCalls, valCall(n, source))
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		collect(n.Child(i), source, result)
	}
}

func valCall(call *sitter.Node, source []byte) ValCall {
	vc := ValCall{Line: int(call.StartPoint().Row) + 1, Raw: "<missing>"}
	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return vc
	}
	first := args.NamedChild(0)
	vc.Raw = first.Content(source)
	if args.NamedChildCount() == 1 && first.Type() == "string" {
		vc.Literal = true
		vc.Name = unquote(vc.Raw)
	}
	return vc
}

// unquote strips the quotes of a string literal and resolves simple escapes.
func unquote(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	body := raw[1 : len(raw)-1]
	if !strings.Contains(body, `\`) {
		return body
	}
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
			switch body[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(body[i])
			}
			continue
		}
		sb.WriteByte(body[i])
	}
	return sb.String()
}

func firstError(root *sitter.Node, source []byte) *lang.SyntaxError {
	if !root.HasError() {
		return nil
	}
	var found *sitter.Node
	var search func(n *sitter.Node) bool
	search = func(n *sitter.Node) bool {
		if n.Type() == "ERROR" || n.IsMissing() {
			found = n
			return true
		}
		if !n.HasError() {
			return false
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if search(n.Child(i)) {
				return true
			}
		}
		return false
	}
	search(root)
	if found == nil {
		return &lang.SyntaxError{Line: 1, Column: 1, Message: "Line 1: Unexpected token"}
	}

	pos := found.StartPoint()
	line := int(pos.Row) + 1
	serr := &lang.SyntaxError{Line: line, Column: int(pos.Column) + 1}
	end := uint32(len(strings.TrimRight(string(source), " \t\r\n")))
	switch {
	case found.IsMissing() && found.StartByte() >= end:
		serr.Message = fmt.Sprintf("Line %d: Unexpected end of input", line)
	case found.EndByte() >= end && expectsMore(lastToken(found)):
		last := lastToken(found).EndPoint()
		serr.Line, serr.Column = int(last.Row)+1, int(last.Column)+1
		serr.Message = fmt.Sprintf("Line %d: Unexpected end of input", serr.Line)
	case found.IsMissing():
		serr.Message = fmt.Sprintf("Line %d: Missing %s", line, found.Type())
	default:
		serr.Message = fmt.Sprintf("Line %d: Unexpected token %s", line, firstToken(found, source))
	}
	return serr
}

// firstToken returns the text of the first leaf below n.
func firstToken(n *sitter.Node, source []byte) string {
	for n.ChildCount() > 0 {
		n = n.Child(0)
	}
	tok := strings.TrimSpace(n.Content(source))
	if tok == "" {
		return "ILLEGAL"
	}
	return tok
}

// lastToken returns the last leaf below n, treating literals as leaves.
func lastToken(n *sitter.Node) *sitter.Node {
	for n.ChildCount() > 0 {
		switch n.Type() {
		case "string", "template_string", "regex", "number":
			return n
		}
		n = n.Child(int(n.ChildCount()) - 1)
	}
	return n
}

// expectsMore reports whether an expression cannot end with tok, as with a
// trailing operator or an opening bracket.
func expectsMore(tok *sitter.Node) bool {
	if tok.IsNamed() {
		return false
	}
	switch tok.Type() {
	case ")", "]", "}", ";", "++", "--":
		return false
	}
	return true
}

// outsideFunction returns the first node of the given type that is not
// inside a function body.
func outsideFunction(n *sitter.Node, kind string) *sitter.Node {
	switch n.Type() {
	case kind:
		return n
	case "function_declaration", "function_expression", "function", "arrow_function",
		"method_definition", "generator_function", "generator_function_declaration":
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := outsideFunction(n.Child(i), kind); found != nil {
			return found
		}
	}
	return nil
}

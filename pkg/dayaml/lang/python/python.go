// Package python checks fragments of the interview scripting language.
package python

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tspython "github.com/smacker/go-tree-sitter/python"

	"dayaml-tools/checker/pkg/dayaml/lang"
)

// Facts summarizes the statements of a parsed fragment.
type Facts struct {
	Calls            []string // names of directly called functions, in source order
	HasAssignment    bool
	HasExprCall      bool // a call used as a statement
	HasRaiseOrAssert bool
}

// CallsFunction reports whether the fragment calls the named function.
func (f *Facts) CallsFunction(name string) bool {
	for _, c := range f.Calls {
		if c == name {
			return true
		}
	}
	return false
}

func parse(src string) (*sitter.Node, []byte, error) {
	source := []byte(src)
	p := sitter.NewParser()
	p.SetLanguage(tspython.GetLanguage())
	tree, err := p.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, nil, err
	}
	return tree.RootNode(), source, nil
}

// Check parses src as a module and returns the first syntax error, if any.
func Check(src string) *lang.SyntaxError {
	root, source, err := parse(src)
	if err != nil {
		return &lang.SyntaxError{Line: 1, Column: 1, Message: err.Error()}
	}
	return syntaxError(root, source)
}

// CheckExpression parses src as a single expression.
func CheckExpression(src string) *lang.SyntaxError {
	if strings.TrimSpace(src) == "" {
		return &lang.SyntaxError{Line: 1, Column: 1, Message: "invalid syntax"}
	}
	root, source, err := parse("(" + src + "\n)")
	if err != nil {
		return &lang.SyntaxError{Line: 1, Column: 1, Message: err.Error()}
	}
	if serr := syntaxError(root, source); serr != nil {
		return serr
	}
	// A parenthesized fragment holding a statement still parses; require a
	// single expression statement.
	if root.NamedChildCount() != 1 || root.NamedChild(0).Type() != "expression_statement" {
		return &lang.SyntaxError{Line: 1, Column: 1, Message: "invalid syntax"}
	}
	return nil
}

// Analyze parses src and collects the facts used by usage heuristics.
func Analyze(src string) (*Facts, *lang.SyntaxError) {
	root, source, err := parse(src)
	if err != nil {
		return nil, &lang.SyntaxError{Line: 1, Column: 1, Message: err.Error()}
	}
	if serr := syntaxError(root, source); serr != nil {
		return nil, serr
	}

	facts := &Facts{}
	walk(root, func(n *sitter.Node) {
		switch n.Type() {
		case "call":
			if fn := n.ChildByFieldName("function"); fn != nil && fn.Type() == "identifier" {
				facts.Calls = append(facts.Calls, fn.Content(source))
			}
		case "assignment", "augmented_assignment":
			facts.HasAssignment = true
		case "expression_statement":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				if n.NamedChild(i).Type() == "call" {
					facts.HasExprCall = true
				}
			}
		case "raise_statement", "assert_statement":
			facts.HasRaiseOrAssert = true
		}
	})
	return facts, nil
}

// walk visits n and its descendants in source order.
func walk(n *sitter.Node, visit func(*sitter.Node)) {
	if n == nil {
		return
	}
	visit(n)
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), visit)
	}
}

// syntaxError combines the tree parser's first error with the line pass.
// The line pass names indentation mistakes precisely, so it wins unless the
// parser error comes before the statement leading up to it.
func syntaxError(root *sitter.Node, source []byte) *lang.SyntaxError {
	treeErr := firstError(root, source)
	lineErr, after := checkLines(string(source))
	if lineErr != nil && (treeErr == nil || treeErr.Line >= after) {
		return lineErr
	}
	return treeErr
}

// firstError returns the earliest error or missing node below root.
func firstError(root *sitter.Node, source []byte) *lang.SyntaxError {
	if root == nil || !root.HasError() {
		return constructError(root, source)
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
		return &lang.SyntaxError{Line: 1, Column: 1, Message: "invalid syntax"}
	}

	pos := found.StartPoint()
	serr := &lang.SyntaxError{
		Line:    int(pos.Row) + 1,
		Column:  int(pos.Column) + 1,
		Message: "invalid syntax",
	}
	if found.IsMissing() {
		serr.Message = fmt.Sprintf("expected '%s'", found.Type())
	} else if unexpectedIndent(found, source) {
		serr.Message = "unexpected indent"
	}
	return serr
}

// unexpectedIndent reports whether an error node starts an indented line
// that does not continue or open a block.
func unexpectedIndent(n *sitter.Node, source []byte) bool {
	lines := strings.Split(string(source), "\n")
	row := int(n.StartPoint().Row)
	if row >= len(lines) {
		return false
	}
	indent := indentOf(lines[row])
	if indent == 0 || int(n.StartPoint().Column) != indent {
		return false
	}
	for i := row - 1; i >= 0; i-- {
		prev := strings.TrimSpace(lines[i])
		if prev == "" || strings.HasPrefix(prev, "#") {
			continue
		}
		if indent <= indentOf(lines[i]) {
			return false
		}
		return !strings.ContainsAny(prev[len(prev)-1:], ":\\,([{")
	}
	return true
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// constructError flags code the grammar accepts but the interview engine's
// interpreter rejects.
func constructError(root *sitter.Node, source []byte) *lang.SyntaxError {
	var serr *lang.SyntaxError
	fail := func(n *sitter.Node, format string, args ...any) {
		serr = &lang.SyntaxError{
			Line:    int(n.StartPoint().Row) + 1,
			Column:  int(n.StartPoint().Column) + 1,
			Message: fmt.Sprintf(format, args...),
		}
	}
	walk(root, func(n *sitter.Node) {
		if serr != nil {
			return
		}
		switch n.Type() {
		case "print_statement":
			fail(n, "Missing parentheses in call to 'print'. Did you mean print(...)?")
		case "exec_statement":
			fail(n, "Missing parentheses in call to 'exec'. Did you mean exec(...)?")
		case "delete_statement":
			for i := 0; i < int(n.NamedChildCount()) && serr == nil; i++ {
				if bad := deleteTarget(n.NamedChild(i)); bad != nil {
					fail(bad, "cannot delete %s", describe(bad))
				}
			}
		case "augmented_assignment":
			if left := n.ChildByFieldName("left"); left != nil && !assignable(left) {
				fail(left, "'%s' is an illegal expression for augmented assignment", describe(left))
			}
		case "parameters", "lambda_parameters":
			if bad := defaultOrder(n); bad != nil {
				fail(bad, "parameter without a default follows parameter with a default")
			}
		case "for_in_clause":
			if commaAfterIn(n) {
				if gen := n.Parent(); gen != nil && gen.Type() == "generator_expression" &&
					gen.Parent() != nil && gen.Parent().Type() == "call" {
					fail(gen, "Generator expression must be parenthesized")
				} else {
					fail(n, "invalid syntax")
				}
			}
		}
	})
	return serr
}

func isLiteral(kind string) bool {
	switch kind {
	case "integer", "float", "string", "concatenated_string", "true", "false", "none", "ellipsis":
		return true
	}
	return false
}

// describe names an expression the way assignment errors do.
func describe(n *sitter.Node) string {
	switch kind := n.Type(); {
	case isLiteral(kind):
		return "literal"
	case kind == "call":
		return "function call"
	case kind == "pattern_list", kind == "tuple_pattern", kind == "tuple", kind == "expression_list":
		return "tuple"
	case kind == "list", kind == "list_pattern":
		return "list"
	case kind == "list_splat_pattern", kind == "list_splat":
		return "starred"
	}
	return "expression"
}

// deleteTarget returns the first part of a del target that cannot be
// deleted.
func deleteTarget(n *sitter.Node) *sitter.Node {
	switch n.Type() {
	case "identifier", "attribute", "subscript", "comment":
		return nil
	case "tuple", "list", "parenthesized_expression", "expression_list", "pattern_list", "tuple_pattern", "list_pattern":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if bad := deleteTarget(n.NamedChild(i)); bad != nil {
				return bad
			}
		}
		return nil
	}
	return n
}

func assignable(n *sitter.Node) bool {
	switch n.Type() {
	case "identifier", "attribute", "subscript":
		return true
	}
	return false
}

// defaultOrder returns a plain parameter that follows a defaulted one
// before any star marker.
func defaultOrder(params *sitter.Node) *sitter.Node {
	seenDefault := false
	for i := 0; i < int(params.ChildCount()); i++ {
		p := params.Child(i)
		switch p.Type() {
		case "default_parameter", "typed_default_parameter":
			seenDefault = true
		case "list_splat_pattern", "dictionary_splat_pattern", "keyword_separator", "*", "**":
			return nil
		case "typed_parameter":
			if first := p.NamedChild(0); first != nil &&
				(first.Type() == "list_splat_pattern" || first.Type() == "dictionary_splat_pattern") {
				return nil
			}
			if seenDefault {
				return p
			}
		case "identifier":
			if seenDefault {
				return p
			}
		}
	}
	return nil
}

// commaAfterIn reports whether a comprehension iterates over a bare tuple,
// as in "x for x in a, b".
func commaAfterIn(clause *sitter.Node) bool {
	seenIn := false
	for i := 0; i < int(clause.ChildCount()); i++ {
		switch c := clause.Child(i); c.Type() {
		case "in":
			seenIn = true
		case ",":
			if seenIn {
				return true
			}
		}
	}
	return false
}

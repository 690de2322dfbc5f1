package jinja

import (
	"strconv"
	"strings"
)

// Template nodes.
type (
	node any

	textNode struct{ text string }

	outputNode struct {
		expr expr
		line int
	}

	ifBranch struct {
		cond expr
		body []node
	}

	ifNode struct {
		branches []ifBranch
		elseBody []node
	}

	forNode struct {
		targets   []string
		iter      expr
		cond      expr
		body      []node
		elseBody  []node
		recursive bool
		line      int
	}

	setNode struct {
		targets []string
		attr    string // set ns.attr = value
		value   expr
		line    int
	}

	setBlockNode struct {
		name    string
		filters []*filterExpr
		body    []node
	}

	param struct {
		name       string
		defaultVal expr
	}

	macroNode struct {
		name   string
		params []param
		body   []node
	}

	callBlockNode struct {
		call   *callExpr
		params []param
		body   []node
		line   int
	}

	filterBlockNode struct {
		filters []*filterExpr
		body    []node
	}

	withNode struct {
		names  []string
		values []expr
		body   []node
	}

	blockNode struct {
		name string
		body []node
	}

	unsupportedNode struct {
		tag  string
		line int
	}
)

// Expressions.
type (
	expr any

	literal struct{ v Value }

	nameExpr struct {
		name string
		line int
	}

	listExpr struct{ items []expr }

	dictExpr struct{ keys, values []expr }

	attrExpr struct {
		obj  expr
		name string
		line int
	}

	indexExpr struct {
		obj, index expr
		line       int
	}

	sliceExpr struct {
		obj               expr
		start, stop, step expr
	}

	kwarg struct {
		name  string
		value expr
	}

	callExpr struct {
		fn     expr
		args   []expr
		kwargs []kwarg
		line   int
	}

	filterExpr struct {
		target expr // nil inside filter blocks
		name   string
		args   []expr
		kwargs []kwarg
		line   int
	}

	testExpr struct {
		target expr
		name   string
		args   []expr
		negate bool
		line   int
	}

	unaryExpr struct {
		op      string
		operand expr
		line    int
	}

	binaryExpr struct {
		op          string
		left, right expr
		line        int
	}

	compareExpr struct {
		left   expr
		ops    []string
		rights []expr
		line   int
	}

	condExpr struct {
		cond, then, otherwise expr
	}
)

// blockEnds lists the tags that close each block tag.
var blockEnds = map[string][]string{
	"if":         {"elif", "else", "endif"},
	"for":        {"else", "endfor"},
	"macro":      {"endmacro"},
	"call":       {"endcall"},
	"filter":     {"endfilter"},
	"set":        {"endset"},
	"with":       {"endwith"},
	"block":      {"endblock"},
	"autoescape": {"endautoescape"},
}

type parser struct {
	tokens []token
	pos    int
	stack  []string // open block tags, innermost last
}

func parseTemplate(src string) ([]node, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	body, end, err := p.parseBody(nil)
	if err != nil {
		return nil, err
	}
	if end != "" {
		return nil, syntaxErrorf(p.cur().line, "Encountered unknown tag '%s'.", end)
	}
	return body, nil
}

func (p *parser) cur() token { return p.tokens[p.pos] }

func (p *parser) peek(n int) token {
	if p.pos+n < len(p.tokens) {
		return p.tokens[p.pos+n]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(op string) bool {
	t := p.cur()
	return t.kind == tokOp && t.value == op
}

func (p *parser) isName(name string) bool {
	t := p.cur()
	return t.kind == tokName && t.value == name
}

func (p *parser) skipOp(op string) bool {
	if p.isOp(op) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) skipName(name string) bool {
	if p.isName(name) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectOp(op string) error {
	if !p.skipOp(op) {
		t := p.cur()
		return syntaxErrorf(t.line, "expected token '%s', got %s", op, t)
	}
	return nil
}

func (p *parser) expectName() (string, error) {
	t := p.cur()
	if t.kind != tokName {
		return "", syntaxErrorf(t.line, "expected token 'name', got %s", t)
	}
	p.pos++
	return t.value, nil
}

func (p *parser) expectBlockEnd() error {
	t := p.cur()
	if t.kind != tokBlockEnd {
		return syntaxErrorf(t.line, "expected token 'end of statement block', got %s", t)
	}
	p.pos++
	return nil
}

// parseBody parses nodes until one of ends is reached. It returns the end
// tag that stopped it, leaving the parser after that tag's name.
func (p *parser) parseBody(ends []string) ([]node, string, error) {
	var body []node
	for {
		t := p.cur()
		switch t.kind {
		case tokEOF:
			if len(ends) > 0 {
				return nil, "", p.unexpectedEOF(t.line, ends)
			}
			return body, "", nil

		case tokText:
			p.next()
			body = append(body, &textNode{text: t.value})

		case tokVarBegin:
			p.next()
			e, err := p.parseTuple()
			if err != nil {
				return nil, "", err
			}
			if p.cur().kind != tokVarEnd {
				return nil, "", syntaxErrorf(p.cur().line, "expected token 'end of print statement', got %s", p.cur())
			}
			p.next()
			body = append(body, &outputNode{expr: e, line: t.line})

		case tokBlockBegin:
			p.next()
			nameTok := p.cur()
			if nameTok.kind != tokName {
				return nil, "", syntaxErrorf(nameTok.line, "tag name expected")
			}
			for _, end := range ends {
				if nameTok.value == end {
					p.next()
					return body, end, nil
				}
			}
			n, err := p.parseStatement()
			if err != nil {
				return nil, "", err
			}
			if n != nil {
				body = append(body, n)
			}

		default:
			return nil, "", syntaxErrorf(t.line, "unexpected %s", t)
		}
	}
}

func (p *parser) unexpectedEOF(line int, ends []string) error {
	quoted := make([]string, len(ends))
	for i, e := range ends {
		quoted[i] = "'" + e + "'"
	}
	msg := "Unexpected end of template. Jinja was looking for the following tags: " + strings.Join(quoted, " or ") + "."
	if len(p.stack) > 0 {
		msg += " The innermost block that needs to be closed is '" + p.stack[len(p.stack)-1] + "'."
	}
	return syntaxErrorf(line, "%s", msg)
}

func (p *parser) parseStatement() (node, error) {
	t := p.next()
	switch t.value {
	case "if":
		return p.parseIf()
	case "for":
		return p.parseFor(t.line)
	case "set":
		return p.parseSet(t.line)
	case "macro":
		return p.parseMacro()
	case "call":
		return p.parseCallBlock(t.line)
	case "filter":
		return p.parseFilterBlock()
	case "with":
		return p.parseWith()
	case "block":
		return p.parseBlock()
	case "autoescape":
		return p.parseAutoescape()
	case "include", "import", "from", "extends":
		for p.cur().kind != tokBlockEnd && p.cur().kind != tokEOF {
			p.next()
		}
		if err := p.expectBlockEnd(); err != nil {
			return nil, err
		}
		return &unsupportedNode{tag: t.value, line: t.line}, nil
	}

	if len(p.stack) > 0 {
		innermost := p.stack[len(p.stack)-1]
		quoted := make([]string, 0)
		for _, e := range blockEnds[innermost] {
			quoted = append(quoted, "'"+e+"'")
		}
		return nil, syntaxErrorf(t.line, "Encountered unknown tag '%s'. Jinja was looking for the following tags: %s. The innermost block that needs to be closed is '%s'.",
			t.value, strings.Join(quoted, " or "), innermost)
	}
	return nil, syntaxErrorf(t.line, "Encountered unknown tag '%s'.", t.value)
}

func (p *parser) push(tag string) { p.stack = append(p.stack, tag) }
func (p *parser) pop()           { p.stack = p.stack[:len(p.stack)-1] }

func (p *parser) parseIf() (node, error) {
	p.push("if")
	defer p.pop()

	n := &ifNode{}
	for {
		cond, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectBlockEnd(); err != nil {
			return nil, err
		}
		body, end, err := p.parseBody(blockEnds["if"])
		if err != nil {
			return nil, err
		}
		n.branches = append(n.branches, ifBranch{cond: cond, body: body})

		switch end {
		case "elif":
			continue
		case "else":
			if err := p.expectBlockEnd(); err != nil {
				return nil, err
			}
			elseBody, _, err := p.parseBody([]string{"endif"})
			if err != nil {
				return nil, err
			}
			n.elseBody = elseBody
		}
		return n, p.expectBlockEnd()
	}
}

func (p *parser) parseAssignTargets() ([]string, error) {
	var targets []string
	paren := p.skipOp("(")
	for {
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		targets = append(targets, name)
		if !p.skipOp(",") {
			break
		}
		if p.isOp(")") || p.isName("in") || p.isOp("=") {
			break
		}
	}
	if paren {
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
	}
	return targets, nil
}

func (p *parser) parseFor(line int) (node, error) {
	p.push("for")
	defer p.pop()

	n := &forNode{line: line}
	targets, err := p.parseAssignTargets()
	if err != nil {
		return nil, err
	}
	n.targets = targets
	if !p.skipName("in") {
		return nil, syntaxErrorf(p.cur().line, "expected token 'in', got %s", p.cur())
	}
	if n.iter, err = p.parseTupleNoCond(); err != nil {
		return nil, err
	}
	if p.skipName("if") {
		if n.cond, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	n.recursive = p.skipName("recursive")
	if err := p.expectBlockEnd(); err != nil {
		return nil, err
	}

	body, end, err := p.parseBody(blockEnds["for"])
	if err != nil {
		return nil, err
	}
	n.body = body
	if end == "else" {
		if err := p.expectBlockEnd(); err != nil {
			return nil, err
		}
		if n.elseBody, _, err = p.parseBody([]string{"endfor"}); err != nil {
			return nil, err
		}
	}
	return n, p.expectBlockEnd()
}

func (p *parser) parseSet(line int) (node, error) {
	first, err := p.expectName()
	if err != nil {
		return nil, err
	}

	if p.isOp(".") {
		p.next()
		attr, err := p.expectName()
		if err != nil {
			return nil, err
		}
		if err := p.expectOp("="); err != nil {
			return nil, err
		}
		value, err := p.parseTuple()
		if err != nil {
			return nil, err
		}
		return &setNode{targets: []string{first}, attr: attr, value: value, line: line}, p.expectBlockEnd()
	}

	targets := []string{first}
	for p.skipOp(",") {
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		targets = append(targets, name)
	}

	if p.skipOp("=") {
		value, err := p.parseTuple()
		if err != nil {
			return nil, err
		}
		return &setNode{targets: targets, value: value, line: line}, p.expectBlockEnd()
	}

	// Block set: {% set name [| filter] %}...{% endset %}
	n := &setBlockNode{name: first}
	for p.skipOp("|") {
		f, err := p.parseFilterCall(nil)
		if err != nil {
			return nil, err
		}
		n.filters = append(n.filters, f)
	}
	if err := p.expectBlockEnd(); err != nil {
		return nil, err
	}
	p.push("set")
	defer p.pop()
	if n.body, _, err = p.parseBody(blockEnds["set"]); err != nil {
		return nil, err
	}
	return n, p.expectBlockEnd()
}

func (p *parser) parseParams() ([]param, error) {
	var params []param
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	for !p.isOp(")") {
		if len(params) > 0 {
			if err := p.expectOp(","); err != nil {
				return nil, err
			}
			if p.isOp(")") {
				break
			}
		}
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		prm := param{name: name}
		if p.skipOp("=") {
			if prm.defaultVal, err = p.parseExpression(); err != nil {
				return nil, err
			}
		}
		params = append(params, prm)
	}
	p.next()
	return params, nil
}

func (p *parser) parseMacro() (node, error) {
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	if err := p.expectBlockEnd(); err != nil {
		return nil, err
	}
	p.push("macro")
	defer p.pop()
	body, _, err := p.parseBody(blockEnds["macro"])
	if err != nil {
		return nil, err
	}
	return &macroNode{name: name, params: params, body: body}, p.expectBlockEnd()
}

func (p *parser) parseCallBlock(line int) (node, error) {
	n := &callBlockNode{line: line}
	if p.isOp("(") {
		params, err := p.parseParams()
		if err != nil {
			return nil, err
		}
		n.params = params
	}
	e, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	call, ok := e.(*callExpr)
	if !ok {
		return nil, syntaxErrorf(line, "expected call")
	}
	n.call = call
	if err := p.expectBlockEnd(); err != nil {
		return nil, err
	}
	p.push("call")
	defer p.pop()
	if n.body, _, err = p.parseBody(blockEnds["call"]); err != nil {
		return nil, err
	}
	return n, p.expectBlockEnd()
}

func (p *parser) parseFilterBlock() (node, error) {
	n := &filterBlockNode{}
	for {
		f, err := p.parseFilterCall(nil)
		if err != nil {
			return nil, err
		}
		n.filters = append(n.filters, f)
		if !p.skipOp("|") {
			break
		}
	}
	if err := p.expectBlockEnd(); err != nil {
		return nil, err
	}
	p.push("filter")
	defer p.pop()
	body, _, err := p.parseBody(blockEnds["filter"])
	if err != nil {
		return nil, err
	}
	n.body = body
	return n, p.expectBlockEnd()
}

func (p *parser) parseWith() (node, error) {
	n := &withNode{}
	for p.cur().kind != tokBlockEnd {
		if len(n.names) > 0 {
			if err := p.expectOp(","); err != nil {
				return nil, err
			}
		}
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		if err := p.expectOp("="); err != nil {
			return nil, err
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		n.names = append(n.names, name)
		n.values = append(n.values, value)
	}
	p.next()
	p.push("with")
	defer p.pop()
	body, _, err := p.parseBody(blockEnds["with"])
	if err != nil {
		return nil, err
	}
	n.body = body
	return n, p.expectBlockEnd()
}

func (p *parser) parseBlock() (node, error) {
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	p.skipName("scoped")
	p.skipName("required")
	if err := p.expectBlockEnd(); err != nil {
		return nil, err
	}
	p.push("block")
	defer p.pop()
	body, _, err := p.parseBody(blockEnds["block"])
	if err != nil {
		return nil, err
	}
	if p.cur().kind == tokName {
		if closing := p.next().value; closing != name {
			return nil, syntaxErrorf(p.cur().line, "mismatching name in endblock: '%s' != '%s'", closing, name)
		}
	}
	return &blockNode{name: name, body: body}, p.expectBlockEnd()
}

func (p *parser) parseAutoescape() (node, error) {
	if _, err := p.parseExpression(); err != nil {
		return nil, err
	}
	if err := p.expectBlockEnd(); err != nil {
		return nil, err
	}
	p.push("autoescape")
	defer p.pop()
	body, _, err := p.parseBody(blockEnds["autoescape"])
	if err != nil {
		return nil, err
	}
	return &withNode{body: body}, p.expectBlockEnd()
}

// Expressions.

// parseTuple parses an expression, collecting bare comma lists into a tuple.
func (p *parser) parseTuple() (expr, error) {
	return p.parseTupleWith(p.parseExpression)
}

func (p *parser) parseTupleNoCond() (expr, error) {
	return p.parseTupleWith(p.parseOr)
}

func (p *parser) parseTupleWith(item func() (expr, error)) (expr, error) {
	first, err := item()
	if err != nil {
		return nil, err
	}
	if !p.isOp(",") {
		return first, nil
	}
	items := []expr{first}
	for p.skipOp(",") {
		if p.atExpressionEnd() {
			break
		}
		e, err := item()
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return &listExpr{items: items}, nil
}

func (p *parser) atExpressionEnd() bool {
	t := p.cur()
	if t.kind == tokVarEnd || t.kind == tokBlockEnd || t.kind == tokEOF {
		return true
	}
	return t.kind == tokOp && (t.value == ")" || t.value == "]" || t.value == "}")
}

func (p *parser) parseExpression() (expr, error) {
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	for p.skipName("if") {
		cond, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		var otherwise expr
		if p.skipName("else") {
			if otherwise, err = p.parseExpression(); err != nil {
				return nil, err
			}
		}
		e = &condExpr{cond: cond, then: e, otherwise: otherwise}
	}
	return e, nil
}

func (p *parser) parseOr() (expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isName("or") {
		line := p.next().line
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: "or", left: left, right: right, line: line}
	}
	return left, nil
}

func (p *parser) parseAnd() (expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isName("and") {
		line := p.next().line
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: "and", left: left, right: right, line: line}
	}
	return left, nil
}

func (p *parser) parseNot() (expr, error) {
	if p.isName("not") {
		line := p.next().line
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{op: "not", operand: operand, line: line}, nil
	}
	return p.parseCompare()
}

var compareOps = map[string]bool{"==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true}

func (p *parser) parseCompare() (expr, error) {
	line := p.cur().line
	left, err := p.parseMath1()
	if err != nil {
		return nil, err
	}
	var ops []string
	var rights []expr
	for {
		t := p.cur()
		var op string
		switch {
		case t.kind == tokOp && compareOps[t.value]:
			op = t.value
			p.next()
		case p.isName("in"):
			op = "in"
			p.next()
		case p.isName("not") && p.peek(1).kind == tokName && p.peek(1).value == "in":
			op = "notin"
			p.next()
			p.next()
		default:
			if len(ops) == 0 {
				return left, nil
			}
			return &compareExpr{left: left, ops: ops, rights: rights, line: line}, nil
		}
		right, err := p.parseMath1()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		rights = append(rights, right)
	}
}

func (p *parser) parseBinary(ops []string, sub func() (expr, error)) (expr, error) {
	left, err := sub()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		matched := false
		if t.kind == tokOp {
			for _, op := range ops {
				if t.value == op {
					matched = true
				}
			}
		}
		if !matched {
			return left, nil
		}
		p.next()
		right, err := sub()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: t.value, left: left, right: right, line: t.line}
	}
}

func (p *parser) parseMath1() (expr, error) {
	return p.parseBinary([]string{"+", "-"}, p.parseConcat)
}

func (p *parser) parseConcat() (expr, error) {
	return p.parseBinary([]string{"~"}, p.parseMath2)
}

func (p *parser) parseMath2() (expr, error) {
	return p.parseBinary([]string{"*", "/", "//", "%"}, p.parsePow)
}

func (p *parser) parsePow() (expr, error) {
	return p.parseBinary([]string{"**"}, p.parseUnary)
}

func (p *parser) parseUnary() (expr, error) {
	t := p.cur()
	if t.kind == tokOp && (t.value == "-" || t.value == "+") {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{op: t.value, operand: operand, line: t.line}, nil
	}
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if e, err = p.parsePostfix(e); err != nil {
		return nil, err
	}
	return p.parseFilterTest(e)
}

func (p *parser) parsePrimary() (expr, error) {
	t := p.cur()
	switch t.kind {
	case tokName:
		p.next()
		switch t.value {
		case "true", "True":
			return &literal{v: Bool(true)}, nil
		case "false", "False":
			return &literal{v: Bool(false)}, nil
		case "none", "None":
			return &literal{v: None()}, nil
		}
		return &nameExpr{name: t.value, line: t.line}, nil
	case tokString:
		p.next()
		s := t.value
		for p.cur().kind == tokString {
			s += p.next().value
		}
		return &literal{v: String(s)}, nil
	case tokInt:
		p.next()
		i, err := strconv.ParseInt(t.value, 10, 64)
		if err != nil {
			return nil, syntaxErrorf(t.line, "invalid integer '%s'", t.value)
		}
		return &literal{v: Int(i)}, nil
	case tokFloat:
		p.next()
		f, err := strconv.ParseFloat(t.value, 64)
		if err != nil {
			return nil, syntaxErrorf(t.line, "invalid float '%s'", t.value)
		}
		return &literal{v: Float(f)}, nil
	case tokOp:
		switch t.value {
		case "(":
			p.next()
			if p.skipOp(")") {
				return &listExpr{}, nil
			}
			e, err := p.parseTuple()
			if err != nil {
				return nil, err
			}
			return e, p.expectOp(")")
		case "[":
			p.next()
			items, err := p.parseItems("]")
			if err != nil {
				return nil, err
			}
			return &listExpr{items: items}, nil
		case "{":
			p.next()
			d := &dictExpr{}
			for !p.isOp("}") {
				if len(d.keys) > 0 {
					if err := p.expectOp(","); err != nil {
						return nil, err
					}
					if p.isOp("}") {
						break
					}
				}
				k, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				if err := p.expectOp(":"); err != nil {
					return nil, err
				}
				v, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				d.keys = append(d.keys, k)
				d.values = append(d.values, v)
			}
			p.next()
			return d, nil
		}
	}
	if t.kind == tokVarEnd || t.kind == tokBlockEnd || t.kind == tokEOF {
		return nil, syntaxErrorf(t.line, "Expected an expression, got '%s'", t.kind)
	}
	return nil, syntaxErrorf(t.line, "unexpected %s", t)
}

func (p *parser) parseItems(closer string) ([]expr, error) {
	var items []expr
	for !p.isOp(closer) {
		if len(items) > 0 {
			if err := p.expectOp(","); err != nil {
				return nil, err
			}
			if p.isOp(closer) {
				break
			}
		}
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	p.next()
	return items, nil
}

func (p *parser) parsePostfix(e expr) (expr, error) {
	for {
		t := p.cur()
		if t.kind != tokOp {
			return e, nil
		}
		switch t.value {
		case ".":
			p.next()
			attr := p.cur()
			switch attr.kind {
			case tokName:
				p.next()
				e = &attrExpr{obj: e, name: attr.value, line: attr.line}
			case tokInt:
				p.next()
				i, _ := strconv.ParseInt(attr.value, 10, 64)
				e = &indexExpr{obj: e, index: &literal{v: Int(i)}, line: attr.line}
			default:
				return nil, syntaxErrorf(attr.line, "expected name or number")
			}
		case "[":
			p.next()
			sub, err := p.parseSubscript(e)
			if err != nil {
				return nil, err
			}
			e = sub
		case "(":
			call, err := p.parseCall(e)
			if err != nil {
				return nil, err
			}
			e = call
		default:
			return e, nil
		}
	}
}

func (p *parser) parseSubscript(obj expr) (expr, error) {
	line := p.cur().line
	var parts [3]expr
	idx := 0
	isSlice := false
	for !p.isOp("]") {
		if p.skipOp(":") {
			isSlice = true
			idx++
			if idx > 2 {
				return nil, syntaxErrorf(line, "invalid slice")
			}
			continue
		}
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		parts[idx] = e
		if !isSlice && !p.isOp(":") {
			break
		}
	}
	if err := p.expectOp("]"); err != nil {
		return nil, err
	}
	if isSlice {
		return &sliceExpr{obj: obj, start: parts[0], stop: parts[1], step: parts[2]}, nil
	}
	if parts[0] == nil {
		return nil, syntaxErrorf(line, "expected subscript expression")
	}
	return &indexExpr{obj: obj, index: parts[0], line: line}, nil
}

func (p *parser) parseArgs() ([]expr, []kwarg, error) {
	var args []expr
	var kwargs []kwarg
	if err := p.expectOp("("); err != nil {
		return nil, nil, err
	}
	for !p.isOp(")") {
		if len(args)+len(kwargs) > 0 {
			if err := p.expectOp(","); err != nil {
				return nil, nil, err
			}
			if p.isOp(")") {
				break
			}
		}
		if p.cur().kind == tokName && p.peek(1).kind == tokOp && p.peek(1).value == "=" {
			name := p.next().value
			p.next()
			v, err := p.parseExpression()
			if err != nil {
				return nil, nil, err
			}
			kwargs = append(kwargs, kwarg{name: name, value: v})
			continue
		}
		if len(kwargs) > 0 {
			return nil, nil, syntaxErrorf(p.cur().line, "positional argument follows keyword argument")
		}
		v, err := p.parseExpression()
		if err != nil {
			return nil, nil, err
		}
		args = append(args, v)
	}
	p.next()
	return args, kwargs, nil
}

func (p *parser) parseCall(fn expr) (*callExpr, error) {
	line := p.cur().line
	args, kwargs, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	return &callExpr{fn: fn, args: args, kwargs: kwargs, line: line}, nil
}

func (p *parser) parseFilterCall(target expr) (*filterExpr, error) {
	t := p.cur()
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	for p.isOp(".") && p.peek(1).kind == tokName {
		p.next()
		name += "." + p.next().value
	}
	if _, ok := filters[name]; !ok {
		return nil, syntaxErrorf(t.line, "No filter named '%s'.", name)
	}
	f := &filterExpr{target: target, name: name, line: t.line}
	if p.isOp("(") {
		if f.args, f.kwargs, err = p.parseArgs(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (p *parser) parseFilterTest(e expr) (expr, error) {
	for {
		switch {
		case p.isOp("|"):
			p.next()
			f, err := p.parseFilterCall(e)
			if err != nil {
				return nil, err
			}
			e = f
		case p.isName("is"):
			line := p.next().line
			negate := p.skipName("not")
			t := p.cur()
			var name string
			switch {
			case t.kind == tokName:
				name = p.next().value
			case t.kind == tokOp && compareOps[t.value]:
				name = p.next().value
			default:
				return nil, syntaxErrorf(t.line, "expected test name")
			}
			if _, ok := tests[name]; !ok {
				return nil, syntaxErrorf(t.line, "No test named '%s'.", name)
			}
			te := &testExpr{target: e, name: name, negate: negate, line: line}
			if p.isOp("(") {
				args, _, err := p.parseArgs()
				if err != nil {
					return nil, err
				}
				te.args = args
			} else if p.startsPrimary() {
				arg, err := p.parsePrimary()
				if err != nil {
					return nil, err
				}
				if arg, err = p.parsePostfix(arg); err != nil {
					return nil, err
				}
				te.args = []expr{arg}
			}
			e = te
		default:
			return e, nil
		}
	}
}

// startsPrimary reports whether the current token can begin a test argument.
func (p *parser) startsPrimary() bool {
	t := p.cur()
	switch t.kind {
	case tokString, tokInt, tokFloat:
		return true
	case tokName:
		switch t.value {
		case "and", "or", "else", "if", "in", "is", "not", "recursive":
			return false
		}
		return true
	}
	return false
}

package jinja

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// maxCallDepth bounds macro recursion.
const maxCallDepth = 100

// TemplateError is a failure while rendering a template that parsed.
type TemplateError struct {
	Line    int
	Message string
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	return e.Message
}

type renderer struct {
	scopes []map[string]Value
	depth  int
}

// Render parses and renders src with vars as the global context. Names not
// in vars evaluate to Undefined.
func Render(src string, vars map[string]any) (string, error) {
	body, err := parseTemplate(src)
	if err != nil {
		return "", err
	}
	root := make(map[string]Value, len(vars))
	for k, v := range vars {
		root[k] = FromGo(v)
	}
	r := &renderer{scopes: []map[string]Value{globals(), root}}
	var sb strings.Builder
	if err := r.renderBody(body, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func globals() map[string]Value {
	return map[string]Value{
		"range":     Func("range", rangeFunc),
		"namespace": Func("namespace", dictFunc),
		"dict":      Func("dict", dictFunc),
	}
}

func rangeFunc(_ *renderer, args []Value, _ map[string]Value) (Value, error) {
	var start, stop, step int64 = 0, 0, 1
	switch len(args) {
	case 1:
		stop = args[0].asInt()
	case 2:
		start, stop = args[0].asInt(), args[1].asInt()
	case 3:
		start, stop, step = args[0].asInt(), args[1].asInt(), args[2].asInt()
	default:
		return Value{}, fmt.Errorf("range expected 1 to 3 arguments, got %d", len(args))
	}
	if step == 0 {
		return Value{}, errors.New("range() arg 3 must not be zero")
	}
	var items []Value
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		if len(items) >= 100000 {
			return Value{}, errors.New("range too big")
		}
		items = append(items, Int(i))
	}
	return List(items), nil
}

func dictFunc(_ *renderer, _ []Value, kwargs map[string]Value) (Value, error) {
	d := NewDict()
	for _, k := range sortedKeys(kwargs) {
		d.Set(k, kwargs[k])
	}
	return DictValue(d), nil
}

func (r *renderer) push(scope map[string]Value) {
	r.scopes = append(r.scopes, scope)
}

func (r *renderer) pop() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *renderer) lookup(name string) Value {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if v, ok := r.scopes[i][name]; ok {
			return v
		}
	}
	return Undefined(name)
}

func (r *renderer) assign(name string, v Value) {
	r.scopes[len(r.scopes)-1][name] = v
}

func runtimeErrorf(line int, format string, args ...any) *TemplateError {
	return &TemplateError{Line: line, Message: fmt.Sprintf(format, args...)}
}

// wrap attaches a line to plain errors from value operations.
func wrap(line int, err error) error {
	if err == nil {
		return nil
	}
	var te *TemplateError
	if errors.As(err, &te) {
		return err
	}
	return &TemplateError{Line: line, Message: err.Error()}
}

func (r *renderer) renderBody(body []node, sb *strings.Builder) error {
	for _, n := range body {
		if err := r.renderNode(n, sb); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) renderString(body []node) (string, error) {
	var sb strings.Builder
	err := r.renderBody(body, &sb)
	return sb.String(), err
}

func (r *renderer) renderNode(n node, sb *strings.Builder) error {
	switch n := n.(type) {
	case *textNode:
		sb.WriteString(n.text)

	case *outputNode:
		v, err := r.eval(n.expr)
		if err != nil {
			return wrap(n.line, err)
		}
		sb.WriteString(v.String())

	case *ifNode:
		for _, b := range n.branches {
			v, err := r.eval(b.cond)
			if err != nil {
				return err
			}
			if v.Truth() {
				return r.renderBody(b.body, sb)
			}
		}
		return r.renderBody(n.elseBody, sb)

	case *forNode:
		return r.renderFor(n, sb)

	case *setNode:
		v, err := r.eval(n.value)
		if err != nil {
			return wrap(n.line, err)
		}
		if n.attr != "" {
			target := r.lookup(n.targets[0])
			if target.kind != DictKind {
				return runtimeErrorf(n.line, "cannot assign attribute on non-namespace object")
			}
			target.dict.Set(n.attr, v)
			return nil
		}
		return wrap(n.line, r.unpack(n.targets, v))

	case *setBlockNode:
		s, err := r.renderString(n.body)
		if err != nil {
			return err
		}
		v := String(s)
		for _, f := range n.filters {
			if v, err = r.applyFilter(f, v); err != nil {
				return wrap(f.line, err)
			}
		}
		r.assign(n.name, v)

	case *macroNode:
		r.assign(n.name, r.macro(n.name, n.params, n.body, r.snapshot()))

	case *callBlockNode:
		caller := r.macro("caller", n.params, n.body, r.snapshot())
		call := *n.call
		call.kwargs = append(append([]kwarg(nil), call.kwargs...), kwarg{name: "caller", value: &literal{v: caller}})
		v, err := r.eval(&call)
		if err != nil {
			return wrap(n.line, err)
		}
		sb.WriteString(v.String())

	case *filterBlockNode:
		s, err := r.renderString(n.body)
		if err != nil {
			return err
		}
		v := String(s)
		for _, f := range n.filters {
			if v, err = r.applyFilter(f, v); err != nil {
				return wrap(f.line, err)
			}
		}
		sb.WriteString(v.String())

	case *withNode:
		scope := make(map[string]Value, len(n.names))
		for i, name := range n.names {
			v, err := r.eval(n.values[i])
			if err != nil {
				return err
			}
			scope[name] = v
		}
		r.push(scope)
		defer r.pop()
		return r.renderBody(n.body, sb)

	case *blockNode:
		return r.renderBody(n.body, sb)

	case *unsupportedNode:
		return runtimeErrorf(n.line, "no loader for this environment specified")
	}
	return nil
}

func (r *renderer) unpack(targets []string, v Value) error {
	if len(targets) == 1 {
		r.assign(targets[0], v)
		return nil
	}
	items, err := v.Iter()
	if err != nil {
		return err
	}
	if len(items) != len(targets) {
		return fmt.Errorf("not enough values to unpack (expected %d, got %d)", len(targets), len(items))
	}
	for i, name := range targets {
		r.assign(name, items[i])
	}
	return nil
}

func (r *renderer) renderFor(n *forNode, sb *strings.Builder) error {
	seq, err := r.eval(n.iter)
	if err != nil {
		return wrap(n.line, err)
	}
	items, err := seq.Iter()
	if err != nil {
		return wrap(n.line, err)
	}

	scope := make(map[string]Value)
	r.push(scope)
	defer r.pop()

	if n.cond != nil {
		var kept []Value
		for _, item := range items {
			if err := r.unpack(n.targets, item); err != nil {
				return wrap(n.line, err)
			}
			ok, err := r.eval(n.cond)
			if err != nil {
				return wrap(n.line, err)
			}
			if ok.Truth() {
				kept = append(kept, item)
			}
		}
		items = kept
	}

	if len(items) == 0 {
		return r.renderBody(n.elseBody, sb)
	}

	length := len(items)
	for i, item := range items {
		if err := r.unpack(n.targets, item); err != nil {
			return wrap(n.line, err)
		}
		scope["loop"] = loopValue(items, i, length)
		if err := r.renderBody(n.body, sb); err != nil {
			return err
		}
	}
	return nil
}

func loopValue(items []Value, i, length int) Value {
	d := NewDict()
	d.Set("index", Int(int64(i+1)))
	d.Set("index0", Int(int64(i)))
	d.Set("revindex", Int(int64(length-i)))
	d.Set("revindex0", Int(int64(length-i-1)))
	d.Set("first", Bool(i == 0))
	d.Set("last", Bool(i == length-1))
	d.Set("length", Int(int64(length)))
	d.Set("depth", Int(1))
	d.Set("depth0", Int(0))
	if i > 0 {
		d.Set("previtem", items[i-1])
	} else {
		d.Set("previtem", Undefined("previtem"))
	}
	if i < length-1 {
		d.Set("nextitem", items[i+1])
	} else {
		d.Set("nextitem", Undefined("nextitem"))
	}
	d.Set("cycle", Func("cycle", func(_ *renderer, args []Value, _ map[string]Value) (Value, error) {
		if len(args) == 0 {
			return Value{}, errors.New("no items for cycling given")
		}
		return args[i%len(args)], nil
	}))
	return DictValue(d)
}

// snapshot flattens the visible scopes for a macro closure.
func (r *renderer) snapshot() map[string]Value {
	flat := make(map[string]Value)
	for _, scope := range r.scopes {
		for k, v := range scope {
			flat[k] = v
		}
	}
	return flat
}

func (r *renderer) macro(name string, params []param, body []node, closure map[string]Value) Value {
	return Func(name, func(r *renderer, args []Value, kwargs map[string]Value) (Value, error) {
		if r.depth >= maxCallDepth {
			return Value{}, errors.New("maximum recursion depth exceeded")
		}
		scope := make(map[string]Value, len(params)+2)
		for i, p := range params {
			switch {
			case i < len(args):
				scope[p.name] = args[i]
			case hasKey(kwargs, p.name):
				scope[p.name] = kwargs[p.name]
			case p.defaultVal != nil:
				v, err := r.eval(p.defaultVal)
				if err != nil {
					return Value{}, err
				}
				scope[p.name] = v
			default:
				scope[p.name] = Undefined(p.name)
			}
		}
		if c, ok := kwargs["caller"]; ok {
			scope["caller"] = c
		}
		var extra []Value
		if len(args) > len(params) {
			extra = args[len(params):]
		}
		scope["varargs"] = List(extra)

		saved := r.scopes
		r.scopes = []map[string]Value{closure, scope}
		r.depth++
		out, err := r.renderString(body)
		r.depth--
		r.scopes = saved
		if err != nil {
			return Value{}, err
		}
		return String(out), nil
	})
}

func hasKey(m map[string]Value, k string) bool {
	_, ok := m[k]
	return ok
}

// Expressions.

func (r *renderer) eval(e expr) (Value, error) {
	switch e := e.(type) {
	case *literal:
		return e.v, nil

	case *nameExpr:
		return r.lookup(e.name), nil

	case *listExpr:
		items := make([]Value, len(e.items))
		for i, item := range e.items {
			v, err := r.eval(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return List(items), nil

	case *dictExpr:
		d := NewDict()
		for i := range e.keys {
			k, err := r.eval(e.keys[i])
			if err != nil {
				return Value{}, err
			}
			v, err := r.eval(e.values[i])
			if err != nil {
				return Value{}, err
			}
			d.Set(k.keyString(), v)
		}
		return DictValue(d), nil

	case *attrExpr:
		obj, err := r.eval(e.obj)
		if err != nil {
			return Value{}, err
		}
		v, err := obj.Attr(e.name)
		return v, wrap(e.line, err)

	case *indexExpr:
		obj, err := r.eval(e.obj)
		if err != nil {
			return Value{}, err
		}
		idx, err := r.eval(e.index)
		if err != nil {
			return Value{}, err
		}
		if obj.IsUndefined() && idx.kind == StringKind {
			v, err := obj.Attr(idx.s)
			return v, wrap(e.line, err)
		}
		return obj.Index(idx)

	case *sliceExpr:
		return r.evalSlice(e)

	case *callExpr:
		return r.evalCall(e)

	case *filterExpr:
		target, err := r.eval(e.target)
		if err != nil {
			return Value{}, err
		}
		v, err := r.applyFilter(e, target)
		return v, wrap(e.line, err)

	case *testExpr:
		target, err := r.eval(e.target)
		if err != nil {
			return Value{}, err
		}
		args, err := r.evalList(e.args)
		if err != nil {
			return Value{}, err
		}
		ok, err := tests[e.name](target, args)
		if err != nil {
			return Value{}, wrap(e.line, err)
		}
		return Bool(ok != e.negate), nil

	case *unaryExpr:
		v, err := r.eval(e.operand)
		if err != nil {
			return Value{}, err
		}
		switch e.op {
		case "not":
			return Bool(!v.Truth()), nil
		case "-":
			switch v.kind {
			case IntKind, BoolKind:
				return Int(-v.asInt()), nil
			case FloatKind:
				return Float(-v.f), nil
			}
		case "+":
			if v.isNumber() {
				return v, nil
			}
		}
		if v.IsUndefined() {
			return Value{}, runtimeErrorf(e.line, "%s is undefined", v.undefinedName())
		}
		return Value{}, runtimeErrorf(e.line, "bad operand type for unary %s: '%s'", e.op, v.TypeName())

	case *binaryExpr:
		return r.evalBinary(e)

	case *compareExpr:
		left, err := r.eval(e.left)
		if err != nil {
			return Value{}, err
		}
		for i, op := range e.ops {
			right, err := r.eval(e.rights[i])
			if err != nil {
				return Value{}, err
			}
			ok, err := compareOp(op, left, right)
			if err != nil {
				return Value{}, wrap(e.line, err)
			}
			if !ok {
				return Bool(false), nil
			}
			left = right
		}
		return Bool(true), nil

	case *condExpr:
		c, err := r.eval(e.cond)
		if err != nil {
			return Value{}, err
		}
		if c.Truth() {
			return r.eval(e.then)
		}
		if e.otherwise == nil {
			return Undefined(""), nil
		}
		return r.eval(e.otherwise)
	}
	return Value{}, fmt.Errorf("cannot evaluate %T", e)
}

func (r *renderer) evalList(exprs []expr) ([]Value, error) {
	values := make([]Value, len(exprs))
	for i, e := range exprs {
		v, err := r.eval(e)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (r *renderer) evalKwargs(kwargs []kwarg) (map[string]Value, error) {
	m := make(map[string]Value, len(kwargs))
	for _, kw := range kwargs {
		v, err := r.eval(kw.value)
		if err != nil {
			return nil, err
		}
		m[kw.name] = v
	}
	return m, nil
}

func (r *renderer) evalCall(e *callExpr) (Value, error) {
	fn, err := r.eval(e.fn)
	if err != nil {
		return Value{}, err
	}
	args, err := r.evalList(e.args)
	if err != nil {
		return Value{}, err
	}
	kwargs, err := r.evalKwargs(e.kwargs)
	if err != nil {
		return Value{}, err
	}
	switch fn.kind {
	case UndefinedKind:
		return Undefined(""), nil
	case CallableKind:
		v, err := fn.fn(r, args, kwargs)
		return v, wrap(e.line, err)
	}
	return Value{}, runtimeErrorf(e.line, "'%s' object is not callable", fn.TypeName())
}

func (r *renderer) applyFilter(f *filterExpr, target Value) (Value, error) {
	args, err := r.evalList(f.args)
	if err != nil {
		return Value{}, err
	}
	kwargs, err := r.evalKwargs(f.kwargs)
	if err != nil {
		return Value{}, err
	}
	return filters[f.name](r, target, args, kwargs)
}

func (r *renderer) evalSlice(e *sliceExpr) (Value, error) {
	obj, err := r.eval(e.obj)
	if err != nil {
		return Value{}, err
	}
	bound := func(x expr) (*int64, error) {
		if x == nil {
			return nil, nil
		}
		v, err := r.eval(x)
		if err != nil || v.kind == NoneKind {
			return nil, err
		}
		i := v.asInt()
		return &i, nil
	}
	start, err := bound(e.start)
	if err != nil {
		return Value{}, err
	}
	stop, err := bound(e.stop)
	if err != nil {
		return Value{}, err
	}
	step, err := bound(e.step)
	if err != nil {
		return Value{}, err
	}

	var items []Value
	switch obj.kind {
	case UndefinedKind:
		return Undefined(""), nil
	case ListKind, StringKind:
		items, _ = obj.Iter()
	default:
		return Value{}, fmt.Errorf("'%s' object is not subscriptable", obj.TypeName())
	}
	indices, err := sliceIndices(len(items), start, stop, step)
	if err != nil {
		return Value{}, err
	}
	out := make([]Value, 0, len(indices))
	for _, i := range indices {
		out = append(out, items[i])
	}
	if obj.kind == StringKind {
		var sb strings.Builder
		for _, v := range out {
			sb.WriteString(v.s)
		}
		return String(sb.String()), nil
	}
	return List(out), nil
}

func sliceIndices(n int, start, stop, step *int64) ([]int, error) {
	st := int64(1)
	if step != nil {
		st = *step
	}
	if st == 0 {
		return nil, errors.New("slice step cannot be zero")
	}
	clamp := func(p *int64, def int64) int64 {
		if p == nil {
			return def
		}
		i := *p
		if i < 0 {
			i += int64(n)
		}
		lo, hi := int64(0), int64(n)
		if st < 0 {
			lo, hi = -1, int64(n)-1
		}
		return max(lo, min(i, hi))
	}
	var out []int
	if st > 0 {
		for i := clamp(start, 0); i < clamp(stop, int64(n)); i += st {
			out = append(out, int(i))
		}
	} else {
		for i := clamp(start, int64(n)-1); i > clamp(stop, -1); i += st {
			out = append(out, int(i))
		}
	}
	return out, nil
}

func (r *renderer) evalBinary(e *binaryExpr) (Value, error) {
	left, err := r.eval(e.left)
	if err != nil {
		return Value{}, err
	}
	switch e.op {
	case "and":
		if !left.Truth() {
			return left, nil
		}
		return r.eval(e.right)
	case "or":
		if left.Truth() {
			return left, nil
		}
		return r.eval(e.right)
	}

	right, err := r.eval(e.right)
	if err != nil {
		return Value{}, err
	}
	if e.op == "~" {
		return String(left.String() + right.String()), nil
	}
	v, err := arith(e.op, left, right)
	return v, wrap(e.line, err)
}

func arith(op string, a, b Value) (Value, error) {
	if a.IsUndefined() {
		return Value{}, fmt.Errorf("%s is undefined", a.undefinedName())
	}
	if b.IsUndefined() {
		return Value{}, fmt.Errorf("%s is undefined", b.undefinedName())
	}

	if a.isNumber() && b.isNumber() {
		bothInt := a.kind != FloatKind && b.kind != FloatKind
		x, y := a.asFloat(), b.asFloat()
		switch op {
		case "+", "-", "*":
			if bothInt {
				i, j := a.asInt(), b.asInt()
				switch op {
				case "+":
					return Int(i + j), nil
				case "-":
					return Int(i - j), nil
				}
				return Int(i * j), nil
			}
			switch op {
			case "+":
				return Float(x + y), nil
			case "-":
				return Float(x - y), nil
			}
			return Float(x * y), nil
		case "/":
			if y == 0 {
				return Value{}, errors.New("division by zero")
			}
			return Float(x / y), nil
		case "//":
			if y == 0 {
				return Value{}, errors.New("integer division or modulo by zero")
			}
			if bothInt {
				return Int(int64(math.Floor(x / y))), nil
			}
			return Float(math.Floor(x / y)), nil
		case "%":
			if y == 0 {
				return Value{}, errors.New("integer division or modulo by zero")
			}
			m := x - y*math.Floor(x/y)
			if bothInt {
				return Int(int64(m)), nil
			}
			return Float(m), nil
		case "**":
			p := math.Pow(x, y)
			if bothInt && b.asInt() >= 0 {
				return Int(int64(p)), nil
			}
			return Float(p), nil
		}
	}

	switch {
	case op == "+" && a.kind == StringKind && b.kind == StringKind:
		return String(a.s + b.s), nil
	case op == "+" && a.kind == ListKind && b.kind == ListKind:
		return List(append(append([]Value(nil), a.list...), b.list...)), nil
	case op == "*" && a.kind == StringKind && (b.kind == IntKind || b.kind == BoolKind):
		return String(strings.Repeat(a.s, int(max(b.asInt(), 0)))), nil
	case op == "*" && a.kind == ListKind && (b.kind == IntKind || b.kind == BoolKind):
		var out []Value
		for i := int64(0); i < b.asInt(); i++ {
			out = append(out, a.list...)
		}
		return List(out), nil
	case op == "%" && a.kind == StringKind:
		return percentFormat(a.s, b)
	}
	return Value{}, fmt.Errorf("unsupported operand type(s) for %s: '%s' and '%s'", op, a.TypeName(), b.TypeName())
}

// percentFormat implements the %s/%d/%r subset of printf-style formatting.
func percentFormat(format string, arg Value) (Value, error) {
	args := []Value{arg}
	if arg.kind == ListKind {
		args = arg.list
	}
	var sb strings.Builder
	n := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			sb.WriteByte(c)
			continue
		}
		i++
		verb := format[i]
		if verb == '%' {
			sb.WriteByte('%')
			continue
		}
		if n >= len(args) {
			return Value{}, errors.New("not enough arguments for format string")
		}
		switch verb {
		case 's':
			sb.WriteString(args[n].String())
		case 'r':
			sb.WriteString(args[n].Repr())
		case 'd', 'i':
			sb.WriteString(fmt.Sprint(args[n].asInt()))
		default:
			return Value{}, fmt.Errorf("unsupported format character '%c'", verb)
		}
		n++
	}
	return String(sb.String()), nil
}

func compareOp(op string, a, b Value) (bool, error) {
	switch op {
	case "==":
		return a.Equal(b), nil
	case "!=":
		return !a.Equal(b), nil
	case "in":
		return contains(b, a)
	case "notin":
		ok, err := contains(b, a)
		return !ok, err
	}
	c, err := compare(a, b)
	if err != nil {
		return false, err
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	}
	return c >= 0, nil
}

package jinja

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

type (
	filterFunc func(r *renderer, v Value, args []Value, kwargs map[string]Value) (Value, error)
	testFunc   func(v Value, args []Value) (bool, error)
)

var (
	filters map[string]filterFunc
	tests   map[string]testFunc
)

func init() {
	filters = map[string]filterFunc{
		"default":    defaultFilter,
		"d":          defaultFilter,
		"upper":      stringFilter(strings.ToUpper),
		"lower":      stringFilter(strings.ToLower),
		"title":      stringFilter(titleCase),
		"capitalize": stringFilter(capitalize),
		"trim":       stringFilter(strings.TrimSpace),
		"safe":       stringFilter(func(s string) string { return s }),
		"e":          stringFilter(html.EscapeString),
		"escape":     stringFilter(html.EscapeString),
		"string":     stringFilter(func(s string) string { return s }),
		"length":     lengthFilter,
		"count":      lengthFilter,
		"join":       joinFilter,
		"replace":    replaceFilter,
		"int":        intFilter,
		"float":      floatFilter,
		"list":       listFilter,
		"first":      firstFilter,
		"last":       lastFilter,
		"indent":     indentFilter,
		"sort":       sortFilter,
		"reverse":    reverseFilter,
		"unique":     uniqueFilter,
		"abs":        absFilter,
		"round":      roundFilter,
		"min":        extremeFilter(-1),
		"max":        extremeFilter(1),
		"sum":        sumFilter,
		"items":      itemsFilter,
		"dictsort":   dictsortFilter,
		"tojson":     tojsonFilter,
		"wordcount":  wordcountFilter,
		"attr":       attrFilter,
		"map":        mapFilter,
		"select":     selectFilter(false),
		"reject":     selectFilter(true),
	}

	tests = map[string]testFunc{
		"defined":     func(v Value, _ []Value) (bool, error) { return !v.IsUndefined(), nil },
		"undefined":   func(v Value, _ []Value) (bool, error) { return v.IsUndefined(), nil },
		"none":        kindTest(NoneKind),
		"boolean":     kindTest(BoolKind),
		"string":      kindTest(StringKind),
		"mapping":     kindTest(DictKind),
		"callable":    kindTest(CallableKind),
		"float":       kindTest(FloatKind),
		"integer":     kindTest(IntKind),
		"number":      func(v Value, _ []Value) (bool, error) { return v.kind == IntKind || v.kind == FloatKind, nil },
		"true":        func(v Value, _ []Value) (bool, error) { return v.kind == BoolKind && v.b, nil },
		"false":       func(v Value, _ []Value) (bool, error) { return v.kind == BoolKind && !v.b, nil },
		"iterable":    iterableTest,
		"sequence":    iterableTest,
		"lower":       func(v Value, _ []Value) (bool, error) { return v.kind == StringKind && strings.ToLower(v.s) == v.s, nil },
		"upper":       func(v Value, _ []Value) (bool, error) { return v.kind == StringKind && strings.ToUpper(v.s) == v.s, nil },
		"even":        func(v Value, _ []Value) (bool, error) { return v.asInt()%2 == 0, nil },
		"odd":         func(v Value, _ []Value) (bool, error) { return v.asInt()%2 != 0, nil },
		"divisibleby": divisibleTest,
		"in":          inTest,
		"sameas":      compareTest("=="),
		"eq":          compareTest("=="),
		"equalto":     compareTest("=="),
		"==":          compareTest("=="),
		"ne":          compareTest("!="),
		"!=":          compareTest("!="),
		"lt":          compareTest("<"),
		"lessthan":    compareTest("<"),
		"<":           compareTest("<"),
		"le":          compareTest("<="),
		"<=":          compareTest("<="),
		"gt":          compareTest(">"),
		"greaterthan": compareTest(">"),
		">":           compareTest(">"),
		"ge":          compareTest(">="),
		">=":          compareTest(">="),
	}
}

func arg(args []Value, kwargs map[string]Value, i int, name string, def Value) Value {
	if i < len(args) {
		return args[i]
	}
	if v, ok := kwargs[name]; ok {
		return v
	}
	return def
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func stringFilter(fn func(string) string) filterFunc {
	return func(_ *renderer, v Value, _ []Value, _ map[string]Value) (Value, error) {
		return String(fn(v.String())), nil
	}
}

func titleCase(s string) string {
	var sb strings.Builder
	prevLetter := false
	for _, r := range s {
		if prevLetter {
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(unicode.ToUpper(r))
		}
		prevLetter = unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\''
	}
	return sb.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func defaultFilter(_ *renderer, v Value, args []Value, kwargs map[string]Value) (Value, error) {
	def := arg(args, kwargs, 0, "default_value", String(""))
	boolean := arg(args, kwargs, 1, "boolean", Bool(false)).Truth()
	if v.IsUndefined() || (boolean && !v.Truth()) {
		return def, nil
	}
	return v, nil
}

func lengthFilter(_ *renderer, v Value, _ []Value, _ map[string]Value) (Value, error) {
	n, err := v.Len()
	return Int(int64(n)), err
}

func joinFilter(_ *renderer, v Value, args []Value, kwargs map[string]Value) (Value, error) {
	sep := arg(args, kwargs, 0, "d", String("")).String()
	attribute := arg(args, kwargs, 1, "attribute", None())
	items, err := v.Iter()
	if err != nil {
		return Value{}, err
	}
	parts := make([]string, len(items))
	for i, item := range items {
		if attribute.kind != NoneKind {
			if item, err = item.Attr(attribute.String()); err != nil {
				return Value{}, err
			}
		}
		parts[i] = item.String()
	}
	return String(strings.Join(parts, sep)), nil
}

func replaceFilter(_ *renderer, v Value, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) < 2 {
		return Value{}, errors.New("replace() missing required arguments")
	}
	n := int(arg(args, kwargs, 2, "count", Int(-1)).asInt())
	return String(strings.Replace(v.String(), args[0].String(), args[1].String(), n)), nil
}

func intFilter(_ *renderer, v Value, args []Value, kwargs map[string]Value) (Value, error) {
	def := arg(args, kwargs, 0, "default", Int(0))
	switch v.kind {
	case IntKind, BoolKind, FloatKind:
		return Int(v.asInt()), nil
	case StringKind:
		s := strings.TrimSpace(v.s)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i), nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Int(int64(f)), nil
		}
	}
	return def, nil
}

func floatFilter(_ *renderer, v Value, args []Value, kwargs map[string]Value) (Value, error) {
	def := arg(args, kwargs, 0, "default", Float(0))
	switch v.kind {
	case IntKind, BoolKind, FloatKind:
		return Float(v.asFloat()), nil
	case StringKind:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64); err == nil {
			return Float(f), nil
		}
	}
	return def, nil
}

func listFilter(_ *renderer, v Value, _ []Value, _ map[string]Value) (Value, error) {
	items, err := v.Iter()
	return List(append([]Value(nil), items...)), err
}

func firstFilter(_ *renderer, v Value, _ []Value, _ map[string]Value) (Value, error) {
	items, err := v.Iter()
	if err != nil || len(items) == 0 {
		return Undefined("first"), err
	}
	return items[0], nil
}

func lastFilter(_ *renderer, v Value, _ []Value, _ map[string]Value) (Value, error) {
	items, err := v.Iter()
	if err != nil || len(items) == 0 {
		return Undefined("last"), err
	}
	return items[len(items)-1], nil
}

func indentFilter(_ *renderer, v Value, args []Value, kwargs map[string]Value) (Value, error) {
	width := arg(args, kwargs, 0, "width", Int(4))
	first := arg(args, kwargs, 1, "first", Bool(false)).Truth()
	blank := arg(args, kwargs, 2, "blank", Bool(false)).Truth()
	pad := width.String()
	if width.isNumber() {
		pad = strings.Repeat(" ", int(width.asInt()))
	}
	lines := strings.Split(v.String(), "\n")
	for i, line := range lines {
		if i == 0 && !first {
			continue
		}
		if line == "" && !blank {
			continue
		}
		lines[i] = pad + line
	}
	return String(strings.Join(lines, "\n")), nil
}

func sortFilter(_ *renderer, v Value, args []Value, kwargs map[string]Value) (Value, error) {
	reverse := arg(args, kwargs, 0, "reverse", Bool(false)).Truth()
	items, err := v.Iter()
	if err != nil {
		return Value{}, err
	}
	items = append([]Value(nil), items...)
	if attribute := arg(args, kwargs, 2, "attribute", None()); attribute.kind != NoneKind {
		keyed := make([]Value, len(items))
		for i, item := range items {
			if keyed[i], err = item.Attr(attribute.String()); err != nil {
				return Value{}, err
			}
		}
		idx := make([]int, len(items))
		for i := range idx {
			idx[i] = i
		}
		var sortErr error
		sort.SliceStable(idx, func(i, j int) bool {
			c, err := compare(keyed[idx[i]], keyed[idx[j]])
			if err != nil && sortErr == nil {
				sortErr = err
			}
			return c < 0
		})
		if sortErr != nil {
			return Value{}, sortErr
		}
		sorted := make([]Value, len(items))
		for i, j := range idx {
			sorted[i] = items[j]
		}
		items = sorted
	} else if err := sortValues(items); err != nil {
		return Value{}, err
	}
	if reverse {
		reverseValues(items)
	}
	return List(items), nil
}

func reverseValues(items []Value) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

func reverseFilter(_ *renderer, v Value, _ []Value, _ map[string]Value) (Value, error) {
	if v.kind == StringKind {
		runes := []rune(v.s)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return String(string(runes)), nil
	}
	items, err := v.Iter()
	if err != nil {
		return Value{}, err
	}
	items = append([]Value(nil), items...)
	reverseValues(items)
	return List(items), nil
}

func uniqueFilter(_ *renderer, v Value, _ []Value, _ map[string]Value) (Value, error) {
	items, err := v.Iter()
	if err != nil {
		return Value{}, err
	}
	var out []Value
	for _, item := range items {
		seen := false
		for _, o := range out {
			if o.Equal(item) {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, item)
		}
	}
	return List(out), nil
}

func absFilter(_ *renderer, v Value, _ []Value, _ map[string]Value) (Value, error) {
	switch v.kind {
	case IntKind, BoolKind:
		i := v.asInt()
		if i < 0 {
			i = -i
		}
		return Int(i), nil
	case FloatKind:
		return Float(math.Abs(v.f)), nil
	}
	return Value{}, fmt.Errorf("bad operand type for abs(): '%s'", v.TypeName())
}

func roundFilter(_ *renderer, v Value, args []Value, kwargs map[string]Value) (Value, error) {
	precision := arg(args, kwargs, 0, "precision", Int(0)).asInt()
	method := arg(args, kwargs, 1, "method", String("common")).String()
	if !v.isNumber() {
		return Value{}, fmt.Errorf("type %s doesn't define __round__ method", v.TypeName())
	}
	scale := math.Pow(10, float64(precision))
	x := v.asFloat() * scale
	switch method {
	case "common":
		x = math.Round(x)
	case "ceil":
		x = math.Ceil(x)
	case "floor":
		x = math.Floor(x)
	default:
		return Value{}, errors.New("method must be common, ceil or floor")
	}
	return Float(x / scale), nil
}

func extremeFilter(sign int) filterFunc {
	return func(_ *renderer, v Value, _ []Value, _ map[string]Value) (Value, error) {
		items, err := v.Iter()
		if err != nil {
			return Value{}, err
		}
		if len(items) == 0 {
			return Undefined(""), nil
		}
		best := items[0]
		for _, item := range items[1:] {
			c, err := compare(item, best)
			if err != nil {
				return Value{}, err
			}
			if c*sign > 0 {
				best = item
			}
		}
		return best, nil
	}
}

func sumFilter(_ *renderer, v Value, args []Value, kwargs map[string]Value) (Value, error) {
	items, err := v.Iter()
	if err != nil {
		return Value{}, err
	}
	total := arg(args, kwargs, 1, "start", Int(0))
	attribute := arg(args, kwargs, 0, "attribute", None())
	for _, item := range items {
		if attribute.kind != NoneKind {
			if item, err = item.Attr(attribute.String()); err != nil {
				return Value{}, err
			}
		}
		if total, err = arith("+", total, item); err != nil {
			return Value{}, err
		}
	}
	return total, nil
}

func itemsFilter(_ *renderer, v Value, _ []Value, _ map[string]Value) (Value, error) {
	switch v.kind {
	case UndefinedKind:
		return List(nil), nil
	case DictKind:
		out := make([]Value, 0, v.dict.Len())
		for _, k := range v.dict.keys {
			out = append(out, List([]Value{String(k), v.dict.values[k]}))
		}
		return List(out), nil
	}
	return Value{}, errors.New("can only get item pairs from a mapping")
}

func dictsortFilter(r *renderer, v Value, args []Value, kwargs map[string]Value) (Value, error) {
	pairs, err := itemsFilter(r, v, nil, nil)
	if err != nil {
		return Value{}, err
	}
	items := append([]Value(nil), pairs.list...)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].list[0].s < items[j].list[0].s
	})
	if arg(args, kwargs, 2, "reverse", Bool(false)).Truth() {
		reverseValues(items)
	}
	return List(items), nil
}

func wordcountFilter(_ *renderer, v Value, _ []Value, _ map[string]Value) (Value, error) {
	return Int(int64(len(strings.Fields(v.String())))), nil
}

func attrFilter(_ *renderer, v Value, args []Value, _ map[string]Value) (Value, error) {
	if len(args) == 0 {
		return Value{}, errors.New("attr() missing required argument 'name'")
	}
	return v.Attr(args[0].String())
}

func mapFilter(r *renderer, v Value, args []Value, kwargs map[string]Value) (Value, error) {
	items, err := v.Iter()
	if err != nil {
		return Value{}, err
	}
	out := make([]Value, len(items))
	if attribute, ok := kwargs["attribute"]; ok {
		def, hasDefault := kwargs["default"]
		for i, item := range items {
			if out[i], err = item.Attr(attribute.String()); err != nil {
				return Value{}, err
			}
			if hasDefault && out[i].IsUndefined() {
				out[i] = def
			}
		}
		return List(out), nil
	}
	if len(args) == 0 {
		return List(items), nil
	}
	name := args[0].String()
	fn, ok := filters[name]
	if !ok {
		return Value{}, fmt.Errorf("No filter named '%s'.", name)
	}
	for i, item := range items {
		if out[i], err = fn(r, item, args[1:], nil); err != nil {
			return Value{}, err
		}
	}
	return List(out), nil
}

func selectFilter(invert bool) filterFunc {
	return func(_ *renderer, v Value, args []Value, _ map[string]Value) (Value, error) {
		items, err := v.Iter()
		if err != nil {
			return Value{}, err
		}
		test := func(item Value) (bool, error) { return item.Truth(), nil }
		if len(args) > 0 {
			name := args[0].String()
			fn, ok := tests[name]
			if !ok {
				return Value{}, fmt.Errorf("No test named '%s'.", name)
			}
			rest := args[1:]
			test = func(item Value) (bool, error) { return fn(item, rest) }
		}
		var out []Value
		for _, item := range items {
			ok, err := test(item)
			if err != nil {
				return Value{}, err
			}
			if ok != invert {
				out = append(out, item)
			}
		}
		return List(out), nil
	}
}

func tojsonFilter(_ *renderer, v Value, _ []Value, _ map[string]Value) (Value, error) {
	b, err := json.Marshal(toGo(v))
	if err != nil {
		return Value{}, err
	}
	s := strings.ReplaceAll(string(b), "'", `\u0027`)
	return String(s), nil
}

func toGo(v Value) any {
	switch v.kind {
	case BoolKind:
		return v.b
	case IntKind:
		return v.i
	case FloatKind:
		return v.f
	case StringKind:
		return v.s
	case ListKind:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = toGo(item)
		}
		return out
	case DictKind:
		out := make(map[string]any, v.dict.Len())
		for _, k := range v.dict.keys {
			out[k] = toGo(v.dict.values[k])
		}
		return out
	}
	return nil
}

// Tests.

func kindTest(kind Kind) testFunc {
	return func(v Value, _ []Value) (bool, error) { return v.kind == kind, nil }
}

func iterableTest(v Value, _ []Value) (bool, error) {
	switch v.kind {
	case StringKind, ListKind, DictKind:
		return true, nil
	}
	return false, nil
}

func divisibleTest(v Value, args []Value) (bool, error) {
	if len(args) == 0 {
		return false, errors.New("divisibleby() missing required argument 'num'")
	}
	n := args[0].asInt()
	if n == 0 {
		return false, errors.New("integer division or modulo by zero")
	}
	return v.asInt()%n == 0, nil
}

func inTest(v Value, args []Value) (bool, error) {
	if len(args) == 0 {
		return false, errors.New("in() missing required argument 'seq'")
	}
	return contains(args[0], v)
}

func compareTest(op string) testFunc {
	return func(v Value, args []Value) (bool, error) {
		if len(args) == 0 {
			return false, fmt.Errorf("test '%s' requires an argument", op)
		}
		return compareOp(op, v, args[0])
	}
}

// Methods callable on values, e.g. d.items() or s.upper().

func method(name string, fn func(args []Value) (Value, error)) Value {
	return Func(name, func(_ *renderer, args []Value, _ map[string]Value) (Value, error) {
		return fn(args)
	})
}

func dictMethod(v Value, name string) (Value, bool) {
	switch name {
	case "items":
		return method(name, func([]Value) (Value, error) { return itemsFilter(nil, v, nil, nil) }), true
	case "keys":
		return method(name, func([]Value) (Value, error) { return listFilter(nil, v, nil, nil) }), true
	case "values":
		return method(name, func([]Value) (Value, error) {
			out := make([]Value, 0, v.dict.Len())
			for _, k := range v.dict.keys {
				out = append(out, v.dict.values[k])
			}
			return List(out), nil
		}), true
	case "get":
		return method(name, func(args []Value) (Value, error) {
			if len(args) == 0 {
				return Value{}, errors.New("get expected at least 1 argument, got 0")
			}
			if item, ok := v.dict.Get(args[0].keyString()); ok {
				return item, nil
			}
			if len(args) > 1 {
				return args[1], nil
			}
			return None(), nil
		}), true
	case "update":
		return method(name, func(args []Value) (Value, error) {
			for _, a := range args {
				if a.kind == DictKind {
					for _, k := range a.dict.keys {
						v.dict.Set(k, a.dict.values[k])
					}
				}
			}
			return None(), nil
		}), true
	}
	return Value{}, false
}

func stringMethod(v Value, name string) (Value, bool) {
	s := v.s
	simple := map[string]func(string) string{
		"upper":      strings.ToUpper,
		"lower":      strings.ToLower,
		"title":      titleCase,
		"capitalize": capitalize,
	}
	if fn, ok := simple[name]; ok {
		return method(name, func([]Value) (Value, error) { return String(fn(s)), nil }), true
	}

	switch name {
	case "strip", "lstrip", "rstrip":
		return method(name, func(args []Value) (Value, error) {
			cutset := " \t\r\n"
			if len(args) > 0 && args[0].kind == StringKind {
				cutset = args[0].s
			}
			switch name {
			case "lstrip":
				return String(strings.TrimLeft(s, cutset)), nil
			case "rstrip":
				return String(strings.TrimRight(s, cutset)), nil
			}
			return String(strings.Trim(s, cutset)), nil
		}), true
	case "startswith", "endswith":
		return method(name, func(args []Value) (Value, error) {
			if len(args) == 0 {
				return Value{}, fmt.Errorf("%s takes at least 1 argument (0 given)", name)
			}
			if name == "startswith" {
				return Bool(strings.HasPrefix(s, args[0].String())), nil
			}
			return Bool(strings.HasSuffix(s, args[0].String())), nil
		}), true
	case "split":
		return method(name, func(args []Value) (Value, error) {
			var parts []string
			if len(args) == 0 || args[0].kind == NoneKind {
				parts = strings.Fields(s)
			} else {
				parts = strings.Split(s, args[0].String())
			}
			return FromGo(parts), nil
		}), true
	case "replace":
		return method(name, func(args []Value) (Value, error) {
			if len(args) < 2 {
				return Value{}, errors.New("replace expected at least 2 arguments")
			}
			return String(strings.ReplaceAll(s, args[0].String(), args[1].String())), nil
		}), true
	case "join":
		return method(name, func(args []Value) (Value, error) {
			if len(args) == 0 {
				return Value{}, errors.New("join() takes exactly one argument (0 given)")
			}
			return joinFilter(nil, args[0], []Value{v}, nil)
		}), true
	case "format":
		return method(name, func(args []Value) (Value, error) {
			out := s
			for _, a := range args {
				out = strings.Replace(out, "{}", a.String(), 1)
			}
			return String(out), nil
		}), true
	}
	return Value{}, false
}

func listMethod(v Value, name string) (Value, bool) {
	switch name {
	case "index":
		return method(name, func(args []Value) (Value, error) {
			if len(args) == 0 {
				return Value{}, errors.New("index expected 1 argument, got 0")
			}
			for i, item := range v.list {
				if item.Equal(args[0]) {
					return Int(int64(i)), nil
				}
			}
			return Value{}, fmt.Errorf("%s is not in list", args[0].Repr())
		}), true
	case "count":
		return method(name, func(args []Value) (Value, error) {
			if len(args) == 0 {
				return Value{}, errors.New("count() takes exactly one argument (0 given)")
			}
			n := 0
			for _, item := range v.list {
				if item.Equal(args[0]) {
					n++
				}
			}
			return Int(int64(n)), nil
		}), true
	}
	return Value{}, false
}

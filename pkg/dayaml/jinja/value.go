package jinja

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind enumerates the closed set of template values.
type Kind int

const (
	UndefinedKind Kind = iota
	NoneKind
	BoolKind
	IntKind
	FloatKind
	StringKind
	ListKind
	DictKind
	CallableKind
)

// Callable is a function value: macros, loop.cycle, caller.
type Callable func(r *renderer, args []Value, kwargs map[string]Value) (Value, error)

// Value is one template value. Undefined absorbs attribute, index and call
// access and renders as the empty string.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	list []Value
	dict *Dict
	fn   Callable
	name string // name hint for Undefined and Callable
}

// Dict is an insertion-ordered string-keyed mapping.
type Dict struct {
	keys   []string
	values map[string]Value
}

// NewDict creates an empty dictionary.
func NewDict() *Dict {
	return &Dict{values: make(map[string]Value)}
}

// Set stores v under key, keeping the first insertion position.
func (d *Dict) Set(key string, v Value) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = v
}

// Get returns the value under key.
func (d *Dict) Get(key string) (Value, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []string {
	return d.keys
}

// Len returns the number of entries.
func (d *Dict) Len() int {
	return len(d.keys)
}

// Constructors.

func Undefined(name string) Value { return Value{kind: UndefinedKind, name: name} }
func None() Value                 { return Value{kind: NoneKind} }
func Bool(b bool) Value           { return Value{kind: BoolKind, b: b} }
func Int(i int64) Value           { return Value{kind: IntKind, i: i} }
func Float(f float64) Value       { return Value{kind: FloatKind, f: f} }
func String(s string) Value       { return Value{kind: StringKind, s: s} }
func List(items []Value) Value    { return Value{kind: ListKind, list: items} }
func DictValue(d *Dict) Value     { return Value{kind: DictKind, dict: d} }

func Func(name string, fn Callable) Value {
	return Value{kind: CallableKind, fn: fn, name: name}
}

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsUndefined reports whether v is the inert undefined value.
func (v Value) IsUndefined() bool { return v.kind == UndefinedKind }

// Truth returns the value's truthiness.
func (v Value) Truth() bool {
	switch v.kind {
	case BoolKind:
		return v.b
	case IntKind:
		return v.i != 0
	case FloatKind:
		return v.f != 0
	case StringKind:
		return v.s != ""
	case ListKind:
		return len(v.list) > 0
	case DictKind:
		return v.dict.Len() > 0
	case CallableKind:
		return true
	}
	return false
}

// String renders the value as template output.
func (v Value) String() string {
	switch v.kind {
	case UndefinedKind:
		return ""
	case StringKind:
		return v.s
	}
	return v.Repr()
}

// Repr renders the value the way it appears inside a container.
func (v Value) Repr() string {
	switch v.kind {
	case UndefinedKind:
		return ""
	case NoneKind:
		return "None"
	case BoolKind:
		if v.b {
			return "True"
		}
		return "False"
	case IntKind:
		return strconv.FormatInt(v.i, 10)
	case FloatKind:
		return formatFloat(v.f)
	case StringKind:
		return quote(v.s)
	case ListKind:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.Repr()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case DictKind:
		parts := make([]string, 0, v.dict.Len())
		for _, k := range v.dict.keys {
			parts = append(parts, quote(k)+": "+v.dict.values[k].Repr())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case CallableKind:
		return fmt.Sprintf("<function %s>", v.name)
	}
	return ""
}

func formatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	if math.IsNaN(f) {
		return "nan"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e16 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func quote(s string) string {
	q := "'"
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		q = `"`
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	if q == "'" {
		s = strings.ReplaceAll(s, "'", `\'`)
	}
	return q + s + q
}

// TypeName returns the value's type name for error messages.
func (v Value) TypeName() string {
	switch v.kind {
	case UndefinedKind:
		return "Undefined"
	case NoneKind:
		return "NoneType"
	case BoolKind:
		return "bool"
	case IntKind:
		return "int"
	case FloatKind:
		return "float"
	case StringKind:
		return "str"
	case ListKind:
		return "list"
	case DictKind:
		return "dict"
	}
	return "function"
}

// Len returns the value's length; undefined has length zero.
func (v Value) Len() (int, error) {
	switch v.kind {
	case UndefinedKind:
		return 0, nil
	case StringKind:
		return len([]rune(v.s)), nil
	case ListKind:
		return len(v.list), nil
	case DictKind:
		return v.dict.Len(), nil
	}
	return 0, fmt.Errorf("object of type '%s' has no len()", v.TypeName())
}

// Iter returns the items produced by iterating v. Dicts iterate their keys.
func (v Value) Iter() ([]Value, error) {
	switch v.kind {
	case UndefinedKind:
		return nil, nil
	case ListKind:
		return v.list, nil
	case DictKind:
		items := make([]Value, 0, v.dict.Len())
		for _, k := range v.dict.keys {
			items = append(items, String(k))
		}
		return items, nil
	case StringKind:
		runes := []rune(v.s)
		items := make([]Value, len(runes))
		for i, r := range runes {
			items[i] = String(string(r))
		}
		return items, nil
	}
	return nil, fmt.Errorf("'%s' object is not iterable", v.TypeName())
}

// Attr looks up an attribute. Names starting with an underscore never
// resolve on undefined values.
func (v Value) Attr(name string) (Value, error) {
	switch v.kind {
	case UndefinedKind:
		if strings.HasPrefix(name, "_") {
			return Value{}, fmt.Errorf("%s has no attribute '%s'", v.undefinedName(), name)
		}
		return Undefined(""), nil
	case DictKind:
		if item, ok := v.dict.Get(name); ok {
			return item, nil
		}
		if method, ok := dictMethod(v, name); ok {
			return method, nil
		}
	case StringKind:
		if method, ok := stringMethod(v, name); ok {
			return method, nil
		}
	case ListKind:
		if method, ok := listMethod(v, name); ok {
			return method, nil
		}
	}
	return Undefined(name), nil
}

// Index looks up v[key].
func (v Value) Index(key Value) (Value, error) {
	switch v.kind {
	case UndefinedKind:
		return Undefined(""), nil
	case DictKind:
		if item, ok := v.dict.Get(key.keyString()); ok {
			return item, nil
		}
	case ListKind, StringKind:
		if key.kind != IntKind && key.kind != BoolKind {
			if key.kind == StringKind {
				return v.Attr(key.s)
			}
			return Undefined(""), nil
		}
		n, _ := v.Len()
		idx := int(key.asInt())
		if idx < 0 {
			idx += n
		}
		if idx < 0 || idx >= n {
			return Undefined(""), nil
		}
		if v.kind == ListKind {
			return v.list[idx], nil
		}
		return String(string([]rune(v.s)[idx])), nil
	}
	return Undefined(""), nil
}

func (v Value) undefinedName() string {
	if v.name != "" {
		return "'" + v.name + "'"
	}
	return "undefined value"
}

func (v Value) keyString() string {
	if v.kind == StringKind {
		return v.s
	}
	return v.Repr()
}

func (v Value) asInt() int64 {
	switch v.kind {
	case IntKind:
		return v.i
	case BoolKind:
		if v.b {
			return 1
		}
	case FloatKind:
		return int64(v.f)
	}
	return 0
}

func (v Value) asFloat() float64 {
	if v.kind == FloatKind {
		return v.f
	}
	return float64(v.asInt())
}

func (v Value) isNumber() bool {
	return v.kind == IntKind || v.kind == FloatKind || v.kind == BoolKind
}

// Equal reports template equality.
func (v Value) Equal(o Value) bool {
	if v.isNumber() && o.isNumber() {
		return v.asFloat() == o.asFloat()
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case UndefinedKind, NoneKind:
		return true
	case StringKind:
		return v.s == o.s
	case ListKind:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case DictKind:
		if v.dict.Len() != o.dict.Len() {
			return false
		}
		for _, k := range v.dict.keys {
			ov, ok := o.dict.Get(k)
			if !ok || !v.dict.values[k].Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// compare orders two values; undefined operands are an error.
func compare(a, b Value) (int, error) {
	if a.IsUndefined() {
		return 0, fmt.Errorf("%s is undefined", a.undefinedName())
	}
	if b.IsUndefined() {
		return 0, fmt.Errorf("%s is undefined", b.undefinedName())
	}
	switch {
	case a.isNumber() && b.isNumber():
		x, y := a.asFloat(), b.asFloat()
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
		return 0, nil
	case a.kind == StringKind && b.kind == StringKind:
		return strings.Compare(a.s, b.s), nil
	case a.kind == ListKind && b.kind == ListKind:
		for i := 0; i < len(a.list) && i < len(b.list); i++ {
			c, err := compare(a.list[i], b.list[i])
			if err != nil || c != 0 {
				return c, err
			}
		}
		return len(a.list) - len(b.list), nil
	}
	return 0, fmt.Errorf("'<' not supported between instances of '%s' and '%s'", a.TypeName(), b.TypeName())
}

// contains implements the "in" operator.
func contains(container, item Value) (bool, error) {
	switch container.kind {
	case UndefinedKind:
		return false, nil
	case StringKind:
		return strings.Contains(container.s, item.String()), nil
	case ListKind:
		for _, v := range container.list {
			if v.Equal(item) {
				return true, nil
			}
		}
		return false, nil
	case DictKind:
		_, ok := container.dict.Get(item.keyString())
		return ok, nil
	}
	return false, fmt.Errorf("argument of type '%s' is not iterable", container.TypeName())
}

func sortValues(items []Value) error {
	var sortErr error
	sort.SliceStable(items, func(i, j int) bool {
		c, err := compare(items[i], items[j])
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return c < 0
	})
	return sortErr
}

// FromGo converts plain Go values into template values.
func FromGo(x any) Value {
	switch t := x.(type) {
	case nil:
		return None()
	case Value:
		return t
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float64:
		return Float(t)
	case string:
		return String(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromGo(item)
		}
		return List(items)
	case []string:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = String(item)
		}
		return List(items)
	case map[string]any:
		d := NewDict()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			d.Set(k, FromGo(t[k]))
		}
		return DictValue(d)
	}
	return String(fmt.Sprint(x))
}

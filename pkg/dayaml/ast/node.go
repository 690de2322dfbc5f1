package ast

import (
	"strconv"
	"strings"
)

// Kind identifies the shape of a Node.
type Kind int

const (
	NullNode Kind = iota
	ScalarNode
	MappingNode
	SequenceNode
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case ScalarNode:
		return "scalar"
	case MappingNode:
		return "mapping"
	case SequenceNode:
		return "sequence"
	default:
		return "null"
	}
}

// Style records how a scalar was written in the source.
type Style int

const (
	PlainStyle Style = iota
	SingleQuotedStyle
	DoubleQuotedStyle
	LiteralStyle
	FoldedStyle
)

// Resolved scalar tags.
const (
	StrTag       = "!!str"
	IntTag       = "!!int"
	FloatTag     = "!!float"
	BoolTag      = "!!bool"
	NullTag      = "!!null"
	TimestampTag = "!!timestamp"
	BinaryTag    = "!!binary"
)

// Node is one value of a loaded document with its source position.
// Line and Column are relative to the chunk the node was loaded from.
type Node struct {
	Kind   Kind
	Tag    string // resolved short tag, e.g. "!!str"
	Value  string // scalar text
	Style  Style
	Line   int
	Column int
	Pairs  []Pair  // mapping entries in source order
	Items  []*Node // sequence entries
}

// Pair is one key/value entry of a mapping.
type Pair struct {
	Key   *Node
	Value *Node
}

// IsString reports whether the node is a string scalar.
func (n *Node) IsString() bool {
	return n != nil && n.Kind == ScalarNode && n.Tag == StrTag
}

// IsMapping reports whether the node is a mapping.
func (n *Node) IsMapping() bool {
	return n != nil && n.Kind == MappingNode
}

// IsSequence reports whether the node is a sequence.
func (n *Node) IsSequence() bool {
	return n != nil && n.Kind == SequenceNode
}

// Get returns the value stored under a string key, or nil.
func (n *Node) Get(key string) *Node {
	if !n.IsMapping() {
		return nil
	}
	for _, p := range n.Pairs {
		if p.Key.IsString() && p.Key.Value == key {
			return p.Value
		}
	}
	return nil
}

// Has reports whether a mapping contains a string key.
func (n *Node) Has(key string) bool {
	if !n.IsMapping() {
		return false
	}
	for _, p := range n.Pairs {
		if p.Key.IsString() && p.Key.Value == key {
			return true
		}
	}
	return false
}

// Keys returns the textual keys of a mapping in source order.
func (n *Node) Keys() []string {
	if !n.IsMapping() {
		return nil
	}
	keys := make([]string, 0, len(n.Pairs))
	for _, p := range n.Pairs {
		keys = append(keys, p.Key.Value)
	}
	return keys
}

// ContentLine returns the chunk line on which the node's text begins.
// Block scalars start on the line after their indicator.
func (n *Node) ContentLine() int {
	if n == nil {
		return 1
	}
	if n.Kind == ScalarNode && (n.Style == LiteralStyle || n.Style == FoldedStyle) {
		return n.Line + 1
	}
	return n.Line
}

// TypeName returns the scripting-language name of the node's type,
// as used in author-facing messages.
func (n *Node) TypeName() string {
	if n == nil {
		return "NoneType"
	}
	switch n.Kind {
	case MappingNode:
		return "dict"
	case SequenceNode:
		return "list"
	case NullNode:
		return "NoneType"
	}
	switch n.Tag {
	case StrTag, BinaryTag:
		return "str"
	case IntTag:
		return "int"
	case FloatTag:
		return "float"
	case BoolTag:
		return "bool"
	case NullTag:
		return "NoneType"
	case TimestampTag:
		return "datetime"
	}
	return "str"
}

// String renders the node the way the interview engine would print the
// equivalent value, e.g. {'a': 1} or ['x', 'y'].
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb, false)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder, quoted bool) {
	if n == nil {
		sb.WriteString("None")
		return
	}
	switch n.Kind {
	case NullNode:
		sb.WriteString("None")
	case MappingNode:
		sb.WriteByte('{')
		for i, p := range n.Pairs {
			if i > 0 {
				sb.WriteString(", ")
			}
			p.Key.write(sb, true)
			sb.WriteString(": ")
			p.Value.write(sb, true)
		}
		sb.WriteByte('}')
	case SequenceNode:
		sb.WriteByte('[')
		for i, item := range n.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.write(sb, true)
		}
		sb.WriteByte(']')
	default:
		switch n.Tag {
		case NullTag:
			sb.WriteString("None")
		case BoolTag:
			if b, err := strconv.ParseBool(strings.ToLower(n.Value)); err == nil && b {
				sb.WriteString("True")
			} else {
				sb.WriteString("False")
			}
		case IntTag, FloatTag:
			sb.WriteString(n.Value)
		default:
			if quoted {
				sb.WriteString(QuoteString(n.Value))
			} else {
				sb.WriteString(n.Value)
			}
		}
	}
}

// QuoteString quotes s with single quotes, switching to double quotes when s
// contains a single quote and no double quote.
func QuoteString(s string) string {
	q := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		q = '"'
	}
	var sb strings.Builder
	sb.WriteByte(q)
	for _, r := range s {
		switch {
		case r == '\\':
			sb.WriteString(`\\`)
		case r == rune(q):
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte(q)
	return sb.String()
}

// QuoteList renders names as a bracketed list of quoted strings.
func QuoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = QuoteString(name)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

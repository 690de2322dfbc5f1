package parser

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"dayaml-tools/checker/pkg/dayaml/ast"
)

// ParseError is a failure to load a chunk. Line is chunk-local.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

var yamlLinePrefix = regexp.MustCompile(`^yaml: line (\d+): `)

// Load parses one chunk. An empty or comment-only chunk yields nil, nil.
func Load(text string) (*ast.Node, error) {
	return newLoader(defaultMaxDepth).load(text)
}

const defaultMaxDepth = 200

type loader struct {
	maxDepth int
	anchors  map[*yaml.Node]*ast.Node
}

func newLoader(maxDepth int) *loader {
	return &loader{
		maxDepth: maxDepth,
		anchors:  make(map[*yaml.Node]*ast.Node),
	}
}

func (l *loader) load(text string) (*ast.Node, error) {
	dec := yaml.NewDecoder(strings.NewReader(text))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, yamlError(err)
	}
	if err := singleDocument(dec, doc.Line); err != nil {
		return nil, err
	}

	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, nil
		}
		root = root.Content[0]
	}
	if root.Kind == 0 {
		return nil, nil
	}

	if err := checkDuplicates(root, 0); err != nil {
		return nil, err
	}

	node, err := l.convert(root, 0)
	if err != nil {
		return nil, err
	}
	if node.Kind == ast.NullNode || (node.Kind == ast.ScalarNode && node.Tag == ast.NullTag) {
		return nil, nil
	}
	return node, nil
}

// singleDocument fails when the stream holds another document after the
// first one. The separators Split recognizes never reach the loader, so a
// second document comes from a marker such as "--- # note" or "...".
func singleDocument(dec *yaml.Decoder, firstLine int) error {
	var next yaml.Node
	err := dec.Decode(&next)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return yamlError(err)
	}
	line := next.Line
	if line == 0 && len(next.Content) > 0 {
		line = next.Content[0].Line
	}
	line = max(line, firstLine, 1)
	return &ParseError{
		Line:    line,
		Column:  1,
		Message: fmt.Sprintf("expected a single document in the stream, but found another document at line %d", line),
	}
}

// yamlError turns a yaml.v3 error into a ParseError with a chunk line.
func yamlError(err error) *ParseError {
	msg := strings.TrimSpace(err.Error())
	if m := yamlLinePrefix.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return &ParseError{Line: line, Message: msg[len(m[0]):]}
	}
	return &ParseError{Line: 1, Message: strings.TrimPrefix(msg, "yaml: ")}
}

// checkDuplicates reports the first mapping that repeats a scalar key.
func checkDuplicates(n *yaml.Node, depth int) error {
	if n == nil || depth > defaultMaxDepth {
		return nil
	}
	if n.Kind == yaml.MappingNode {
		seen := make(map[string]bool, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				continue
			}
			if seen[key.Value] {
				return &ParseError{
					Line:    key.Line,
					Column:  key.Column,
					Message: fmt.Sprintf("while constructing a mapping: found duplicate key %q", key.Value),
				}
			}
			seen[key.Value] = true
		}
	}
	for _, child := range n.Content {
		if err := checkDuplicates(child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) convert(n *yaml.Node, depth int) (*ast.Node, error) {
	if depth > l.maxDepth {
		return nil, &ParseError{Line: n.Line, Column: n.Column, Message: fmt.Sprintf("document nested deeper than %d levels", l.maxDepth)}
	}

	switch n.Kind {
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, &ParseError{Line: n.Line, Column: n.Column, Message: fmt.Sprintf("found undefined alias %q", n.Value)}
		}
		if converted, ok := l.anchors[n.Alias]; ok {
			return converted, nil
		}
		return l.convert(n.Alias, depth+1)

	case yaml.ScalarNode:
		tag := n.ShortTag()
		if strings.HasPrefix(tag, "!") && !strings.HasPrefix(tag, "!!") {
			return nil, &ParseError{Line: n.Line, Column: n.Column, Message: fmt.Sprintf("could not determine a constructor for the tag '%s'", tag)}
		}
		out := &ast.Node{
			Kind:   ast.ScalarNode,
			Tag:    tag,
			Value:  n.Value,
			Style:  scalarStyle(n.Style),
			Line:   n.Line,
			Column: n.Column,
		}
		if tag == ast.NullTag {
			out.Kind = ast.NullNode
		}
		l.remember(n, out)
		return out, nil

	case yaml.SequenceNode:
		out := &ast.Node{Kind: ast.SequenceNode, Tag: "!!seq", Line: n.Line, Column: n.Column}
		l.remember(n, out)
		for _, child := range n.Content {
			item, err := l.convert(child, depth+1)
			if err != nil {
				return nil, err
			}
			out.Items = append(out.Items, item)
		}
		return out, nil

	case yaml.MappingNode:
		out := &ast.Node{Kind: ast.MappingNode, Tag: "!!map", Line: n.Line, Column: n.Column}
		l.remember(n, out)
		var merged []ast.Pair
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valueNode := n.Content[i], n.Content[i+1]
			if keyNode.Kind == yaml.ScalarNode && keyNode.ShortTag() == "!!merge" {
				pairs, err := l.mergePairs(valueNode, depth+1)
				if err != nil {
					return nil, err
				}
				merged = append(merged, pairs...)
				continue
			}
			key, err := l.convert(keyNode, depth+1)
			if err != nil {
				return nil, err
			}
			value, err := l.convert(valueNode, depth+1)
			if err != nil {
				return nil, err
			}
			out.Pairs = append(out.Pairs, ast.Pair{Key: key, Value: value})
		}
		out.Pairs = applyMerge(merged, out.Pairs)
		return out, nil
	}

	return &ast.Node{Kind: ast.NullNode, Line: n.Line, Column: n.Column}, nil
}

func (l *loader) remember(n *yaml.Node, out *ast.Node) {
	if n.Anchor != "" {
		l.anchors[n] = out
	}
}

// mergePairs collects the entries referenced by a "<<" key.
func (l *loader) mergePairs(n *yaml.Node, depth int) ([]ast.Pair, error) {
	value, err := l.convert(n, depth)
	if err != nil {
		return nil, err
	}
	switch value.Kind {
	case ast.MappingNode:
		return value.Pairs, nil
	case ast.SequenceNode:
		var pairs []ast.Pair
		for _, item := range value.Items {
			if !item.IsMapping() {
				return nil, &ParseError{Line: item.Line, Column: item.Column, Message: "expected a mapping for merging"}
			}
			pairs = applyMerge(pairs, item.Pairs)
		}
		return pairs, nil
	}
	return nil, &ParseError{Line: n.Line, Column: n.Column, Message: "expected a mapping or list of mappings for merging"}
}

// applyMerge places inherited entries ahead of explicit ones, dropping
// inherited keys that are set explicitly.
func applyMerge(inherited, explicit []ast.Pair) []ast.Pair {
	if len(inherited) == 0 {
		return explicit
	}
	set := make(map[string]bool, len(explicit))
	for _, p := range explicit {
		set[p.Key.Value] = true
	}
	out := make([]ast.Pair, 0, len(inherited)+len(explicit))
	for _, p := range inherited {
		if !set[p.Key.Value] {
			out = append(out, p)
			set[p.Key.Value] = true
		}
	}
	return append(out, explicit...)
}

func scalarStyle(s yaml.Style) ast.Style {
	switch {
	case s&yaml.LiteralStyle != 0:
		return ast.LiteralStyle
	case s&yaml.FoldedStyle != 0:
		return ast.FoldedStyle
	case s&yaml.SingleQuotedStyle != 0:
		return ast.SingleQuotedStyle
	case s&yaml.DoubleQuotedStyle != 0:
		return ast.DoubleQuotedStyle
	}
	return ast.PlainStyle
}

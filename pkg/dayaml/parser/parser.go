package parser

import (
	"dayaml-tools/checker/pkg/dayaml/ast"
)

// Document is one loaded chunk of an interview file.
type Document struct {
	Root   *ast.Node   // nil when the chunk holds only comments
	Offset int         // absolute file line of chunk line 1
	Err    *ParseError // set when the chunk failed to load
	Text   string      // normalized chunk text
}

// AbsLine converts a chunk-local line into an absolute file line.
func (d *Document) AbsLine(local int) int {
	if local < 1 {
		local = 1
	}
	return d.Offset + local - 1
}

// Parser splits and loads interview files.
type Parser struct {
	maxDepth int // Maximum nesting depth of a document (default: 200)
}

// NewParser creates a new parser with default configuration.
func NewParser() *Parser {
	return &Parser{
		maxDepth: defaultMaxDepth,
	}
}

// WithMaxDepth sets the maximum document nesting depth.
func (p *Parser) WithMaxDepth(depth int) *Parser {
	if depth > 0 {
		p.maxDepth = depth
	}
	return p
}

// ParseString splits text into chunks and loads every chunk. A chunk that
// fails to load is returned with Err set so later chunks are still checked.
func (p *Parser) ParseString(text string) []*Document {
	chunks := Split(text)
	docs := make([]*Document, 0, len(chunks))
	for _, chunk := range chunks {
		doc := &Document{Offset: chunk.Offset, Text: chunk.Text}
		root, err := newLoader(p.maxDepth).load(chunk.Text)
		if err != nil {
			if pe, ok := err.(*ParseError); ok {
				doc.Err = pe
			} else {
				doc.Err = &ParseError{Line: 1, Message: err.Error()}
			}
		} else {
			doc.Root = root
		}
		docs = append(docs, doc)
	}
	return docs
}

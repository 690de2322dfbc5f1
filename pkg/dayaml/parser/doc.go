// Package parser splits interview files into YAML documents and loads each
// document into a position-annotated ast.Node tree.
//
// # Line arithmetic
//
// A file is split on lines consisting of exactly "---" (optionally followed by
// spaces). Every chunk keeps the text between separators, so a chunk after the
// first starts with the newline that ended its separator line. Chunk line 1 is
// therefore the separator line itself, and a node on chunk line L sits on file
// line Offset+L-1. The offset of the next chunk advances by the number of
// newlines in the current one.
//
// # Basic Usage
//
//	p := parser.NewParser()
//	for _, doc := range p.ParseString(text) {
//	    if doc.Err != nil {
//	        fmt.Println("line", doc.AbsLine(doc.Err.Line), doc.Err.Message)
//	        continue
//	    }
//	    if doc.Root == nil {
//	        continue // comments only
//	    }
//	    fmt.Println(doc.Root.Keys())
//	}
package parser

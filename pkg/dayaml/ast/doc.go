// Package ast provides the position-annotated document tree produced by the
// interview YAML loader.
//
// Every node carries the 1-based line and column where it starts in its
// chunk, so validators never have to smuggle line metadata into the mapping's
// own key space.
//
// # Core Types
//
// Node: a scalar, mapping, sequence or null value
//
// Pair: one key/value entry of a mapping, in source order
//
// Location: source location (file, line, column)
//
// # Basic Usage
//
//	doc, err := parser.Load(chunk)
//	if err != nil {
//	    return err
//	}
//	if fields := doc.Get("fields"); fields != nil {
//	    fmt.Println("fields start on line", fields.Line)
//	}
package ast

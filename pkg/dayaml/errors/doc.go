// Package errors provides the finding types produced while checking interview files.
//
// Validators return Findings whose lines are relative to the value they
// inspected. The document validator converts them into Errors carrying an
// absolute file location, and an ErrorList collects them in document order.
//
// # Error Types
//
// ErrorTypeSyntax: malformed YAML text, duplicate keys, template rendering failures
//
// ErrorTypeStructural: unrecognized keys, block-type conflicts, malformed shapes
//
// ErrorTypeEmbedded: syntax failures in embedded script, template or expression fragments
//
// ErrorTypeSemantic: heuristic findings such as scope mismatches (experimental)
//
// ErrorTypeIO: file I/O errors
//
// # Basic Usage
//
//	list := errors.NewErrorList()
//	list.AddError(errors.ErrorTypeStructural, "Keys that shouldn't exist! ['qustion']", loc)
//	for _, e := range list.Errors {
//	    fmt.Println(e)
//	}
package errors

// Package dayaml finds mistakes in docassemble interview files before they
// are run.
//
// A file is checked in four stages:
//
//  1. Template preprocessing: files that opt in with a "# use jinja" first
//     line are rendered with every variable undefined.
//  2. Splitting and loading: the text is split on "---" lines and each
//     document is loaded into a position-annotated tree.
//  3. Classification: each document must be recognizable as exactly one
//     kind of block, and every key must be a known interview key.
//  4. Key validation: values of keys such as "code", "question" and
//     "fields" are checked, including the embedded Python, Mako and
//     JavaScript fragments and the on-screen scope of visibility modifiers.
//
// # Basic Usage
//
//	for _, e := range dayaml.FindErrorsFromString(text, "interview.yml") {
//	    fmt.Println(e)
//	}
//
// A Checker adds logging and metrics:
//
//	checker := dayaml.NewChecker(dayaml.WithLogger(logger))
//	result := checker.Check(ctx, "interview.yml", text)
//
// Findings with Experimental set are heuristic and may be false positives;
// the rest are real errors.
package dayaml

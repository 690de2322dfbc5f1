package validator

import (
	"fmt"

	"dayaml-tools/checker/pkg/dayaml/ast"
	"dayaml-tools/checker/pkg/dayaml/errors"
)

// Classification is the block-type analysis of one document.
type Classification struct {
	Types     []string // recognized block types present, in table order
	Exclusive []string // exclusive subset of Types
	Unknown   []string // keys outside the recognized key set, in document order
}

// Classify computes the block types and unrecognized keys of a document root.
func Classify(root *ast.Node) Classification {
	var c Classification
	for _, rule := range BlockTypes {
		if !root.Has(rule.Name) {
			continue
		}
		c.Types = append(c.Types, rule.Name)
		if rule.Exclusive {
			c.Exclusive = append(c.Exclusive, rule.Name)
		}
	}

	for _, p := range root.Pairs {
		if !p.Key.IsString() {
			// Non-string keys (booleans, numbers) never name an interview key.
			c.Unknown = append(c.Unknown, p.Key.String())
			continue
		}
		if !IsKnownKey(p.Key.Value) {
			c.Unknown = append(c.Unknown, p.Key.Value)
		}
	}
	return c
}

// Conflict reports whether the exclusive types present cannot coexist.
func (c Classification) Conflict() bool {
	if len(c.Exclusive) <= 1 {
		return false
	}
	if len(c.Exclusive) == 2 {
		first, _ := blockRule(c.Exclusive[0])
		return !first.IsPartner(c.Exclusive[1])
	}
	return true
}

// classifyFindings returns the block-level findings at relative line 1.
func classifyFindings(root *ast.Node) []errors.Finding {
	c := Classify(root)
	var findings []errors.Finding

	if len(c.Types) == 0 {
		findings = append(findings, errors.Findingf(errors.ErrorTypeStructural, 1,
			"No possible types found: %s", root))
	}
	if c.Conflict() {
		findings = append(findings, errors.Findingf(errors.ErrorTypeStructural, 1,
			"Too many types this block could be: %s", ast.QuoteList(c.Exclusive)))
	}
	if len(c.Unknown) > 0 {
		f := errors.Finding{
			Type:       errors.ErrorTypeStructural,
			Message:    fmt.Sprintf("Keys that shouldn't exist! %s", ast.QuoteList(c.Unknown)),
			Line:       1,
			Suggestion: errors.SuggestKeys(c.Unknown, KnownKeys()),
		}
		findings = append(findings, f)
	}
	return findings
}

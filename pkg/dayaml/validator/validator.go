package validator

import (
	"dayaml-tools/checker/pkg/dayaml/errors"
	"dayaml-tools/checker/pkg/dayaml/parser"
)

// Validator checks loaded documents. It holds no per-document state and is
// safe for concurrent use.
type Validator struct {
	classify bool
}

// New creates a validator with block classification enabled.
func New() *Validator {
	return &Validator{classify: true}
}

// WithoutClassification disables the block-type and unknown-key checks,
// leaving only the per-key validators.
func (v *Validator) WithoutClassification() *Validator {
	v.classify = false
	return v
}

// ValidateDocument returns the findings for one document with absolute file
// lines, in document order. A document that failed to load yields exactly
// its parse error.
func (v *Validator) ValidateDocument(doc *parser.Document) []errors.Finding {
	if doc.Err != nil {
		return []errors.Finding{{
			Type:    errors.ErrorTypeSyntax,
			Message: doc.Err.Message,
			Line:    doc.AbsLine(doc.Err.Line),
		}}
	}
	root := doc.Root
	if root == nil {
		return nil
	}
	if !root.IsMapping() {
		return []errors.Finding{errors.Findingf(errors.ErrorTypeStructural, doc.AbsLine(root.Line),
			"Document should be a mapping of keys to values, is %s", root.TypeName())}
	}

	var findings []errors.Finding
	if v.classify {
		findings = append(findings, errors.Shift(classifyFindings(root), doc.AbsLine(root.Line))...)
	}
	for _, p := range root.Pairs {
		if !p.Key.IsString() {
			continue
		}
		rel := Validate(p.Key.Value, p.Value)
		if len(rel) == 0 {
			continue
		}
		findings = append(findings, errors.Shift(rel, doc.AbsLine(p.Value.ContentLine()))...)
	}
	return findings
}

// ValidateDocuments validates every document in order.
func (v *Validator) ValidateDocuments(docs []*parser.Document) []errors.Finding {
	var findings []errors.Finding
	for _, doc := range docs {
		findings = append(findings, v.ValidateDocument(doc)...)
	}
	return findings
}

package validator

import (
	"dayaml-tools/checker/pkg/dayaml/ast"
	"dayaml-tools/checker/pkg/dayaml/errors"
	"dayaml-tools/checker/pkg/dayaml/lang/mako"
)

// validateMako checks question prose. Numbers and booleans are rendered as
// text by the interview engine, so any scalar is accepted.
func validateMako(n *ast.Node) []errors.Finding {
	if n == nil || n.Kind == ast.NullNode {
		return nil
	}
	if n.Kind != ast.ScalarNode {
		return []errors.Finding{errors.Findingf(errors.ErrorTypeStructural, 1, "%s isn't a string", n)}
	}
	if serr := mako.Check(n.Value); serr != nil {
		return []errors.Finding{errors.Findingf(errors.ErrorTypeEmbedded, serr.Line,
			"%s at line: %d char: %d", serr.Message, serr.Line, serr.Column)}
	}
	return nil
}

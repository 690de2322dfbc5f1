package validator

import (
	"dayaml-tools/checker/pkg/dayaml/ast"
	"dayaml-tools/checker/pkg/dayaml/errors"
	"dayaml-tools/checker/pkg/dayaml/lang/jsexpr"
)

// validateJSModifier checks one browser-side modifier value. Lines are
// relative to the expression. Scope is checked only when the screen defines
// at least one variable.
func validateJSModifier(key string, n *ast.Node, screen *ScreenVariables) ([]errors.Finding, []string) {
	if !n.IsString() {
		return []errors.Finding{errors.Findingf(errors.ErrorTypeStructural, 1,
			"%s must be a string, is %s", key, n.TypeName())}, nil
	}

	result, serr := jsexpr.Check(n.Value)
	if serr != nil {
		return []errors.Finding{errors.Findingf(errors.ErrorTypeEmbedded, serr.Line,
			"Invalid JavaScript syntax in %s: %s", key, serr.Message)}, nil
	}

	var findings []errors.Finding
	if len(result.ValCalls) == 0 {
		findings = append(findings, errors.Findingf(errors.ErrorTypeSemantic, 1,
			"%s must contain at least one %s() call to reference an on-screen field", key, jsexpr.ReferenceFunction))
	}

	var refs []string
	for _, call := range result.ValCalls {
		if !call.Literal {
			findings = append(findings, errors.Findingf(errors.ErrorTypeEmbedded, call.Line,
				`val() argument must be a quoted string literal, not "%s". Use val("...") or val('...') instead`, call.Raw))
			continue
		}
		refs = append(refs, call.Name)
		if screen.Len() > 0 && !screen.References(call.Name) {
			findings = append(findings, errors.Findingf(errors.ErrorTypeSemantic, call.Line,
				`%s references val("%s"), but "%s" is not defined on this screen`, key, call.Name, call.Name))
		}
	}
	return findings, refs
}

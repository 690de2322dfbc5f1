package validator

import (
	"dayaml-tools/checker/pkg/dayaml/ast"
	"dayaml-tools/checker/pkg/dayaml/errors"
	"dayaml-tools/checker/pkg/dayaml/lang/python"
)

const (
	validationErrorFunc = "validation_error"
	defineFunc          = "define"
)

func validatePython(n *ast.Node) []errors.Finding {
	if !n.IsString() {
		return []errors.Finding{errors.Findingf(errors.ErrorTypeStructural, 1,
			"code block must be a YAML string, is %s", n.TypeName())}
	}
	if serr := python.Check(n.Value); serr != nil {
		return []errors.Finding{errors.Findingf(errors.ErrorTypeEmbedded, serr.Line,
			"Python syntax error: %s", serr.Message)}
	}
	return nil
}

// validateValidationCode checks syntax, then warns when the code never
// reports a failure. Pure transformations (assignments, define() or other
// call statements, without raise or assert) are not expected to report.
func validateValidationCode(n *ast.Node) []errors.Finding {
	if findings := validatePython(n); len(findings) > 0 {
		return findings
	}
	facts, serr := python.Analyze(n.Value)
	if serr != nil || facts.CallsFunction(validationErrorFunc) {
		return nil
	}
	transform := facts.HasAssignment || facts.CallsFunction(defineFunc) || facts.HasExprCall
	if transform && !facts.HasRaiseOrAssert {
		return nil
	}
	return []errors.Finding{errors.Findingf(errors.ErrorTypeSemantic, 1,
		"validation code does not call validation_error(); consider calling validation_error(...) to provide user-facing error messages")}
}

package validator

import (
	"regexp"
	"strings"

	"dayaml-tools/checker/pkg/dayaml/ast"
	"dayaml-tools/checker/pkg/dayaml/errors"
)

// quotedSpace matches a name whose only spaces sit inside a quoted subscript,
// e.g. x['first name'].
var quotedSpace = regexp.MustCompile(`^[^ ]*['"].* .*['"][^ ]*$`)

func validateString(n *ast.Node) []errors.Finding {
	if n.IsString() {
		return nil
	}
	return []errors.Finding{errors.Findingf(errors.ErrorTypeStructural, 1, "%s isn't a string", n)}
}

func validatePythonVar(n *ast.Node) []errors.Finding {
	if !n.IsString() {
		return []errors.Finding{errors.Findingf(errors.ErrorTypeStructural, 1,
			"The python var needs to be a YAML string, is %s", n)}
	}
	if strings.Contains(n.Value, " ") && !quotedSpace.MatchString(n.Value) {
		return []errors.Finding{errors.Findingf(errors.ErrorTypeStructural, 1,
			"The python var cannot have whitespace (is %s)", n.Value)}
	}
	return nil
}

func validateObjects(n *ast.Node) []errors.Finding {
	if n.IsSequence() || n.IsMapping() {
		return nil
	}
	return []errors.Finding{errors.Findingf(errors.ErrorTypeStructural, 1,
		"Objects block needs to be a list or a dict, is %s", n)}
}

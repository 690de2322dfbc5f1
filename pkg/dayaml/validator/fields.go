package validator

import (
	"fmt"
	"strings"

	"dayaml-tools/checker/pkg/dayaml/ast"
	"dayaml-tools/checker/pkg/dayaml/errors"
)

// maxVisibilityDepth is the longest show/hide dependency chain accepted on
// one screen without a warning.
const maxVisibilityDepth = 2

const dynamicWarningPrefix = "Warning: unable to fully validate screen variables because this screen adds fields from code; "

var (
	// modifierKeys never name the variable a field sets.
	modifierKeys = setOf(
		"default", "default value", "hint", "help", "label", "datatype", "choices",
		"validation code", "show if", "hide if", "js show if", "js hide if",
		"enable if", "disable if", "js enable if", "js disable if",
	)

	jsModifierKeys     = []string{"js show if", "js hide if", "js enable if", "js disable if"}
	scriptModifierKeys = []string{"show if", "hide if", "enable if", "disable if"}

	// visibilityKeys feed the nesting analysis.
	visibilityKeys = setOf("show if", "hide if", "js show if", "js hide if")

	// fieldItemKeys may appear inside a single field mapping.
	fieldItemKeys = union(modifierKeys, setOf(
		"field", "input type", "note", "html", "raw html", "address autocomplete",
		"object", "object multiselect", "object radio", "uncheck others", "shuffle",
		"required", "read only", "min", "max",
	))
)

func setOf(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

func union(a, b map[string]bool) map[string]bool {
	m := make(map[string]bool, len(a)+len(b))
	for k := range a {
		m[k] = true
	}
	for k := range b {
		m[k] = true
	}
	return m
}

// validateFields checks a "fields" value. A mapping is either a code
// reference or a single field; a sequence gets the full modifier analysis.
func validateFields(n *ast.Node) []errors.Finding {
	switch {
	case n.IsMapping():
		if n.Has("code") {
			if code := n.Get("code"); !code.IsString() {
				return []errors.Finding{errors.Findingf(errors.ErrorTypeStructural, 1,
					"fields: code must be a YAML string, is %s", code.TypeName())}
			}
			return nil
		}
		for _, k := range n.Keys() {
			if fieldItemKeys[k] {
				return nil
			}
		}
		return []errors.Finding{errors.Findingf(errors.ErrorTypeStructural, 1,
			`fields dict must have "code" key, is %s`, n)}
	case n.IsSequence():
		return newFieldAnalyzer(n).run()
	default:
		return []errors.Finding{errors.Findingf(errors.ErrorTypeStructural, 1,
			"fields should be a list or dict, is %s", n)}
	}
}

// fieldAnalyzer checks the visibility modifiers of one fields list against
// the variables the list defines.
type fieldAnalyzer struct {
	fields   *ast.Node
	screen   *ScreenVariables
	findings []errors.Finding

	// deps maps a field's variable to the on-screen variables its
	// show/hide modifiers read.
	deps      map[string][]string
	depsLines map[string]int
}

func newFieldAnalyzer(fields *ast.Node) *fieldAnalyzer {
	return &fieldAnalyzer{
		fields:    fields,
		screen:    screenVariables(fields),
		deps:      make(map[string][]string),
		depsLines: make(map[string]int),
	}
}

// screenVariables collects the variable of every field. Entries supplying
// fields from code make the set incomplete.
func screenVariables(fields *ast.Node) *ScreenVariables {
	screen := NewScreenVariables()
	for _, item := range fields.Items {
		if !item.IsMapping() {
			continue
		}
		if item.Has("code") {
			screen.Dynamic = true
			continue
		}
		if name, ok := fieldName(item); ok {
			screen.Add(name)
		}
	}
	return screen
}

// fieldName returns the value of the first string-valued, non-modifier key.
func fieldName(item *ast.Node) (string, bool) {
	for _, p := range item.Pairs {
		if p.Key.IsString() && modifierKeys[p.Key.Value] {
			continue
		}
		if p.Value.IsString() {
			return p.Value.Value, true
		}
	}
	return "", false
}

// lineFor maps a line inside a field's modifier to a line relative to the
// fields value.
func (a *fieldAnalyzer) lineFor(item *ast.Node, inner int) int {
	return item.Line - a.fields.ContentLine() + 1 + max(inner-1, 0)
}

func (a *fieldAnalyzer) add(item *ast.Node, f errors.Finding) {
	f.Line = a.lineFor(item, f.Line)
	a.findings = append(a.findings, f)
}

// scopeMiss records a reference to a variable the screen does not define.
// When the screen adds fields from code the miss may be a false positive.
func (a *fieldAnalyzer) scopeMiss(item *ast.Node, inner int, msg string) {
	if a.screen.Dynamic {
		msg = dynamicWarningPrefix + msg
	}
	a.add(item, errors.Finding{Type: errors.ErrorTypeSemantic, Message: msg, Line: inner})
}

func (a *fieldAnalyzer) run() []errors.Finding {
	for _, item := range a.fields.Items {
		if !item.IsMapping() {
			continue
		}
		name, _ := fieldName(item)

		for _, key := range jsModifierKeys {
			value := item.Get(key)
			if value == nil {
				continue
			}
			findings, refs := validateJSModifier(key, value, a.screen)
			for _, f := range findings {
				if f.Type == errors.ErrorTypeSemantic && strings.Contains(f.Message, "is not defined on this screen") {
					a.scopeMiss(item, f.Line, f.Message)
					continue
				}
				a.add(item, f)
			}
			if visibilityKeys[key] {
				a.depend(item, name, refs...)
			}
		}

		for _, key := range scriptModifierKeys {
			value := item.Get(key)
			if value == nil {
				continue
			}
			ref := a.scriptModifier(item, key, value)
			if ref != "" && visibilityKeys[key] {
				a.depend(item, name, ref)
			}
		}
	}

	a.checkNesting()
	return a.findings
}

// scriptModifier validates a server-side modifier and returns the variable it
// reads directly, if any. Code forms may read variables from earlier
// screens, so only their syntax is checked.
func (a *fieldAnalyzer) scriptModifier(item *ast.Node, key string, value *ast.Node) string {
	notDefined := func(what string) string {
		return fmt.Sprintf("%s: %s is not defined on this screen. Use %s: { code: ... } instead for variables from previous screens",
			key, what, key)
	}

	switch {
	case value.IsMapping() && value.Has("variable") && !value.Has("code"):
		ref := value.Get("variable")
		if !ref.IsString() {
			a.add(item, errors.Findingf(errors.ErrorTypeStructural, 1,
				"%s: variable must be a string, got %s", key, ref.TypeName()))
			return ""
		}
		if !a.screen.References(ref.Value) {
			a.scopeMiss(item, 1, notDefined("variable: "+ref.Value))
		}
		return ref.Value

	case value.IsMapping() && value.Has("code"):
		for _, f := range validatePython(value.Get("code")) {
			f.Message = fmt.Sprintf("%s: code has %s", key, strings.ToLower(f.Message))
			a.add(item, f)
		}
		return ""

	case value.IsMapping():
		a.add(item, errors.Findingf(errors.ErrorTypeStructural, 1,
			`%s dict must have either "variable" or "code"`, key))
		return ""

	case value.IsString():
		text := value.Value
		if strings.HasPrefix(text, "variable:") || strings.HasPrefix(text, "code:") {
			a.add(item, errors.Findingf(errors.ErrorTypeStructural, 1,
				`%s value "%s" appears to be malformed. Use YAML dict syntax: %s: { variable: var_name, is: value } or %s: { code: ... }`,
				key, text, key, key))
			return ""
		}
		if strings.Contains(text, ":") {
			return ""
		}
		if !a.screen.References(text) {
			a.scopeMiss(item, 1, notDefined(text))
		}
		return text
	}
	return ""
}

// depend records that the field named name is shown or hidden by refs.
func (a *fieldAnalyzer) depend(item *ast.Node, name string, refs ...string) {
	if name == "" {
		return
	}
	for _, ref := range refs {
		target, ok := a.screen.Resolve(ref)
		if !ok || target == name {
			continue
		}
		a.deps[name] = append(a.deps[name], target)
		if _, seen := a.depsLines[name]; !seen {
			a.depsLines[name] = a.lineFor(item, 1)
		}
	}
}

// checkNesting warns once when the longest show/hide chain on the screen is
// deeper than maxVisibilityDepth.
func (a *fieldAnalyzer) checkNesting() {
	if len(a.deps) == 0 {
		return
	}
	memo := make(map[string]int)
	visiting := make(map[string]bool)
	var depth func(name string) int
	depth = func(name string) int {
		if d, ok := memo[name]; ok {
			return d
		}
		if visiting[name] {
			return 0
		}
		visiting[name] = true
		d := 0
		for _, dep := range a.deps[name] {
			d = max(d, depth(dep)+1)
		}
		visiting[name] = false
		memo[name] = d
		return d
	}

	deepest, line := 0, 1
	for _, name := range a.screen.Names() {
		if d := depth(name); d > deepest {
			deepest, line = d, a.depsLines[name]
		}
	}
	if deepest > maxVisibilityDepth {
		a.findings = append(a.findings, errors.Findingf(errors.ErrorTypeSemantic, line,
			"Warning: field visibility logic is nested %d levels deep on this screen; consider simplifying the show if and hide if conditions", deepest))
	}
}

package validator

import (
	"strings"
)

// ScreenVariables is the set of variable names the fields of one screen
// define. Dynamic is set when a "code" entry adds fields that cannot be
// known statically.
type ScreenVariables struct {
	names   map[string]bool
	order   []string
	Dynamic bool
}

// NewScreenVariables creates an empty set.
func NewScreenVariables() *ScreenVariables {
	return &ScreenVariables{names: make(map[string]bool)}
}

// Add records a variable defined on the screen.
func (s *ScreenVariables) Add(name string) {
	if !s.names[name] {
		s.names[name] = true
		s.order = append(s.order, name)
	}
}

// Len returns the number of names.
func (s *ScreenVariables) Len() int {
	return len(s.order)
}

// Names returns the names in the order the fields define them.
func (s *ScreenVariables) Names() []string {
	return s.order
}

// References reports whether expr names a variable on the screen. Besides an
// exact match it accepts any dotted prefix of expr, the same with trailing
// [...] subscripts removed, and the generic-object alias where x.attr
// matches any screen variable ending in .attr and the other way around.
func (s *ScreenVariables) References(expr string) bool {
	_, ok := s.Resolve(expr)
	return ok
}

// Resolve returns the screen variable expr refers to, using the same
// matching rules as References.
func (s *ScreenVariables) Resolve(expr string) (string, bool) {
	candidates := Candidates(expr)
	for _, c := range candidates {
		if s.names[c] {
			return c, true
		}
	}

	for _, c := range candidates {
		if rest, ok := strings.CutPrefix(c, "x."); ok {
			for _, name := range s.order {
				if strings.HasSuffix(name, "."+rest) {
					return name, true
				}
			}
		}
	}
	for _, name := range s.order {
		if rest, ok := strings.CutPrefix(name, "x."); ok {
			for _, c := range candidates {
				if strings.HasSuffix(c, "."+rest) {
					return name, true
				}
			}
		}
	}
	return "", false
}

// Candidates expands a variable expression into the names it may refer to:
//
//	children[i].parents["Other"]
//	children[i].parents
//	children[i]
//	children
func Candidates(expr string) []string {
	expr = strings.TrimSpace(expr)
	seen := make(map[string]bool)
	var out []string
	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}

	prefixes := []string{expr}
	if strings.Contains(expr, ".") {
		parts := strings.Split(expr, ".")
		for i := len(parts); i > 0; i-- {
			prefixes = append(prefixes, strings.Join(parts[:i], "."))
		}
	}

	for _, c := range prefixes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		add(c)
		for strings.HasSuffix(c, "]") && strings.Contains(c, "[") {
			c = strings.TrimSpace(c[:strings.LastIndex(c, "[")])
			add(c)
		}
	}
	return out
}

package mako

import (
	"strings"
	"testing"
)

func TestCheckValid(t *testing.T) {
	valid := []string{
		"Hello, ${ user.name }!",
		"Plain text with no template syntax.",
		"% if user.age > 18:\nAdult\n% elif user.age > 12:\nTeen\n% else:\nChild\n% endif\n",
		"% for item in items:\n* ${ item }\n% endfor\n",
		"${ amount | h }",
		"${ {'a': 1}['a'] }",
		"## a template comment\nText",
		"100%% sure",
		"<%doc>\n${ not checked\n</%doc>\nAfter",
		"<%\n  total = sum(values)\n%>\nTotal: ${ total }",
		`<%def name="greet()">Hi</%def>${ greet() }`,
		"Line one \\\ncontinued",
	}
	for _, text := range valid {
		if err := Check(text); err != nil {
			t.Errorf("Check(%q) = %v, want nil", text, err)
		}
	}
}

func TestCheckErrors(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantLine int
		wantMsg  string
	}{
		{"unterminated if", "Intro\n% if x:\nYes\n", 2, "Unterminated control keyword: 'if'"},
		{"end without start", "Text\n% endif\n", 2, "No starting keyword 'if'"},
		{"mismatched end", "% for x in y:\n% endif\n", 2, "doesn't match keyword 'for'"},
		{"missing colon", "% if x\nYes\n% endif\n", 1, "is not a partial control statement"},
		{"bad ternary", "% for x in y:\n% elif z:\n% endfor\n", 2, "not a legal ternary"},
		{"unclosed expression", "Hello\n${ name\n", 2, "Expected"},
		{"bad expression", "Line 1\nLine 2 ${ a + }\n", 2, "SyntaxError"},
		{"unknown tag", "<%foo/>", 1, "No such tag"},
		{"unclosed tag", "\n<%def name=\"x()\">\nbody\n", 2, "Unclosed tag"},
		{"bad block", "<%\nx = = 1\n%>", 2, "SyntaxError"},
		{"block body not indented", "<%\nif x:\ny = 1\n%>", 3, "expected an indented block"},
		{"literal percent line", "% of people agree", 1, "is not a partial control statement"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.text)
			if err == nil {
				t.Fatalf("Check(%q) = nil, want error", tt.text)
			}
			if err.Line != tt.wantLine {
				t.Errorf("line = %d, want %d (%s)", err.Line, tt.wantLine, err.Message)
			}
			if !strings.Contains(err.Message, tt.wantMsg) {
				t.Errorf("message = %q, want it to contain %q", err.Message, tt.wantMsg)
			}
		})
	}
}

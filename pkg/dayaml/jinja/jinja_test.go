package jinja

import (
	"strings"
	"testing"
)

func TestContainsSyntax(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"expression", "question: Hello {{ name }}\n", true},
		{"statement", "{% if x %}a{% endif %}", true},
		{"trimmed statement", "{%- set a = 1 -%}", true},
		{"comment", "{# note #}", true},
		{"spans lines", "question: {{\n  name\n}}", true},
		{"flow mapping", "a: { b: 1 }", false},
		{"plain", "question: Hello\n", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ContainsSyntax(tc.text); got != tc.want {
				t.Errorf("ContainsSyntax(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestHasHeader(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"# use jinja\nquestion: hi\n", true},
		{"# use jinja   \nquestion: hi\n", true},
		{"# use jinja", true},
		{" # use jinja\n", false},
		{"# Use Jinja\n", false},
		{"question: hi\n# use jinja\n", false},
	}

	for _, tc := range cases {
		if got := HasHeader(tc.text); got != tc.want {
			t.Errorf("HasHeader(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestStripHeader(t *testing.T) {
	if got := StripHeader("# use jinja\nquestion: hi\n"); got != "question: hi\n" {
		t.Errorf("StripHeader() = %q", got)
	}
	if got := StripHeader("question: hi\n"); got != "question: hi\n" {
		t.Errorf("StripHeader() without header = %q", got)
	}
}

func TestPreprocessUndefinedRendersEmpty(t *testing.T) {
	out, errs := Preprocess("# use jinja\nquestion: Hello {{ name }}\n")
	if len(errs) != 0 {
		t.Fatalf("Preprocess() errors = %v", errs)
	}
	if out != "# use jinja\nquestion: Hello \n" {
		t.Errorf("Preprocess() = %q", out)
	}
}

func TestRender(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"keeps trailing newline", "a\n", "a\n"},
		{"undefined chains", "{{ a.b.c() }}|{{ a['x'][0] }}|{{ a|length }}|{% for i in a %}x{% endfor %}", "||0|"},
		{"loop", "{% set xs = [1, 2, 3] %}{% for x in xs %}{{ loop.index }}:{{ x }}{% if not loop.last %},{% endif %}{% endfor %}", "1:1,2:2,3:3"},
		{"for else", "{% for x in [] %}x{% else %}empty{% endfor %}", "empty"},
		{"for filter", "{% for x in range(6) if x is even %}{{ x }}{% endfor %}", "024"},
		{"unpack items", "{% for k, v in {'a': 1, 'b': 2}.items() %}{{ k }}={{ v }};{% endfor %}", "a=1;b=2;"},
		{"whitespace control", "a\n{%- if true -%}\n b\n{%- endif %}", "ab"},
		{"macro", "{% macro greet(name='x') %}Hi {{ name }}{% endmacro %}{{ greet() }} {{ greet('Bo') }}", "Hi x Hi Bo"},
		{"call block", "{% macro box() %}[{{ caller() }}]{% endmacro %}{% call box() %}in{% endcall %}", "[in]"},
		{"filters", "{{ 'hello world'|title }} {{ [3,1,2]|sort|join(',') }} {{ none|default('d') }} {{ missing|default('d') }}", "Hello World 1,2,3 None d"},
		{"filter block", "{% filter upper %}hi{% endfilter %}", "HI"},
		{"set block", "{% set v %}abc{% endset %}{{ v|length }}", "3"},
		{"comparisons", "{{ 1 < 2 < 3 }} {{ 'a' in 'cat' }} {{ 3 not in [1, 2] }}", "True True True"},
		{"conditional", "{{ 'y' if x is defined else 'n' }}", "n"},
		{"raw", "{% raw %}{{ x }}{% endraw %}", "{{ x }}"},
		{"comment", "a{# hidden #}b", "ab"},
		{"namespace", "{% set ns = namespace(n=0) %}{% for i in range(3) %}{% set ns.n = ns.n + i %}{% endfor %}{{ ns.n }}", "3"},
		{"arithmetic", "{{ 7 // 2 }} {{ 7 / 2 }} {{ 2 ** 3 }} {{ 'a' ~ 1 }}", "3 3.5 8 a1"},
		{"with", "{% with a = 2 %}{{ a * 3 }}{% endwith %}{{ a }}", "6"},
		{"slice", "{{ 'abcdef'[1:3] }} {{ [1, 2, 3][::-1]|join }}", "bc 321"},
		{"undefined equality", "{{ x == none }} {{ x is undefined }}", "False True"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Render(tc.src, nil)
			if err != nil {
				t.Fatalf("Render(%q) error = %v", tc.src, err)
			}
			if got != tc.want {
				t.Errorf("Render(%q) = %q, want %q", tc.src, got, tc.want)
			}
		})
	}
}

func TestRenderWithContext(t *testing.T) {
	got, err := Render("{{ user.name|upper }} has {{ items|length }}", map[string]any{
		"user":  map[string]any{"name": "ada"},
		"items": []any{1, 2},
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != "ADA has 2" {
		t.Errorf("Render() = %q", got)
	}
}

func TestPreprocessErrors(t *testing.T) {
	cases := []struct {
		name       string
		src        string
		wantPrefix string
	}{
		{"unclosed if", "# use jinja\n{% if x %}\nhi\n", "Jinja2 syntax error at line 4: Unexpected end of template. Jinja was looking for the following tags: 'elif' or 'else' or 'endif'."},
		{"unknown tag", "# use jinja\n{% frobnicate %}\n", "Jinja2 syntax error at line 2: Encountered unknown tag 'frobnicate'."},
		{"stray end tag", "{% endif %}", "Jinja2 syntax error at line 1: Encountered unknown tag 'endif'."},
		{"unknown filter", "a\nb\n{{ x|nope }}\n", "Jinja2 syntax error at line 3: No filter named 'nope'."},
		{"unknown test", "{{ x is shiny }}", "Jinja2 syntax error at line 1: No test named 'shiny'."},
		{"unclosed expression", "{{ x \n", "Jinja2 syntax error at line 1: unexpected end of template"},
		{"private attribute", "{{ a._private }}", "Jinja2 template error: 'a' has no attribute '_private'"},
		{"undefined arithmetic", "{{ x + 1 }}", "Jinja2 template error: 'x' is undefined"},
		{"include", "{% include 'other.yml' %}", "Jinja2 template error: no loader for this environment specified"},
		{"division by zero", "{{ 1 / 0 }}", "Jinja2 template error: division by zero"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, errs := Preprocess(tc.src)
			if len(errs) != 1 {
				t.Fatalf("Preprocess(%q) errors = %v, want exactly one", tc.src, errs)
			}
			if !strings.HasPrefix(errs[0], tc.wantPrefix) {
				t.Errorf("Preprocess(%q) error = %q, want prefix %q", tc.src, errs[0], tc.wantPrefix)
			}
			if out != tc.src {
				t.Errorf("Preprocess(%q) should return the input unchanged on error", tc.src)
			}
		})
	}
}

func TestUndefinedValue(t *testing.T) {
	u := Undefined("x")
	if u.String() != "" || u.Truth() {
		t.Errorf("Undefined renders %q truth %v", u.String(), u.Truth())
	}
	if n, err := u.Len(); n != 0 || err != nil {
		t.Errorf("Undefined Len() = %d, %v", n, err)
	}
	if items, err := u.Iter(); len(items) != 0 || err != nil {
		t.Errorf("Undefined Iter() = %v, %v", items, err)
	}
	if v, err := u.Attr("anything"); err != nil || !v.IsUndefined() {
		t.Errorf("Undefined Attr() = %v, %v", v, err)
	}
	if _, err := u.Attr("__class__"); err == nil {
		t.Error("Undefined Attr(\"__class__\") should fail")
	}
}

package validator

import (
	"reflect"
	"strings"
	"testing"

	"dayaml-tools/checker/pkg/dayaml/errors"
	"dayaml-tools/checker/pkg/dayaml/parser"
)

func check(t *testing.T, text string) []errors.Finding {
	t.Helper()
	return New().ValidateDocuments(parser.NewParser().ParseString(text))
}

func messages(findings []errors.Finding) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.Message
	}
	return out
}

func findContaining(findings []errors.Finding, substr string) (errors.Finding, bool) {
	for _, f := range findings {
		if strings.Contains(strings.ToLower(f.Message), strings.ToLower(substr)) {
			return f, true
		}
	}
	return errors.Finding{}, false
}

func TestValidDocumentsHaveNoFindings(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"question with field", "question: |\n  What is your name?\nfield: name\n"},
		{"code block", "code: |\n  x = 1\n  y = x + 2\n"},
		{"partners", "question: Sign here\nattachment:\n  name: Form\n"},
		{"comment only", "# nothing here\n"},
		{"same screen show if", "question: |\n  Q\nfields:\n  - Fruit: fruit\n  - Why: why\n    show if: fruit\n"},
		{"variable dict", "question: |\n  Q\nfields:\n  - Fruit: fruit\n  - Why: reason\n    show if:\n      variable: fruit\n      is: Apple\n"},
		{"indexed expression", "question: |\n  Q\nfields:\n  - Methods: reminder_methods\n    datatype: checkboxes\n  - Email: email_address\n    show if: reminder_methods[\"Email\"]\n"},
		{"nested index", "question: |\n  Q\nfields:\n  - Parents: children[i].parents\n  - Other: children[i].other_parent\n    show if: children[i].parents[\"Other\"]\n"},
		{"generic object alias", "question: |\n  Q\nfields:\n  - Parents: x.parents\n  - Other: children[i].other_parent\n    show if: children[i].parents[\"Other\"]\n"},
		{"show if code", "question: |\n  Q\nfields:\n  - Some value: a\n  - Conditional: b\n    show if:\n      code: |\n        a == 1\n"},
		{"js show if", "question: |\n  Q\nfields:\n  - Fruit: fruit\n  - Veg: vegetable\n    js show if: |\n      val(\"fruit\") === \"apple\"\n"},
		{"js with interpolation", "question: |\n  Q\nfields:\n  - Fruit: fruit\n  - Veg: vegetable\n    js show if: |\n      val(\"fruit\") === ${ json.dumps(some_var) }\n"},
		{"js complex", "question: |\n  Q\nfields:\n  - Cuisine: cuisine\n    choices:\n      - Chinese\n      - French\n  - Dish: dish\n  - Rating: rating\n    js show if: |\n      (val(\"cuisine\") === \"Chinese\" || val(\"cuisine\") === \"French\") && val(\"dish\") !== \"\"\n"},
		{"fields code reference", "question: |\n  Interrogatories\nfields:\n  code: ints_fields\ncontinue button field: interrogatory_questions\n"},
		{"single field dict", "question: |\n  Q\nfields:\n  label: Name\n  field: name\n"},
		{"quoted space in var", "question: Q\nfield: x['first name']\n"},
		{"validation code reports", "question: |\n  Ten fruit\nfields:\n  - Apples: apples\n    datatype: integer\nvalidation code: |\n  if apples != 10:\n    validation_error(\"Ten!\")\n"},
		{"validation code transforms", "question: |\n  Phone\nfields:\n  - Phone: phone\nvalidation code: |\n  phone = phone.strip()\n"},
		{"validation code conditional transform", "question: |\n  Phone\nfields:\n  - Phone: phone\nvalidation code: |\n  if True:\n    phone = phone.strip()\n"},
		{"validation code define", "question: |\n  Catchall\nfields:\n  - Value: x_value\nvalidation code: |\n  define(\"x_value\", x_value)\n"},
		{"nesting depth two", "question: |\n  Q\nfields:\n  - A: a\n  - B: b\n    show if: a\n  - C: c\n    show if: b\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := check(t, tt.text); len(got) != 0 {
				t.Errorf("findings = %v, want none", messages(got))
			}
		})
	}
}

func TestSingleFindings(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantMsg  string
		wantLine int
		wantType errors.ErrorType
	}{
		{
			name:     "exclusive conflict",
			text:     "question: |\n  Hi\ntemplate: |\n  Bye\n",
			wantMsg:  "Too many types this block could be: ['template', 'question']",
			wantLine: 1,
			wantType: errors.ErrorTypeStructural,
		},
		{
			name:     "duplicate key",
			text:     "question: |\n  Q1\nquestion: |\n  Q2\n",
			wantMsg:  "found duplicate key",
			wantLine: 3,
			wantType: errors.ErrorTypeSyntax,
		},
		{
			name:     "unknown key",
			text:     "question: hi\nquestoin: hi\n",
			wantMsg:  "Keys that shouldn't exist! ['questoin']",
			wantLine: 1,
			wantType: errors.ErrorTypeStructural,
		},
		{
			name:     "no types",
			text:     "field: name\n",
			wantMsg:  "No possible types found: {'field': 'name'}",
			wantLine: 1,
			wantType: errors.ErrorTypeStructural,
		},
		{
			name:     "code syntax error",
			text:     "code: |\n  if True\n    x = 1\n",
			wantMsg:  "Python syntax error",
			wantLine: 2,
			wantType: errors.ErrorTypeEmbedded,
		},
		{
			name:     "code not a string",
			text:     "code:\n  - x = 1\n",
			wantMsg:  "code block must be a YAML string, is list",
			wantLine: 2,
			wantType: errors.ErrorTypeStructural,
		},
		{
			name:     "scope miss",
			text:     "question: |\n  Q\nfields:\n  - Fruit: fruit\n  - Why: why\n    show if: not_fruit\n",
			wantMsg:  "show if: not_fruit is not defined on this screen",
			wantLine: 5,
			wantType: errors.ErrorTypeSemantic,
		},
		{
			name:     "hide if scope miss",
			text:     "question: |\n  Q\nfields:\n  - Fruit: favorite_fruit\n    hide if: some_previous_var\n",
			wantMsg:  "hide if: some_previous_var is not defined on this screen",
			wantLine: 4,
			wantType: errors.ErrorTypeSemantic,
		},
		{
			name:     "enable if scope miss",
			text:     "question: |\n  Q\nfields:\n  - Fruit: favorite_fruit\n    enable if: some_previous_var\n",
			wantMsg:  "enable if: some_previous_var is not defined on this screen",
			wantLine: 4,
			wantType: errors.ErrorTypeSemantic,
		},
		{
			name:     "disable if variable scope miss",
			text:     "question: |\n  Q\nfields:\n  - Fruit: favorite_fruit\n    disable if:\n      variable: elsewhere\n",
			wantMsg:  "disable if: variable: elsewhere is not defined on this screen",
			wantLine: 4,
			wantType: errors.ErrorTypeSemantic,
		},
		{
			name:     "variable not a string",
			text:     "question: |\n  Q\nfields:\n  - Fruit: fruit\n  - Why: reason\n    show if:\n      variable:\n        - fruit\n      is: apple\n",
			wantMsg:  "show if: variable must be a string, got list",
			wantLine: 5,
			wantType: errors.ErrorTypeStructural,
		},
		{
			name:     "modifier dict without variable or code",
			text:     "question: |\n  Q\nfields:\n  - Fruit: fruit\n    hide if:\n      is: x\n",
			wantMsg:  `hide if dict must have either "variable" or "code"`,
			wantLine: 4,
			wantType: errors.ErrorTypeStructural,
		},
		{
			name:     "malformed shorthand",
			text:     "question: |\n  Q\nfields:\n  - Fruit: fruit\n  - Why: why\n    show if: \"variable: fruit\"\n",
			wantMsg:  `show if value "variable: fruit" appears to be malformed`,
			wantLine: 5,
			wantType: errors.ErrorTypeStructural,
		},
		{
			name:     "show if code syntax error",
			text:     "question: |\n  Q\nfields:\n  - Some value: a\n  - Conditional: b\n    show if:\n      code: |\n        if True\n          x = 1\n",
			wantMsg:  "show if: code has python syntax error",
			wantLine: 5,
			wantType: errors.ErrorTypeEmbedded,
		},
		{
			name:     "js without val",
			text:     "question: |\n  Q\nfields:\n  - Fruit: fruit\n  - Veg: vegetable\n    js show if: |\n      true && false\n",
			wantMsg:  "js show if must contain at least one val() call",
			wantLine: 5,
			wantType: errors.ErrorTypeSemantic,
		},
		{
			name:     "js unquoted argument",
			text:     "question: |\n  Q\nfields:\n  - Fruit: fruit\n  - Veg: vegetable\n    js show if: |\n      val(fruit) === \"apple\"\n",
			wantMsg:  `val() argument must be a quoted string literal, not "fruit"`,
			wantLine: 5,
			wantType: errors.ErrorTypeEmbedded,
		},
		{
			name:     "js unquoted dotted argument",
			text:     "question: |\n  Q\nfields:\n  - Fruit: fruit\n  - Veg: vegetable\n    js show if: |\n      val(foo.bar) === \"apple\"\n",
			wantMsg:  `not "foo.bar"`,
			wantLine: 5,
			wantType: errors.ErrorTypeEmbedded,
		},
		{
			name:     "js unknown field",
			text:     "question: |\n  Q\nfields:\n  - Fruit: fruit\n  - Veg: vegetable\n    js show if: |\n      val(\"missing_field\") === \"apple\"\n",
			wantMsg:  `js show if references val("missing_field"), but "missing_field" is not defined on this screen`,
			wantLine: 5,
			wantType: errors.ErrorTypeSemantic,
		},
		{
			name:     "js hide if syntax",
			text:     "question: |\n  Q\nfields:\n  - TV?: watches_tv\n  - Show: tv_show\n    js hide if: |\n      (val(\"watches_tv\") === false\n",
			wantMsg:  "Invalid JavaScript syntax in js hide if",
			wantLine: 0, // parser dependent
			wantType: errors.ErrorTypeEmbedded,
		},
		{
			name:     "js not a string",
			text:     "question: |\n  Q\nfields:\n  - Fruit: fruit\n    js show if: 3\n",
			wantMsg:  "js show if must be a string, is int",
			wantLine: 4,
			wantType: errors.ErrorTypeStructural,
		},
		{
			name:     "fields scalar",
			text:     "question: Q\nfields: abc\n",
			wantMsg:  "fields should be a list or dict, is abc",
			wantLine: 2,
			wantType: errors.ErrorTypeStructural,
		},
		{
			name:     "fields dict without field keys",
			text:     "question: Q\nfields:\n  foo: bar\n",
			wantMsg:  `fields dict must have "code" key, is {'foo': 'bar'}`,
			wantLine: 3,
			wantType: errors.ErrorTypeStructural,
		},
		{
			name:     "fields code not a string",
			text:     "question: Q\nfields:\n  code:\n    - a\n",
			wantMsg:  "fields: code must be a YAML string, is list",
			wantLine: 3,
			wantType: errors.ErrorTypeStructural,
		},
		{
			name:     "objects scalar",
			text:     "objects: abc\n",
			wantMsg:  "Objects block needs to be a list or a dict, is abc",
			wantLine: 1,
			wantType: errors.ErrorTypeStructural,
		},
		{
			name:     "python var with space",
			text:     "question: Q\nfield: my var\n",
			wantMsg:  "The python var cannot have whitespace (is my var)",
			wantLine: 2,
			wantType: errors.ErrorTypeStructural,
		},
		{
			name:     "python var not a string",
			text:     "question: Q\nfield: 3\n",
			wantMsg:  "The python var needs to be a YAML string, is 3",
			wantLine: 2,
			wantType: errors.ErrorTypeStructural,
		},
		{
			name:     "id not a string",
			text:     "question: Q\nid:\n  - a\n",
			wantMsg:  "['a'] isn't a string",
			wantLine: 3,
			wantType: errors.ErrorTypeStructural,
		},
		{
			name:     "mako error",
			text:     "question: |\n  Intro\n  % if x:\n  Yes\n",
			wantMsg:  "Unterminated control keyword: 'if'",
			wantLine: 3,
			wantType: errors.ErrorTypeEmbedded,
		},
		{
			name:     "validation code without report",
			text:     "question: |\n  Q\nfields:\n  - Apples: apples\nvalidation code: |\n  if apples != 10:\n    raise Exception('Bad total')\n",
			wantMsg:  "validation code does not call validation_error()",
			wantLine: 6,
			wantType: errors.ErrorTypeSemantic,
		},
		{
			name:     "validation code syntax",
			text:     "question: |\n  Q\nfields:\n  - Input: user_input\nvalidation code: |\n  if True\n    validation_error(\"Invalid\")\n",
			wantMsg:  "Python syntax error",
			wantLine: 6,
			wantType: errors.ErrorTypeEmbedded,
		},
		{
			name:     "non-mapping document",
			text:     "- a\n- b\n",
			wantMsg:  "Document should be a mapping of keys to values, is list",
			wantLine: 1,
			wantType: errors.ErrorTypeStructural,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := check(t, tt.text)
			if len(got) != 1 {
				t.Fatalf("findings = %v, want exactly one", messages(got))
			}
			f := got[0]
			if !strings.Contains(f.Message, tt.wantMsg) {
				t.Errorf("message = %q, want it to contain %q", f.Message, tt.wantMsg)
			}
			if tt.wantLine != 0 && f.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", f.Line, tt.wantLine)
			}
			if f.Type != tt.wantType {
				t.Errorf("type = %s, want %s", f.Type, tt.wantType)
			}
		})
	}
}

func TestUnknownKeySuggestion(t *testing.T) {
	got := check(t, "question: hi\nsubqestion: hi\n")
	if len(got) != 1 {
		t.Fatalf("findings = %v, want one", messages(got))
	}
	if !strings.Contains(got[0].Suggestion, "subquestion") {
		t.Errorf("suggestion = %q, want it to mention subquestion", got[0].Suggestion)
	}
}

func TestNonStringKeyIsUnknown(t *testing.T) {
	got := check(t, "question: hi\ntrue: 1\n")
	f, ok := findContaining(got, "Keys that shouldn't exist!")
	if !ok {
		t.Fatalf("findings = %v, want an unknown key finding", messages(got))
	}
	if !strings.Contains(f.Message, "['True']") {
		t.Errorf("message = %q, want the key rendered as True", f.Message)
	}
}

func TestDynamicFieldsDowngradeScopeMisses(t *testing.T) {
	text := `question: |
  Dynamic fields
fields:
  - code: |
      [
        {"field": "other_parties[0].vacated", "label": "P1", "datatype": "yesno"}
      ]
  - label: Vacated date
    field: vacated_date
    datatype: date
    js show if: |
      val("other_parties[0].vacated")
`
	got := check(t, text)
	f, ok := findContaining(got, "unable to fully validate screen variables")
	if !ok {
		t.Fatalf("findings = %v, want a dynamic fields warning", messages(got))
	}
	if !strings.HasPrefix(f.Message, "Warning:") {
		t.Errorf("message = %q, want a Warning: prefix", f.Message)
	}
	if f.Line != 8 {
		t.Errorf("line = %d, want 8", f.Line)
	}
	if !f.Type.IsExperimental() {
		t.Errorf("dynamic warning should be experimental")
	}
}

func TestVisibilityNesting(t *testing.T) {
	text := `question: |
  Nested visibility
fields:
  - A: a
  - B: b
    show if: a
  - C: c
    show if: b
  - D: d
    js show if: |
      val("c") === true
`
	got := check(t, text)
	if len(got) != 1 {
		t.Fatalf("findings = %v, want one nesting warning", messages(got))
	}
	if !strings.Contains(got[0].Message, "visibility logic is nested 3 levels") {
		t.Errorf("message = %q", got[0].Message)
	}
	if got[0].Line != 9 {
		t.Errorf("line = %d, want 9", got[0].Line)
	}
}

func TestMultipleDocumentsUseAbsoluteLines(t *testing.T) {
	text := "question: a\n---\nquestion: |\n  hi\ntemplate: x\n---\ncode: |\n  x = 1\n  if True\n    y = 2\n"
	got := check(t, text)
	if len(got) != 2 {
		t.Fatalf("findings = %v, want two", messages(got))
	}
	if got[0].Line != 3 || !strings.Contains(got[0].Message, "Too many types") {
		t.Errorf("first finding = %+v", got[0])
	}
	if got[1].Line != 9 || !strings.Contains(got[1].Message, "Python syntax error") {
		t.Errorf("second finding = %+v", got[1])
	}
}

func TestParseFailureDoesNotStopLaterDocuments(t *testing.T) {
	got := check(t, "question: [\n---\nquestion: hi\nquestoin: x\n")
	if len(got) != 2 {
		t.Fatalf("findings = %v, want two", messages(got))
	}
	if got[0].Type != errors.ErrorTypeSyntax {
		t.Errorf("first finding type = %s, want syntax", got[0].Type)
	}
	if got[1].Line != 3 {
		t.Errorf("second finding line = %d, want 3", got[1].Line)
	}
}

func TestValidationIsDeterministic(t *testing.T) {
	text := "question: |\n  Q\nfields:\n  - A: a\n  - B: b\n    show if: missing\n    js show if: |\n      val(\"other\")\nbogus: 1\n"
	first := check(t, text)
	second := check(t, text)
	if len(first) == 0 {
		t.Fatal("expected findings")
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("runs differ:\n%v\n%v", messages(first), messages(second))
	}
}

func TestWithoutClassification(t *testing.T) {
	docs := parser.NewParser().ParseString("question: |\n  Hi\ntemplate: x\nbogus: 1\n")
	if got := New().WithoutClassification().ValidateDocuments(docs); len(got) != 0 {
		t.Errorf("findings = %v, want none", messages(got))
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		types    []string
		conflict bool
	}{
		{"single", "question: hi\n", []string{"question"}, false},
		{"partner", "question: hi\nattachments: []\n", []string{"attachments", "question"}, false},
		{"terms after template", "template: t\nterms: {}\n", []string{"template", "terms"}, false},
		{"conflict", "code: x\nquestion: hi\n", []string{"question", "code"}, true},
		{"comment is not exclusive", "comment: hi\ncode: x\n", []string{"code", "comment"}, false},
		{"three exclusive", "question: a\ncode: b\nobjects: []\n", []string{"objects", "question", "code"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := parser.Load(tt.text)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			c := Classify(root)
			if !reflect.DeepEqual(c.Types, tt.types) {
				t.Errorf("Types = %v, want %v", c.Types, tt.types)
			}
			if c.Conflict() != tt.conflict {
				t.Errorf("Conflict() = %v, want %v", c.Conflict(), tt.conflict)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		key  string
		kind Kind
		ok   bool
	}{
		{"question", KindMakoMarkdown, true},
		{"code", KindPython, true},
		{"validation code", KindValidationCode, true},
		{"continue button field", KindPythonVar, true},
		{"mandatory", KindPythonBool, true},
		{"Question", KindNone, false},
		{"template", KindNone, false},
	}

	for _, tt := range tests {
		kind, ok := Lookup(tt.key)
		if kind != tt.kind || ok != tt.ok {
			t.Errorf("Lookup(%q) = %s, %v; want %s, %v", tt.key, kind, ok, tt.kind, tt.ok)
		}
	}
}

func TestKnownKeys(t *testing.T) {
	for _, key := range []string{"question", "Subquestion", "fields", "sort key", "validation code"} {
		if !IsKnownKey(key) {
			t.Errorf("IsKnownKey(%q) = false", key)
		}
	}
	if IsKnownKey("questoin") {
		t.Error("IsKnownKey(\"questoin\") = true")
	}
}

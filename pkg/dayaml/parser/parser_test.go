package parser

import (
	"strings"
	"testing"

	"dayaml-tools/checker/pkg/dayaml/ast"
)

func TestSplitOffsets(t *testing.T) {
	text := "a: 1\nb: 2\n---\nc: 3\n--- \n\nd: 4\n"
	chunks := Split(text)
	if len(chunks) != 3 {
		t.Fatalf("Split() returned %d chunks, want 3", len(chunks))
	}

	wantOffsets := []int{1, 3, 5}
	for i, c := range chunks {
		if c.Offset != wantOffsets[i] {
			t.Errorf("chunk %d offset = %d, want %d", i, c.Offset, wantOffsets[i])
		}
	}
}

func TestSplitSeparatorMustBeAlone(t *testing.T) {
	chunks := Split("a: |\n  --- not a separator\n ---\n")
	if len(chunks) != 1 {
		t.Errorf("Split() returned %d chunks, want 1", len(chunks))
	}
}

func TestNormalizeKeepsLineCount(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"tabs", "a:\n\tb: 1\n", "a:\n  b: 1\n"},
		{"trailing dots", "a: 1\n...\n", "a: 1\n\n"},
		{"trailing dots at end", "a: 1\n...", "a: 1\n"},
		{"dots in the middle stay", "a: 1\n...\nb: 2\n", "a: 1\n...\nb: 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if strings.Count(got, "\n") != strings.Count(tt.in, "\n") {
				t.Errorf("Normalize(%q) changed the line count", tt.in)
			}
		})
	}
}

func TestLoadLines(t *testing.T) {
	root, err := Load("question: |\n  Hi\nfields:\n  - Fruit: fruit\n  - Veg: veg\n    show if: fruit\n")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if root.Line != 1 {
		t.Errorf("root line = %d, want 1", root.Line)
	}

	question := root.Get("question")
	if question.Style != ast.LiteralStyle {
		t.Errorf("question style = %v, want literal", question.Style)
	}
	if question.ContentLine() != 2 {
		t.Errorf("question content line = %d, want 2", question.ContentLine())
	}

	fields := root.Get("fields")
	if !fields.IsSequence() || len(fields.Items) != 2 {
		t.Fatalf("fields = %v, want a two-item sequence", fields)
	}
	if fields.Items[1].Line != 5 {
		t.Errorf("second field line = %d, want 5", fields.Items[1].Line)
	}
}

func TestLoadDuplicateKey(t *testing.T) {
	_, err := Load("question: one\nsubquestion: two\nquestion: three\n")
	if err == nil {
		t.Fatal("Load() with duplicate key should fail")
	}
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if pe.Line != 3 {
		t.Errorf("duplicate key line = %d, want 3", pe.Line)
	}
	if !strings.Contains(pe.Message, `found duplicate key "question"`) {
		t.Errorf("message = %q", pe.Message)
	}
}

func TestLoadNestedDuplicateKey(t *testing.T) {
	_, err := Load("fields:\n  - label: A\n    label: B\n")
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if pe.Line != 3 {
		t.Errorf("duplicate key line = %d, want 3", pe.Line)
	}
}

func TestLoadEmpty(t *testing.T) {
	for _, text := range []string{"", "\n", "# just a comment\n", "\n# comment\n\n"} {
		root, err := Load(text)
		if err != nil || root != nil {
			t.Errorf("Load(%q) = %v, %v; want nil, nil", text, root, err)
		}
	}
}

func TestLoadSyntaxError(t *testing.T) {
	_, err := Load("question: [unclosed\n")
	if err == nil {
		t.Fatal("Load() with malformed flow sequence should fail")
	}
	if _, ok := err.(*ParseError); !ok {
		t.Errorf("error type = %T, want *ParseError", err)
	}
}

func TestLoadAliasAndMerge(t *testing.T) {
	root, err := Load("base: &b\n  label: A\n  datatype: yesno\nfield:\n  <<: *b\n  label: B\n")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	field := root.Get("field")
	if got := field.Keys(); strings.Join(got, ",") != "datatype,label" {
		t.Errorf("merged keys = %v, want [datatype label]", got)
	}
	if field.Get("label").Value != "B" {
		t.Errorf("explicit key should override merged value")
	}
}

func TestParseStringContinuesAfterFailure(t *testing.T) {
	p := NewParser()
	docs := p.ParseString("a: [\n---\nquestion: hi\n")
	if len(docs) != 2 {
		t.Fatalf("ParseString() returned %d documents, want 2", len(docs))
	}
	if docs[0].Err == nil {
		t.Error("first document should fail to load")
	}
	if docs[1].Err != nil || docs[1].Root == nil {
		t.Fatalf("second document should load, err = %v", docs[1].Err)
	}
	q := docs[1].Root.Get("question")
	if got := docs[1].AbsLine(q.Line); got != 3 {
		t.Errorf("question absolute line = %d, want 3", got)
	}
}

func TestLoadRejectsSecondDocument(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantLine int
	}{
		{"start marker with comment", "question: hi\n--- # second\nquestion: a\nbogus: 2\n", 2},
		{"end marker before more content", "question: hi\n...\nbogus: 2\n", 3},
		{"start marker after end marker", "question: hi\n...\n---\nbogus: 2\n", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Load(tt.text)
			if root != nil {
				t.Errorf("Load() root = %v, want nil", root)
			}
			pe, ok := err.(*ParseError)
			if !ok {
				t.Fatalf("error = %v, want *ParseError", err)
			}
			if pe.Line != tt.wantLine {
				t.Errorf("error line = %d, want %d (%s)", pe.Line, tt.wantLine, pe.Message)
			}
		})
	}
}

func TestLoadTrailingEndMarker(t *testing.T) {
	for _, text := range []string{"question: hi\n...\n", "question: hi\n...\n\n# done\n"} {
		root, err := Load(text)
		if err != nil {
			t.Errorf("Load(%q) error = %v", text, err)
			continue
		}
		if root.Get("question") == nil {
			t.Errorf("Load(%q) lost the question key", text)
		}
	}
}

func TestSplitCRLF(t *testing.T) {
	chunks := Split("question: hi\r\n---\r\nquestion: a\r\nbogus: 2\r\n")
	if len(chunks) != 2 {
		t.Fatalf("Split() returned %d chunks, want 2", len(chunks))
	}
	if chunks[1].Offset != 2 {
		t.Errorf("second chunk offset = %d, want 2", chunks[1].Offset)
	}
	if strings.Contains(chunks[1].Text, "\r") {
		t.Errorf("chunk text still has carriage returns: %q", chunks[1].Text)
	}
}

func TestParseStringCRLF(t *testing.T) {
	docs := NewParser().ParseString("question: hi\r\n---\r\nquestion: a\r\nbogus: 2\r\n")
	if len(docs) != 2 {
		t.Fatalf("ParseString() returned %d documents, want 2", len(docs))
	}
	for i, doc := range docs {
		if doc.Err != nil {
			t.Fatalf("document %d error = %v", i, doc.Err)
		}
	}
	bogus := docs[1].Root.Get("bogus")
	if bogus == nil {
		t.Fatal("second document should have the bogus key")
	}
	if got := docs[1].AbsLine(bogus.Line); got != 4 {
		t.Errorf("bogus absolute line = %d, want 4", got)
	}
}

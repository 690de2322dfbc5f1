package collect

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte("question: hi\n"), 0644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
	}
}

func TestCollect(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"a.yml",
		"B.YAML",
		"notes.txt",
		"nested/c.yml",
		".git/config.yml",
		".github/workflows/ci.yml",
		".venv/lib/x.yml",
		"sources/data.yml",
	)

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "default ignores",
			want: []string{"B.YAML", "a.yml", "nested/c.yml"},
		},
		{
			name: "check all",
			opts: Options{CheckAll: true},
			want: []string{
				".git/config.yml",
				".github/workflows/ci.yml",
				".venv/lib/x.yml",
				"B.YAML",
				"a.yml",
				"nested/c.yml",
				"sources/data.yml",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Collect([]string{root}, tt.opts)
			if err != nil {
				t.Fatalf("Collect() error = %v", err)
			}
			var rel []string
			for _, f := range got {
				r, _ := filepath.Rel(root, f)
				rel = append(rel, filepath.ToSlash(r))
			}
			if !reflect.DeepEqual(rel, tt.want) {
				t.Errorf("Collect() = %v, want %v", rel, tt.want)
			}
		})
	}
}

func TestCollectDeduplicates(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.yml", "nested/b.yaml")
	first := filepath.Join(root, "a.yml")
	second := filepath.Join(root, "nested", "b.yaml")

	got, err := Collect([]string{root, second, first}, Options{})
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	want := []string{first, second}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Collect() = %v, want %v", got, want)
	}
}

func TestCollectExplicitFiles(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "x.yml", "x.txt")

	got, err := Collect([]string{filepath.Join(root, "x.yml"), filepath.Join(root, "x.txt")}, Options{})
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(got) != 1 || filepath.Base(got[0]) != "x.yml" {
		t.Errorf("Collect() = %v, want only x.yml", got)
	}

	if _, err := Collect([]string{filepath.Join(root, "missing")}, Options{}); err == nil {
		t.Error("Collect() on a missing path should fail")
	}
}

func TestShouldSkip(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"docassemble/base/data/questions/examples.yml", true},
		{"pgcodecache.yml", true},
		{"interview.yml", false},
		{"documentation.yaml", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := ShouldSkip(tt.path); got != tt.want {
				t.Errorf("ShouldSkip(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestShouldSkipExtra(t *testing.T) {
	if !ShouldSkip("questions/generated.yml", "generated.yml") {
		t.Error("extra suffix not skipped")
	}
	if ShouldSkip("questions/interview.yml", "", "generated.yml") {
		t.Error("empty suffix matched every file")
	}
}

func TestDisplayer(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "pkg/questions/a.yml", "other/b.yml")
	file := filepath.Join(root, "other", "b.yml")

	d := NewDisplayer([]string{filepath.Join(root, "pkg"), file})

	if got := d.Display(filepath.Join(root, "pkg", "questions", "a.yml")); got != filepath.Join("questions", "a.yml") {
		t.Errorf("Display() = %q", got)
	}
	if got := d.Display(file); got != "b.yml" {
		t.Errorf("Display() = %q, want b.yml", got)
	}
	outside := filepath.Join(root, "elsewhere.yml")
	if got := d.Display(outside); got != outside {
		t.Errorf("Display() = %q, want %q", got, outside)
	}
}

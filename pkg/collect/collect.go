// Package collect expands command-line paths into the interview files to check.
package collect

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SkippedFiles are docassemble's own bundled files, which are not interviews.
var SkippedFiles = []string{
	"pgcodecache.yml",
	"title_documentation.yml",
	"documentation.yml",
	"docstring.yml",
	"example-list.yml",
	"examples.yml",
}

// Options controls directory expansion.
type Options struct {
	// CheckAll disables the default directory ignores.
	CheckAll bool
}

// IsYAML reports whether path has a .yml or .yaml extension, in any case.
func IsYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return true
	}
	return false
}

// IgnoredDir reports whether a directory is skipped by default: version
// control and CI metadata, virtual environments, and "sources" folders.
func IgnoredDir(name string) bool {
	return strings.HasPrefix(name, ".git") ||
		strings.HasPrefix(name, ".venv") ||
		name == "sources"
}

// ShouldSkip reports whether path ends with one of SkippedFiles or one of
// the extra suffixes.
func ShouldSkip(path string, extra ...string) bool {
	for _, name := range SkippedFiles {
		if strings.HasSuffix(path, name) {
			return true
		}
	}
	for _, name := range extra {
		if name != "" && strings.HasSuffix(path, name) {
			return true
		}
	}
	return false
}

// Collect returns the YAML files named by paths. Directories are searched
// recursively; files are kept only when they have a YAML extension. The
// result keeps walk order with duplicates, by resolved path, removed.
func Collect(paths []string, opts Options) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("collecting %s: %w", p, err)
		}
		if !info.IsDir() {
			if IsYAML(p) {
				files = append(files, p)
			}
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if !opts.CheckAll && IgnoredDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if IsYAML(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
	}
	return dedupe(files), nil
}

func dedupe(files []string) []string {
	seen := make(map[string]bool, len(files))
	out := make([]string, 0, len(files))
	for _, f := range files {
		key, err := filepath.Abs(f)
		if err != nil {
			key = f
		}
		if resolved, err := filepath.EvalSymlinks(key); err == nil {
			key = resolved
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}

// Displayer shortens file paths for output by making them relative to the
// directories the user named.
type Displayer struct {
	bases []string
}

// NewDisplayer uses each directory in paths, or the parent of each file, as
// a base.
func NewDisplayer(paths []string) *Displayer {
	d := &Displayer{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			abs = filepath.Dir(abs)
		}
		d.bases = append(d.bases, abs)
	}
	return d
}

// Display returns path relative to the first base containing it, or the
// absolute path when none does.
func (d *Displayer) Display(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	for _, base := range d.bases {
		rel, err := filepath.Rel(base, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return rel
	}
	return abs
}

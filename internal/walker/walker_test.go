package walker

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, dir, rel string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(rel), 0o644); err != nil {
		t.Fatal(err)
	}
}

func relPaths(files []FileInfo) []string {
	var paths []string
	for _, f := range files {
		paths = append(paths, f.RelPath)
	}
	return paths
}

func TestWalk(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		excludes []string
		want     []string
	}{
		{
			name:  "lexical order with nested dirs",
			files: []string{"b.txt", "a.txt", "sub/c.txt"},
			want:  []string{"a.txt", "b.txt", "sub/c.txt"},
		},
		{
			name:     "file pattern exclude",
			files:    []string{"a.txt", "a.log", "sub/b.log"},
			excludes: []string{"**/*.log", "*.log"},
			want:     []string{"a.txt"},
		},
		{
			name:     "directory exclude",
			files:    []string{"keep/a.txt", "tmp/b.txt", "tmp/deep/c.txt"},
			excludes: []string{"tmp/"},
			want:     []string{"keep/a.txt"},
		},
		{
			name:  "empty tree",
			files: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				writeFile(t, dir, f)
			}

			w, err := New(dir, tt.excludes)
			if err != nil {
				t.Fatal(err)
			}
			files, err := w.Walk()
			if err != nil {
				t.Fatal(err)
			}

			if got := relPaths(files); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Walk() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWalkSkipsIrregularEntries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "real.txt")
	if err := os.Symlink(filepath.Join(dir, "real.txt"), filepath.Join(dir, "link.txt")); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	w, err := New(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	files, err := w.Walk()
	if err != nil {
		t.Fatal(err)
	}
	if got := relPaths(files); !reflect.DeepEqual(got, []string{"real.txt"}) {
		t.Errorf("Walk() = %v, want only real.txt", got)
	}
}

func TestNewValidation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt")

	if _, err := New(filepath.Join(dir, "missing"), nil); err == nil {
		t.Error("New(missing root) error = nil, want error")
	}
	if _, err := New(filepath.Join(dir, "a.txt"), nil); err == nil {
		t.Error("New(file root) error = nil, want error")
	}
}

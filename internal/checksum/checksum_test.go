package checksum

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// base64(sha256("hello world"))
const helloWorldSum = "uU0nuZNNPgilLlLX2n2r+sSE7+N6U4DukIj3rOLvzek="

func TestSumFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := SumFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != helloWorldSum {
		t.Errorf("SumFile() = %q, want %q", got, helloWorldSum)
	}
}

func TestSumFileMissing(t *testing.T) {
	if _, err := SumFile(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("SumFile(missing) error = nil, want error")
	}
}

func TestReader(t *testing.T) {
	r := NewReader(strings.NewReader("hello world"))

	if _, err := r.Sum(); err == nil {
		t.Error("Sum() before EOF error = nil, want error")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello world" {
		t.Errorf("read %q, want %q", data, "hello world")
	}

	got, err := r.Sum()
	if err != nil {
		t.Fatal(err)
	}
	if got != helloWorldSum {
		t.Errorf("Sum() = %q, want %q", got, helloWorldSum)
	}
}

func TestComposite(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{value: helloWorldSum, want: false},
		{value: "WZRHGrsBESr8wYFZ9sx0tPURuZgG2lmzyvWpwXPKz8U=-12", want: true},
		{value: "", want: false},
	}

	for _, tt := range tests {
		if got := Composite(tt.value); got != tt.want {
			t.Errorf("Composite(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

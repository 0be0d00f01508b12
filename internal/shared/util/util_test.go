package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizePatternPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty", input: "", expected: ""},
		{name: "Dot", input: ".", expected: ""},
		{name: "Trim", input: "  ./foo/bar  ", expected: "foo/bar"},
		{name: "Relative", input: "foo/../bar", expected: "bar"},
		{name: "Backslashes", input: `src\main\Api.java`, expected: "src/main/Api.java"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizePatternPath(tc.input); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestRelativeIdentifier(t *testing.T) {
	root := filepath.Join("tmp", "lib")

	got, err := RelativeIdentifier(root, filepath.Join(root, "pkg", "api", "api.go"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "pkg/api/api.go" {
		t.Fatalf("expected pkg/api/api.go, got %q", got)
	}

	got, err = RelativeIdentifier(root, root)
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Fatalf("expected root to map to empty identifier, got %q", got)
	}
}

func TestUniqueSorted(t *testing.T) {
	got := UniqueSorted([]string{"b", " ", "a", "b", "c "})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestWriteStringWithDirs(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "out", "surface.md")
	if err := WriteStringWithDirs(target, "hello", 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected content %q", string(data))
	}
}

package discover

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func mkdirAll(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if err := os.MkdirAll(p, 0755); err != nil {
			t.Fatal(err)
		}
	}
}

func TestWalkNonRecursive(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, filepath.Join(root, "a"), filepath.Join(root, "b"), filepath.Join(root, "a", "nested"))

	paths, errs := Walk(Options{Roots: []string{root}})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	got := baseNames(root, paths)
	sort.Strings(got)
	want := []string{"a", "b"}
	if !equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestWalkRecursive(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, filepath.Join(root, "a", "nested"), filepath.Join(root, "b"))

	paths, errs := Walk(Options{Roots: []string{root}, Recursive: true})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	got := baseNames(root, paths)
	sort.Strings(got)
	want := []string{"a", "a/nested", "b"}
	if !equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestWalkMaxDepth(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, filepath.Join(root, "a", "nested", "deeper"))

	paths, _ := Walk(Options{Roots: []string{root}, Recursive: true, MaxDepth: 1})
	got := baseNames(root, paths)
	sort.Strings(got)
	want := []string{"a"}
	if !equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestWalkIgnoresLiteralAndGlob(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, filepath.Join(root, "vendor"), filepath.Join(root, "build-output"), filepath.Join(root, "keep"))

	paths, _ := Walk(Options{Roots: []string{root}, Ignore: []string{"vendor", "build-*"}})
	got := baseNames(root, paths)
	sort.Strings(got)
	want := []string{"keep"}
	if !equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestWalkSkipsSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	mkdirAll(t, filepath.Join(outside, "escaped"))
	if err := os.Symlink(filepath.Join(outside, "escaped"), filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	paths, _ := Walk(Options{Roots: []string{root}})
	got := baseNames(root, paths)
	if len(got) != 0 {
		t.Fatalf("expected symlink escape to be skipped, got %v", got)
	}
}

func baseNames(root string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			out[i] = p
			continue
		}
		out[i] = filepath.ToSlash(rel)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

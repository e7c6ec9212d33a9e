package repocycle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/autogitpull/autogitpull/internal/config"
	"github.com/autogitpull/autogitpull/internal/repoinfo"
)

func newTestDeps(t *testing.T) (Deps, *repoinfo.Map) {
	t.Helper()
	m := repoinfo.NewMap()
	return Deps{Map: m}, m
}

func TestRunSkipsBusyEntry(t *testing.T) {
	deps, m := newTestDeps(t)
	path := t.TempDir()
	m.SetStatus(path, repoinfo.Pulling, "")

	opts := config.Default()
	Run(context.Background(), path, &opts, opts.ForPath(path), deps)

	entry, _ := m.Get(path)
	if entry.Status != repoinfo.Pulling {
		t.Fatalf("expected busy entry left untouched, got %v", entry.Status)
	}
}

func TestRunExcludedOverride(t *testing.T) {
	deps, m := newTestDeps(t)
	path := t.TempDir()

	opts := config.Default()
	eff := opts.ForPath(path)
	eff.Exclude = true

	Run(context.Background(), path, &opts, eff, deps)

	entry, _ := m.Get(path)
	if entry.Status != repoinfo.Skipped || entry.Message != "Excluded" {
		t.Fatalf("expected Skipped/Excluded, got %v %q", entry.Status, entry.Message)
	}
}

func TestRunMissingPath(t *testing.T) {
	deps, m := newTestDeps(t)
	path := filepath.Join(t.TempDir(), "does-not-exist")

	opts := config.Default()
	Run(context.Background(), path, &opts, opts.ForPath(path), deps)

	entry, _ := m.Get(path)
	if entry.Status != repoinfo.Skipped || entry.Message != "Missing" {
		t.Fatalf("expected Skipped/Missing, got %v %q", entry.Status, entry.Message)
	}
}

func TestRunNotGit(t *testing.T) {
	deps, m := newTestDeps(t)
	path := t.TempDir()
	if err := os.WriteFile(filepath.Join(path, "file.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	opts := config.Default()
	Run(context.Background(), path, &opts, opts.ForPath(path), deps)

	entry, _ := m.Get(path)
	if entry.Status != repoinfo.NotGit {
		t.Fatalf("expected NotGit, got %v", entry.Status)
	}
}

package mutant

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnforcesLowerBounds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".autogitpull.mutant")

	c, err := Load(path, 1*time.Second, 1*time.Second)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Interval() != MinInterval {
		t.Fatalf("expected interval clamped to %v, got %v", MinInterval, c.Interval())
	}
	if c.PullTimeout() != MinPullTimeout {
		t.Fatalf("expected timeout clamped to %v, got %v", MinPullTimeout, c.PullTimeout())
	}
}

func TestLoadReloadsPersistedState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".autogitpull.mutant")

	c1, err := Load(path, 10*time.Second, 60*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	c1.ResultFeedback(true, false, 0)

	c2, err := Load(path, 10*time.Second, 60*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if c2.PullTimeout() != 65*time.Second {
		t.Fatalf("expected reloaded timeout 65s, got %v", c2.PullTimeout())
	}
}

func TestAgeAndChangeGateOlderThanLimit(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(filepath.Join(dir, ".autogitpull.mutant"), 10*time.Second, 60*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	old := now.Add(-2 * time.Hour).Unix()

	proceed, reason := c.AgeAndChangeGate("repo", old, 0, time.Hour, now)
	if proceed || reason != "Older than limit" {
		t.Fatalf("expected skip for stale commit, got proceed=%v reason=%q", proceed, reason)
	}
}

func TestAgeAndChangeGateNoChange(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(filepath.Join(dir, ".autogitpull.mutant"), 10*time.Second, 60*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	commitTime := now.Add(-time.Minute).Unix()

	proceed, _ := c.AgeAndChangeGate("repo", commitTime, 0, time.Hour, now)
	if !proceed {
		t.Fatal("expected first observation to proceed")
	}
	proceed2, reason2 := c.AgeAndChangeGate("repo", commitTime, 0, time.Hour, now)
	if proceed2 || reason2 != "No change" {
		t.Fatalf("expected second call with same commit time to skip, got proceed=%v reason=%q", proceed2, reason2)
	}
}

func TestResultFeedbackNarrowsTimeoutWhenFast(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(filepath.Join(dir, ".autogitpull.mutant"), 10*time.Second, 60*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	c.ResultFeedback(false, true, 1*time.Second) // well under half of 60s
	if c.PullTimeout() != 55*time.Second {
		t.Fatalf("expected timeout narrowed to 55s, got %v", c.PullTimeout())
	}
}

package lockfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LockFileName)

	if err := Acquire(path); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	pid, err := ReadPID(path)
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("expected pid %d, got %d", os.Getpid(), pid)
	}

	if err := Release(path); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected lock file removed, stat err = %v", err)
	}
}

func TestAcquireHeldByLiveProcess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LockFileName)

	if err := Acquire(path); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer Release(path)

	err := Acquire(path)
	if err == nil {
		t.Fatal("expected second Acquire to fail while first process is alive")
	}
	if _, ok := err.(*ErrLockHeld); !ok {
		t.Fatalf("expected ErrLockHeld, got %T: %v", err, err)
	}
}

func TestAcquireRemovesStaleLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LockFileName)

	if err := os.WriteFile(path, []byte("999999999\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Acquire(path); err != nil {
		t.Fatalf("expected stale lock to be reclaimed, got: %v", err)
	}
	pid, err := ReadPID(path)
	if err != nil {
		t.Fatal(err)
	}
	if pid != os.Getpid() {
		t.Fatalf("expected lock to now be owned by this pid, got %d", pid)
	}
}

func TestScopedLockReleasesOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LockFileName)

	lock, err := NewScopedLock(path)
	if err != nil {
		t.Fatalf("NewScopedLock: %v", err)
	}
	if !lock.Locked {
		t.Fatal("expected Locked true")
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("second Release should be a no-op, got: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected lock file removed after Release")
	}
}

func TestReadPIDMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LockFileName)
	if err := os.WriteFile(path, []byte("not-a-pid"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadPID(path); err == nil {
		t.Fatal("expected error for malformed pid")
	}
}

func TestProcessAliveRejectsNonPositive(t *testing.T) {
	if ProcessAlive(0) || ProcessAlive(-1) {
		t.Fatal("expected non-positive pids to be treated as not alive")
	}
}

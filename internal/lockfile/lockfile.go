// Package lockfile implements the Lock Manager (C2): single-instance
// acquisition via an exclusive-create lock file tagged with the owning
// pid, plus discovery of peer instances through lock files, Unix sockets,
// and the process table. It is the Go-native shape of the C++ original's
// procutil::acquire_lock_file / LockFileGuard / find_running_instances.
package lockfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// ErrLockHeld is returned by Acquire when another live process already
// holds the lock.
type ErrLockHeld struct {
	Path string
	PID  int
}

func (e *ErrLockHeld) Error() string {
	return fmt.Sprintf("lockfile: %s is held by running process %d", e.Path, e.PID)
}

// Acquire atomically creates path with O_EXCL semantics and writes the
// current pid into it. If the file already exists and belongs to a live
// process, it returns *ErrLockHeld. If the file exists but its pid is
// dead, the stale file is removed and acquisition is retried exactly
// once, matching spec.md §4.2's startup algorithm.
func Acquire(path string) error {
	err := createExclusive(path)
	if err == nil {
		return nil
	}
	if !os.IsExist(err) {
		return fmt.Errorf("lockfile: creating %s: %w", path, err)
	}

	pid, readErr := ReadPID(path)
	if readErr == nil && ProcessAlive(pid) {
		return &ErrLockHeld{Path: path, PID: pid}
	}

	// Stale lock: the pid inside is dead (or unreadable). Remove and retry
	// once.
	if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
		return fmt.Errorf("lockfile: removing stale lock %s: %w", path, rmErr)
	}
	if err := createExclusive(path); err != nil {
		return fmt.Errorf("lockfile: retrying acquire of %s: %w", path, err)
	}
	return nil
}

func createExclusive(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%d\n", os.Getpid())
	return err
}

// Release removes the lock file. It is safe to call even if the lock was
// never acquired; removal of a non-existent path is not an error.
func Release(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lockfile: releasing %s: %w", path, err)
	}
	return nil
}

// ReadPID reads and parses the pid recorded in a lock file.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("lockfile: malformed pid in %s: %w", path, err)
	}
	return pid, nil
}

// ProcessAlive reports whether pid identifies a currently running process.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	running, err := process.PidExists(int32(pid))
	if err != nil {
		return false
	}
	return running
}

// Terminate sends a termination request to pid. It degrades to false on
// any failure rather than propagating platform-specific signal errors.
func Terminate(pid int) bool {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	if err := proc.Terminate(); err != nil {
		return false
	}
	return true
}

// ScopedLock acquires a lock on construction and releases it exactly once,
// including on panic, mirroring the C++ original's LockFileGuard.
type ScopedLock struct {
	path     string
	Locked   bool
	released bool
}

// NewScopedLock acquires path and returns a guard with Locked set to true;
// acquisition failures are returned as an error so callers can distinguish
// "someone else owns this" from "I/O failure".
func NewScopedLock(path string) (*ScopedLock, error) {
	if err := Acquire(path); err != nil {
		return nil, err
	}
	return &ScopedLock{path: path, Locked: true}, nil
}

// Release is idempotent and safe to call multiple times (e.g. from both
// a deferred call and an explicit shutdown path).
func (s *ScopedLock) Release() error {
	if s == nil || s.released {
		return nil
	}
	s.released = true
	s.Locked = false
	return Release(s.path)
}

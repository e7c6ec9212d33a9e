package repoinfo

import "sync"

// Map is the shared RepoInfo table plus the SkipSet, both guarded by the
// same mutex (spec.md §5: "SkipSet: guarded by the same mutex"). Critical
// sections are always a single read or a single write — callers never hold
// the lock across I/O (spec.md: "Workers never hold the mutex across I/O").
type Map struct {
	mu      sync.Mutex
	entries map[string]*Entry
	skip    map[string]struct{}
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{
		entries: make(map[string]*Entry),
		skip:    make(map[string]struct{}),
	}
}

// Ensure returns the entry for path, creating it as Pending if absent.
func (m *Map) Ensure(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[path]; !ok {
		m.entries[path] = &Entry{Path: path, Status: Pending}
	}
}

// Remove deletes an entry (used when discovery no longer sees a path).
func (m *Map) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, path)
	delete(m.skip, path)
}

// Get returns a value copy of the entry, or false if unknown.
func (m *Map) Get(path string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[path]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Mutate applies fn to the entry under lock, creating it first if absent.
// fn must not block or perform I/O — the lock is held for its duration.
// Progress is clamped to [0,100] after fn returns.
func (m *Map) Mutate(path string, fn func(*Entry)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[path]
	if !ok {
		e = &Entry{Path: path, Status: Pending}
		m.entries[path] = e
	}
	fn(e)
	e.Progress = clampProgress(e.Progress)
}

// SetStatus is a convenience Mutate for the common case of just changing
// status and message.
func (m *Map) SetStatus(path string, status Status, message string) {
	m.Mutate(path, func(e *Entry) {
		e.Status = status
		e.Message = message
	})
}

// SetCommit truncates hash to 7 chars before storing (spec.md commit
// invariant).
func (m *Map) SetCommit(path, hash string) {
	m.Mutate(path, func(e *Entry) {
		e.Commit = setCommit(hash)
	})
}

// SetProgress clamps to [0,100] before storing.
func (m *Map) SetProgress(path string, p int) {
	m.Mutate(path, func(e *Entry) {
		e.Progress = clampProgress(p)
	})
}

// MarkPulled latches Pulled to true; never clears it.
func (m *Map) MarkPulled(path string) {
	m.Mutate(path, func(e *Entry) {
		e.Pulled = true
	})
}

// Snapshot returns a value copy of every entry, safe for a renderer to read
// without holding the lock.
func (m *Map) Snapshot() map[string]Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Entry, len(m.entries))
	for k, v := range m.entries {
		out[k] = v.clone()
	}
	return out
}

// ResetForCycle resets entries ahead of a new scan: entries in the SkipSet
// are left as-is unless reset (the caller handles retry/reset-skip
// semantics via the skip-set helpers below); everything else goes back to
// Pending with empty message and zero progress, except NotGit entries which
// are left alone (spec.md §4.6 pre-scan step).
func (m *Map) ResetForCycle(paths []string, resetSkipped, retrySkipped bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range paths {
		e, ok := m.entries[p]
		if !ok {
			e = &Entry{Path: p, Status: Pending}
			m.entries[p] = e
		}
		_, skipped := m.skip[p]
		switch {
		case skipped && resetSkipped:
			if e.Status != NotGit {
				e.Status = Pending
				e.Message = ""
				e.Progress = 0
			}
		case skipped && !resetSkipped && !retrySkipped:
			// leave as-is; the worker no-ops if still in SkipSet
		default:
			if e.Status != NotGit {
				e.Status = Pending
				e.Message = ""
				e.Progress = 0
			}
		}
	}
	if retrySkipped {
		m.skip = make(map[string]struct{})
	}
}

// ClearStalePulling forces any entry stuck mid-cycle (Pulling/Checking) back
// to Pending — used by the scheduler before it starts a new scan, in case a
// previous process died mid-cycle.
func (m *Map) ClearStalePulling() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Status.Busy() {
			e.Status = Pending
			e.Message = ""
			e.Progress = 0
		}
	}
}

// AddSkip marks path as excluded from dispatch this cycle (and, unless
// retried/reset, the next one too).
func (m *Map) AddSkip(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skip[path] = struct{}{}
}

// IsSkipped reports whether path is currently in the SkipSet.
func (m *Map) IsSkipped(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.skip[path]
	return ok
}

// ClearSkip empties the SkipSet (retry_skipped before a scan).
func (m *Map) ClearSkip() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skip = make(map[string]struct{})
}

// ResetSkipped resets individual SkipSet entries to Pending and clears the
// SkipSet (reset_skipped).
func (m *Map) ResetSkipped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for p := range m.skip {
		if e, ok := m.entries[p]; ok && e.Status != NotGit {
			e.Status = Pending
			e.Message = ""
			e.Progress = 0
		}
	}
	m.skip = make(map[string]struct{})
}

// SkipSnapshot returns the current SkipSet's members.
func (m *Map) SkipSnapshot() map[string]struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]struct{}, len(m.skip))
	for k := range m.skip {
		out[k] = struct{}{}
	}
	return out
}

// Package repoinfo holds the shared, mutex-guarded map of per-repository
// scan state. One Entry exists per discovered path; exactly one worker
// mutates a given Entry at a time (see Map).
package repoinfo

// Status is the terminal (or in-progress) state of one repository for the
// current scan cycle.
type Status string

// The full status enum. Kept as the richer variant per spec.md §9's note
// that the source mixes two RepoStatus definitions — this one is
// authoritative.
const (
	Pending      Status = "Pending"
	Checking     Status = "Checking"
	UpToDate     Status = "UpToDate"
	Pulling      Status = "Pulling"
	PullOk       Status = "PullOk"
	PkgLockFixed Status = "PkgLockFixed"
	Dirty        Status = "Dirty"
	RemoteAhead  Status = "RemoteAhead"
	Error        Status = "Error"
	Skipped      Status = "Skipped"
	NotGit       Status = "NotGit"
	HeadProblem  Status = "HeadProblem"
	Timeout      Status = "Timeout"
	RateLimit    Status = "RateLimit"
	TempFail     Status = "TempFail"
)

// Busy reports whether status represents a worker actively owning the
// entry — the orchestrator must never re-dispatch such an entry.
func (s Status) Busy() bool {
	return s == Pulling || s == Checking
}

// Terminal reports whether status is a cycle-ending value (anything other
// than the two in-progress hints).
func (s Status) Terminal() bool {
	return !s.Busy()
}

// Package mutant implements the Mutant Adaptive Mode (C8): an opt-in
// feedback loop that widens or narrows the effective pull timeout based
// on observed pull durations, and gates repeat pulls on upstream commit
// age/change rather than scanning every repo every cycle. State persists
// to a plain two-field text file so a restarted process resumes its
// tuning instead of re-learning it: line 1 is
// "<interval_seconds> <pull_timeout_seconds>", every following line is
// "<canonical_path> <last_seen_remote_commit_epoch>" — the same
// "small sidecar state file next to the config" shape re-cinq-detergent
// uses for its own history, but a fixed line format rather than a
// serialization library's encoding.
package mutant

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MinInterval and MinPullTimeout are the spec.md §4.7 lower bounds
// enforced on activation.
const (
	MinInterval    = 5 * time.Second
	MinPullTimeout = 30 * time.Second
)

// State is the on-disk shape of the mutant state file
// (<root>/.autogitpull.mutant by default).
type State struct {
	IntervalSeconds    int64
	PullTimeoutSeconds int64
	RemoteCommitTime   map[string]int64
}

// Controller owns the live, mutable view of State plus the path it
// persists to.
type Controller struct {
	mu    sync.Mutex
	path  string
	state State
}

// Load reads path if it exists (a missing file is not an error — it just
// starts from zero state) and enforces the activation-time lower bounds
// and defaults from spec.md §4.7.
func Load(path string, defaultInterval, defaultPullTimeout time.Duration) (*Controller, error) {
	c := &Controller{path: path, state: State{RemoteCommitTime: make(map[string]int64)}}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("mutant: reading state file %s: %w", path, err)
		}
		c.state.IntervalSeconds = int64(defaultInterval / time.Second)
		c.state.PullTimeoutSeconds = int64(defaultPullTimeout / time.Second)
	} else if err := parseState(data, &c.state); err != nil {
		return nil, fmt.Errorf("mutant: parsing state file %s: %w", path, err)
	}
	if c.state.RemoteCommitTime == nil {
		c.state.RemoteCommitTime = make(map[string]int64)
	}

	if c.state.IntervalSeconds < int64(MinInterval/time.Second) {
		c.state.IntervalSeconds = int64(MinInterval / time.Second)
	}
	if c.state.PullTimeoutSeconds < int64(MinPullTimeout/time.Second) {
		c.state.PullTimeoutSeconds = int64(MinPullTimeout / time.Second)
	}

	if err := c.persistLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

// Interval and PullTimeout expose the currently tuned values.
func (c *Controller) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Duration(c.state.IntervalSeconds) * time.Second
}

func (c *Controller) PullTimeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Duration(c.state.PullTimeoutSeconds) * time.Second
}

// AgeAndChangeGate implements spec.md §4.7's intercept: given the
// repository's key, the resolved remote commit time (falling back to the
// local commit time when the remote probe failed/returned 0), and the
// updatedSince window, it decides whether a pull should proceed this
// cycle.
func (c *Controller) AgeAndChangeGate(repoKey string, remoteCommitTime, localCommitTime int64, updatedSince time.Duration, now time.Time) (proceed bool, reason string) {
	t := remoteCommitTime
	if t == 0 {
		t = localCommitTime
	}

	if updatedSince > 0 && now.Sub(time.Unix(t, 0)) > updatedSince {
		return false, "Older than limit"
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if stored, ok := c.state.RemoteCommitTime[repoKey]; ok && stored == t {
		return false, "No change"
	}
	c.state.RemoteCommitTime[repoKey] = t
	if err := c.persistLocked(); err != nil {
		// A failed persist must not block the pull that already earned
		// its way past the gate; the next successful persist will catch
		// up the on-disk copy.
		_ = err
	}
	return true, ""
}

// ResultFeedback implements spec.md §4.7's post-pull timeout tuning.
func (c *Controller) ResultFeedback(timedOut, succeeded bool, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	timeout := time.Duration(c.state.PullTimeoutSeconds) * time.Second
	changed := false

	switch {
	case timedOut:
		timeout += 5 * time.Second
		changed = true
	case succeeded:
		switch {
		case duration >= timeout:
			timeout += 5 * time.Second
			changed = true
		case duration*2 < timeout && timeout > 10*time.Second:
			timeout -= 5 * time.Second
			changed = true
		}
	}

	if changed {
		c.state.PullTimeoutSeconds = int64(timeout / time.Second)
		_ = c.persistLocked()
	}
}

func (c *Controller) persistLocked() error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d\n", c.state.IntervalSeconds, c.state.PullTimeoutSeconds)

	paths := make([]string, 0, len(c.state.RemoteCommitTime))
	for p := range c.state.RemoteCommitTime {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Fprintf(&buf, "%s %d\n", p, c.state.RemoteCommitTime[p])
	}

	if err := os.WriteFile(c.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("mutant: writing state file %s: %w", c.path, err)
	}
	return nil
}

// parseState reads the line format persistLocked writes: a header line of
// "<interval_seconds> <pull_timeout_seconds>" followed by zero or more
// "<path> <epoch>" lines.
func parseState(data []byte, s *State) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	if !scanner.Scan() {
		return fmt.Errorf("empty state file")
	}
	header := strings.Fields(scanner.Text())
	if len(header) != 2 {
		return fmt.Errorf("malformed header line %q", scanner.Text())
	}
	interval, err := strconv.ParseInt(header[0], 10, 64)
	if err != nil {
		return fmt.Errorf("parsing interval_seconds: %w", err)
	}
	pullTimeout, err := strconv.ParseInt(header[1], 10, 64)
	if err != nil {
		return fmt.Errorf("parsing pull_timeout_seconds: %w", err)
	}
	s.IntervalSeconds = interval
	s.PullTimeoutSeconds = pullTimeout
	s.RemoteCommitTime = make(map[string]int64)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return fmt.Errorf("malformed entry line %q", line)
		}
		epoch, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return fmt.Errorf("parsing epoch for %q: %w", fields[0], err)
		}
		s.RemoteCommitTime[fields[0]] = epoch
	}
	return scanner.Err()
}

// DefaultStatePath is the <root>/.autogitpull.mutant convention from
// spec.md §4.7.
func DefaultStatePath(root string) string {
	return root + "/.autogitpull.mutant"
}

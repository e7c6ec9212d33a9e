// Package gitexec implements the Git Capability Layer (C4): an
// exec-based wrapper around the system git binary. The retry-on-transient
// error shape (index.lock, cannot lock ref) and the strings.TrimSpace /
// CombinedOutput plumbing are adapted directly from re-cinq-detergent's
// internal/git.Repo.run; what changes is the operation surface, which now
// matches spec.md §4.4 (local/remote hash, accessibility probe, the
// pull-result codes, and the rate/disk-capped transfer callback) instead
// of the teacher's worktree/rebase/notes surface.
package gitexec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/autogitpull/autogitpull/internal/creds"
)

// Retry constants for transient git errors, unchanged from the teacher.
const (
	retryInitialDelay = 200 * time.Millisecond
	retryMaxAttempts  = 6
	retryMultiplier   = 2
)

var transientPatterns = []string{
	"index file open failed",
	"index.lock",
	"cannot lock ref",
}

func isTransient(errMsg string) bool {
	for _, p := range transientPatterns {
		if strings.Contains(errMsg, p) {
			return true
		}
	}
	return false
}

// PullResult is the stable, observable pull-result code set from
// spec.md §4.4.
type PullResult int

const (
	PullUpToDate       PullResult = 0
	PullPkgLockFixed   PullResult = 1
	PullError          PullResult = 2
	PullDirty          PullResult = 3
	PullTimeout        PullResult = 4
	PullRateLimit      PullResult = 5
)

func (r PullResult) String() string {
	switch r {
	case PullUpToDate:
		return "up-to-date"
	case PullPkgLockFixed:
		return "pkg-lock-fixed"
	case PullError:
		return "error"
	case PullDirty:
		return "dirty"
	case PullTimeout:
		return "timeout"
	case PullRateLimit:
		return "rate-limit"
	default:
		return "unknown"
	}
}

// Repo wraps git operations for a single repository directory.
type Repo struct {
	Dir string

	// Creds supplies the Credential Resolver's inputs for this repo's
	// remote (spec.md §4.4/§4.10); the zero value resolves to the
	// library-default credential (step 6 of creds.Resolve).
	Creds creds.Settings
	// Proxy is pushed as `-c http.proxy` on every network-touching
	// invocation when non-empty.
	Proxy string
	// NetworkTimeout bounds git's own stall detection via
	// `-c http.lowSpeedLimit/-time`, independent of the context deadline
	// that bounds the whole operation.
	NetworkTimeout time.Duration

	// sleepFn is swapped out in tests to avoid real delays.
	sleepFn func(time.Duration)
}

// NewRepo creates a Repo for dir.
func NewRepo(dir string) *Repo {
	return &Repo{Dir: dir, sleepFn: time.Sleep}
}

func (r *Repo) sleep(d time.Duration) {
	if r.sleepFn != nil {
		r.sleepFn(d)
		return
	}
	time.Sleep(d)
}

// netEnv resolves the credential environment for this repo's remote.
func (r *Repo) netEnv() []string {
	return creds.Resolve(creds.AllowSSHKey|creds.AllowUsername|creds.AllowUserPass, r.Creds).Vars
}

// netGlobalArgs builds the `-c` flags that must precede the git subcommand
// on every network-touching invocation, realizing spec.md §4.4/§9's proxy
// and low-speed-timeout configuration as actual argv rather than process
// state.
func (r *Repo) netGlobalArgs() []string {
	var args []string
	if r.Proxy != "" {
		args = append(args, "-c", "http.proxy="+r.Proxy)
	}
	if r.NetworkTimeout > 0 {
		args = append(args,
			"-c", "http.lowSpeedLimit=1000",
			"-c", fmt.Sprintf("http.lowSpeedTime=%d", int(r.NetworkTimeout.Seconds())))
	}
	return args
}

// run executes a git subcommand in the repo directory, retrying transient
// lock-contention failures with exponential backoff. env, when non-nil, is
// appended to the subprocess environment (used to carry resolved
// credentials); ctx bounds the whole call, including retries.
func (r *Repo) run(ctx context.Context, env []string, args ...string) (string, error) {
	delay := retryInitialDelay
	for attempt := 0; attempt < retryMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		cmd := exec.CommandContext(ctx, "git", args...)
		cmd.Dir = r.Dir
		if len(env) > 0 {
			cmd.Env = append(os.Environ(), env...)
		}
		out, err := cmd.CombinedOutput()
		if err == nil {
			return strings.TrimSpace(string(out)), nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		errMsg := strings.TrimSpace(string(out))
		if !isTransient(errMsg) || attempt == retryMaxAttempts-1 {
			return "", fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), errMsg, err)
		}
		r.sleep(delay)
		delay *= retryMultiplier
	}
	return "", nil
}

// IsGitRepo never fails: it reports whether Dir looks like a Git working
// tree (or bare repo) by asking git itself.
func (r *Repo) IsGitRepo(ctx context.Context) bool {
	_, err := r.run(ctx, nil, "rev-parse", "--git-dir")
	return err == nil
}

// LocalHash returns the 40-char hex hash of HEAD.
func (r *Repo) LocalHash(ctx context.Context) (string, error) {
	out, err := r.run(ctx, nil, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("gitexec: local hash: %w", err)
	}
	return out, nil
}

// CurrentBranch returns HEAD's short branch name, or "" for a detached
// HEAD.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.run(ctx, nil, "symbolic-ref", "--short", "-q", "HEAD")
	if err != nil {
		// A detached HEAD makes symbolic-ref fail with exit 1 and no
		// output; only treat it as a real error if HEAD itself is broken.
		if _, headErr := r.run(ctx, nil, "rev-parse", "--verify", "HEAD"); headErr != nil {
			return "", fmt.Errorf("gitexec: current branch: %w", err)
		}
		return "", nil
	}
	return out, nil
}

// RemoteURL returns the configured URL for remote.
func (r *Repo) RemoteURL(ctx context.Context, remote string) (string, error) {
	out, err := r.run(ctx, nil, "remote", "get-url", remote)
	if err != nil {
		return "", fmt.Errorf("gitexec: remote url: %w", err)
	}
	return out, nil
}

// RemoteAccessible probes remote connectivity without fetching objects,
// via `git ls-remote --exit-code` limited to HEAD.
func (r *Repo) RemoteAccessible(ctx context.Context, remote string) bool {
	args := append(r.netGlobalArgs(), "ls-remote", "--exit-code", remote, "HEAD")
	_, err := r.run(ctx, r.netEnv(), args...)
	return err == nil
}

// RemoteHash resolves branch on remote to a 40-char hex hash. useCreds
// selects whether the resolved credential environment is applied to the
// underlying ls-remote call.
func (r *Repo) RemoteHash(ctx context.Context, remote, branch string, useCreds bool) (hash string, authFailed bool, err error) {
	var env []string
	if useCreds {
		env = r.netEnv()
	}
	args := append(r.netGlobalArgs(), "ls-remote", remote, "refs/heads/"+branch)
	out, runErr := r.run(ctx, env, args...)
	if runErr != nil {
		if looksLikeAuthFailure(runErr.Error()) {
			authFailed = true
		}
		return "", authFailed, fmt.Errorf("gitexec: remote hash: %w", runErr)
	}
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return "", false, fmt.Errorf("gitexec: remote hash: branch %q not found on %q", branch, remote)
	}
	return fields[0], false, nil
}

// RemoteCommitTime returns the remote HEAD commit's epoch seconds, or 0 on
// failure (degrade-silent per spec.md §4.4).
func (r *Repo) RemoteCommitTime(ctx context.Context, remote, branch string, useCreds bool) int64 {
	hash, _, err := r.RemoteHash(ctx, remote, branch, useCreds)
	if err != nil {
		return 0
	}
	// ls-remote gives us the hash only; fetching the commit metadata
	// without downloading history requires a shallow fetch of just that
	// object.
	var env []string
	if useCreds {
		env = r.netEnv()
	}
	fetchArgs := append(r.netGlobalArgs(), "fetch", "--depth=1", remote, hash)
	if _, err := r.run(ctx, env, fetchArgs...); err != nil {
		return 0
	}
	out, err := r.run(ctx, nil, "show", "-s", "--format=%ct", hash)
	if err != nil {
		return 0
	}
	t, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return 0
	}
	return t
}

// HasUncommittedChanges reports working-tree dirtiness, false on open
// failure.
func (r *Repo) HasUncommittedChanges(ctx context.Context) bool {
	out, err := r.run(ctx, nil, "status", "--porcelain")
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) != ""
}

// LastCommitDate, LastCommitAuthor and LastCommitTime report metadata for
// HEAD, degrading to an empty string / 0 on failure.
func (r *Repo) LastCommitDate(ctx context.Context) string {
	out, err := r.run(ctx, nil, "log", "-1", "--format=%cI")
	if err != nil {
		return ""
	}
	return out
}

func (r *Repo) LastCommitAuthor(ctx context.Context) string {
	out, err := r.run(ctx, nil, "log", "-1", "--format=%an")
	if err != nil {
		return ""
	}
	return out
}

func (r *Repo) LastCommitTime(ctx context.Context) int64 {
	out, err := r.run(ctx, nil, "log", "-1", "--format=%ct")
	if err != nil {
		return 0
	}
	t, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return 0
	}
	return t
}

func looksLikeAuthFailure(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "auth") || strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "could not read username")
}

// ErrNoRemoteBranch describes an expected remote-tracking ref that does not
// exist after a fetch. No function in this package returns it; TryPull
// reports that case as PullError.
var ErrNoRemoteBranch = errors.New("gitexec: remote-tracking branch not found")

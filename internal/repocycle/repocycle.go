// Package repocycle implements the Per-Repo State Machine (C6): the
// single pass from "is this still worth looking at" down to a pull
// attempt and its status recording, for one repository path in one scan
// cycle. It is the piece every other component (C7's dispatch, C8's gate,
// C9's tick) ultimately calls into.
package repocycle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"time"

	"github.com/autogitpull/autogitpull/internal/config"
	"github.com/autogitpull/autogitpull/internal/creds"
	"github.com/autogitpull/autogitpull/internal/gitexec"
	"github.com/autogitpull/autogitpull/internal/mutant"
	"github.com/autogitpull/autogitpull/internal/probe"
	"github.com/autogitpull/autogitpull/internal/repoinfo"
)

var githubHostPattern = regexp.MustCompile(`(?i)(^|[@/.])github\.com([:/]|$)`)

// Deps bundles the collaborators a cycle needs beyond the path/options
// pair, so the signature stays readable as the state machine grows.
type Deps struct {
	Map     *repoinfo.Map
	Mutant  *mutant.Controller // nil when mutant mode is inactive
	Probe   *probe.Probe
	Logger  *slog.Logger
	NewRepo func(dir string) *gitexec.Repo // overridable in tests
}

// Run executes one cycle for path. The pull timeout starts at
// eff.PullTimeout; runPull adds 5s after a previous Timeout status and
// raises it to the mutant controller's timeout when that is larger. The
// adjusted value does not persist beyond this call.
func Run(ctx context.Context, path string, opts *config.Options, eff config.Effective, deps Deps) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newRepo := deps.NewRepo
	if newRepo == nil {
		newRepo = gitexec.NewRepo
	}

	prior, known := deps.Map.Get(path)
	if known && prior.Status.Busy() {
		logger.Debug("repo busy, skipping this cycle", "path", path)
		return
	}

	if eff.Exclude {
		deps.Map.SetStatus(path, repoinfo.Skipped, "Excluded")
		return
	}

	if _, err := os.Stat(path); err != nil {
		deps.Map.SetStatus(path, repoinfo.Skipped, "Missing")
		return
	}

	repo := newRepo(path)
	if !repo.IsGitRepo(ctx) {
		deps.Map.SetStatus(path, repoinfo.NotGit, "")
		return
	}

	deps.Map.SetStatus(path, repoinfo.Checking, "")

	remoteURL, err := repo.RemoteURL(ctx, opts.Remote)
	if err != nil {
		deps.Map.SetStatus(path, repoinfo.HeadProblem, "no remote "+opts.Remote)
		deps.Map.AddSkip(path)
		return
	}

	repo.Creds = creds.Settings{
		SSHPublicKey:   opts.Credentials.SSHPublicKey,
		SSHPrivateKey:  opts.Credentials.SSHPrivateKey,
		CredentialFile: opts.Credentials.CredentialsFile,
		Username:       creds.UsernameFromURL(remoteURL),
	}
	repo.Proxy = opts.Credentials.Proxy
	repo.NetworkTimeout = eff.PullTimeout

	if !opts.IncludePrivate && !githubHostPattern.MatchString(remoteURL) {
		deps.Map.SetStatus(path, repoinfo.Skipped, "non-GitHub")
		return
	}

	accessible := repo.RemoteAccessible(ctx, opts.Remote)
	if !accessible && !opts.IncludePrivate {
		if prior.Pulled {
			deps.Map.SetStatus(path, repoinfo.TempFail, "remote temporarily unreachable")
		} else {
			deps.Map.SetStatus(path, repoinfo.Skipped, "private/inaccessible")
		}
		return
	}

	branch, err := repo.CurrentBranch(ctx)
	if err != nil || branch == "" {
		deps.Map.SetStatus(path, repoinfo.HeadProblem, "detached or unresolvable HEAD")
		deps.Map.AddSkip(path)
		return
	}
	deps.Map.Mutate(path, func(e *repoinfo.Entry) { e.Branch = branch })

	pullRef := branch
	if eff.PullRef != "" {
		pullRef = eff.PullRef
	}

	localHash, _ := repo.LocalHash(ctx)
	localCommitTime := repo.LastCommitTime(ctx)

	if deps.Mutant != nil {
		remoteTime := repo.RemoteCommitTime(ctx, opts.Remote, pullRef, true)
		proceed, reason := deps.Mutant.AgeAndChangeGate(path, remoteTime, localCommitTime, opts.Mutant.UpdatedSince, time.Now())
		if !proceed {
			deps.Map.SetStatus(path, repoinfo.Skipped, reason)
			return
		}
	}

	if !opts.NoHashCheck {
		remoteHash, authFailed, err := repo.RemoteHash(ctx, opts.Remote, pullRef, true)
		if err == nil && remoteHash == localHash {
			deps.Map.SetStatus(path, repoinfo.UpToDate, "")
			return
		}
		if authFailed {
			deps.Map.Mutate(path, func(e *repoinfo.Entry) { e.AuthFailed = true })
		}
	}

	if eff.CheckOnly {
		deps.Map.SetStatus(path, repoinfo.RemoteAhead, "")
		return
	}
	if opts.DryRun {
		deps.Map.SetStatus(path, repoinfo.RemoteAhead, "Dry run")
		return
	}

	deps.Map.SetStatus(path, repoinfo.Pulling, "")
	runPull(ctx, path, repo, opts, eff, deps, pullRef, prior)
}

func runPull(ctx context.Context, path string, repo *gitexec.Repo, opts *config.Options, eff config.Effective, deps Deps, pullRef string, prior repoinfo.Entry) {
	if prior.Status == repoinfo.RateLimit {
		time.Sleep(5 * time.Second)
	}
	timeout := eff.PullTimeout
	if prior.Status == repoinfo.Timeout {
		time.Sleep(5 * time.Second)
		timeout += 5 * time.Second
	}
	if deps.Mutant != nil {
		if mt := deps.Mutant.PullTimeout(); mt > timeout {
			timeout = mt
		}
	}

	// The Effective caps hold parsed byte counts; PullLimits takes KB/s.
	limits := gitexec.PullLimits{
		DownloadKBs: float64(eff.DownloadKBs) / 1024,
		UploadKBs:   float64(eff.UploadKBs) / 1024,
		DiskKBs:     float64(eff.DiskKBs) / 1024,
	}

	progress := func(cumulative int64, percent int) {
		deps.Map.SetProgress(path, percent)
	}

	pullCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	code, outLog := repo.TryPull(pullCtx, opts.Remote, pullRef, progress, limits, eff.ForcePull)
	duration := time.Since(start)

	switch {
	case pullCtx.Err() == context.DeadlineExceeded:
		code = gitexec.PullTimeout
		outLog = "pull exceeded timeout of " + timeout.String() + "\n" + outLog
	case ctx.Err() != nil:
		code = gitexec.PullTimeout
		outLog = "cycle cancelled\n" + outLog
	}

	if opts.LogDir != "" {
		writePullLog(opts.LogDir, path, outLog)
	}

	applyResult(path, code, duration, eff, deps, opts, prior)
}

func applyResult(path string, code gitexec.PullResult, duration time.Duration, eff config.Effective, deps Deps, opts *config.Options, prior repoinfo.Entry) {
	switch code {
	case gitexec.PullUpToDate:
		deps.Map.SetStatus(path, repoinfo.PullOk, "")
		deps.Map.MarkPulled(path)
		if deps.Mutant != nil {
			deps.Mutant.ResultFeedback(false, true, duration)
		}
		maybeRunHook(path, eff)
	case gitexec.PullPkgLockFixed:
		deps.Map.SetStatus(path, repoinfo.PkgLockFixed, "")
		deps.Map.MarkPulled(path)
		if deps.Mutant != nil {
			deps.Mutant.ResultFeedback(false, true, duration)
		}
		maybeRunHook(path, eff)
	case gitexec.PullDirty:
		deps.Map.SetStatus(path, repoinfo.Dirty, "uncommitted changes")
	case gitexec.PullTimeout:
		deps.Map.SetStatus(path, repoinfo.Timeout, "")
		if deps.Mutant != nil {
			deps.Mutant.ResultFeedback(true, false, duration)
		}
	case gitexec.PullRateLimit:
		deps.Map.SetStatus(path, repoinfo.RateLimit, "")
	default:
		deps.Map.SetStatus(path, repoinfo.Error, "")
		if !prior.Pulled || opts.SkipAccessibleErrors {
			deps.Map.AddSkip(path)
		}
	}
}

func maybeRunHook(path string, eff config.Effective) {
	if eff.PostPullHook == "" {
		return
	}
	cmd := exec.Command("/bin/sh", "-c", eff.PostPullHook)
	cmd.Dir = path
	_ = cmd.Run() // engine waits for termination but does not fail the cycle on hook error
}

func writePullLog(logDir, path, content string) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return
	}
	name := filepath.Base(path) + "_" + fmt.Sprintf("%d", time.Now().Unix()) + ".log"
	_ = os.WriteFile(filepath.Join(logDir, name), []byte(content), 0644)
}

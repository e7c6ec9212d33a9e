package gitexec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/autogitpull/autogitpull/internal/rate"
)

// ProgressFunc receives cumulative transferred bytes as a fetch streams
// progress; it is also given the parsed percentage when git reports one
// (0 when unknown).
type ProgressFunc func(cumulativeBytes int64, percent int)

// PullLimits carries the bandwidth/disk caps from spec.md §4.4, expressed
// in kilobytes/sec (0 disables a cap). TryPull enforces DownloadKBs only;
// UploadKBs and DiskKBs are carried but not applied.
type PullLimits struct {
	DownloadKBs float64
	UploadKBs   float64
	DiskKBs     float64
}

// TryPull implements the C4 pull algorithm: fetch (with the rate-limited
// progress callback wired through a pty so output is line-buffered), then
// classify, then fast-forward-by-reset. It always returns a populated
// outLog, matching spec.md §4.4's "populates out_log always". ctx bounds
// the whole operation, including the fetch subprocess: a context deadline
// or cancellation terminates the subprocess rather than merely abandoning
// it.
func (r *Repo) TryPull(ctx context.Context, remote, pullRef string, progress ProgressFunc, limits PullLimits, force bool) (PullResult, string) {
	var logBuf strings.Builder

	branch := pullRef
	if branch == "" {
		b, err := r.CurrentBranch(ctx)
		if err != nil || b == "" {
			logBuf.WriteString("cannot determine current branch: ")
			if err != nil {
				logBuf.WriteString(err.Error())
			} else {
				logBuf.WriteString("detached HEAD")
			}
			return PullError, logBuf.String()
		}
		branch = b
	}

	limiter := rate.New(limits.DownloadKBs)
	limiter.Reset()

	result, fetchLog := r.fetchWithProgress(ctx, remote, branch, progress, limiter)
	logBuf.WriteString(fetchLog)

	switch result {
	case fetchOK:
		// fall through to comparison below
	case fetchRateLimited:
		logBuf.WriteString("\nretrying once after rate-limit sleep")
		r.sleep(2 * time.Second)
		retryResult, retryLog := r.fetchWithProgress(ctx, remote, branch, progress, limiter)
		logBuf.WriteString(retryLog)
		if retryResult == fetchTimeout {
			return PullTimeout, logBuf.String()
		}
		if retryResult != fetchOK {
			return PullRateLimit, logBuf.String()
		}
	case fetchTimeout:
		return PullTimeout, logBuf.String()
	case fetchAuthFailed:
		return PullError, logBuf.String()
	case fetchOther:
		return PullError, logBuf.String()
	}

	remoteRef := fmt.Sprintf("refs/remotes/%s/%s", remote, branch)
	remoteOid, err := r.run(ctx, nil, "rev-parse", remoteRef)
	if err != nil {
		logBuf.WriteString("\nresolving " + remoteRef + ": " + err.Error())
		if ctx.Err() != nil {
			return PullTimeout, logBuf.String()
		}
		return PullError, logBuf.String()
	}
	localOid, err := r.run(ctx, nil, "rev-parse", "HEAD")
	if err != nil {
		logBuf.WriteString("\nresolving HEAD: " + err.Error())
		return PullError, logBuf.String()
	}

	if remoteOid == localOid {
		logBuf.WriteString("\nAlready up to date")
		return PullUpToDate, logBuf.String()
	}

	if !force && r.HasUncommittedChanges(ctx) {
		logBuf.WriteString("\nworking tree has uncommitted changes, refusing to overwrite")
		return PullDirty, logBuf.String()
	}

	if _, err := r.run(ctx, nil, "reset", "--hard", remoteOid); err != nil {
		if fixed, fixLog := r.tryPackageLockRecovery(ctx, remoteOid); fixed {
			logBuf.WriteString("\n" + fixLog)
			return PullPkgLockFixed, logBuf.String()
		}
		logBuf.WriteString("\nhard reset to " + remoteOid + ": " + err.Error())
		return PullError, logBuf.String()
	}

	logBuf.WriteString("\nfast-forwarded to " + remoteOid)
	return PullUpToDate, logBuf.String()
}

// tryPackageLockRecovery retries the reset after removing the most common
// blocking file (package-lock.json) that leaves the index in a state a
// plain hard reset cannot resolve by itself (an unmerged entry left by a
// partially-applied previous pull). Only this single well-known file is
// special-cased, per spec.md §4.4's "package-lock recovery path".
func (r *Repo) tryPackageLockRecovery(ctx context.Context, remoteOid string) (bool, string) {
	const blocker = "package-lock.json"
	if _, err := os.Stat(r.Dir + string(os.PathSeparator) + blocker); err != nil {
		return false, ""
	}
	if _, err := r.run(ctx, nil, "rm", "-f", blocker); err != nil {
		return false, ""
	}
	if _, err := r.run(ctx, nil, "reset", "--hard", remoteOid); err != nil {
		return false, ""
	}
	return true, "removed blocking " + blocker + " and retried reset"
}

type fetchOutcome int

const (
	fetchOK fetchOutcome = iota
	fetchTimeout
	fetchRateLimited
	fetchAuthFailed
	fetchOther
)

var progressPercent = regexp.MustCompile(`(\d+)%`)
var progressBytes = regexp.MustCompile(`\(([\d.]+)\s*([KMG]i?B)\)`)

// fetchWithProgress runs `git fetch --progress` under a pty so git emits
// its human progress lines (which are normally suppressed without a tty),
// parses cumulative bytes/percent off them, and pumps both through the
// rate limiter and the caller's ProgressFunc. This mirrors the teacher's
// invokeAgent pty-capture pattern, redirected at git's own stderr stream
// instead of an agent subprocess's stdout.
func (r *Repo) fetchWithProgress(ctx context.Context, remote, branch string, progress ProgressFunc, limiter *rate.Limiter) (fetchOutcome, string) {
	args := append(r.netGlobalArgs(), "fetch", "--progress", remote, branch)
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	if env := r.netEnv(); len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	ptmx, pts, err := pty.Open()
	if err != nil {
		// No pty support on this platform/sandbox: fall back to a plain
		// pipe, losing live progress but not correctness.
		return r.fetchPlain(ctx, remote, branch)
	}
	defer ptmx.Close()

	cmd.Stdout = pts
	cmd.Stderr = pts
	if err := cmd.Start(); err != nil {
		pts.Close()
		return fetchOther, fmt.Sprintf("starting fetch: %v", err)
	}
	pts.Close()

	var out strings.Builder
	var cumulative int64
	scanner := bufio.NewScanner(ptmx)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		out.WriteString(line)
		out.WriteByte('\n')

		pct := parsePercent(line)
		if b := parseBytes(line); b > cumulative {
			cumulative = b
		}
		if limiter != nil {
			limiter.Observe(cumulative)
		}
		if progress != nil {
			progress(cumulative, pct)
		}
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return fetchTimeout, out.String()
	}
	var pathErr *os.PathError
	if waitErr != nil && !(errors.As(waitErr, &pathErr) && pathErr.Err == syscall.EIO) {
		return classifyFetchError(out.String(), waitErr), out.String()
	}
	return fetchOK, out.String()
}

// fetchPlain is the non-pty fallback: same classification, no live
// progress.
func (r *Repo) fetchPlain(ctx context.Context, remote, branch string) (fetchOutcome, string) {
	args := append(r.netGlobalArgs(), "fetch", remote, branch)
	out, err := r.run(ctx, r.netEnv(), args...)
	if err != nil {
		if ctx.Err() != nil {
			return fetchTimeout, err.Error()
		}
		return classifyFetchError(err.Error(), err), err.Error()
	}
	return fetchOK, out
}

func classifyFetchError(msg string, err error) fetchOutcome {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "429"):
		if strings.Contains(lower, "timed out") || strings.Contains(lower, "timeout") {
			return fetchTimeout
		}
		return fetchRateLimited
	case strings.Contains(lower, "timed out") || strings.Contains(lower, "timeout"):
		return fetchTimeout
	case looksLikeAuthFailure(lower):
		return fetchAuthFailed
	default:
		return fetchOther
	}
}

func parsePercent(line string) int {
	m := progressPercent.FindStringSubmatch(line)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func parseBytes(line string) int64 {
	m := progressBytes.FindStringSubmatch(line)
	if m == nil {
		return 0
	}
	val, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	mult := int64(1)
	switch m[2] {
	case "KiB":
		mult = 1024
	case "MiB":
		mult = 1024 * 1024
	case "GiB":
		mult = 1024 * 1024 * 1024
	}
	return int64(val * float64(mult))
}

// drainToEOF consumes a reader fully without caring about its content.
func drainToEOF(r io.Reader) {
	_, _ = io.Copy(io.Discard, r)
}

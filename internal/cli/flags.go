package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/autogitpull/autogitpull/internal/config"
)

// flagSet mirrors the on-disk fileConfig shape (internal/config/file.go):
// every scalar flag name matches its config-file key 1:1, per spec.md
// §6.5.
type flagSet struct {
	roots     []string
	ignore    []string
	recursive bool
	maxDepth  int

	remote         string
	pullRef        string
	includePrivate bool

	interval      string
	refreshRate   string
	maxRuntime    string
	pullTimeout   string
	skipTimeout   string
	exitOnTimeout bool

	concurrency int
	maxThreads  int
	cpuPercent  float64
	cpuCores    string
	memLimit    string
	downLimit   string
	upLimit     string
	diskLimit   string

	sshPublicKey   string
	sshPrivateKey  string
	credentialFile string
	proxy          string

	retrySkipped         bool
	resetSkipped         bool
	skipAccessibleErrors bool
	dontSkipTimeouts     bool
	dontSkipUnavailable  bool
	keepFirstValid       bool
	waitEmpty            int
	updatedSince         string
	rescanNew            int

	forcePull   bool
	checkOnly   bool
	dryRun      bool
	noHashCheck bool

	logDir      string
	logFile     string
	logJSON     bool
	historyFile string

	silent bool
	cli    bool

	persist      string
	respawnLimit int
	respawnDelay string
	attach       string
	background   string

	mutant        bool
	confirmMutant bool
	recoverMutant bool
	mutantConfig  string

	confirmAlert bool
	hardReset    bool
	confirmReset bool

	removeLock bool
	ignoreLock bool
	killAll    bool
	sudoSu     bool

	configFile string
}

var flags flagSet

func bindRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()

	f.StringVar(&flags.configFile, "config", "", "load options from a YAML/JSON config file")
	f.StringSliceVar(&flags.roots, "root", nil, "additional root path to scan (repeatable)")
	f.StringSliceVar(&flags.ignore, "ignore", nil, "directory name or glob to skip during discovery")
	f.BoolVar(&flags.recursive, "recursive", true, "recurse into subdirectories while discovering repos")
	f.IntVar(&flags.maxDepth, "max-depth", 0, "maximum discovery recursion depth (0 = unlimited)")

	f.StringVar(&flags.remote, "remote", "origin", "git remote name to pull from")
	f.StringVar(&flags.pullRef, "pull-ref", "", "branch/ref to pull instead of the current branch")
	f.BoolVar(&flags.includePrivate, "include-private", false, "allow non-GitHub remotes to be pulled")

	f.StringVar(&flags.interval, "interval", "0s", "time between scans (0 = scan once)")
	f.StringVar(&flags.refreshRate, "refresh-rate", "0.25s", "minimum time between display redraws")
	f.StringVar(&flags.maxRuntime, "max-runtime", "", "stop after this much wall-clock time")
	f.StringVar(&flags.pullTimeout, "pull-timeout", "30s", "per-repo pull timeout")
	f.StringVar(&flags.skipTimeout, "skip-timeout", "", "suppress retries on a timed-out repo for this long")
	f.BoolVar(&flags.exitOnTimeout, "exit-on-timeout", false, "stop the whole process on the first pull timeout")

	f.IntVar(&flags.concurrency, "concurrency", 4, "number of repos pulled in parallel")
	f.IntVar(&flags.maxThreads, "max-threads", 0, "hard cap on worker goroutines (0 = unlimited)")
	f.Float64Var(&flags.cpuPercent, "cpu-percent", 0, "throttle workers once process CPU% exceeds this (0 = unlimited)")
	f.StringVar(&flags.cpuCores, "cpu-cores", "", "pin the process to this CPU core mask (e.g. 0-3,6)")
	f.StringVar(&flags.memLimit, "mem-limit", "", "abort the in-flight scan once resident memory exceeds this")
	f.StringVar(&flags.downLimit, "download-limit", "", "cap download throughput per pull (e.g. 512K)")
	f.StringVar(&flags.upLimit, "upload-limit", "", "cap upload throughput per pull")
	f.StringVar(&flags.diskLimit, "disk-limit", "", "cap on-disk churn per pull")

	f.StringVar(&flags.sshPublicKey, "ssh-public-key", "", "SSH public key path")
	f.StringVar(&flags.sshPrivateKey, "ssh-private-key", "", "SSH private key path")
	f.StringVar(&flags.credentialFile, "credential-file", "", "file holding a username/password pair")
	f.StringVar(&flags.proxy, "proxy", "", "HTTPS_PROXY override for git operations")

	f.BoolVar(&flags.retrySkipped, "retry-skipped", false, "retry previously skipped repos every cycle")
	f.BoolVar(&flags.resetSkipped, "reset-skipped", false, "clear the skip set at the start of every cycle")
	f.BoolVar(&flags.skipAccessibleErrors, "skip-accessible-errors", false, "skip a repo on the first remote error even if it was pulled before")
	f.BoolVar(&flags.dontSkipTimeouts, "dont-skip-timeouts", false, "keep retrying repos that timed out")
	f.BoolVar(&flags.dontSkipUnavailable, "dont-skip-unavailable", false, "keep retrying repos whose remote is unreachable")
	f.BoolVar(&flags.keepFirstValid, "keep-first-valid", false, "once a repo is confirmed pullable, never re-run its capability checks")
	f.IntVar(&flags.waitEmpty, "wait-empty", 0, "keep the loop alive N empty cycles after roots run dry (-1 = forever)")
	f.StringVar(&flags.updatedSince, "updated-since", "", "mutant mode: only pull repos whose remote changed within this window")
	f.IntVar(&flags.rescanNew, "rescan-new", 0, "minutes between re-running discovery for newly added repos (0 = only at startup)")

	f.BoolVar(&flags.forcePull, "force-pull", false, "hard-reset to the remote ref even with local changes")
	f.BoolVar(&flags.checkOnly, "check-only", false, "check for updates without pulling")
	f.BoolVar(&flags.dryRun, "dry-run", false, "log what would happen without mutating any repo")
	f.BoolVar(&flags.noHashCheck, "no-hash-check", false, "always run a full fetch, skipping the cheap hash-comparison shortcut")

	f.StringVar(&flags.logDir, "log-dir", "", "directory for per-pull log files")
	f.StringVar(&flags.logFile, "log-file", "", "general process log file (default: stderr)")
	f.BoolVar(&flags.logJSON, "log-json", false, "emit structured JSON log lines instead of colorized text")
	f.StringVar(&flags.historyFile, "history-file", "", "override the invocation-history file path")

	f.BoolVar(&flags.silent, "silent", false, "disable all terminal rendering")
	f.BoolVar(&flags.cli, "cli", false, "use the one-line summary renderer instead of the full table")

	f.StringVar(&flags.persist, "persist", "", "respawn the scan loop under a supervisor named NAME on crash")
	f.IntVar(&flags.respawnLimit, "respawn-limit", 5, "maximum respawns within the respawn window")
	f.StringVar(&flags.respawnDelay, "respawn-delay", "1s", "base respawn backoff delay")
	f.StringVar(&flags.attach, "attach", "", "expose a detach-channel unix socket under this name")
	f.StringVar(&flags.background, "background", "", "alias for --attach kept for operator muscle memory")

	f.BoolVar(&flags.mutant, "mutant", false, "enable adaptive interval/timeout tuning")
	f.BoolVar(&flags.confirmMutant, "confirm-mutant", false, "required alongside --mutant")
	f.BoolVar(&flags.recoverMutant, "recover-mutant", false, "reset persisted mutant state before starting")
	f.StringVar(&flags.mutantConfig, "mutant-config", "", "path to the persisted mutant state file")

	f.BoolVar(&flags.confirmAlert, "confirm-alert", false, "required alongside --force-pull --include-private")
	f.BoolVar(&flags.hardReset, "hard-reset", false, "delete the log file, log dir, lock file, local config files and history, then exit")
	f.BoolVar(&flags.confirmReset, "confirm-reset", false, "required alongside --hard-reset")

	f.BoolVar(&flags.removeLock, "remove-lock", false, "remove this root's lock file, whether or not its holder is alive, and exit")
	f.BoolVar(&flags.ignoreLock, "ignore-lock", false, "start even if another instance holds the lock")
	f.BoolVar(&flags.killAll, "kill-all", false, "terminate the running instance holding this root's lock and exit")
	f.BoolVar(&flags.sudoSu, "sudo-su", false, "bypass --confirm-alert for this run")
}

// resolve builds an Options value from the parsed flags, layering a
// --config file underneath (flags win) the way re-cinq-detergent's
// run.go layers its single config file under CLI overrides.
func resolve(positionalRoot string) (config.Options, error) {
	o := config.Default()
	if flags.configFile != "" {
		fromFile, err := config.Load(flags.configFile)
		if err != nil {
			return config.Options{}, err
		}
		o = fromFile
	}

	if positionalRoot != "" {
		o.Roots = append([]string{positionalRoot}, o.Roots...)
	}
	o.Roots = append(o.Roots, flags.roots...)
	if len(flags.ignore) > 0 {
		o.IgnoreDirs = flags.ignore
	}
	o.Recursive = flags.recursive
	o.MaxDepth = flags.maxDepth

	o.Remote = flags.remote
	o.PullRef = flags.pullRef
	o.IncludePrivate = flags.includePrivate

	if err := applyDurations(&o); err != nil {
		return config.Options{}, err
	}
	o.ExitOnTimeout = flags.exitOnTimeout

	o.Concurrency = flags.concurrency
	o.MaxThreads = flags.maxThreads
	o.CPULimit = flags.cpuPercent
	o.CPUCoreMask = flags.cpuCores
	if err := applyByteSizes(&o); err != nil {
		return config.Options{}, err
	}

	if flags.sshPublicKey != "" || flags.sshPrivateKey != "" || flags.credentialFile != "" || flags.proxy != "" {
		o.Credentials = config.Credentials{
			SSHPublicKey:    flags.sshPublicKey,
			SSHPrivateKey:   flags.sshPrivateKey,
			CredentialsFile: flags.credentialFile,
			Proxy:           flags.proxy,
		}
	}

	o.RetrySkipped = flags.retrySkipped
	o.ResetSkipped = flags.resetSkipped
	o.SkipAccessibleErrors = flags.skipAccessibleErrors
	o.DontSkipTimeouts = flags.dontSkipTimeouts
	o.DontSkipUnavailable = flags.dontSkipUnavailable
	o.KeepFirstValid = flags.keepFirstValid
	o.WaitEmpty = flags.waitEmpty != 0
	o.WaitEmptyLimit = flags.waitEmpty
	o.RescanIntervalMin = flags.rescanNew

	o.ForcePull = flags.forcePull
	o.CheckOnly = flags.checkOnly
	o.DryRun = flags.dryRun
	o.NoHashCheck = flags.noHashCheck

	o.LogDir = flags.logDir
	o.LogFile = flags.logFile
	o.LogJSON = flags.logJSON
	o.HistoryFile = flags.historyFile

	o.Silent = flags.silent
	switch {
	case flags.silent:
		o.UI = config.UIModeSilent
	case flags.cli:
		o.UI = config.UIModeCLI
	default:
		o.UI = config.UIModeTUI
	}

	o.Persist = flags.persist != ""
	o.PersistName = flags.persist
	o.RespawnMax = flags.respawnLimit

	o.AttachName = flags.attach
	if o.AttachName == "" {
		o.AttachName = flags.background
	}

	o.Mutant.Enabled = flags.mutant
	o.Mutant.Confirmed = flags.confirmMutant
	o.Mutant.Recover = flags.recoverMutant
	o.Mutant.StateFile = flags.mutantConfig

	o.ConfirmAlert = flags.confirmAlert
	o.HardReset = flags.hardReset
	o.ConfirmReset = flags.confirmReset
	o.RemoveLock = flags.removeLock
	o.IgnoreLock = flags.ignoreLock
	o.KillAll = flags.killAll
	o.SudoSu = flags.sudoSu

	return o, nil
}

func applyDurations(o *config.Options) error {
	var err error
	set := func(s string, assign func(d time.Duration)) {
		if s == "" || err != nil {
			return
		}
		d, e := config.ParseDuration(s)
		if e != nil {
			err = e
			return
		}
		assign(d)
	}
	set(flags.interval, func(d time.Duration) { o.Interval = d })
	set(flags.refreshRate, func(d time.Duration) { o.RefreshRate = d })
	set(flags.maxRuntime, func(d time.Duration) { o.RuntimeLimit = d })
	set(flags.pullTimeout, func(d time.Duration) { o.PullTimeout = d })
	set(flags.skipTimeout, func(d time.Duration) { o.SkipTimeout = d })
	set(flags.updatedSince, func(d time.Duration) { o.Mutant.UpdatedSince = d })
	set(flags.respawnDelay, func(d time.Duration) { o.RespawnDelay = d })
	return err
}

func applyByteSizes(o *config.Options) error {
	var err error
	set := func(s string, assign func(n int64)) {
		if s == "" || err != nil {
			return
		}
		n, e := config.ParseByteSize(s)
		if e != nil {
			err = e
			return
		}
		assign(n)
	}
	// Matches config.Load's file-based parsing: the parsed byte count is
	// stored as-is. internal/orchestrator's checkThrottle converts the
	// memory limit to megabytes, and internal/repocycle converts the rate
	// caps to kilobytes/sec, before use.
	set(flags.memLimit, func(n int64) { o.MemLimitMB = n })
	set(flags.downLimit, func(n int64) { o.DownloadLimitKBs = n })
	set(flags.upLimit, func(n int64) { o.UploadLimitKBs = n })
	set(flags.diskLimit, func(n int64) { o.DiskLimitKBs = n })
	return err
}

// Package config holds the immutable scan-cycle snapshot (Options), its
// YAML/JSON loader, and the duration/byte-size parsers for the CLI surface
// described in spec.md §6.
package config

import "time"

// UIMode selects which Status Presenter renderer is active.
type UIMode string

const (
	UIModeTUI    UIMode = "tui"
	UIModeCLI    UIMode = "cli"
	UIModeSilent UIMode = "silent"
)

// Credentials mirrors spec.md §4.4/§4.10's fixed credential sources.
type Credentials struct {
	SSHPublicKey    string
	SSHPrivateKey   string
	CredentialsFile string
	Proxy           string
}

// MutantSettings configures the C8 adaptive sub-mode (spec.md §4.7).
type MutantSettings struct {
	Enabled         bool
	Confirmed       bool // --confirm-mutant
	Recover         bool // --recover-mutant
	StateFile       string
	UpdatedSince    time.Duration
}

// RepoOverride is the per-path override table entry (spec.md §3 "Options"
// and §4.6 "Dispatch... apply the override table").
type RepoOverride struct {
	ForcePull     *bool
	Exclude       *bool
	CheckOnly     *bool
	CPULimit      *float64
	DownloadLimit *int64
	UploadLimit   *int64
	DiskLimit     *int64
	MaxRuntime    *time.Duration
	PullTimeout   *time.Duration
	PostPullHook  *string
	PullRef       *string
}

// Options is the immutable snapshot for the duration of one scan cycle
// (spec.md §3). Never mutated after construction; C9 owns it read-only and
// shares it with every worker.
type Options struct {
	Roots       []string
	IgnoreDirs  []string
	Recursive   bool
	MaxDepth    int

	Remote        string // default "origin"
	PullRef       string
	IncludePrivate bool

	Interval       time.Duration
	RefreshRate    time.Duration
	RuntimeLimit   time.Duration
	PullTimeout    time.Duration
	SkipTimeout    time.Duration
	ExitOnTimeout  bool

	Concurrency int
	MaxThreads  int
	CPULimit    float64 // percent, 0 = unlimited
	CPUCoreMask string
	MemLimitMB  int64
	DownloadLimitKBs int64
	UploadLimitKBs   int64
	DiskLimitKBs     int64

	Credentials Credentials
	Mutant      MutantSettings

	RetrySkipped         bool
	ResetSkipped         bool
	SkipAccessibleErrors bool
	DontSkipTimeouts     bool
	DontSkipUnavailable  bool
	KeepFirstValid       bool
	WaitEmpty            bool
	WaitEmptyLimit       int
	RescanIntervalMin    int

	ForcePull bool
	CheckOnly bool
	DryRun    bool
	NoHashCheck bool

	LogDir     string
	LogFile    string
	LogJSON    bool
	HistoryFile string

	UI       UIMode
	Silent   bool

	Persist       bool
	PersistName   string
	RespawnMax    int
	RespawnWindow time.Duration
	RespawnDelay  time.Duration

	AttachName     string
	BackgroundName string

	HardReset    bool
	ConfirmReset bool
	ConfirmAlert bool
	RemoveLock   bool
	IgnoreLock   bool
	KillAll      bool
	SudoSu       bool

	Overrides map[string]RepoOverride
}

// Default returns an Options value with spec.md's stated defaults applied.
func Default() Options {
	return Options{
		Remote:      "origin",
		Interval:    0,
		RefreshRate: 250 * time.Millisecond,
		PullTimeout: 30 * time.Second,
		Concurrency: 4,
		UI:          UIModeCLI,
		Overrides:   map[string]RepoOverride{},
	}
}

// Effective holds the per-repo settings that ForPath resolves by layering
// an override (if one exists for the canonical path) atop the global
// defaults, per spec.md §4.6's dispatch step.
type Effective struct {
	ForcePull    bool
	Exclude      bool
	CheckOnly    bool
	CPULimit     float64
	DownloadKBs  int64
	UploadKBs    int64
	DiskKBs      int64
	MaxRuntime   time.Duration
	PullTimeout  time.Duration
	PostPullHook string
	PullRef      string
}

// ForPath computes the Effective settings for one repo path.
func (o *Options) ForPath(path string) Effective {
	eff := Effective{
		ForcePull:   o.ForcePull,
		CheckOnly:   o.CheckOnly,
		CPULimit:    o.CPULimit,
		DownloadKBs: o.DownloadLimitKBs,
		UploadKBs:   o.UploadLimitKBs,
		DiskKBs:     o.DiskLimitKBs,
		PullTimeout: o.PullTimeout,
		PullRef:     o.PullRef,
	}
	ov, ok := o.Overrides[path]
	if !ok {
		return eff
	}
	if ov.ForcePull != nil {
		eff.ForcePull = *ov.ForcePull
	}
	if ov.Exclude != nil {
		eff.Exclude = *ov.Exclude
	}
	if ov.CheckOnly != nil {
		eff.CheckOnly = *ov.CheckOnly
	}
	if ov.CPULimit != nil {
		eff.CPULimit = *ov.CPULimit
	}
	if ov.DownloadLimit != nil {
		eff.DownloadKBs = *ov.DownloadLimit
	}
	if ov.UploadLimit != nil {
		eff.UploadKBs = *ov.UploadLimit
	}
	if ov.DiskLimit != nil {
		eff.DiskKBs = *ov.DiskLimit
	}
	if ov.MaxRuntime != nil {
		eff.MaxRuntime = *ov.MaxRuntime
	}
	if ov.PullTimeout != nil {
		eff.PullTimeout = *ov.PullTimeout
	}
	if ov.PostPullHook != nil {
		eff.PostPullHook = *ov.PostPullHook
	}
	if ov.PullRef != nil {
		eff.PullRef = *ov.PullRef
	}
	return eff
}

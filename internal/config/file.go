package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// fileRepoOverride is the on-disk shape of a per-repo override entry
// (spec.md §6.5: "same key schema" as the global options).
type fileRepoOverride struct {
	ForcePull     *bool    `yaml:"force_pull,omitempty" json:"force_pull,omitempty"`
	Exclude       *bool    `yaml:"exclude,omitempty" json:"exclude,omitempty"`
	CheckOnly     *bool    `yaml:"check_only,omitempty" json:"check_only,omitempty"`
	CPULimit      *float64 `yaml:"cpu_limit,omitempty" json:"cpu_limit,omitempty"`
	DownloadLimit *string  `yaml:"download_limit,omitempty" json:"download_limit,omitempty"`
	UploadLimit   *string  `yaml:"upload_limit,omitempty" json:"upload_limit,omitempty"`
	DiskLimit     *string  `yaml:"disk_limit,omitempty" json:"disk_limit,omitempty"`
	MaxRuntime    *string  `yaml:"max_runtime,omitempty" json:"max_runtime,omitempty"`
	PullTimeout   *string  `yaml:"pull_timeout,omitempty" json:"pull_timeout,omitempty"`
	PostPullHook  *string  `yaml:"post_pull_hook,omitempty" json:"post_pull_hook,omitempty"`
	PullRef       *string  `yaml:"pull_ref,omitempty" json:"pull_ref,omitempty"`
}

// fileConfig is the on-disk shape of the config file: scalars map 1:1 onto
// --<key> flags by the same name (spec.md §6.5), plus a top-level
// `repositories` map. respawn_limit is parsed but not applied by
// toOptions.
type fileConfig struct {
	Root       string   `yaml:"root,omitempty" json:"root,omitempty"`
	Roots      []string `yaml:"roots,omitempty" json:"roots,omitempty"`
	Ignore     []string `yaml:"ignore,omitempty" json:"ignore,omitempty"`
	Recursive  bool     `yaml:"recursive,omitempty" json:"recursive,omitempty"`
	MaxDepth   int      `yaml:"max_depth,omitempty" json:"max_depth,omitempty"`

	Remote         string `yaml:"remote,omitempty" json:"remote,omitempty"`
	PullRef        string `yaml:"pull_ref,omitempty" json:"pull_ref,omitempty"`
	IncludePrivate bool   `yaml:"include_private,omitempty" json:"include_private,omitempty"`

	Interval      string `yaml:"interval,omitempty" json:"interval,omitempty"`
	RefreshRate   string `yaml:"refresh_rate,omitempty" json:"refresh_rate,omitempty"`
	MaxRuntime    string `yaml:"max_runtime,omitempty" json:"max_runtime,omitempty"`
	PullTimeout   string `yaml:"pull_timeout,omitempty" json:"pull_timeout,omitempty"`
	SkipTimeout   string `yaml:"skip_timeout,omitempty" json:"skip_timeout,omitempty"`
	ExitOnTimeout bool   `yaml:"exit_on_timeout,omitempty" json:"exit_on_timeout,omitempty"`

	Concurrency      int     `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
	MaxThreads       int     `yaml:"max_threads,omitempty" json:"max_threads,omitempty"`
	CPUPercent       float64 `yaml:"cpu_percent,omitempty" json:"cpu_percent,omitempty"`
	CPUCores         string  `yaml:"cpu_cores,omitempty" json:"cpu_cores,omitempty"`
	MemLimit         string  `yaml:"mem_limit,omitempty" json:"mem_limit,omitempty"`
	DownloadLimit    string  `yaml:"download_limit,omitempty" json:"download_limit,omitempty"`
	UploadLimit      string  `yaml:"upload_limit,omitempty" json:"upload_limit,omitempty"`
	DiskLimit        string  `yaml:"disk_limit,omitempty" json:"disk_limit,omitempty"`

	SSHPublicKey    string `yaml:"ssh_public_key,omitempty" json:"ssh_public_key,omitempty"`
	SSHPrivateKey   string `yaml:"ssh_private_key,omitempty" json:"ssh_private_key,omitempty"`
	CredentialFile  string `yaml:"credential_file,omitempty" json:"credential_file,omitempty"`
	Proxy           string `yaml:"proxy,omitempty" json:"proxy,omitempty"`

	RetrySkipped         bool `yaml:"retry_skipped,omitempty" json:"retry_skipped,omitempty"`
	ResetSkipped         bool `yaml:"reset_skipped,omitempty" json:"reset_skipped,omitempty"`
	SkipAccessibleErrors bool `yaml:"skip_accessible_errors,omitempty" json:"skip_accessible_errors,omitempty"`
	DontSkipTimeouts     bool `yaml:"dont_skip_timeouts,omitempty" json:"dont_skip_timeouts,omitempty"`
	DontSkipUnavailable  bool `yaml:"dont_skip_unavailable,omitempty" json:"dont_skip_unavailable,omitempty"`
	KeepFirstValid       bool `yaml:"keep_first_valid,omitempty" json:"keep_first_valid,omitempty"`
	WaitEmpty            int  `yaml:"wait_empty,omitempty" json:"wait_empty,omitempty"`
	UpdatedSince         string `yaml:"updated_since,omitempty" json:"updated_since,omitempty"`
	RescanNew            int  `yaml:"rescan_new,omitempty" json:"rescan_new,omitempty"`

	ForcePull   bool `yaml:"force_pull,omitempty" json:"force_pull,omitempty"`
	CheckOnly   bool `yaml:"check_only,omitempty" json:"check_only,omitempty"`
	DryRun      bool `yaml:"dry_run,omitempty" json:"dry_run,omitempty"`
	NoHashCheck bool `yaml:"no_hash_check,omitempty" json:"no_hash_check,omitempty"`

	LogDir      string `yaml:"log_dir,omitempty" json:"log_dir,omitempty"`
	LogFile     string `yaml:"log_file,omitempty" json:"log_file,omitempty"`
	LogJSON     bool   `yaml:"log_json,omitempty" json:"log_json,omitempty"`
	HistoryFile string `yaml:"history_file,omitempty" json:"history_file,omitempty"`

	Silent bool   `yaml:"silent,omitempty" json:"silent,omitempty"`
	CLI    bool   `yaml:"cli,omitempty" json:"cli,omitempty"`

	Persist       string `yaml:"persist,omitempty" json:"persist,omitempty"`
	RespawnLimit  string `yaml:"respawn_limit,omitempty" json:"respawn_limit,omitempty"`
	RespawnDelay  string `yaml:"respawn_delay,omitempty" json:"respawn_delay,omitempty"`
	Attach        string `yaml:"attach,omitempty" json:"attach,omitempty"`
	Background    string `yaml:"background,omitempty" json:"background,omitempty"`

	Mutant        bool   `yaml:"mutant,omitempty" json:"mutant,omitempty"`
	ConfirmMutant bool   `yaml:"confirm_mutant,omitempty" json:"confirm_mutant,omitempty"`
	RecoverMutant bool   `yaml:"recover_mutant,omitempty" json:"recover_mutant,omitempty"`
	MutantConfig  string `yaml:"mutant_config,omitempty" json:"mutant_config,omitempty"`

	ConfirmAlert bool `yaml:"confirm_alert,omitempty" json:"confirm_alert,omitempty"`
	HardReset    bool `yaml:"hard_reset,omitempty" json:"hard_reset,omitempty"`
	ConfirmReset bool `yaml:"confirm_reset,omitempty" json:"confirm_reset,omitempty"`

	Repositories map[string]fileRepoOverride `yaml:"repositories,omitempty" json:"repositories,omitempty"`
}

// Load reads a YAML or JSON config file (by extension) and applies it atop
// Default(), matching spec.md §6.5.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, &fc); err != nil {
			return Options{}, fmt.Errorf("parsing JSON config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return Options{}, fmt.Errorf("parsing YAML config %s: %w", path, err)
		}
	default:
		// Try YAML first (JSON is a YAML subset), fall back to JSON error.
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return Options{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	return fc.toOptions()
}

func parseDurOpt(s string, into *time.Duration) error {
	if s == "" {
		return nil
	}
	d, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*into = d
	return nil
}

func parseByteOpt(s string, into *int64) error {
	if s == "" {
		return nil
	}
	n, err := ParseByteSize(s)
	if err != nil {
		return err
	}
	*into = n
	return nil
}

func (fc *fileConfig) toOptions() (Options, error) {
	o := Default()

	if fc.Root != "" {
		o.Roots = append(o.Roots, fc.Root)
	}
	o.Roots = append(o.Roots, fc.Roots...)
	o.IgnoreDirs = fc.Ignore
	o.Recursive = fc.Recursive
	o.MaxDepth = fc.MaxDepth

	if fc.Remote != "" {
		o.Remote = fc.Remote
	}
	o.PullRef = fc.PullRef
	o.IncludePrivate = fc.IncludePrivate

	for _, pair := range []struct {
		s    string
		into *time.Duration
	}{
		{fc.Interval, &o.Interval},
		{fc.RefreshRate, &o.RefreshRate},
		{fc.MaxRuntime, &o.RuntimeLimit},
		{fc.PullTimeout, &o.PullTimeout},
		{fc.SkipTimeout, &o.SkipTimeout},
		{fc.UpdatedSince, &o.Mutant.UpdatedSince},
		{fc.RespawnDelay, &o.RespawnDelay},
	} {
		if err := parseDurOpt(pair.s, pair.into); err != nil {
			return Options{}, err
		}
	}
	o.ExitOnTimeout = fc.ExitOnTimeout

	if fc.Concurrency != 0 {
		o.Concurrency = fc.Concurrency
	}
	o.MaxThreads = fc.MaxThreads
	o.CPULimit = fc.CPUPercent
	o.CPUCoreMask = fc.CPUCores

	for _, pair := range []struct {
		s    string
		into *int64
	}{
		{fc.MemLimit, &o.MemLimitMB},
		{fc.DownloadLimit, &o.DownloadLimitKBs},
		{fc.UploadLimit, &o.UploadLimitKBs},
		{fc.DiskLimit, &o.DiskLimitKBs},
	} {
		if err := parseByteOpt(pair.s, pair.into); err != nil {
			return Options{}, err
		}
	}

	o.Credentials = Credentials{
		SSHPublicKey:    fc.SSHPublicKey,
		SSHPrivateKey:   fc.SSHPrivateKey,
		CredentialsFile: fc.CredentialFile,
		Proxy:           fc.Proxy,
	}

	o.RetrySkipped = fc.RetrySkipped
	o.ResetSkipped = fc.ResetSkipped
	o.SkipAccessibleErrors = fc.SkipAccessibleErrors
	o.DontSkipTimeouts = fc.DontSkipTimeouts
	o.DontSkipUnavailable = fc.DontSkipUnavailable
	o.KeepFirstValid = fc.KeepFirstValid
	o.WaitEmpty = fc.WaitEmpty > 0 || fc.WaitEmpty == -1
	o.WaitEmptyLimit = fc.WaitEmpty
	o.RescanIntervalMin = fc.RescanNew

	o.ForcePull = fc.ForcePull
	o.CheckOnly = fc.CheckOnly
	o.DryRun = fc.DryRun
	o.NoHashCheck = fc.NoHashCheck

	o.LogDir = fc.LogDir
	o.LogFile = fc.LogFile
	o.LogJSON = fc.LogJSON
	o.HistoryFile = fc.HistoryFile

	if fc.Silent {
		o.UI = UIModeSilent
	} else if fc.CLI {
		o.UI = UIModeCLI
	}

	o.Persist = fc.Persist != ""
	o.PersistName = fc.Persist
	o.AttachName, o.BackgroundName = fc.Attach, fc.Background

	o.Mutant.Enabled = fc.Mutant
	o.Mutant.Confirmed = fc.ConfirmMutant
	o.Mutant.Recover = fc.RecoverMutant
	o.Mutant.StateFile = fc.MutantConfig

	o.ConfirmAlert = fc.ConfirmAlert
	o.HardReset = fc.HardReset
	o.ConfirmReset = fc.ConfirmReset

	if len(fc.Repositories) > 0 {
		o.Overrides = make(map[string]RepoOverride, len(fc.Repositories))
		for path, fov := range fc.Repositories {
			ov := RepoOverride{
				ForcePull: fov.ForcePull,
				Exclude:   fov.Exclude,
				CheckOnly: fov.CheckOnly,
				CPULimit:  fov.CPULimit,
			}
			if fov.DownloadLimit != nil {
				n, err := ParseByteSize(*fov.DownloadLimit)
				if err != nil {
					return Options{}, err
				}
				ov.DownloadLimit = &n
			}
			if fov.UploadLimit != nil {
				n, err := ParseByteSize(*fov.UploadLimit)
				if err != nil {
					return Options{}, err
				}
				ov.UploadLimit = &n
			}
			if fov.DiskLimit != nil {
				n, err := ParseByteSize(*fov.DiskLimit)
				if err != nil {
					return Options{}, err
				}
				ov.DiskLimit = &n
			}
			if fov.MaxRuntime != nil {
				d, err := ParseDuration(*fov.MaxRuntime)
				if err != nil {
					return Options{}, err
				}
				ov.MaxRuntime = &d
			}
			if fov.PullTimeout != nil {
				d, err := ParseDuration(*fov.PullTimeout)
				if err != nil {
					return Options{}, err
				}
				ov.PullTimeout = &d
			}
			ov.PostPullHook = fov.PostPullHook
			ov.PullRef = fov.PullRef
			o.Overrides[path] = ov
		}
	}

	return o, nil
}

// AutoConfigPaths are the well-known locations searched by --auto-config.
func AutoConfigPaths() []string {
	paths := []string{".autogitpull.yaml", ".autogitpull.yml", ".autogitpull.json"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "autogitpull", "config.yaml"))
	}
	return paths
}

// FindAutoConfig returns the first existing auto-config path, or "".
func FindAutoConfig() string {
	for _, p := range AutoConfigPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

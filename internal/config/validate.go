package config

import "fmt"

// Validate checks an Options value for configuration errors (spec.md §7
// error taxonomy kind 1). It never touches the filesystem or the git
// capability layer — only structural checks.
func Validate(o *Options) []error {
	var errs []error

	if len(o.Roots) == 0 {
		errs = append(errs, fmt.Errorf("at least one root path is required"))
	}
	if o.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("concurrency must be >= 0"))
	}
	if o.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("max_depth must be >= 0"))
	}
	if o.CPULimit < 0 || o.CPULimit > 100 {
		errs = append(errs, fmt.Errorf("cpu_percent must be within [0,100]"))
	}
	if o.Mutant.Enabled && !o.Mutant.Confirmed {
		errs = append(errs, fmt.Errorf("mutant mode requires --confirm-mutant"))
	}
	if o.ForcePull && o.IncludePrivate && !o.ConfirmAlert && !o.SudoSu {
		errs = append(errs, fmt.Errorf("--force-pull combined with --include-private requires --confirm-alert or --sudo-su"))
	}
	if o.HardReset && !o.ConfirmReset {
		errs = append(errs, fmt.Errorf("--hard-reset requires --confirm-reset"))
	}
	return errs
}

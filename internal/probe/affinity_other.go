//go:build !linux

package probe

import "errors"

// ErrAffinityUnsupported is returned by BindAffinity on platforms without a
// sched_setaffinity-style primitive.
var ErrAffinityUnsupported = errors.New("probe: cpu affinity binding is not supported on this platform")

// BindAffinity is a no-op outside Linux; autogitpull degrades to
// scheduler-default placement rather than failing the run.
func BindAffinity(mask string) error {
	return ErrAffinityUnsupported
}

// DescribeAffinity reports that no explicit affinity is in effect.
func DescribeAffinity() (string, error) {
	return "", ErrAffinityUnsupported
}

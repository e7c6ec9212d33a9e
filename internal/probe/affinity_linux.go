//go:build linux

package probe

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// BindAffinity pins the current process to the CPU cores named by mask, a
// comma-separated list of core indices or index ranges (e.g. "0,2-3").
// Grounded on golang.org/x/sys/unix's sched_setaffinity wrapper, the only
// affinity-capable library present in the example corpus.
func BindAffinity(mask string) error {
	cores, err := parseCoreMask(mask)
	if err != nil {
		return err
	}

	var set unix.CPUSet
	set.Zero()
	for _, c := range cores {
		set.Set(c)
	}
	if err := unix.SchedSetaffinity(os.Getpid(), &set); err != nil {
		return fmt.Errorf("sched_setaffinity: %w", err)
	}
	return nil
}

// DescribeAffinity reports the cores the current process is currently
// allowed to run on.
func DescribeAffinity() (string, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(os.Getpid(), &set); err != nil {
		return "", fmt.Errorf("sched_getaffinity: %w", err)
	}
	var cores []string
	for i := 0; i < set.Count(); i++ {
		if set.IsSet(i) {
			cores = append(cores, strconv.Itoa(i))
		}
	}
	return strings.Join(cores, ","), nil
}

func parseCoreMask(mask string) ([]int, error) {
	var cores []int
	for _, part := range strings.Split(mask, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			loN, err := strconv.Atoi(lo)
			if err != nil {
				return nil, fmt.Errorf("invalid core range %q: %w", part, err)
			}
			hiN, err := strconv.Atoi(hi)
			if err != nil {
				return nil, fmt.Errorf("invalid core range %q: %w", part, err)
			}
			for c := loN; c <= hiN; c++ {
				cores = append(cores, c)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid core index %q: %w", part, err)
		}
		cores = append(cores, n)
	}
	if len(cores) == 0 {
		return nil, fmt.Errorf("empty core mask")
	}
	return cores, nil
}

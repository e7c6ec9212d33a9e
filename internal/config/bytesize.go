package config

import (
	"fmt"
	"strconv"
	"strings"
)

// byteUnits maps a recognized suffix to its power-of-1024 multiplier.
// Longer suffixes ("KB") must be checked before their single-letter
// counterparts ("K").
var byteUnits = []struct {
	suffix string
	mul    int64
}{
	{"PB", 1 << 50}, {"TB", 1 << 40}, {"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10},
	{"P", 1 << 50}, {"T", 1 << 40}, {"G", 1 << 30}, {"M", 1 << 20}, {"K", 1 << 10},
}

// ParseByteSize parses strings like "512K", "4MB", "1G" into a byte count.
// A bare integer is bytes. Powers of 1024 per spec.md §6.
func ParseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}
	upper := strings.ToUpper(s)
	for _, u := range byteUnits {
		if strings.HasSuffix(upper, u.suffix) {
			numPart := s[:len(s)-len(u.suffix)]
			n, err := strconv.ParseFloat(strings.TrimSpace(numPart), 64)
			if err != nil {
				return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
			}
			if n < 0 {
				return 0, fmt.Errorf("invalid byte size %q: negative", s)
			}
			return int64(n * float64(u.mul)), nil
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid byte size %q: negative", s)
	}
	return n, nil
}

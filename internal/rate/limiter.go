// Package rate implements the transfer-rate throttle used by the Git
// Capability Layer's fetch-progress callback (spec.md §4.4); TryPull
// applies it to the download cap only. Rather
// than a generic token bucket, it follows the spec's own formulation
// directly: given a cap in kilobytes/sec and a cumulative byte count, it
// computes the wall-clock time the transfer *should* have taken and sleeps
// the shortfall. No pack example exercises golang.org/x/time/rate (it
// never appears in any go.mod across the corpus), so this stays a small
// purpose-built limiter rather than pulling in an unexercised dependency.
package rate

import (
	"time"
)

// Limiter paces a single cumulative-byte-counter stream against a
// kilobytes-per-second cap. Zero value is a no-op limiter (cap disabled).
type Limiter struct {
	kbPerSec float64
	start    time.Time
	nowFn    func() time.Time
	sleepFn  func(time.Duration)
}

// New returns a Limiter enforcing capKBs kilobytes/sec. A cap of 0 (or
// negative) disables throttling, matching spec.md §4.4's "a value of 0
// disables that cap".
func New(capKBs float64) *Limiter {
	return &Limiter{
		kbPerSec: capKBs,
		nowFn:    time.Now,
		sleepFn:  time.Sleep,
	}
}

// Reset marks the start of a new transfer window. Callers invoke this
// once before the first progress callback of a given pull.
func (l *Limiter) Reset() {
	l.start = l.nowFn()
}

// Observe is called from the transfer-progress callback with the
// cumulative byte count seen so far. If the cap implies the transfer
// should have taken longer than it actually has, Observe sleeps the
// difference before returning.
func (l *Limiter) Observe(cumulativeBytes int64) {
	if l.kbPerSec <= 0 {
		return
	}
	if l.start.IsZero() {
		l.Reset()
	}

	elapsed := l.nowFn().Sub(l.start)
	shouldTake := time.Duration(float64(cumulativeBytes) / 1024.0 / l.kbPerSec * float64(time.Second))
	if shouldTake > elapsed {
		l.sleepFn(shouldTake - elapsed)
	}
}

// Disabled reports whether this limiter enforces no cap.
func (l *Limiter) Disabled() bool {
	return l == nil || l.kbPerSec <= 0
}

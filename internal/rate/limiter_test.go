package rate

import (
	"testing"
	"time"
)

func TestDisabledCapNeverSleeps(t *testing.T) {
	l := New(0)
	var slept time.Duration
	l.sleepFn = func(d time.Duration) { slept += d }
	l.Observe(10_000_000)
	if slept != 0 {
		t.Fatalf("expected no sleep for disabled cap, got %v", slept)
	}
	if !l.Disabled() {
		t.Fatal("expected Disabled() true for zero cap")
	}
}

func TestObserveSleepsWhenAheadOfCap(t *testing.T) {
	l := New(100) // 100 KB/s
	fakeNow := time.Unix(0, 0)
	l.nowFn = func() time.Time { return fakeNow }
	var slept time.Duration
	l.sleepFn = func(d time.Duration) { slept += d }

	l.Reset()
	// 100 KB transferred "instantly" (elapsed == 0) should take 1s at the cap.
	l.Observe(100 * 1024)
	if slept < 900*time.Millisecond {
		t.Fatalf("expected sleep near 1s, got %v", slept)
	}
}

func TestObserveDoesNotSleepWhenBehindCap(t *testing.T) {
	l := New(100)
	start := time.Unix(0, 0)
	l.nowFn = func() time.Time { return start.Add(10 * time.Second) }
	var slept time.Duration
	l.sleepFn = func(d time.Duration) { slept += d }

	l.start = start
	l.Observe(100 * 1024) // should have taken 1s, 10s have elapsed: no sleep
	if slept != 0 {
		t.Fatalf("expected no sleep, got %v", slept)
	}
}

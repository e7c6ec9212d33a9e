package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunReturnsNilOnCleanStop(t *testing.T) {
	s := New(Config{}, nil)
	err := s.Run(context.Background(), func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestRunRespawnsAfterFailureThenSucceeds(t *testing.T) {
	s := New(Config{RespawnDelay: time.Millisecond}, nil)
	var slept []time.Duration
	s.sleepFn = func(d time.Duration) { slept = append(slept, d) }

	calls := 0
	err := s.Run(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if len(slept) != 2 {
		t.Fatalf("expected 2 backoff sleeps, got %d", len(slept))
	}
	if slept[1] <= slept[0] {
		t.Fatalf("expected exponential growth, got %v then %v", slept[0], slept[1])
	}
}

func TestRunStopsAtRespawnLimit(t *testing.T) {
	s := New(Config{RespawnMax: 2, RespawnDelay: time.Millisecond}, nil)
	s.sleepFn = func(time.Duration) {}

	calls := 0
	err := s.Run(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("always fails")
	})
	if _, ok := err.(ErrRespawnLimitReached); !ok {
		t.Fatalf("expected ErrRespawnLimitReached, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly 2 attempts before hitting the limit, got %d", calls)
	}
}

func TestPruneStartsDropsOldEntries(t *testing.T) {
	s := New(Config{RespawnWindow: time.Minute}, nil)
	now := time.Unix(1000, 0)
	s.nowFn = func() time.Time { return now }

	s.starts = []time.Time{now.Add(-2 * time.Minute), now.Add(-30 * time.Second)}
	s.pruneStarts()
	if len(s.starts) != 1 {
		t.Fatalf("expected 1 surviving start, got %d", len(s.starts))
	}
}

// Package supervisor implements the Supervisor (C10): the respawn
// wrapper around the event loop used when persistence is configured,
// enforcing a bounded respawn window and exponential backoff between
// restarts.
package supervisor

import (
	"context"
	"log/slog"
	"time"
)

// LoopFunc is the function a Supervisor wraps — typically
// (*scheduler.Loop).Run. It returns an error on abnormal termination;
// spec.md §4.9 treats any non-zero return as a failure for backoff
// purposes without inspecting the reason.
type LoopFunc func(ctx context.Context) error

// Config controls respawn limits and backoff shape.
type Config struct {
	RespawnMax    int // 0 = unlimited
	RespawnWindow time.Duration
	RespawnDelay  time.Duration
	MaxBackoff    time.Duration // 0 = no cap
}

// Supervisor maintains a deque of scan-start timestamps and wraps a
// LoopFunc with respawn-on-failure semantics.
type Supervisor struct {
	cfg       Config
	logger    *slog.Logger
	starts    []time.Time
	failCount int

	sleepFn func(time.Duration)
	nowFn   func() time.Time
}

// New returns a Supervisor for cfg.
func New(cfg Config, logger *slog.Logger) *Supervisor {
	if cfg.RespawnDelay <= 0 {
		cfg.RespawnDelay = time.Second
	}
	return &Supervisor{
		cfg:     cfg,
		logger:  logger,
		sleepFn: time.Sleep,
		nowFn:   time.Now,
	}
}

// ErrRespawnLimitReached is returned when the respawn window has too many
// starts in it.
type ErrRespawnLimitReached struct{}

func (ErrRespawnLimitReached) Error() string { return "supervisor: respawn limit reached" }

// Run calls fn repeatedly until it returns nil (clean stop) or the
// respawn limit is hit.
func (s *Supervisor) Run(ctx context.Context, fn LoopFunc) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.pruneStarts()
		if s.cfg.RespawnMax > 0 && len(s.starts) >= s.cfg.RespawnMax {
			if s.logger != nil {
				s.logger.Error("Respawn limit reached")
			}
			return ErrRespawnLimitReached{}
		}
		s.starts = append(s.starts, s.nowFn())

		err := fn(ctx)
		if err == nil {
			s.failCount = 0
			return nil
		}

		s.failCount++
		delay := s.backoff()
		if s.logger != nil {
			s.logger.Warn("event loop exited, respawning", "error", err, "delay", delay)
		}
		s.sleepFn(delay)
	}
}

func (s *Supervisor) pruneStarts() {
	if s.cfg.RespawnWindow <= 0 {
		return
	}
	cutoff := s.nowFn().Add(-s.cfg.RespawnWindow)
	kept := s.starts[:0]
	for _, t := range s.starts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	s.starts = kept
}

// backoff returns RespawnDelay * 2^failCount, capped at MaxBackoff when
// set.
func (s *Supervisor) backoff() time.Duration {
	d := s.cfg.RespawnDelay << uint(s.failCount)
	if s.cfg.MaxBackoff > 0 && d > s.cfg.MaxBackoff {
		return s.cfg.MaxBackoff
	}
	return d
}

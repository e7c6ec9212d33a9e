// Package orchestrator implements the Scan Orchestrator (C7): pre-scan
// reset, a bounded worker pool dispatched over a stable path vector, and
// the per-path CPU/memory throttling contract from spec.md §4.6. The
// worker pool itself is golang.org/x/sync/errgroup, the same
// fan-out-with-shared-cancellation primitive already exercised in the
// broader example pack; errgroup does not recover panics on its own; a
// per-worker guard here applies spec.md's "worker panic containment"
// explicitly.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/autogitpull/autogitpull/internal/config"
	"github.com/autogitpull/autogitpull/internal/probe"
	"github.com/autogitpull/autogitpull/internal/repocycle"
	"github.com/autogitpull/autogitpull/internal/repoinfo"
)

// CycleFunc runs one repository's state machine; production code passes
// repocycle.Run, tests substitute a stub.
type CycleFunc func(ctx context.Context, path string, opts *config.Options, eff config.Effective, deps repocycle.Deps)

// Orchestrator dispatches one scan cycle across a bounded worker pool.
type Orchestrator struct {
	Map    *repoinfo.Map
	Probe  *probe.Probe
	Logger *slog.Logger
	Cycle  CycleFunc
	Deps   repocycle.Deps
}

// New returns an Orchestrator wired to run repocycle.Run by default.
func New(m *repoinfo.Map, p *probe.Probe, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		Map:    m,
		Probe:  p,
		Logger: logger,
		Cycle:  repocycle.Run,
		Deps:   repocycle.Deps{Map: m, Probe: p, Logger: logger},
	}
}

// Result summarizes one scan for the scheduler/presenter.
type Result struct {
	PathCount    int
	StoppedEarly bool
	StopReason   string
}

// RunScan implements spec.md §4.6: pre-scan reset, then a
// fetch-and-increment worker pool over paths.
func (o *Orchestrator) RunScan(ctx context.Context, paths []string, opts *config.Options) Result {
	o.Map.ResetForCycle(paths, opts.ResetSkipped, opts.RetrySkipped)

	concurrency := effectiveConcurrency(opts, len(paths))
	if concurrency <= 0 || len(paths) == 0 {
		return Result{PathCount: len(paths)}
	}

	var idx int64 = -1
	var running int32 = 1

	g, gctx := errgroup.WithContext(ctx)
	var stopReason atomic.Value
	stopReason.Store("")

	for w := 0; w < concurrency; w++ {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					atomic.StoreInt32(&running, 0)
					stopReason.Store(fmt.Sprintf("worker panic: %v", r))
					if o.Logger != nil {
						o.Logger.Error("worker panic", "recover", r)
					}
				}
			}()

			for atomic.LoadInt32(&running) == 1 {
				i := atomic.AddInt64(&idx, 1)
				if i >= int64(len(paths)) {
					return nil
				}
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				path := paths[i]
				eff := opts.ForPath(path)
				o.Cycle(gctx, path, opts, eff, o.Deps)

				if stop, reason := o.checkThrottle(opts, eff); stop {
					atomic.StoreInt32(&running, 0)
					stopReason.Store(reason)
					return nil
				}
			}
			return nil
		})
	}

	_ = g.Wait()

	reason, _ := stopReason.Load().(string)
	return Result{
		PathCount:    len(paths),
		StoppedEarly: reason != "",
		StopReason:   reason,
	}
}

// effectiveConcurrency implements spec.md §4.6's
// min(concurrency, path_count, max_threads || inf).
func effectiveConcurrency(opts *config.Options, pathCount int) int {
	c := opts.Concurrency
	if c <= 0 {
		c = 1
	}
	if pathCount < c {
		c = pathCount
	}
	if opts.MaxThreads > 0 && opts.MaxThreads < c {
		c = opts.MaxThreads
	}
	return c
}

// checkThrottle applies the post-path memory/CPU caps from spec.md §4.6.
func (o *Orchestrator) checkThrottle(opts *config.Options, eff config.Effective) (stop bool, reason string) {
	if o.Probe == nil {
		return false, ""
	}
	// MemLimitMB holds the parsed byte count; MemoryMB reports megabytes.
	if limitMB := opts.MemLimitMB / (1024 * 1024); opts.MemLimitMB > 0 && o.Probe.MemoryMB() > limitMB {
		if o.Logger != nil {
			o.Logger.Error("memory limit exceeded, stopping scan", "limit_mb", limitMB)
		}
		return true, "memory limit exceeded"
	}
	if eff.CPULimit > 0 {
		if pct := o.Probe.CPUPercent(); pct > eff.CPULimit {
			sleepMS := (pct/eff.CPULimit - 1) * 100
			if sleepMS > 0 {
				time.Sleep(time.Duration(sleepMS) * time.Millisecond)
			}
		}
	}
	return false, ""
}

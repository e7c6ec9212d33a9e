// Package scheduler implements the Event Loop (C9): the tick-driven
// supervisor of one scan-after-scan lifetime — countdown to the next
// scan, wait-empty, periodic repository rediscovery, rendering, and the
// detach-channel broadcast.
package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/autogitpull/autogitpull/internal/config"
	"github.com/autogitpull/autogitpull/internal/discover"
	"github.com/autogitpull/autogitpull/internal/orchestrator"
	"github.com/autogitpull/autogitpull/internal/repoinfo"
)

// Renderer is implemented by internal/present's renderers; the scheduler
// calls it once per tick (at most every RefreshRate).
type Renderer interface {
	Render(snapshot map[string]repoinfo.Entry, action string)
}

// Broadcaster is implemented by internal/detach's server.
type Broadcaster interface {
	Broadcast(action string)
}

// Loop drives repeated scans until Stop is called or a process-wide
// condition (runtime limit, single-run) ends it.
type Loop struct {
	Opts         *config.Options
	Map          *repoinfo.Map
	Orchestrator *orchestrator.Orchestrator
	Renderer     Renderer
	Broadcaster  Broadcaster
	Logger       *slog.Logger

	SingleRun bool

	running       int32
	action        atomic.Value
	lastDiscovery time.Time
	lastRender    time.Time
	paths         []string
	waitEmptyIter int
}

// NewLoop constructs a Loop in the "not yet started" state.
func NewLoop(opts *config.Options, m *repoinfo.Map, o *orchestrator.Orchestrator, logger *slog.Logger) *Loop {
	l := &Loop{Opts: opts, Map: m, Orchestrator: o, Logger: logger}
	l.running = 1
	l.action.Store("")
	return l
}

// Stop requests the loop end at the next tick boundary.
func (l *Loop) Stop() {
	atomic.StoreInt32(&l.running, 0)
}

func (l *Loop) isRunning() bool {
	return atomic.LoadInt32(&l.running) == 1
}

func (l *Loop) setAction(s string) {
	l.action.Store(s)
	if l.Broadcaster != nil {
		l.Broadcaster.Broadcast(s)
	}
}

// Run blocks until the loop stops, returning nil on a clean stop and the
// context's error on cancellation. It is the body a supervisor wraps for
// respawn purposes.
func (l *Loop) Run(ctx context.Context) error {
	start := time.Now()
	l.rediscover()

	tick := time.NewTicker(l.Opts.RefreshRate)
	defer tick.Stop()

	// scanDone is a one-slot semaphore: present means no scan is in
	// flight. The tick loop only ever inspects or drains it on the
	// scheduler goroutine, so there is no need for a separate mutex
	// around the scan-launching decision below.
	scanDone := make(chan struct{}, 1)
	scanDone <- struct{}{}
	scanInFlight := false
	countdown := time.Duration(0)

ticks:
	for l.isRunning() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}

		if l.Opts.RuntimeLimit > 0 && time.Since(start) > l.Opts.RuntimeLimit {
			l.Stop()
			break
		}

		if scanInFlight {
			select {
			case <-scanDone:
				scanInFlight = false
				if l.SingleRun {
					l.Stop()
					break ticks
				}
			default:
			}
		}

		if len(l.paths) == 0 {
			if l.Opts.WaitEmpty {
				l.waitEmptyIter++
				if l.Opts.WaitEmptyLimit > 0 && l.waitEmptyIter >= l.Opts.WaitEmptyLimit {
					l.Stop()
					break
				}
			} else {
				l.Stop()
				break
			}
		}

		if l.Opts.RescanIntervalMin > 0 && time.Since(l.lastDiscovery) > time.Duration(l.Opts.RescanIntervalMin)*time.Minute {
			l.rediscover()
		}

		if !scanInFlight {
			countdown -= l.Opts.RefreshRate
			if countdown <= 0 {
				l.Map.ClearStalePulling()
				<-scanDone
				scanInFlight = true
				paths := append([]string(nil), l.paths...)
				go func() {
					defer func() { scanDone <- struct{}{} }()
					l.setAction("Scanning")
					res := l.Orchestrator.RunScan(ctx, paths, l.Opts)
					if res.StoppedEarly && l.Logger != nil {
						l.Logger.Warn("scan stopped early", "reason", res.StopReason)
					}
					l.setAction("Idle")
				}()
				countdown = l.Opts.Interval
			}
		}

		l.render()
	}

	if scanInFlight {
		select {
		case <-scanDone:
		case <-time.After(5 * time.Minute):
		}
	}
	return nil
}

func (l *Loop) rediscover() {
	found, errs := discover.Walk(discover.Options{
		Roots:     l.Opts.Roots,
		Recursive: l.Opts.Recursive,
		MaxDepth:  l.Opts.MaxDepth,
		Ignore:    l.Opts.IgnoreDirs,
	})
	for _, err := range errs {
		if l.Logger != nil {
			l.Logger.Warn("discovery error", "error", err)
		}
	}

	seen := make(map[string]bool, len(found))
	for _, p := range found {
		seen[p] = true
		l.Map.Ensure(p)
	}
	for _, p := range l.paths {
		if !seen[p] {
			l.Map.Remove(p)
		}
	}

	l.paths = found
	l.lastDiscovery = time.Now()
}

func (l *Loop) render() {
	if l.Renderer == nil {
		return
	}
	if time.Since(l.lastRender) < l.Opts.RefreshRate {
		return
	}
	action, _ := l.action.Load().(string)
	l.Renderer.Render(l.Map.Snapshot(), action)
	l.lastRender = time.Now()
}

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/autogitpull/autogitpull/internal/applog"
	"github.com/autogitpull/autogitpull/internal/config"
	"github.com/autogitpull/autogitpull/internal/detach"
	"github.com/autogitpull/autogitpull/internal/lockfile"
	"github.com/autogitpull/autogitpull/internal/mutant"
	"github.com/autogitpull/autogitpull/internal/orchestrator"
	"github.com/autogitpull/autogitpull/internal/present"
	"github.com/autogitpull/autogitpull/internal/probe"
	"github.com/autogitpull/autogitpull/internal/repocycle"
	"github.com/autogitpull/autogitpull/internal/repoinfo"
	"github.com/autogitpull/autogitpull/internal/scheduler"
	"github.com/autogitpull/autogitpull/internal/supervisor"
)

func runRoot(cmd *cobra.Command, args []string) error {
	var positional string
	if len(args) == 1 {
		positional = args[0]
	}

	opts, err := resolve(positional)
	if err != nil {
		return fmt.Errorf("resolving options: %w", err)
	}
	if errs := config.Validate(&opts); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, "autogitpull:", e)
		}
		return fmt.Errorf("%d invalid option(s)", len(errs))
	}

	var logWriter *os.File
	if opts.LogFile != "" {
		logWriter, err = os.OpenFile(opts.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer logWriter.Close()
	}
	logCfg := applog.Config{JSON: opts.LogJSON, Level: slog.LevelInfo}
	if logWriter != nil {
		logCfg.Writer = logWriter
	}
	logger, ctx := applog.Configure(context.Background(), logCfg)

	if len(opts.Roots) == 0 {
		return fmt.Errorf("no root path given")
	}

	histPath := opts.HistoryFile
	if histPath == "" {
		histPath = config.DefaultHistoryFile(opts.Roots[0])
	}
	if err := config.AppendHistory(histPath, os.Args); err != nil {
		logger.Warn("failed to record invocation history", "error", err)
	}

	lockPath := opts.Roots[0] + "/" + lockfile.LockFileName
	if opts.RemoveLock {
		return lockfile.Release(lockPath)
	}
	if opts.KillAll {
		return killRunningInstance(lockPath)
	}
	if opts.HardReset {
		return performHardReset(&opts, histPath)
	}

	var scoped *lockfile.ScopedLock
	if !opts.IgnoreLock {
		scoped, err = lockfile.NewScopedLock(lockPath)
		if err != nil {
			return fmt.Errorf("acquiring lock: %w", err)
		}
		defer scoped.Release()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := repoinfo.NewMap()
	p := probe.New(2 * time.Second)
	if opts.CPUCoreMask != "" {
		if err := probe.BindAffinity(opts.CPUCoreMask); err != nil {
			logger.Warn("failed to bind CPU affinity", "mask", opts.CPUCoreMask, "error", err)
		}
	}

	orc := orchestrator.New(m, p, logger)
	orc.Deps = buildCycleDeps(&opts, m, p, logger)

	loop := scheduler.NewLoop(&opts, m, orc, logger)
	loop.SingleRun = opts.Interval == 0

	switch opts.UI {
	case config.UIModeSilent:
		loop.Renderer = present.SilentRenderer{}
	case config.UIModeCLI:
		loop.Renderer = &present.CLIRenderer{Out: os.Stdout}
	default:
		loop.Renderer = &present.TUIRenderer{Out: os.Stdout}
	}

	if opts.AttachName != "" {
		srv, err := detach.Listen(detach.SocketPath(opts.AttachName))
		if err != nil {
			logger.Warn("failed to start detach channel", "name", opts.AttachName, "error", err)
		} else {
			defer srv.Close()
			loop.Broadcaster = srv
		}
	}

	runLoop := func(ctx context.Context) error {
		return loop.Run(ctx)
	}

	if opts.Persist {
		sup := supervisor.New(supervisor.Config{
			RespawnMax:    opts.RespawnMax,
			RespawnWindow: time.Hour,
			RespawnDelay:  opts.RespawnDelay,
			MaxBackoff:    time.Minute,
		}, logger)
		return sup.Run(ctx, runLoop)
	}
	return runLoop(ctx)
}

// killRunningInstance implements --kill-all: terminate whatever process
// holds lockPath, then release the lock file itself. A lock file with no
// live process behind it is left untouched here; --remove-lock is the
// blind-delete counterpart for that case.
func killRunningInstance(lockPath string) error {
	pid, err := lockfile.ReadPID(lockPath)
	if err != nil || !lockfile.ProcessAlive(pid) {
		fmt.Println("No running instance")
		return nil
	}
	if !lockfile.Terminate(pid) {
		return fmt.Errorf("terminating pid %d", pid)
	}
	if err := lockfile.Release(lockPath); err != nil {
		return err
	}
	fmt.Printf("Terminated process %d\n", pid)
	return nil
}

// performHardReset implements --hard-reset --confirm-reset: an explicit,
// standalone destructive action that wipes the log file, log directory,
// lock file, both config-file extensions, and the history file for the
// first root, mirroring the original autogitpull binary's reset command.
func performHardReset(opts *config.Options, histPath string) error {
	if opts.LogFile != "" {
		os.Remove(opts.LogFile)
	}
	if opts.LogDir != "" {
		os.RemoveAll(opts.LogDir)
	}
	root := opts.Roots[0]
	os.Remove(filepath.Join(root, lockfile.LockFileName))
	os.Remove(filepath.Join(root, ".autogitpull.yaml"))
	os.Remove(filepath.Join(root, ".autogitpull.json"))
	os.Remove(histPath)
	fmt.Println("Reset complete")
	return nil
}

func buildCycleDeps(opts *config.Options, m *repoinfo.Map, p *probe.Probe, logger *slog.Logger) repocycle.Deps {
	deps := repocycle.Deps{Map: m, Probe: p, Logger: logger}

	if opts.Mutant.Enabled {
		statePath := opts.Mutant.StateFile
		if statePath == "" {
			statePath = mutant.DefaultStatePath(opts.Roots[0])
		}
		if opts.Mutant.Recover {
			os.Remove(statePath)
		}
		ctrl, err := mutant.Load(statePath, opts.Interval, opts.PullTimeout)
		if err != nil {
			logger.Warn("failed to load mutant state, adaptive tuning disabled", "error", err)
		} else {
			deps.Mutant = ctrl
		}
	}

	return deps
}

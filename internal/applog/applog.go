// Package applog configures the process-wide structured logger. It follows
// the same shape as block-cachew's internal/logging package: a
// context-carried *slog.Logger, a colorized console handler for humans and
// a JSON handler for machine consumption, selected by configuration rather
// than by build tag.
package applog

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

type loggerKey struct{}

// Config selects the console/JSON handler and level, matching spec.md
// §6.3's "plain text or JSON line-per-entry" general log file.
type Config struct {
	JSON   bool
	Level  slog.Level
	Writer io.Writer // defaults to os.Stderr when nil
}

// Configure builds a *slog.Logger per Config and returns a context carrying
// it, mirroring block-cachew's logging.Configure(ctx, config).
func Configure(ctx context.Context, cfg Config) (*slog.Logger, context.Context) {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.Level})
	} else {
		handler = tint.NewHandler(w, &tint.Options{
			Level: cfg.Level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				return a
			},
		})
	}

	logger := slog.New(handler)
	return logger, context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored by Configure, or slog.Default() if
// none was ever attached (so packages never need a nil check).
func FromContext(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// ContextWithLogger attaches logger to ctx, mirroring
// logging.ContextWithLogger in block-cachew.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

package log

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/lmittmann/tint"
)

var (
	defaultLogLevel slog.LevelVar
	defaultLogger   = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     &defaultLogLevel,
	}))
)

func init() {
	defaultLogLevel.Set(slog.LevelInfo)
}

type contextKey struct{}

var loggerKey = contextKey{}

// Ctx returns the logger from the context. If no logger is found, it returns the default logger.
func Ctx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return defaultLogger
}

// With returns a new context with the given logger.
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

func SetDefaultLogLevel(level slog.Level) {
	defaultLogLevel.Set(level)
}

// Configured registers the log-format flag. The json format is the default
// and what production runs; console is tinted output for local development.
func Configured() {
	format := lflag.String("log-format", "json", "Log output format (json or console)")

	lflag.Do(func() {
		if *format != "console" {
			return
		}
		defaultLogger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      &defaultLogLevel,
			TimeFormat: time.Kitchen,
		}))
		slog.SetDefault(defaultLogger)
	})
}

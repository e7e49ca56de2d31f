package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gridhelm/gridhelm/pkg/log"
	"github.com/gridhelm/gridhelm/pkg/publish"
	"github.com/gridhelm/gridhelm/pkg/server"
	"github.com/gridhelm/gridhelm/pkg/service"
	"github.com/gridhelm/gridhelm/pkg/source"
	"github.com/gridhelm/gridhelm/pkg/storage"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
	"golang.org/x/sync/errgroup"
)

func main() {
	// init packages
	log.Configured()
	db := storage.Configured()
	src := source.Configured()
	pub := publish.Configured()

	// init service and server
	svc := service.Configured(db, src, pub)
	srv := server.Configured(db, svc)

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}
	log.SetDefaultLogLevel(level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer func() {
		if err := db.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
		}
	}()

	// the service runs the planning loop, the server exposes the API; either
	// one failing takes down the other
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Start(ctx)
	})
	g.Go(func() error {
		return srv.Run(ctx)
	})
	if err := g.Wait(); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "exiting on error", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "exited cleanly")
}

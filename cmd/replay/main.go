package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/gridhelm/gridhelm/pkg/log"
	"github.com/gridhelm/gridhelm/pkg/service"
	"github.com/gridhelm/gridhelm/pkg/source"
	"github.com/gridhelm/gridhelm/pkg/storage"
	"github.com/gridhelm/gridhelm/pkg/types"
)

// replay runs a single planning pass entirely offline: settings from a JSON
// file, forecasts from a YAML snapshot file, plan printed to stdout. Useful
// for tuning thresholds against a recorded day without touching Firestore
// or MQTT.
func main() {
	log.Configured()
	settingsPath := lflag.String("settings", "settings.json", "Path to a settings JSON file")
	snapshotPath := lflag.String("snapshot", "snapshot.yaml", "Path to a forecast snapshot YAML file")
	budget := lflag.Duration("budget", time.Minute, "Search budget for the pass")
	lflag.Configure()

	ctx := context.Background()

	raw, err := os.ReadFile(*settingsPath)
	if err != nil {
		fatal(ctx, "failed to read settings file", err)
	}
	var settings types.Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		fatal(ctx, "failed to parse settings file", err)
	}
	if *budget > 0 {
		settings.Limits.Budget = *budget
	}

	db := storage.NewMemory()
	if err := db.SetSettings(ctx, settings, types.CurrentSettingsVersion); err != nil {
		fatal(ctx, "failed to store settings", err)
	}

	svc := service.New(db, source.NewFile(*snapshotPath), nil, time.Hour)
	if err := svc.RunPass(ctx); err != nil {
		fatal(ctx, "planning pass failed", err)
	}

	plan := svc.Previous()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(plan); err != nil {
		fatal(ctx, "failed to print plan", err)
	}
}

func fatal(ctx context.Context, msg string, err error) {
	log.Ctx(ctx).ErrorContext(ctx, msg, slog.Any("error", err))
	os.Exit(1)
}

// Package service runs the planning loop: it assembles the input snapshot,
// invokes the optimizer and stabilizer, and publishes the resulting plan.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"

	"github.com/gridhelm/gridhelm/pkg/log"
	"github.com/gridhelm/gridhelm/pkg/planner"
	"github.com/gridhelm/gridhelm/pkg/publish"
	"github.com/gridhelm/gridhelm/pkg/rates"
	"github.com/gridhelm/gridhelm/pkg/source"
	"github.com/gridhelm/gridhelm/pkg/storage"
	"github.com/gridhelm/gridhelm/pkg/types"
)

// Service owns the planning loop. The only state carried between passes is
// the previous plan, swapped atomically at the end of each pass.
type Service struct {
	db       storage.Database
	src      source.Source
	pub      *publish.Publisher
	interval time.Duration

	previous atomic.Pointer[types.Plan]

	// generation implements last-trigger-wins: a pass only publishes if no
	// newer trigger started while it ran.
	generation atomic.Uint64
}

// Configured sets up the service based on flags.
func Configured(db storage.Database, src source.Source, pub *publish.Publisher) *Service {
	interval := lflag.Duration("replan-interval", 5*time.Minute, "How often to run a planning pass")

	s := &Service{
		db:  db,
		src: src,
		pub: pub,
	}

	lflag.Do(func() {
		if *interval <= 0 {
			panic("replan-interval must be positive")
		}
		s.interval = *interval
	})

	return s
}

// New builds a service without flag registration, for replays and tests.
func New(db storage.Database, src source.Source, pub *publish.Publisher, interval time.Duration) *Service {
	return &Service{db: db, src: src, pub: pub, interval: interval}
}

// Previous returns the most recently published plan, or nil if none exists.
func (s *Service) Previous() *types.Plan {
	return s.previous.Load()
}

// Start connects the publisher, restores the previous plan from storage, and
// schedules periodic passes. It blocks until the context is canceled.
func (s *Service) Start(ctx context.Context) error {
	if err := s.pub.Connect(ctx); err != nil {
		return err
	}
	defer s.pub.Close()

	if plan, err := s.db.GetLatestPlan(ctx); err == nil {
		s.previous.Store(&plan)
		log.Ctx(ctx).InfoContext(ctx, "restored previous plan",
			slog.Time("createdAt", plan.CreatedAt),
			slog.Int("windows", len(plan.Windows)))
	} else if !errors.Is(err, storage.ErrPlanNotFound) {
		return fmt.Errorf("failed to restore previous plan: %w", err)
	}

	sched := quartz.NewStdScheduler()
	sched.Start(ctx)

	replan := job.NewFunctionJob(func(ctx context.Context) (bool, error) {
		if err := s.RunPass(ctx); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "planning pass failed", slog.Any("err", err))
			return false, err
		}
		return true, nil
	})
	detail := quartz.NewJobDetail(replan, quartz.NewJobKey("replan"))
	if err := sched.ScheduleJob(detail, quartz.NewSimpleTrigger(s.interval)); err != nil {
		return fmt.Errorf("failed to schedule replan job: %w", err)
	}

	// run the first pass immediately rather than waiting a full interval
	if err := s.RunPass(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "initial planning pass failed", slog.Any("err", err))
	}

	<-ctx.Done()
	sched.Stop()
	sched.Wait(context.Background())
	return nil
}

// Simulation is the predicted outcome of an arbitrary set of windows over
// the current forecast, for dashboard what-if views.
type Simulation struct {
	Axis      types.Axis           `json:"axis"`
	Decisions []types.SlotDecision `json:"decisions"`
	Trace     types.DisplayTrace   `json:"trace"`
	Cost      float64              `json:"cost"`
}

// SimulateWindows runs the central forecast scenario against the given
// windows without touching the published plan. Nothing is persisted.
func (s *Service) SimulateWindows(ctx context.Context, windows []types.Window) (Simulation, error) {
	settings, version, err := s.db.GetSettings(ctx)
	if err != nil {
		return Simulation{}, fmt.Errorf("failed to load settings: %w", err)
	}
	settings, _, err = types.MigrateSettings(settings, version)
	if err != nil {
		return Simulation{}, fmt.Errorf("failed to migrate settings: %w", err)
	}
	if err := settings.Device.Validate(); err != nil {
		return Simulation{}, err
	}
	table, err := rates.FromSettings(settings)
	if err != nil {
		return Simulation{}, err
	}

	axis := settings.Axis(time.Now())
	snap, err := s.src.Snapshot(ctx, axis)
	if err != nil {
		return Simulation{}, fmt.Errorf("failed to fetch forecast snapshot: %w", err)
	}
	snap.Scenarios.Fill(axis)

	device := settings.Device.Aggregate()
	decisions := types.DecisionsForWindows(axis, windows)
	trace := planner.Simulate(axis, snap.Scenarios.CentralScenario(), decisions, device,
		device.SOCToKWH(snap.StartSOC),
		table.Slice(types.RateImport, axis), table.Slice(types.RateExport, axis))

	return Simulation{
		Axis:      axis,
		Decisions: decisions,
		Trace:     trace.Display(),
		Cost:      trace.Cost,
	}, nil
}

// RunPass executes one planning pass: snapshot, optimize, stabilize,
// publish. Configuration errors abort the pass with the previous plan left
// in place; forecast problems degrade the published plan's status instead.
func (s *Service) RunPass(ctx context.Context) error {
	generation := s.generation.Add(1)
	started := time.Now()

	settings, version, err := s.db.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	settings, migrated, err := types.MigrateSettings(settings, version)
	if err != nil {
		return fmt.Errorf("failed to migrate settings: %w", err)
	}
	if migrated {
		if err := s.db.SetSettings(ctx, settings, types.CurrentSettingsVersion); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to persist migrated settings", slog.Any("err", err))
		}
	}
	if settings.Pause {
		log.Ctx(ctx).InfoContext(ctx, "planning paused")
		return nil
	}

	axis := settings.Axis(started)

	snap, err := s.src.Snapshot(ctx, axis)
	if err != nil {
		// degraded, not fatal: the optimizer falls back to the previous plan
		log.Ctx(ctx).WarnContext(ctx, "failed to fetch forecast snapshot", slog.Any("err", err))
		snap = source.Snapshot{}
	}

	table, err := rates.FromSettings(settings)
	if err != nil {
		return fmt.Errorf("invalid rate configuration: %w", err)
	}

	limits := settings.Limits
	if limits.Budget <= 0 {
		// leave headroom so a slow pass never overlaps the next trigger
		limits.Budget = s.interval / 2
	}

	plan, err := planner.Optimize(ctx, planner.Inputs{
		Axis:      axis,
		Rates:     table,
		Scenarios: snap.Scenarios,
		Device:    settings.Device,
		StartSOC:  snap.StartSOC,
		Previous:  s.previous.Load(),
		Limits:    limits,
		Now:       started,
	})
	if err != nil {
		return fmt.Errorf("planning pass rejected: %w", err)
	}
	plan = planner.Stabilize(plan, s.previous.Load(), limits)

	// last-trigger-wins: drop the result if a newer pass already started
	if s.generation.Load() != generation {
		log.Ctx(ctx).InfoContext(ctx, "discarding stale pass result",
			slog.Uint64("generation", generation))
		return nil
	}
	s.previous.Store(&plan)

	if err := s.db.InsertPlan(ctx, plan); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to persist plan", slog.Any("err", err))
	}
	if settings.DryRun {
		log.Ctx(ctx).InfoContext(ctx, "dry run, not publishing plan",
			slog.Int("windows", len(plan.Windows)))
		return nil
	}
	if err := s.pub.PublishPlan(ctx, plan); err != nil {
		return fmt.Errorf("failed to publish plan: %w", err)
	}

	log.Ctx(ctx).InfoContext(ctx, "planning pass complete",
		slog.String("status", string(plan.Status)),
		slog.Int("windows", len(plan.Windows)),
		slog.Float64("blendedCost", plan.BlendedCost),
		slog.Float64("baselineCost", plan.BaselineCost),
		slog.Duration("took", time.Since(started)))
	return nil
}

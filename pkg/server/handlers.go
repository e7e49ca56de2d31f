package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gridhelm/gridhelm/pkg/log"
	"github.com/gridhelm/gridhelm/pkg/rates"
	"github.com/gridhelm/gridhelm/pkg/storage"
	"github.com/gridhelm/gridhelm/pkg/types"
)

// handleGetPlan returns the currently published plan.
func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan := s.svc.Previous()
	if plan == nil {
		writeJSONError(w, "no plan yet", http.StatusNotFound)
		return
	}
	writeJSON(w, plan)
}

// handleGetSimulation returns the published plan's predicted per-slot trace.
func (s *Server) handleGetSimulation(w http.ResponseWriter, r *http.Request) {
	plan := s.svc.Previous()
	if plan == nil || plan.Trace == nil {
		writeJSONError(w, "no simulation yet", http.StatusNotFound)
		return
	}
	writeJSON(w, struct {
		Axis  types.Axis          `json:"axis"`
		Trace *types.DisplayTrace `json:"trace"`
	}{Axis: plan.Axis, Trace: plan.Trace})
}

// handleSimulateWindows simulates an arbitrary set of windows against the
// current forecast, a what-if aid for the dashboard. The published plan is
// untouched.
func (s *Server) handleSimulateWindows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	var req struct {
		Windows []types.Window `json:"windows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sim, err := s.svc.SimulateWindows(ctx, req.Windows)
	if err != nil {
		var cerr *types.ConfigError
		if errors.As(err, &cerr) {
			writeJSONError(w, cerr.Error(), http.StatusUnprocessableEntity)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "simulation failed", slog.Any("error", err))
		writeJSONError(w, "simulation failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, sim)
}

// handleReplan triggers a planning pass immediately instead of waiting for
// the next scheduled one. Used after settings changes.
func (s *Server) handleReplan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.svc.RunPass(ctx); err != nil {
		var cerr *types.ConfigError
		if errors.As(err, &cerr) {
			writeJSONError(w, cerr.Error(), http.StatusUnprocessableEntity)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "on-demand pass failed", slog.Any("error", err))
		writeJSONError(w, "planning pass failed", http.StatusInternalServerError)
		return
	}
	plan := s.svc.Previous()
	if plan == nil {
		writeJSONError(w, "no plan produced", http.StatusInternalServerError)
		return
	}
	writeJSON(w, plan)
}

// handleGetSettings returns the stored settings after applying migrations.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	settings, version, err := s.storage.GetSettings(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}
	settings, _, err = types.MigrateSettings(settings, version)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to migrate settings", slog.Any("error", err))
		writeJSONError(w, "failed to migrate settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, settings)
}

// handleUpdateSettings validates and stores new settings. The caller is
// expected to POST /api/replan afterwards to apply them immediately.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	var settings types.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	// reject settings that would make every subsequent pass fail
	if err := settings.Axis(time.Now()).Validate(); err != nil {
		writeJSONError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if settings.Limits.MaxWindows <= 0 {
		writeJSONError(w, "maxWindows must be positive", http.StatusUnprocessableEntity)
		return
	}
	if err := settings.Device.Validate(); err != nil {
		writeJSONError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if _, err := rates.FromSettings(settings); err != nil {
		writeJSONError(w, fmt.Sprintf("invalid rate configuration: %v", err), http.StatusUnprocessableEntity)
		return
	}

	if err := s.storage.SetSettings(ctx, settings, types.CurrentSettingsVersion); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save settings", slog.Any("error", err))
		writeJSONError(w, "failed to save settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, settings)
}

// handleHistoryPlans returns the stored plans in [start, end). The range
// defaults to the trailing 24 hours.
func (s *Server) handleHistoryPlans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	end := time.Now()
	start := end.Add(-24 * time.Hour)

	if v := r.URL.Query().Get("start"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSONError(w, "invalid start time", http.StatusBadRequest)
			return
		}
		start = parsed
	}
	if v := r.URL.Query().Get("end"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSONError(w, "invalid end time", http.StatusBadRequest)
			return
		}
		end = parsed
	}
	if !end.After(start) {
		writeJSONError(w, "end must be after start", http.StatusBadRequest)
		return
	}

	plans, err := s.storage.GetPlanHistory(ctx, start, end)
	if err != nil && !errors.Is(err, storage.ErrPlanNotFound) {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get plan history", slog.Any("error", err))
		writeJSONError(w, "failed to get plan history", http.StatusInternalServerError)
		return
	}
	if plans == nil {
		plans = []types.Plan{}
	}
	writeJSON(w, plans)
}

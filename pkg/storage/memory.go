package storage

import (
	"context"
	"sync"
	"time"

	"github.com/gridhelm/gridhelm/pkg/types"
)

// Memory is an in-process Database used by the replay tool and tests. Plans
// are kept in insertion order; reads copy nothing and callers must not
// mutate returned plans.
type Memory struct {
	mu              sync.Mutex
	settings        types.Settings
	settingsVersion int
	plans           []types.Plan
}

var _ Database = (*Memory)(nil)

// NewMemory returns an empty in-memory database.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) GetSettings(context.Context) (types.Settings, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, m.settingsVersion, nil
}

func (m *Memory) SetSettings(_ context.Context, settings types.Settings, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
	m.settingsVersion = version
	return nil
}

func (m *Memory) InsertPlan(_ context.Context, plan types.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans = append(m.plans, plan)
	return nil
}

func (m *Memory) GetLatestPlan(context.Context) (types.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.plans) == 0 {
		return types.Plan{}, ErrPlanNotFound
	}
	return m.plans[len(m.plans)-1], nil
}

func (m *Memory) GetPlanHistory(_ context.Context, start, end time.Time) ([]types.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Plan
	for _, p := range m.plans {
		if !p.CreatedAt.Before(start) && p.CreatedAt.Before(end) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}

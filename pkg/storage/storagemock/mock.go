package storagemock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/gridhelm/gridhelm/pkg/storage"
	"github.com/gridhelm/gridhelm/pkg/types"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetSettings(ctx context.Context) (types.Settings, int, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Get(0).(types.Settings), args.Int(1), args.Error(2)
	}
	return types.Settings{}, 0, nil
}

func (m *MockDatabase) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	args := m.Called(ctx, settings, version)
	return args.Error(0)
}

func (m *MockDatabase) InsertPlan(ctx context.Context, plan types.Plan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *MockDatabase) GetLatestPlan(ctx context.Context) (types.Plan, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Get(0).(types.Plan), args.Error(1)
	}
	return types.Plan{}, nil
}

func (m *MockDatabase) GetPlanHistory(ctx context.Context, start, end time.Time) ([]types.Plan, error) {
	args := m.Called(ctx, start, end)
	if len(args) > 0 {
		if plans, ok := args.Get(0).([]types.Plan); ok {
			return plans, args.Error(1)
		}
		return nil, args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}

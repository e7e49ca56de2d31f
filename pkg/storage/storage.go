// Package storage persists settings and plan history. Firestore is the
// production provider; the memory provider backs offline replays and tests.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/gridhelm/gridhelm/pkg/types"
)

// ErrPlanNotFound is returned when no plan has been stored yet.
var ErrPlanNotFound = errors.New("plan not found")

// Database defines the interface for persisting plans and retrieving settings.
type Database interface {
	// Settings
	GetSettings(ctx context.Context) (types.Settings, int, error)
	SetSettings(ctx context.Context, settings types.Settings, version int) error

	// Plan history
	InsertPlan(ctx context.Context, plan types.Plan) error
	GetLatestPlan(ctx context.Context) (types.Plan, error)
	GetPlanHistory(ctx context.Context, start, end time.Time) ([]types.Plan, error)

	// Lifecycle
	Close() error
}

// Configured sets up the storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore, memory)")

	var p struct{ Database }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		case "memory":
			p.Database = NewMemory()
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}

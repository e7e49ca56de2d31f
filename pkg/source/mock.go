package source

import (
	"context"
	"sync"

	"github.com/gridhelm/gridhelm/pkg/types"
)

// Mock is a Source returning a fixed snapshot, settable at runtime. Used in
// tests and as a stand-in provider when no forecast host is wired up yet.
type Mock struct {
	mu   sync.Mutex
	snap Snapshot
	err  error
}

var _ Source = (*Mock)(nil)

// Set replaces the snapshot (and error) returned by Snapshot.
func (m *Mock) Set(snap Snapshot, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap
	m.err = err
}

// Snapshot implements Source.
func (m *Mock) Snapshot(context.Context, types.Axis) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, m.err
}

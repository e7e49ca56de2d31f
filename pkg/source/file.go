package source

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gridhelm/gridhelm/pkg/forecast"
	"github.com/gridhelm/gridhelm/pkg/types"
)

// File reads the snapshot from a YAML file on every call, so edits show up
// on the next pass without a restart. Used for offline replays and local
// development.
type File struct {
	path string
}

var _ Source = (*File)(nil)

// NewFile returns a Source backed by the YAML file at path.
func NewFile(path string) *File {
	return &File{path: path}
}

type fileSnapshot struct {
	StartSOC  float64        `yaml:"startSOC"`
	Central   string         `yaml:"central"`
	Scenarios []fileScenario `yaml:"scenarios"`
}

type fileScenario struct {
	Name    string    `yaml:"name"`
	Weight  float64   `yaml:"weight"`
	LoadKWH []float64 `yaml:"loadKWH"`
	PVKWH   []float64 `yaml:"pvKWH"`
}

// Snapshot implements Source.
func (f *File) Snapshot(_ context.Context, _ types.Axis) (Snapshot, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read snapshot file %s: %w", f.path, err)
	}

	var decoded fileSnapshot
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse snapshot file %s: %w", f.path, err)
	}

	set := forecast.Set{Central: decoded.Central}
	for _, sc := range decoded.Scenarios {
		set.Scenarios = append(set.Scenarios, forecast.Scenario{
			Name:    sc.Name,
			Weight:  sc.Weight,
			LoadKWH: sc.LoadKWH,
			PVKWH:   sc.PVKWH,
		})
	}
	if err := set.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("invalid snapshot file %s: %w", f.path, err)
	}
	return Snapshot{Scenarios: set, StartSOC: decoded.StartSOC}, nil
}

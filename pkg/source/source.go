// Package source acquires the per-pass input snapshot: the scenario
// forecast set and the battery's current state of charge. The host
// automation platform normalizes these ahead of time; providers here only
// fetch and decode, never compute forecasts.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/gridhelm/gridhelm/pkg/forecast"
	"github.com/gridhelm/gridhelm/pkg/types"
)

// Snapshot is one consistent set of inputs for a planning pass. A pass never
// observes a mix of snapshots from two different triggers.
type Snapshot struct {
	Scenarios forecast.Set `json:"scenarios" yaml:"scenarios"`

	// StartSOC is the battery's state of charge in percent at snapshot time.
	StartSOC float64 `json:"startSOC" yaml:"startSOC"`
}

// Source produces input snapshots aligned to a slot axis.
type Source interface {
	Snapshot(ctx context.Context, axis types.Axis) (Snapshot, error)
}

// Configured sets up the forecast source based on flags.
func Configured() Source {
	provider := lflag.String("source-provider", "http", "Forecast source to use (available: http, file, mock)")
	url := lflag.String("source-url", "", "URL returning the forecast snapshot as JSON")
	path := lflag.String("source-file", "", "Path to a YAML forecast snapshot")
	timeout := lflag.Duration("source-timeout", 30*time.Second, "Timeout for fetching the forecast snapshot")

	var s struct{ Source }

	lflag.Do(func() {
		switch *provider {
		case "http":
			if *url == "" {
				panic("source-url is required for the http source")
			}
			s.Source = NewHTTPJSON(*url, *timeout)
		case "file":
			if *path == "" {
				panic("source-file is required for the file source")
			}
			s.Source = NewFile(*path)
		case "mock":
			s.Source = &Mock{}
		default:
			panic(fmt.Sprintf("unknown source provider: %s", *provider))
		}
	})

	return &s
}

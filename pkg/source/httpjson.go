package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gridhelm/gridhelm/pkg/common"
	"github.com/gridhelm/gridhelm/pkg/types"
)

// maxSnapshotBytes bounds the response body read; a full 48h multi-scenario
// snapshot is well under 1MB.
const maxSnapshotBytes = 8 << 20

// HTTPJSON fetches the snapshot from an endpoint exposed by the host
// automation platform. The response body is a JSON-encoded Snapshot; the
// axis start and slot count are passed as query parameters so the host can
// align its series.
type HTTPJSON struct {
	url    string
	client *http.Client
}

var _ Source = (*HTTPJSON)(nil)

// NewHTTPJSON returns a Source fetching from url with the given timeout.
func NewHTTPJSON(url string, timeout time.Duration) *HTTPJSON {
	return &HTTPJSON{
		url:    url,
		client: common.HTTPClient(timeout),
	}
}

// Snapshot implements Source.
func (h *HTTPJSON) Snapshot(ctx context.Context, axis types.Axis) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to build snapshot request: %w", err)
	}
	q := req.URL.Query()
	q.Set("start", axis.Start.UTC().Format(time.RFC3339))
	q.Set("slotMinutes", fmt.Sprintf("%d", int(axis.SlotWidth.Minutes())))
	q.Set("slots", fmt.Sprintf("%d", axis.Slots))
	req.URL.RawQuery = q.Encode()

	resp, err := h.client.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Snapshot{}, fmt.Errorf("snapshot endpoint returned %d: %s", resp.StatusCode, body)
	}

	var snap Snapshot
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSnapshotBytes)).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if err := snap.Scenarios.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("invalid snapshot from %s: %w", h.url, err)
	}
	return snap, nil
}

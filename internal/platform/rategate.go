package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/your-org/unfold/internal/observability"
)

// rateLimitModifier pushes the post-wait average below the ceiling rather
// than exactly onto it, leaving headroom before the next wait triggers.
const rateLimitModifier = 0.5

type rateState struct {
	Requests  int64     `json:"requests"`
	StartedAt time.Time `json:"started_at"`
}

// RateGate enforces a maximum sustained request rate computed from a
// rolling request counter and the wall-clock time since the gate was
// first created. The counter and start time are persisted to a small
// state file on every request, so a restarted process resumes the same
// rolling average instead of bursting with a fresh one.
//
// Call Wait before every platform request.
type RateGate struct {
	mu        sync.Mutex
	path      string
	platform  string
	maxPerSec float64
	state     rateState

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRateGate opens (or creates) the gate persisted at path. maxPerSec is
// the sustained ceiling, e.g. 0.056 for roughly 200 requests per hour.
func NewRateGate(path, platform string, maxPerSec float64) (*RateGate, error) {
	if maxPerSec <= 0 {
		return nil, fmt.Errorf("rate gate %s: non-positive rate %f", platform, maxPerSec)
	}

	g := &RateGate{
		path:      path,
		platform:  platform,
		maxPerSec: maxPerSec,
		state:     rateState{StartedAt: time.Now().UTC()},
		sleep:     sleepCtx,
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &g.state); err != nil {
			return nil, fmt.Errorf("rate gate %s: corrupt state file %s: %w", platform, path, err)
		}
		slog.Info("resumed rate gate state", "platform", platform,
			"requests", g.state.Requests, "started_at", g.state.StartedAt)
	case os.IsNotExist(err):
		// fresh gate
	default:
		return nil, fmt.Errorf("rate gate %s: read state: %w", platform, err)
	}

	return g, nil
}

// Wait accounts one request, persists the updated counter and, when the
// rolling average is above the ceiling, blocks until the average is back
// under it. Returns early only on context cancellation.
func (g *RateGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	g.state.Requests++
	if err := g.persistLocked(); err != nil {
		slog.Warn("persist rate state", "platform", g.platform, "error", err)
	}

	elapsed := time.Since(g.state.StartedAt).Seconds()
	if elapsed < 1 {
		elapsed = 1
	}
	avg := float64(g.state.Requests) / elapsed
	observability.PlatformRequests.WithLabelValues(g.platform).Inc()

	if avg <= g.maxPerSec {
		g.mu.Unlock()
		return nil
	}

	// Sleep until requests/elapsed' falls to maxPerSec*modifier.
	target := float64(g.state.Requests) / (g.maxPerSec * rateLimitModifier)
	wait := time.Duration((target - elapsed) * float64(time.Second))
	g.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	slog.Info("rate ceiling reached, backing off", "platform", g.platform,
		"avg_per_sec", fmt.Sprintf("%.3f", avg), "wait", wait.Round(time.Second))
	observability.RateGateWaits.WithLabelValues(g.platform).Inc()

	return g.sleep(ctx, wait)
}

// Requests returns the persisted request count, for diagnostics.
func (g *RateGate) Requests() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Requests
}

func (g *RateGate) persistLocked() error {
	data, err := json.Marshal(g.state)
	if err != nil {
		return err
	}
	tmp := g.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, g.path)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

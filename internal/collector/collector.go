// Package collector samples battery state by shelling out to the macOS
// system tools and feeds the normalized readings into the history store.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// Collector is the interface for all data collectors.
type Collector interface {
	Name() string
	Collect(ctx context.Context) error
	Interval() time.Duration
}

// Run starts a collector loop that calls Collect at the configured interval.
// A cycle always runs to completion before the next one starts; ticks that
// fire while a cycle is still running are dropped, not queued. It blocks
// until the context is cancelled.
func Run(ctx context.Context, c Collector) error {
	name := c.Name()
	interval := c.Interval()
	slog.Info("collector started", "name", name, "interval", interval)

	// Collect immediately on startup
	if err := c.Collect(ctx); err != nil {
		slog.Error("collection failed", "collector", name, "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("collector stopped", "name", name)
			return ctx.Err()
		case <-ticker.C:
			if err := c.Collect(ctx); err != nil {
				slog.Error("collection failed", "collector", name, "error", err)
			}
		}
	}
}

// ErrToolUnavailable marks an external tool that is not installed on this
// host, as opposed to one that ran and failed.
var ErrToolUnavailable = errors.New("tool unavailable")

// Runner abstracts external tool invocation so the parsers and the store can
// be tested without the real OS tools.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner invokes real commands with a hard per-invocation timeout. The
// underlying tools have no timeout of their own; a hung ioreg must fail the
// cycle, not block it forever.
type ExecRunner struct {
	Timeout time.Duration
}

// Run executes the command and returns its stdout.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrToolUnavailable, name)
		}
		return nil, fmt.Errorf("running %s: %w", name, err)
	}
	return out, nil
}

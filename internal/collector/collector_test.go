package collector

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sjhan/battmon/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner serves canned output keyed by the full command line.
type fakeRunner struct {
	outputs map[string][]byte
	errs    map[string]error
	calls   []string
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	key := commandKey(name, args...)
	r.calls = append(r.calls, key)
	if err, ok := r.errs[key]; ok {
		return nil, err
	}
	if out, ok := r.outputs[key]; ok {
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrToolUnavailable, name)
}

func commandKey(name string, args ...string) string {
	key := name
	for _, a := range args {
		key += " " + a
	}
	return key
}

func newTestManager(t testing.TB) *history.Manager {
	t.Helper()
	dir := t.TempDir()
	s, err := history.New(filepath.Join(dir, "battery_history.db"), filepath.Join(dir, "backups"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return history.NewManager(s)
}

// tickCollector counts Collect calls so the loop behavior can be observed.
type tickCollector struct {
	calls atomic.Int64
	err   error
}

func (c *tickCollector) Name() string                { return "tick" }
func (c *tickCollector) Interval() time.Duration     { return 5 * time.Millisecond }
func (c *tickCollector) Collect(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestRun_CollectsImmediatelyAndStopsOnCancel(t *testing.T) {
	c := &tickCollector{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, c) }()

	assert.Eventually(t, func() bool { return c.calls.Load() >= 2 },
		time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRun_KeepsGoingAfterCollectFailure(t *testing.T) {
	c := &tickCollector{err: fmt.Errorf("boom")}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, c) }()

	assert.Eventually(t, func() bool { return c.calls.Load() >= 3 },
		time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestExecRunner_ToolUnavailable(t *testing.T) {
	r := ExecRunner{}
	_, err := r.Run(context.Background(), "battmon-no-such-tool-xyz")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolUnavailable)
}

func TestExecRunner_CapturesStdout(t *testing.T) {
	r := ExecRunner{}
	out, err := r.Run(context.Background(), "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))
}

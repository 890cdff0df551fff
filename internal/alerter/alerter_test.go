package alerter

import (
	"context"
	"testing"
	"time"

	"github.com/sjhan/battmon/internal/cache"
	"github.com/sjhan/battmon/internal/model"
	"github.com/sjhan/battmon/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snap cache.Snapshot
}

func (f *fakeSource) Latest() cache.Snapshot { return f.snap }

type fakeProvider struct {
	sent []model.Notification
	err  error
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) Send(_ context.Context, n model.Notification) error {
	f.sent = append(f.sent, n)
	return f.err
}

func ptr[T any](v T) *T { return &v }

func desktopSnapshot(health float64, cycles int64) cache.Snapshot {
	return cache.Snapshot{
		Desktop: &model.DesktopRecord{
			Timestamp:     time.Now(),
			DeviceName:    ptr("MacBook Pro"),
			BatteryHealth: &health,
			CycleCount:    &cycles,
		},
	}
}

func newTestAlerter(snap cache.Snapshot, cfg AlertConfig) (*Alerter, *fakeProvider) {
	p := &fakeProvider{}
	return New(&fakeSource{snap: snap}, []notify.Provider{p}, cfg), p
}

func TestEvaluate_HealthBelowFires(t *testing.T) {
	a, p := newTestAlerter(desktopSnapshot(78.5, 100), DefaultAlertConfig())

	a.evaluate(context.Background())

	require.Len(t, p.sent, 1)
	n := p.sent[0]
	assert.Equal(t, "battery_health_low", n.AlertType)
	assert.Equal(t, "warning", n.Severity)
	assert.Equal(t, "MacBook Pro", n.Device)
	assert.Contains(t, n.Message, "78.5%")
}

func TestEvaluate_HealthyBatteryStaysQuiet(t *testing.T) {
	a, p := newTestAlerter(desktopSnapshot(95.0, 100), DefaultAlertConfig())

	a.evaluate(context.Background())
	assert.Empty(t, p.sent)
}

func TestEvaluate_CyclesAboveFires(t *testing.T) {
	a, p := newTestAlerter(desktopSnapshot(95.0, 1200), DefaultAlertConfig())

	a.evaluate(context.Background())

	require.Len(t, p.sent, 1)
	assert.Equal(t, "battery_cycles_high", p.sent[0].AlertType)
	assert.Equal(t, "info", p.sent[0].Severity)
}

func TestEvaluate_CooldownSuppressesRepeat(t *testing.T) {
	a, p := newTestAlerter(desktopSnapshot(78.5, 100), DefaultAlertConfig())

	a.evaluate(context.Background())
	a.evaluate(context.Background())
	a.evaluate(context.Background())

	assert.Len(t, p.sent, 1)
}

func TestEvaluate_FiresAgainAfterCooldown(t *testing.T) {
	cfg := AlertConfig{
		HealthBelow: &ThresholdAlert{Threshold: 80, Severity: "warning", Cooldown: time.Hour},
	}
	a, p := newTestAlerter(desktopSnapshot(78.5, 100), cfg)

	a.evaluate(context.Background())
	require.Len(t, p.sent, 1)

	// Age the dedup entry past the cooldown.
	a.lastFired["health:desktop"] = time.Now().Add(-2 * time.Hour)
	a.evaluate(context.Background())
	assert.Len(t, p.sent, 2)
}

func TestEvaluate_MobileHealthBelow(t *testing.T) {
	snap := cache.Snapshot{
		Mobile: map[string]*model.MobileRecord{
			"UDID-1": {
				DeviceID:      "UDID-1",
				DeviceName:    ptr("iPhone"),
				BatteryHealth: ptr(72.0),
				Timestamp:     time.Now(),
			},
		},
	}
	a, p := newTestAlerter(snap, DefaultAlertConfig())

	a.evaluate(context.Background())

	require.Len(t, p.sent, 1)
	assert.Equal(t, "UDID-1", p.sent[0].Device)
	assert.Contains(t, p.sent[0].Title, "iPhone")
}

func TestEvaluate_AbsentHealthNeverFires(t *testing.T) {
	snap := cache.Snapshot{
		Desktop: &model.DesktopRecord{Timestamp: time.Now()},
	}
	a, p := newTestAlerter(snap, DefaultAlertConfig())

	a.evaluate(context.Background())
	assert.Empty(t, p.sent)
}

func TestEvaluate_DisabledRules(t *testing.T) {
	a, p := newTestAlerter(desktopSnapshot(10.0, 9999), AlertConfig{})

	a.evaluate(context.Background())
	assert.Empty(t, p.sent)
}

func TestEvaluate_ProviderErrorDoesNotStopOthers(t *testing.T) {
	failing := &fakeProvider{err: assert.AnError}
	ok := &fakeProvider{}
	a := New(&fakeSource{snap: desktopSnapshot(50.0, 100)},
		[]notify.Provider{failing, ok}, DefaultAlertConfig())

	a.evaluate(context.Background())

	assert.Len(t, failing.sent, 1)
	assert.Len(t, ok.sent, 1)
}

func TestRun_StopsOnCancel(t *testing.T) {
	a, _ := newTestAlerter(cache.Snapshot{}, DefaultAlertConfig())
	a.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("alerter did not stop")
	}
}

// Package alerter evaluates battery alert rules against the latest readings.
package alerter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sjhan/battmon/internal/cache"
	"github.com/sjhan/battmon/internal/model"
	"github.com/sjhan/battmon/internal/notify"
)

// LatestSource yields the most recent observation per device. The history
// manager satisfies this.
type LatestSource interface {
	Latest() cache.Snapshot
}

// AlertConfig holds configuration for alert rules. A nil rule is disabled.
type AlertConfig struct {
	HealthBelow *ThresholdAlert
	CyclesAbove *ThresholdAlert
}

// ThresholdAlert fires when a value crosses a threshold.
type ThresholdAlert struct {
	Threshold float64
	Severity  string
	Cooldown  time.Duration
}

// DefaultAlertConfig returns sensible alert defaults. Battery wear moves
// slowly, so cooldowns are long.
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		HealthBelow: &ThresholdAlert{Threshold: 80, Severity: "warning", Cooldown: 24 * time.Hour},
		CyclesAbove: &ThresholdAlert{Threshold: 1000, Severity: "info", Cooldown: 24 * time.Hour},
	}
}

// Alerter evaluates rules and sends notifications.
type Alerter struct {
	history   LatestSource
	providers []notify.Provider
	config    AlertConfig
	interval  time.Duration

	// Deduplication: maps alert key to last fired time.
	lastFired map[string]time.Time
}

// New creates an alerter over the given providers.
func New(src LatestSource, providers []notify.Provider, cfg AlertConfig) *Alerter {
	return &Alerter{
		history:   src,
		providers: providers,
		config:    cfg,
		interval:  5 * time.Minute,
		lastFired: make(map[string]time.Time),
	}
}

// Run starts the alerter evaluation loop.
func (a *Alerter) Run(ctx context.Context) error {
	slog.Info("alerter started", "interval", a.interval, "providers", len(a.providers))

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("alerter stopped")
			return ctx.Err()
		case <-ticker.C:
			a.evaluate(ctx)
		}
	}
}

func (a *Alerter) evaluate(ctx context.Context) {
	snap := a.history.Latest()
	now := time.Now()

	if rec := snap.Desktop; rec != nil {
		name := "this Mac"
		if rec.DeviceName != nil && *rec.DeviceName != "" {
			name = *rec.DeviceName
		}
		a.checkDesktop(ctx, now, name, rec)
	}

	for id, rec := range snap.Mobile {
		a.checkMobile(ctx, now, id, rec)
	}
}

func (a *Alerter) checkDesktop(ctx context.Context, now time.Time, name string, rec *model.DesktopRecord) {
	if cfg := a.config.HealthBelow; cfg != nil && rec.BatteryHealth != nil && *rec.BatteryHealth < cfg.Threshold {
		a.fire(ctx, now, "health:desktop", cfg.Cooldown, model.Notification{
			AlertType: "battery_health_low",
			Severity:  cfg.Severity,
			Title:     fmt.Sprintf("Battery Health Low: %s", name),
			Message:   fmt.Sprintf("%s battery health at %.1f%% (threshold %.0f%%)", name, *rec.BatteryHealth, cfg.Threshold),
			Device:    name,
			Timestamp: now,
			Metadata:  map[string]string{"health": fmt.Sprintf("%.1f", *rec.BatteryHealth)},
		})
	}

	if cfg := a.config.CyclesAbove; cfg != nil && rec.CycleCount != nil && float64(*rec.CycleCount) > cfg.Threshold {
		a.fire(ctx, now, "cycles:desktop", cfg.Cooldown, model.Notification{
			AlertType: "battery_cycles_high",
			Severity:  cfg.Severity,
			Title:     fmt.Sprintf("Battery Cycle Count High: %s", name),
			Message:   fmt.Sprintf("%s battery at %d charge cycles (threshold %.0f)", name, *rec.CycleCount, cfg.Threshold),
			Device:    name,
			Timestamp: now,
			Metadata:  map[string]string{"cycles": fmt.Sprintf("%d", *rec.CycleCount)},
		})
	}
}

func (a *Alerter) checkMobile(ctx context.Context, now time.Time, id string, rec *model.MobileRecord) {
	cfg := a.config.HealthBelow
	if cfg == nil || rec.BatteryHealth == nil || *rec.BatteryHealth >= cfg.Threshold {
		return
	}
	name := id
	if rec.DeviceName != nil && *rec.DeviceName != "" {
		name = *rec.DeviceName
	}
	a.fire(ctx, now, "health:mobile:"+id, cfg.Cooldown, model.Notification{
		AlertType: "battery_health_low",
		Severity:  cfg.Severity,
		Title:     fmt.Sprintf("Battery Health Low: %s", name),
		Message:   fmt.Sprintf("%s battery health at %.1f%% (threshold %.0f%%)", name, *rec.BatteryHealth, cfg.Threshold),
		Device:    id,
		Timestamp: now,
		Metadata:  map[string]string{"health": fmt.Sprintf("%.1f", *rec.BatteryHealth)},
	})
}

func (a *Alerter) fire(ctx context.Context, now time.Time, key string, cooldown time.Duration, notif model.Notification) {
	if last, ok := a.lastFired[key]; ok && now.Sub(last) < cooldown {
		return // still in cooldown
	}
	a.lastFired[key] = now

	for _, p := range a.providers {
		if err := p.Send(ctx, notif); err != nil {
			slog.Error("sending notification", "provider", p.Name(), "alert", notif.AlertType, "error", err)
		}
	}

	slog.Warn("alert fired",
		"type", notif.AlertType,
		"severity", notif.Severity,
		"device", notif.Device,
		"title", notif.Title,
	)
}

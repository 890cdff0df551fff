package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sjhan/battmon/internal/history"
	"github.com/sjhan/battmon/internal/normalize"
)

// ideviceinfo keys mapped to reading keys. The general domain and the
// battery domain share the same "Key: Value" output shape.
var ideviceinfoKeys = map[string]string{
	"DeviceName":             "name",
	"ProductType":            "model",
	"ProductVersion":         "os_version",
	"SerialNumber":           "serial",
	"TotalDiskCapacity":      "storage_capacity",
	"BatteryCurrentCapacity": "battery_capacity",
	"BatteryIsCharging":      "battery_charging",
	"CycleCount":             "charge_cycles",
	"DesignCapacity":         "design_capacity",
	"FullChargeCapacity":     "full_charge_capacity",
	"Temperature":            "battery_temperature_raw",
}

// MobileCollector polls USB-attached iOS devices through the libimobiledevice
// CLI tools. Hosts without those tools are normal; the collector then quietly
// records nothing.
type MobileCollector struct {
	runner   Runner
	history  *history.Manager
	interval time.Duration
}

// NewMobile creates the attached-device collector.
func NewMobile(runner Runner, h *history.Manager, interval time.Duration) *MobileCollector {
	return &MobileCollector{runner: runner, history: h, interval: interval}
}

func (c *MobileCollector) Name() string            { return "mobile-battery" }
func (c *MobileCollector) Interval() time.Duration { return c.interval }

// Collect enumerates attached devices and records one observation per
// device. A host without the tools, or with no device attached, is not an
// error.
func (c *MobileCollector) Collect(ctx context.Context) error {
	ids, err := c.deviceIDs(ctx)
	if err != nil {
		if errors.Is(err, ErrToolUnavailable) {
			slog.Debug("libimobiledevice tools not installed, skipping mobile collection")
			return nil
		}
		return err
	}

	var failed int
	for _, id := range ids {
		reading, err := c.deviceReading(ctx, id)
		if err != nil {
			slog.Warn("querying mobile device failed", "device_id", id, "error", err)
			failed++
			continue
		}
		if !c.history.SaveMobile(reading) {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d mobile devices failed", failed, len(ids))
	}
	return nil
}

// deviceIDs lists the UDIDs of attached devices, one per line.
func (c *MobileCollector) deviceIDs(ctx context.Context) ([]string, error) {
	out, err := c.runner.Run(ctx, "idevice_id", "-l")
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, line := range strings.Split(string(out), "\n") {
		if id := strings.TrimSpace(line); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// deviceReading merges the general info domain with the battery domain for
// one device. The battery domain is optional: older devices refuse it.
func (c *MobileCollector) deviceReading(ctx context.Context, id string) (normalize.Reading, error) {
	out, err := c.runner.Run(ctx, "ideviceinfo", "-u", id)
	if err != nil {
		return nil, fmt.Errorf("device info: %w", err)
	}
	reading := parseIdeviceinfo(string(out))
	reading["device_id"] = id

	if out, err := c.runner.Run(ctx, "ideviceinfo", "-u", id, "-q", "com.apple.mobile.battery"); err == nil {
		merge(reading, parseIdeviceinfo(string(out)))
	} else {
		slog.Debug("battery domain query failed", "device_id", id, "error", err)
	}

	convertMobileTemperature(reading)
	return reading, nil
}

// parseIdeviceinfo reads "Key: Value" lines, keeping only the keys we map.
func parseIdeviceinfo(out string) normalize.Reading {
	r := normalize.Reading{}
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		mapped, want := ideviceinfoKeys[strings.TrimSpace(key)]
		if !want {
			continue
		}
		if v := strings.TrimSpace(value); v != "" {
			r[mapped] = v
		}
	}
	return r
}

// convertMobileTemperature rescales the battery domain's centikelvin-style
// raw temperature into degrees Celsius.
func convertMobileTemperature(r normalize.Reading) {
	raw, ok := r.Float("battery_temperature_raw")
	delete(r, "battery_temperature_raw")
	if !ok {
		return
	}
	r["battery_temperature"] = raw / 100.0
}

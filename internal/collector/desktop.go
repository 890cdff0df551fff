package collector

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/sjhan/battmon/internal/history"
	"github.com/sjhan/battmon/internal/normalize"
)

// Patterns for the human-readable system_profiler power report.
var systemProfilerPatterns = map[string]*regexp.Regexp{
	"serial_number":    regexp.MustCompile(`Serial Number:\s*(\S+)`),
	"device_name":      regexp.MustCompile(`Device Name:\s*(\S+)`),
	"firmware_version": regexp.MustCompile(`Firmware Version:\s*(\S+)`),
	"cycle_count":      regexp.MustCompile(`Cycle Count:\s*(\d+)`),
	"condition":        regexp.MustCompile(`Condition:\s*(\w+)`),
	"max_capacity_pct": regexp.MustCompile(`Maximum Capacity:\s*(\d+)%`),
	"state_of_charge":  regexp.MustCompile(`State of Charge \(%\):\s*(\d+)`),
	"fully_charged":    regexp.MustCompile(`Fully Charged:\s*(\w+)`),
	"charging":         regexp.MustCompile(`Charging:\s*(\w+)`),
}

// Patterns for the AppleSmartBattery ioreg dump, which carries the raw
// register values the health derivation needs.
var ioregPatterns = map[string]*regexp.Regexp{
	"current_capacity":           regexp.MustCompile(`"CurrentCapacity"\s*=\s*(\d+)`),
	"max_capacity":               regexp.MustCompile(`"MaxCapacity"\s*=\s*(\d+)`),
	"design_capacity":            regexp.MustCompile(`"DesignCapacity"\s*=\s*(\d+)`),
	"cycle_count":                regexp.MustCompile(`"CycleCount"\s*=\s*(\d+)`),
	"temperature":                regexp.MustCompile(`"Temperature"\s*=\s*(\d+)`),
	"voltage":                    regexp.MustCompile(`"Voltage"\s*=\s*(\d+)`),
	"amperage":                   regexp.MustCompile(`"Amperage"\s*=\s*(\d+)`),
	"time_remaining":             regexp.MustCompile(`"TimeRemaining"\s*=\s*(\d+)`),
	"is_charging":                regexp.MustCompile(`"IsCharging"\s*=\s*(\w+)`),
	"fully_charged":              regexp.MustCompile(`"FullyCharged"\s*=\s*(\w+)`),
	"external_connected":         regexp.MustCompile(`"ExternalConnected"\s*=\s*(\w+)`),
	"apple_raw_current_capacity": regexp.MustCompile(`"AppleRawCurrentCapacity"\s*=\s*(\d+)`),
	"apple_raw_max_capacity":     regexp.MustCompile(`"AppleRawMaxCapacity"\s*=\s*(\d+)`),
	"nominal_charge_capacity":    regexp.MustCompile(`"NominalChargeCapacity"\s*=\s*(\d+)`),
	"serial":                     regexp.MustCompile(`"Serial"\s*=\s*"([^"]+)"`),
	"device_name":                regexp.MustCompile(`"DeviceName"\s*=\s*"([^"]+)"`),
	"manufacture_date":           regexp.MustCompile(`"ManufactureDate"\s*=\s*(\d+)`),
	"manufacturer":               regexp.MustCompile(`"Manufacturer"\s*=\s*"([^"]+)"`),
	"battery_serial":             regexp.MustCompile(`"BatterySerialNumber"\s*=\s*"([^"]+)"`),
}

var hardwarePatterns = map[string]*regexp.Regexp{
	"model_name":       regexp.MustCompile(`Model Name:\s*(.+)`),
	"model_identifier": regexp.MustCompile(`Model Identifier:\s*(.+)`),
	"hardware_serial":  regexp.MustCompile(`Serial Number \(system\):\s*(.+)`),
	"hardware_uuid":    regexp.MustCompile(`Hardware UUID:\s*(.+)`),
}

var (
	pmsetLowPower = regexp.MustCompile(`(?i)lowpowermode\s+1`)
	pmsetWattage  = regexp.MustCompile(`(\d+)W`)
)

// DesktopCollector samples the host battery each cycle and appends one
// record to the history.
type DesktopCollector struct {
	runner   Runner
	history  *history.Manager
	interval time.Duration
}

// NewDesktop creates the host battery collector.
func NewDesktop(runner Runner, h *history.Manager, interval time.Duration) *DesktopCollector {
	return &DesktopCollector{runner: runner, history: h, interval: interval}
}

func (c *DesktopCollector) Name() string            { return "desktop-battery" }
func (c *DesktopCollector) Interval() time.Duration { return c.interval }

// Collect runs the OS tools, merges their readings (ioreg values win over
// the coarser system_profiler ones), and persists one observation.
func (c *DesktopCollector) Collect(ctx context.Context) error {
	reading := normalize.Reading{}

	if out, err := c.runner.Run(ctx, "system_profiler", "SPPowerDataType"); err == nil {
		merge(reading, parseSystemProfiler(string(out)))
	} else {
		slog.Debug("system_profiler power query failed", "error", err)
	}

	if out, err := c.runner.Run(ctx, "ioreg", "-rc", "AppleSmartBattery"); err == nil {
		merge(reading, parseIoreg(string(out)))
	} else {
		slog.Debug("ioreg query failed", "error", err)
	}

	if out, err := c.runner.Run(ctx, "pmset", "-g", "batt"); err == nil {
		merge(reading, parsePmset(string(out)))
	} else {
		slog.Debug("pmset query failed", "error", err)
	}

	if out, err := c.runner.Run(ctx, "system_profiler", "SPHardwareDataType"); err == nil {
		merge(reading, parseHardware(string(out)))
	} else {
		slog.Debug("system_profiler hardware query failed", "error", err)
	}

	if v := c.osVersion(ctx); v != "" {
		reading["os_version"] = v
	}

	if len(reading) == 0 {
		return fmt.Errorf("no battery data collected")
	}

	if !c.history.SaveDesktop(reading) {
		return fmt.Errorf("recording desktop battery reading")
	}
	return nil
}

// osVersion prefers the gopsutil host probe and falls back to sw_vers.
func (c *DesktopCollector) osVersion(ctx context.Context) string {
	if info, err := host.InfoWithContext(ctx); err == nil && info.PlatformVersion != "" {
		return info.PlatformVersion
	}
	if out, err := c.runner.Run(ctx, "sw_vers", "-productVersion"); err == nil {
		return strings.TrimSpace(string(out))
	}
	return ""
}

func parseSystemProfiler(out string) normalize.Reading {
	return matchPatterns(out, systemProfilerPatterns)
}

func parseIoreg(out string) normalize.Reading {
	r := matchPatterns(out, ioregPatterns)
	if raw, ok := r.Int("manufacture_date"); ok {
		r["manufacture_date"] = formatManufactureDate(raw)
	}
	return r
}

func parsePmset(out string) normalize.Reading {
	r := normalize.Reading{}
	r["low_power_mode"] = pmsetLowPower.MatchString(out)
	if m := pmsetWattage.FindStringSubmatch(out); m != nil {
		r["current_power_usage"] = m[1]
	}
	return r
}

func parseHardware(out string) normalize.Reading {
	r := matchPatterns(out, hardwarePatterns)
	for k, v := range r {
		if s, ok := v.(string); ok {
			r[k] = strings.TrimSpace(s)
		}
	}
	return r
}

func matchPatterns(out string, patterns map[string]*regexp.Regexp) normalize.Reading {
	r := normalize.Reading{}
	for key, pat := range patterns {
		if m := pat.FindStringSubmatch(out); m != nil {
			r[key] = m[1]
		}
	}
	return r
}

// merge overlays src onto dst; later sources win for duplicate keys.
func merge(dst, src normalize.Reading) {
	for k, v := range src {
		dst[k] = v
	}
}

// macEpoch is 2001-01-01 UTC; the battery controller reports its
// manufacture date as seconds since then.
var macEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

func formatManufactureDate(secs int64) string {
	return macEpoch.Add(time.Duration(secs) * time.Second).Format("2006-01-02")
}


package history

import (
	"log/slog"
	"time"

	"github.com/sjhan/battmon/internal/cache"
	"github.com/sjhan/battmon/internal/model"
	"github.com/sjhan/battmon/internal/normalize"
)

// Manager is the never-crash facade over the Store that the collectors and
// the UI layer talk to. Every operation converts internal errors into a
// logged failure indicator: a failed save just means this cycle's
// observation was not recorded, and the caller tries again next cycle.
type Manager struct {
	store *Store
	cache *cache.Cache
	now   func() time.Time
}

// NewManager wraps a Store.
func NewManager(store *Store) *Manager {
	return &Manager{store: store, cache: cache.New(), now: time.Now}
}

// Store exposes the underlying store for callers that need error details.
func (m *Manager) Store() *Store { return m.store }

// Latest returns the most recent observation per device, from memory.
func (m *Manager) Latest() cache.Snapshot { return m.cache.Snapshot() }

// SaveDesktop normalizes a raw desktop battery reading, stamps the current
// time, and appends one record. Returns false (and logs) on any failure.
func (m *Manager) SaveDesktop(r normalize.Reading) bool {
	rec := m.desktopRecord(r)
	if err := m.store.InsertDesktop(rec); err != nil {
		slog.Error("saving desktop battery record", "error", err)
		return false
	}
	m.cache.SetDesktop(rec)
	return true
}

func (m *Manager) desktopRecord(r normalize.Reading) model.DesktopRecord {
	rec := model.DesktopRecord{
		Timestamp:        m.now(),
		DeviceName:       optString(r, "device_name"),
		DeviceIdentifier: optString(r, "model_identifier"),
		SerialNumber:     optString(r, "hardware_serial"),
		OSVersion:        optString(r, "os_version"),
		CurrentCapacity:  optInt(r, "apple_raw_current_capacity"),
		MaxCapacity:      optInt(r, "apple_raw_max_capacity"),
		DesignCapacity:   optInt(r, "design_capacity"),
		CycleCount:       optInt(r, "cycle_count"),
		Temperature:      optFloat(r, "temperature"),
		Voltage:          optFloat(r, "voltage"),
		Amperage:         optInt(r, "amperage"),
		IsCharging:       optBool(r, "is_charging"),
		FullyCharged:     optBool(r, "fully_charged"),
		ExternalPower:    optBool(r, "external_connected"),
		TimeRemaining:    optInt(r, "time_remaining"),
		ManufactureDate:  optString(r, "manufacture_date"),
		BatterySerial:    firstString(r, "battery_serial", "serial", "serial_number"),
		Condition:        optString(r, "condition"),
		DataVersion:      model.DataVersion,
	}
	if h, ok := normalize.Health(r); ok {
		rec.BatteryHealth = &h
	}
	return rec
}

// SaveMobile normalizes a raw mobile device reading and appends one record.
// The device id falls back to the serial and finally "unknown" so grouping
// keys are never empty.
func (m *Manager) SaveMobile(r normalize.Reading) bool {
	rec := m.mobileRecord(r)
	if err := m.store.InsertMobile(rec); err != nil {
		slog.Error("saving mobile battery record", "error", err, "device_id", rec.DeviceID)
		return false
	}
	m.cache.SetMobile(rec)
	return true
}

func (m *Manager) mobileRecord(r normalize.Reading) model.MobileRecord {
	ts := m.now()

	deviceID := "unknown"
	if id, ok := r.String("device_id"); ok {
		deviceID = id
	} else if serial, ok := r.String("serial"); ok {
		deviceID = serial
	}

	connection := model.DefaultConnection
	if c, ok := r.String("connection"); ok {
		connection = c
	}

	rec := model.MobileRecord{
		Timestamp:          ts,
		DeviceID:           deviceID,
		DeviceName:         optString(r, "name"),
		DeviceModel:        optString(r, "model"),
		OSVersion:          optString(r, "os_version"),
		DeviceSerial:       optString(r, "serial"),
		StorageCapacity:    optString(r, "storage_capacity"),
		BatteryCharge:      optInt(r, "battery_capacity"),
		FullChargeCapacity: optInt(r, "full_charge_capacity"),
		DesignCapacity:     optInt(r, "design_capacity"),
		ManufactureDate:    optString(r, "manufacture_date"),
		ChargeCycles:       optInt(r, "charge_cycles"),
		Temperature:        optFloat(r, "battery_temperature"),
		ChargingPower:      optInt(r, "charging_power"),
		IsCharging:         optBool(r, "battery_charging"),
		LastSeen:           ts,
		ConnectionType:     connection,
		DataVersion:        model.DataVersion,
	}
	if h, ok := r.Float("battery_health"); ok {
		rec.BatteryHealth = &h
	}
	return rec
}

// DesktopHistory returns the trailing window of desktop records, newest
// first. Failures are logged and yield an empty list.
func (m *Manager) DesktopHistory(windowDays int) []model.DesktopRecord {
	recs, err := m.store.DesktopHistory(windowDays)
	if err != nil {
		slog.Error("querying desktop history", "error", err)
		return nil
	}
	return recs
}

// MobileHistory returns the trailing window of mobile records, newest first,
// optionally filtered to one device id.
func (m *Manager) MobileHistory(deviceID string, windowDays int) []model.MobileRecord {
	recs, err := m.store.MobileHistory(deviceID, windowDays)
	if err != nil {
		slog.Error("querying mobile history", "error", err, "device_id", deviceID)
		return nil
	}
	return recs
}

// MonthlySummary returns the trailing twelve months of aggregates, or an
// empty summary on failure.
func (m *Manager) MonthlySummary() model.MonthlySummary {
	summary, err := m.store.MonthlySummary()
	if err != nil {
		slog.Error("querying monthly summary", "error", err)
		return model.MonthlySummary{}
	}
	return summary
}

// Devices returns the known devices, or an empty list on failure.
func (m *Manager) Devices() model.DeviceList {
	list, err := m.store.Devices()
	if err != nil {
		slog.Error("querying device list", "error", err)
		return model.DeviceList{}
	}
	return list
}

// CreateBackup snapshots the database, returning the path of the binary
// copy or "" on failure.
func (m *Manager) CreateBackup() string {
	path, err := m.store.CreateBackup()
	if err != nil {
		slog.Error("creating backup", "error", err)
		return ""
	}
	slog.Info("backup created", "path", path)
	return path
}

// Restore replaces the live database with a backup. The live state is
// snapshotted first; see Store.Restore.
func (m *Manager) Restore(backupPath string) bool {
	if err := m.store.Restore(backupPath); err != nil {
		slog.Error("restoring from backup", "error", err, "path", backupPath)
		return false
	}
	slog.Info("database restored", "path", backupPath)
	return true
}

func optInt(r normalize.Reading, key string) *int64 {
	if v, ok := r.Int(key); ok {
		return &v
	}
	return nil
}

func optFloat(r normalize.Reading, key string) *float64 {
	if v, ok := r.Float(key); ok {
		return &v
	}
	return nil
}

func optBool(r normalize.Reading, key string) *bool {
	if v, ok := r.Bool(key); ok {
		return &v
	}
	return nil
}

func optString(r normalize.Reading, key string) *string {
	if v, ok := r.String(key); ok {
		return &v
	}
	return nil
}

// firstString returns the first key that yields a string value. The battery
// pack serial is reported under different names depending on which tool
// answered.
func firstString(r normalize.Reading, keys ...string) *string {
	for _, key := range keys {
		if v := optString(r, key); v != nil {
			return v
		}
	}
	return nil
}

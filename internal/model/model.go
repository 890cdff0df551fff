// Package model defines all shared domain types for battmon.
package model

import "time"

// DataVersion tags every stored record so exports stay importable across
// schema changes.
const DataVersion = "1.0"

// DefaultConnection is assumed when a mobile reading does not say how the
// device is attached.
const DefaultConnection = "USB"

// DesktopRecord is one observation of the host machine's battery. Optional
// fields are pointers so "unknown" is distinct from zero; a nil health is
// "could not be derived", not 0%.
type DesktopRecord struct {
	ID               int64     `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	DeviceName       *string   `json:"device_name,omitempty"`
	DeviceIdentifier *string   `json:"device_identifier,omitempty"`
	SerialNumber     *string   `json:"serial_number,omitempty"`
	OSVersion        *string   `json:"os_version,omitempty"`
	CurrentCapacity  *int64    `json:"current_capacity,omitempty"`
	MaxCapacity      *int64    `json:"max_capacity,omitempty"`
	DesignCapacity   *int64    `json:"design_capacity,omitempty"`
	CycleCount       *int64    `json:"cycle_count,omitempty"`
	BatteryHealth    *float64  `json:"battery_health,omitempty"`
	Temperature      *float64  `json:"temperature,omitempty"`
	Voltage          *float64  `json:"voltage,omitempty"`
	Amperage         *int64    `json:"amperage,omitempty"`
	IsCharging       *bool     `json:"is_charging,omitempty"`
	FullyCharged     *bool     `json:"fully_charged,omitempty"`
	ExternalPower    *bool     `json:"external_connected,omitempty"`
	TimeRemaining    *int64    `json:"time_remaining,omitempty"`
	ManufactureDate  *string   `json:"manufacture_date,omitempty"`
	BatterySerial    *string   `json:"battery_serial,omitempty"`
	Condition        *string   `json:"condition,omitempty"`
	DataVersion      string    `json:"data_version"`
}

// MobileRecord is one observation of a connected handheld device. DeviceID
// is the grouping key for history queries; it falls back to the serial and
// finally to "unknown" when neither is reported.
type MobileRecord struct {
	ID                 int64     `json:"id"`
	Timestamp          time.Time `json:"timestamp"`
	DeviceID           string    `json:"device_id"`
	DeviceName         *string   `json:"device_name,omitempty"`
	DeviceModel        *string   `json:"device_model,omitempty"`
	OSVersion          *string   `json:"os_version,omitempty"`
	DeviceSerial       *string   `json:"device_serial,omitempty"`
	StorageCapacity    *string   `json:"storage_capacity,omitempty"`
	BatteryCharge      *int64    `json:"battery_charge,omitempty"`
	BatteryHealth      *float64  `json:"battery_health,omitempty"`
	FullChargeCapacity *int64    `json:"full_charge_capacity,omitempty"`
	DesignCapacity     *int64    `json:"design_capacity,omitempty"`
	ManufactureDate    *string   `json:"manufacture_date,omitempty"`
	ChargeCycles       *int64    `json:"charge_cycles,omitempty"`
	Temperature        *float64  `json:"battery_temperature,omitempty"`
	ChargingPower      *int64    `json:"charging_power,omitempty"`
	IsCharging         *bool     `json:"is_charging,omitempty"`
	LastSeen           time.Time `json:"last_seen"`
	ConnectionType     string    `json:"connection_type"`
	DataVersion        string    `json:"data_version"`
}

// MonthlyStat aggregates desktop history over one calendar month.
type MonthlyStat struct {
	Month       string   `json:"month"` // "2026-08"
	AvgHealth   *float64 `json:"avg_health,omitempty"`
	MaxCycles   *int64   `json:"max_cycles,omitempty"`
	RecordCount int64    `json:"record_count"`
}

// MobileMonthlyStat aggregates mobile history per device per month.
type MobileMonthlyStat struct {
	DeviceName  *string  `json:"device_name,omitempty"`
	DeviceModel *string  `json:"device_model,omitempty"`
	Month       string   `json:"month"`
	AvgHealth   *float64 `json:"avg_health,omitempty"`
	MaxCycles   *int64   `json:"max_cycles,omitempty"`
	RecordCount int64    `json:"record_count"`
}

// MonthlySummary covers the trailing twelve months for both device classes.
type MonthlySummary struct {
	Desktop []MonthlyStat       `json:"desktop"`
	Mobile  []MobileMonthlyStat `json:"mobile"`
}

// DesktopDevice is one distinct host seen in the history, grouped by
// hardware model identifier.
type DesktopDevice struct {
	DeviceName       *string   `json:"device_name,omitempty"`
	DeviceIdentifier *string   `json:"device_identifier,omitempty"`
	SerialNumber     *string   `json:"serial_number,omitempty"`
	FirstSeen        time.Time `json:"first_seen"`
	LastSeen         time.Time `json:"last_seen"`
	RecordCount      int64     `json:"record_count"`
}

// MobileDevice is one distinct handheld seen in the history.
type MobileDevice struct {
	DeviceID     string    `json:"device_id"`
	DeviceName   *string   `json:"device_name,omitempty"`
	DeviceModel  *string   `json:"device_model,omitempty"`
	DeviceSerial *string   `json:"device_serial,omitempty"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
	RecordCount  int64     `json:"record_count"`
}

// DeviceList groups the known devices per class, ordered by last_seen
// descending.
type DeviceList struct {
	Desktop []DesktopDevice `json:"desktop"`
	Mobile  []MobileDevice  `json:"mobile"`
}

// Notification is one alert event sent to the configured providers.
type Notification struct {
	AlertType string            `json:"alert_type"`
	Severity  string            `json:"severity"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Device    string            `json:"device"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Export is the JSON backup document written next to every binary backup.
// It carries the trailing year of history for both record kinds.
type Export struct {
	ExportDate     time.Time       `json:"export_date"`
	Version        string          `json:"version"`
	DesktopHistory []DesktopRecord `json:"desktop_history"`
	MobileHistory  []MobileRecord  `json:"mobile_history"`
}

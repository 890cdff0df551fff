// Package history provides SQLite persistence for battery observations:
// an append-only log of desktop and mobile records with windowed queries,
// monthly aggregates, and file-level backup/restore.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sjhan/battmon/internal/model"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database holding the battery history. All methods
// are safe for concurrent use within a single process; concurrent writers
// from multiple processes are unsupported.
type Store struct {
	mu        sync.RWMutex // guards db swap during restore
	db        *sql.DB
	dbPath    string
	backupDir string
}

// New opens or creates the history database at dbPath, runs the schema, and
// ensures backupDir exists.
func New(dbPath, backupDir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}

	return &Store{db: db, dbPath: dbPath, backupDir: backupDir}, nil
}

func open(dbPath string) (*sql.DB, error) {
	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", dbPath, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func (s *Store) conn() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// InsertDesktop appends one desktop battery record. The record's Timestamp
// must already be stamped; rows are never updated afterwards.
func (s *Store) InsertDesktop(rec model.DesktopRecord) error {
	_, err := s.conn().Exec(`
		INSERT INTO desktop_battery_history
		(timestamp, device_name, device_identifier, serial_number, os_version,
		 current_capacity, max_capacity, design_capacity, cycle_count, battery_health,
		 temperature, voltage, amperage, is_charging, fully_charged, external_connected,
		 time_remaining, manufacture_date, battery_serial, condition, data_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.Unix(), rec.DeviceName, rec.DeviceIdentifier, rec.SerialNumber,
		rec.OSVersion, rec.CurrentCapacity, rec.MaxCapacity, rec.DesignCapacity,
		rec.CycleCount, rec.BatteryHealth, rec.Temperature, rec.Voltage, rec.Amperage,
		rec.IsCharging, rec.FullyCharged, rec.ExternalPower, rec.TimeRemaining,
		rec.ManufactureDate, rec.BatterySerial, rec.Condition, rec.DataVersion,
	)
	if err != nil {
		return fmt.Errorf("inserting desktop record: %w", err)
	}
	return nil
}

// InsertMobile appends one mobile battery record.
func (s *Store) InsertMobile(rec model.MobileRecord) error {
	_, err := s.conn().Exec(`
		INSERT INTO mobile_battery_history
		(timestamp, device_id, device_name, device_model, os_version, device_serial,
		 storage_capacity, battery_charge, battery_health, full_charge_capacity,
		 design_capacity, manufacture_date, charge_cycles, battery_temperature,
		 charging_power, is_charging, last_seen, connection_type, data_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.Unix(), rec.DeviceID, rec.DeviceName, rec.DeviceModel,
		rec.OSVersion, rec.DeviceSerial, rec.StorageCapacity, rec.BatteryCharge,
		rec.BatteryHealth, rec.FullChargeCapacity, rec.DesignCapacity,
		rec.ManufactureDate, rec.ChargeCycles, rec.Temperature, rec.ChargingPower,
		rec.IsCharging, rec.LastSeen.Unix(), rec.ConnectionType, rec.DataVersion,
	)
	if err != nil {
		return fmt.Errorf("inserting mobile record: %w", err)
	}
	return nil
}

const desktopColumns = `id, timestamp, device_name, device_identifier, serial_number,
	os_version, current_capacity, max_capacity, design_capacity, cycle_count,
	battery_health, temperature, voltage, amperage, is_charging, fully_charged,
	external_connected, time_remaining, manufacture_date, battery_serial,
	condition, data_version`

// DesktopHistory returns desktop records within the trailing window,
// newest first.
func (s *Store) DesktopHistory(windowDays int) ([]model.DesktopRecord, error) {
	cutoff := time.Now().AddDate(0, 0, -windowDays).Unix()
	rows, err := s.conn().Query(`
		SELECT `+desktopColumns+` FROM desktop_battery_history
		WHERE timestamp >= ?
		ORDER BY timestamp DESC, id DESC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("querying desktop history: %w", err)
	}
	defer rows.Close()

	var recs []model.DesktopRecord
	for rows.Next() {
		rec, err := scanDesktop(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func scanDesktop(rows *sql.Rows) (model.DesktopRecord, error) {
	var rec model.DesktopRecord
	var ts int64
	err := rows.Scan(
		&rec.ID, &ts, &rec.DeviceName, &rec.DeviceIdentifier, &rec.SerialNumber,
		&rec.OSVersion, &rec.CurrentCapacity, &rec.MaxCapacity, &rec.DesignCapacity,
		&rec.CycleCount, &rec.BatteryHealth, &rec.Temperature, &rec.Voltage,
		&rec.Amperage, &rec.IsCharging, &rec.FullyCharged, &rec.ExternalPower,
		&rec.TimeRemaining, &rec.ManufactureDate, &rec.BatterySerial,
		&rec.Condition, &rec.DataVersion,
	)
	if err != nil {
		return rec, fmt.Errorf("scanning desktop record: %w", err)
	}
	rec.Timestamp = time.Unix(ts, 0)
	return rec, nil
}

const mobileColumns = `id, timestamp, device_id, device_name, device_model, os_version,
	device_serial, storage_capacity, battery_charge, battery_health,
	full_charge_capacity, design_capacity, manufacture_date, charge_cycles,
	battery_temperature, charging_power, is_charging, last_seen,
	connection_type, data_version`

// MobileHistory returns mobile records within the trailing window, newest
// first. An empty deviceID matches all devices.
func (s *Store) MobileHistory(deviceID string, windowDays int) ([]model.MobileRecord, error) {
	cutoff := time.Now().AddDate(0, 0, -windowDays).Unix()

	var rows *sql.Rows
	var err error
	if deviceID != "" {
		rows, err = s.conn().Query(`
			SELECT `+mobileColumns+` FROM mobile_battery_history
			WHERE device_id = ? AND timestamp >= ?
			ORDER BY timestamp DESC, id DESC`, deviceID, cutoff)
	} else {
		rows, err = s.conn().Query(`
			SELECT `+mobileColumns+` FROM mobile_battery_history
			WHERE timestamp >= ?
			ORDER BY timestamp DESC, id DESC`, cutoff)
	}
	if err != nil {
		return nil, fmt.Errorf("querying mobile history: %w", err)
	}
	defer rows.Close()

	var recs []model.MobileRecord
	for rows.Next() {
		rec, err := scanMobile(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func scanMobile(rows *sql.Rows) (model.MobileRecord, error) {
	var rec model.MobileRecord
	var ts, lastSeen int64
	err := rows.Scan(
		&rec.ID, &ts, &rec.DeviceID, &rec.DeviceName, &rec.DeviceModel,
		&rec.OSVersion, &rec.DeviceSerial, &rec.StorageCapacity, &rec.BatteryCharge,
		&rec.BatteryHealth, &rec.FullChargeCapacity, &rec.DesignCapacity,
		&rec.ManufactureDate, &rec.ChargeCycles, &rec.Temperature,
		&rec.ChargingPower, &rec.IsCharging, &lastSeen,
		&rec.ConnectionType, &rec.DataVersion,
	)
	if err != nil {
		return rec, fmt.Errorf("scanning mobile record: %w", err)
	}
	rec.Timestamp = time.Unix(ts, 0)
	rec.LastSeen = time.Unix(lastSeen, 0)
	return rec, nil
}

// MonthlySummary aggregates the trailing twelve months: average health, max
// cycle count, and row count per calendar month, per device for mobile.
func (s *Store) MonthlySummary() (model.MonthlySummary, error) {
	cutoff := time.Now().AddDate(-1, 0, 0).Unix()
	summary := model.MonthlySummary{}

	rows, err := s.conn().Query(`
		SELECT strftime('%Y-%m', timestamp, 'unixepoch') AS month,
		       AVG(battery_health), MAX(cycle_count), COUNT(*)
		FROM desktop_battery_history
		WHERE timestamp >= ?
		GROUP BY month
		ORDER BY month DESC`, cutoff)
	if err != nil {
		return summary, fmt.Errorf("querying desktop monthly summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st model.MonthlyStat
		if err := rows.Scan(&st.Month, &st.AvgHealth, &st.MaxCycles, &st.RecordCount); err != nil {
			return summary, fmt.Errorf("scanning desktop monthly stat: %w", err)
		}
		summary.Desktop = append(summary.Desktop, st)
	}
	if err := rows.Err(); err != nil {
		return summary, err
	}

	mrows, err := s.conn().Query(`
		SELECT device_name, device_model,
		       strftime('%Y-%m', timestamp, 'unixepoch') AS month,
		       AVG(battery_health), MAX(charge_cycles), COUNT(*)
		FROM mobile_battery_history
		WHERE timestamp >= ?
		GROUP BY device_id, month
		ORDER BY device_name, month DESC`, cutoff)
	if err != nil {
		return summary, fmt.Errorf("querying mobile monthly summary: %w", err)
	}
	defer mrows.Close()

	for mrows.Next() {
		var st model.MobileMonthlyStat
		if err := mrows.Scan(&st.DeviceName, &st.DeviceModel, &st.Month,
			&st.AvgHealth, &st.MaxCycles, &st.RecordCount); err != nil {
			return summary, fmt.Errorf("scanning mobile monthly stat: %w", err)
		}
		summary.Mobile = append(summary.Mobile, st)
	}
	return summary, mrows.Err()
}

// Devices lists every distinct device seen in the history with first/last
// observation times and total record counts, most recently seen first.
// Desktop hosts group by hardware identifier, mobiles by device id.
func (s *Store) Devices() (model.DeviceList, error) {
	list := model.DeviceList{}

	rows, err := s.conn().Query(`
		SELECT device_name, device_identifier, serial_number,
		       MIN(timestamp), MAX(timestamp), COUNT(*)
		FROM desktop_battery_history
		GROUP BY device_identifier
		ORDER BY MAX(timestamp) DESC`)
	if err != nil {
		return list, fmt.Errorf("querying desktop devices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d model.DesktopDevice
		var first, last int64
		if err := rows.Scan(&d.DeviceName, &d.DeviceIdentifier, &d.SerialNumber,
			&first, &last, &d.RecordCount); err != nil {
			return list, fmt.Errorf("scanning desktop device: %w", err)
		}
		d.FirstSeen = time.Unix(first, 0)
		d.LastSeen = time.Unix(last, 0)
		list.Desktop = append(list.Desktop, d)
	}
	if err := rows.Err(); err != nil {
		return list, err
	}

	mrows, err := s.conn().Query(`
		SELECT device_id, device_name, device_model, device_serial,
		       MIN(timestamp), MAX(timestamp), COUNT(*)
		FROM mobile_battery_history
		GROUP BY device_id
		ORDER BY MAX(timestamp) DESC`)
	if err != nil {
		return list, fmt.Errorf("querying mobile devices: %w", err)
	}
	defer mrows.Close()

	for mrows.Next() {
		var d model.MobileDevice
		var first, last int64
		if err := mrows.Scan(&d.DeviceID, &d.DeviceName, &d.DeviceModel,
			&d.DeviceSerial, &first, &last, &d.RecordCount); err != nil {
			return list, fmt.Errorf("scanning mobile device: %w", err)
		}
		d.FirstSeen = time.Unix(first, 0)
		d.LastSeen = time.Unix(last, 0)
		list.Mobile = append(list.Mobile, d)
	}
	return list, mrows.Err()
}

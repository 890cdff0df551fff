package history

const schema = `
-- Host battery observations, append-only, one row per refresh cycle.
-- Nullable columns mean "not reported this cycle", never zero.
CREATE TABLE IF NOT EXISTS desktop_battery_history (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp          INTEGER NOT NULL,
    device_name        TEXT,
    device_identifier  TEXT,
    serial_number      TEXT,
    os_version         TEXT,
    current_capacity   INTEGER,
    max_capacity       INTEGER,
    design_capacity    INTEGER,
    cycle_count        INTEGER,
    battery_health     REAL,
    temperature        REAL,
    voltage            REAL,
    amperage           INTEGER,
    is_charging        INTEGER,
    fully_charged      INTEGER,
    external_connected INTEGER,
    time_remaining     INTEGER,
    manufacture_date   TEXT,
    battery_serial     TEXT,
    condition          TEXT,
    data_version       TEXT NOT NULL DEFAULT '1.0'
);

-- Connected handheld observations. device_id is the grouping key for
-- per-device history queries.
CREATE TABLE IF NOT EXISTS mobile_battery_history (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp            INTEGER NOT NULL,
    device_id            TEXT NOT NULL,
    device_name          TEXT,
    device_model         TEXT,
    os_version           TEXT,
    device_serial        TEXT,
    storage_capacity     TEXT,
    battery_charge       INTEGER,
    battery_health       REAL,
    full_charge_capacity INTEGER,
    design_capacity      INTEGER,
    manufacture_date     TEXT,
    charge_cycles        INTEGER,
    battery_temperature  REAL,
    charging_power       INTEGER,
    is_charging          INTEGER,
    last_seen            INTEGER,
    connection_type      TEXT NOT NULL DEFAULT 'USB',
    data_version         TEXT NOT NULL DEFAULT '1.0'
);

-- Time-window queries scan by timestamp; mobile queries also filter by device.
CREATE INDEX IF NOT EXISTS idx_desktop_timestamp ON desktop_battery_history(timestamp);
CREATE INDEX IF NOT EXISTS idx_mobile_timestamp ON mobile_battery_history(timestamp);
CREATE INDEX IF NOT EXISTS idx_mobile_device ON mobile_battery_history(device_id, timestamp);
`

// Package config handles loading and validating battmon configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} placeholders in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ErrConfigFileNotFound is returned by Load when the specified config file does not exist.
var ErrConfigFileNotFound = errors.New("config file not found")

// Config is the top-level battmon configuration.
type Config struct {
	DBPath             string               `yaml:"db_path"`
	BackupDir          string               `yaml:"backup_dir"`
	Listen             string               `yaml:"listen"`
	LogLevel           string               `yaml:"log_level"`
	LogFormat          string               `yaml:"log_format"`
	PollInterval       Duration             `yaml:"poll_interval"`
	MobilePollInterval Duration             `yaml:"mobile_poll_interval"`
	ToolTimeout        Duration             `yaml:"tool_timeout"`
	Notifications      []NotificationConfig `yaml:"notifications"`
	Alerts             AlertsConfig         `yaml:"alerts"`
}

// NotificationConfig describes a notification target.
type NotificationConfig struct {
	Type    string            `yaml:"type"` // "ntfy" or "webhook"
	URL     string            `yaml:"url"`
	Topic   string            `yaml:"topic,omitempty"`   // ntfy only
	Method  string            `yaml:"method,omitempty"`  // webhook only
	Headers map[string]string `yaml:"headers,omitempty"` // webhook only
}

// AlertsConfig holds thresholds for each alert type. An omitted rule keeps
// the built-in default; threshold 0 disables the rule.
type AlertsConfig struct {
	HealthBelow *AlertThreshold `yaml:"health_below,omitempty"`
	CyclesAbove *AlertThreshold `yaml:"cycles_above,omitempty"`
}

// AlertThreshold configures one threshold rule.
type AlertThreshold struct {
	Threshold float64  `yaml:"threshold"`
	Severity  string   `yaml:"severity"`
	Cooldown  Duration `yaml:"cooldown"`
}

// Duration wraps time.Duration with YAML string parsing support.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Load reads configuration from a YAML file. An empty path means run on
// defaults plus environment overrides. If a path is given and the file does
// not exist, ErrConfigFileNotFound is returned.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(expandEnvVars(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if cfg.BackupDir == "" {
		cfg.BackupDir = filepath.Join(filepath.Dir(cfg.DBPath), "backups")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.LogFormat] {
		return fmt.Errorf("log_format must be one of: text, json")
	}
	if c.PollInterval.Duration <= 0 {
		return fmt.Errorf("poll_interval must be > 0")
	}
	if c.MobilePollInterval.Duration <= 0 {
		return fmt.Errorf("mobile_poll_interval must be > 0")
	}
	if c.ToolTimeout.Duration <= 0 {
		return fmt.Errorf("tool_timeout must be > 0")
	}
	for i, n := range c.Notifications {
		switch n.Type {
		case "ntfy":
			if n.URL == "" {
				return fmt.Errorf("notifications[%d]: url is required for ntfy", i)
			}
			if n.Topic == "" {
				return fmt.Errorf("notifications[%d]: topic is required for ntfy", i)
			}
		case "webhook":
			if n.URL == "" {
				return fmt.Errorf("notifications[%d]: url is required for webhook", i)
			}
		default:
			return fmt.Errorf("notifications[%d]: unknown type %q (expected ntfy or webhook)", i, n.Type)
		}
	}
	if a := c.Alerts.HealthBelow; a != nil && a.Threshold < 0 {
		return fmt.Errorf("alerts.health_below: threshold must be >= 0")
	}
	if a := c.Alerts.CyclesAbove; a != nil && a.Threshold < 0 {
		return fmt.Errorf("alerts.cycles_above: threshold must be >= 0")
	}
	return nil
}

func defaults() *Config {
	return &Config{
		DBPath:             filepath.Join(dataDir(), "battery_history.db"),
		LogLevel:           "info",
		LogFormat:          "text",
		PollInterval:       Duration{5 * time.Minute},
		MobilePollInterval: Duration{5 * time.Minute},
		ToolTimeout:        Duration{10 * time.Second},
	}
}

// dataDir is the default location for the history database, following the
// platform convention for application data.
func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Library", "Application Support", "BatteryMonitor")
}

// expandEnvVars replaces ${VAR_NAME} placeholders in raw YAML with the
// corresponding environment variable values. Unset variables are replaced
// with an empty string, which will then fail validation with a clear error.
func expandEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		key := string(match[2 : len(match)-1]) // strip ${ and }
		return []byte(os.Getenv(key))
	})
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BATTMON_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("BATTMON_BACKUP_DIR"); v != "" {
		cfg.BackupDir = v
	}
	if v := os.Getenv("BATTMON_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("BATTMON_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("BATTMON_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("BATTMON_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PollInterval = Duration{d}
		}
	}
	if v := os.Getenv("BATTMON_MOBILE_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.MobilePollInterval = Duration{d}
		}
	}
	if v := os.Getenv("BATTMON_TOOL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ToolTimeout = Duration{d}
		}
	}

	// Single ntfy target from env vars (only if no YAML notifications configured).
	if len(cfg.Notifications) == 0 {
		if ntfyURL := os.Getenv("BATTMON_NTFY_URL"); ntfyURL != "" {
			topic := os.Getenv("BATTMON_NTFY_TOPIC")
			if topic == "" {
				topic = "battmon-alerts"
			}
			cfg.Notifications = append(cfg.Notifications, NotificationConfig{
				Type:  "ntfy",
				URL:   ntfyURL,
				Topic: topic,
			})
		}
	}
}

// SPDX-License-Identifier: MIT

// Package config loads daemon configuration with ENV > file > defaults
// precedence.
package config

import (
	"fmt"
	"time"
)

// Config is the resolved daemon configuration.
type Config struct {
	// Server
	ListenAddr  string // API listen address
	MetricsAddr string // Prometheus listen address; empty disables
	DataDir     string // root for DB, CSV logs and exports

	// Sampling
	PollInterval time.Duration // sensor poll cadence
	HistorySize  int           // in-memory ring capacity

	// Hardware
	I2CBus      string // periph bus name; empty selects the first bus
	PMSPort     string // serial device for the PMS5003
	SCD4xAddr   uint16
	SGP30Addr   uint16
	DisplayAddr uint16
	Simulate    bool // replace all hardware with simulated drivers

	// Display
	DisplayEnabled bool
	DisplayRotate  bool // mount orientation: rotate frame 180 degrees

	// Persistence
	DBPath     string        // sqlite path; empty disables the store
	CSVEnabled bool          // per-session CSV logs in DataDir
	Retention  time.Duration // drop stored readings older than this; 0 keeps everything

	// API
	ExportRatePerMin int // rate limit for export endpoints, per client IP

	// Logging
	LogLevel string
}

// Default returns the built-in defaults, matching a Raspberry Pi deployment.
func Default() Config {
	return Config{
		ListenAddr:       ":8080",
		MetricsAddr:      ":9090",
		DataDir:          "/var/lib/aqmond",
		PollInterval:     time.Second,
		HistorySize:      3600,
		I2CBus:           "",
		PMSPort:          "/dev/ttyAMA0",
		SCD4xAddr:        0x62,
		SGP30Addr:        0x58,
		DisplayAddr:      0x3C,
		Simulate:         false,
		DisplayEnabled:   true,
		DisplayRotate:    true,
		DBPath:           "readings.db",
		CSVEnabled:       true,
		Retention:        7 * 24 * time.Hour,
		ExportRatePerMin: 10,
		LogLevel:         "info",
	}
}

// Loader resolves configuration from defaults, an optional YAML file and
// the environment, in ascending precedence.
type Loader struct {
	path string
}

// NewLoader returns a loader for the given config file path. An empty path
// skips the file layer.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load resolves the configuration and validates it.
func (l *Loader) Load() (Config, error) {
	cfg := Default()

	if l.path != "" {
		fc, err := loadFile(l.path)
		if err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", l.path, err)
		}
		fc.apply(&cfg)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays AQ_* environment variables onto cfg.
func applyEnv(cfg *Config) {
	cfg.ListenAddr = ParseString("AQ_LISTEN", cfg.ListenAddr)
	cfg.MetricsAddr = ParseString("AQ_METRICS_LISTEN", cfg.MetricsAddr)
	cfg.DataDir = ParseString("AQ_DATA", cfg.DataDir)
	cfg.PollInterval = ParseDuration("AQ_POLL_INTERVAL", cfg.PollInterval)
	cfg.HistorySize = ParseInt("AQ_HISTORY_SIZE", cfg.HistorySize)
	cfg.I2CBus = ParseString("AQ_I2C_BUS", cfg.I2CBus)
	cfg.PMSPort = ParseString("AQ_PMS_PORT", cfg.PMSPort)
	cfg.Simulate = ParseBool("AQ_SIMULATE", cfg.Simulate)
	cfg.DisplayEnabled = ParseBool("AQ_DISPLAY", cfg.DisplayEnabled)
	cfg.DisplayRotate = ParseBool("AQ_DISPLAY_ROTATE", cfg.DisplayRotate)
	cfg.DBPath = ParseString("AQ_DB_PATH", cfg.DBPath)
	cfg.CSVEnabled = ParseBool("AQ_CSV", cfg.CSVEnabled)
	cfg.Retention = ParseDuration("AQ_RETENTION", cfg.Retention)
	cfg.ExportRatePerMin = ParseInt("AQ_EXPORT_RATE", cfg.ExportRatePerMin)
	cfg.LogLevel = ParseString("AQ_LOG_LEVEL", cfg.LogLevel)
}

// Validate fails fast on configuration that cannot possibly work.
func (c Config) Validate() error {
	if c.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("poll interval %s too short, minimum 100ms", c.PollInterval)
	}
	if c.HistorySize < 1 {
		return fmt.Errorf("history size must be positive, got %d", c.HistorySize)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.ExportRatePerMin < 1 {
		return fmt.Errorf("export rate limit must be positive, got %d", c.ExportRatePerMin)
	}
	if c.Retention < 0 {
		return fmt.Errorf("retention must not be negative, got %s", c.Retention)
	}
	if !c.Simulate && c.PMSPort == "" {
		return fmt.Errorf("PMS5003 serial port must be set when not simulating")
	}
	return nil
}

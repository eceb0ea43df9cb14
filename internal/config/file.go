// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML config file. Pointer fields distinguish
// "absent" from zero values so the file only overrides what it sets.
type fileConfig struct {
	Listen        *string `yaml:"listen"`
	MetricsListen *string `yaml:"metricsListen"`
	DataDir       *string `yaml:"dataDir"`

	PollInterval *string `yaml:"pollInterval"`
	HistorySize  *int    `yaml:"historySize"`

	I2CBus   *string `yaml:"i2cBus"`
	PMSPort  *string `yaml:"pmsPort"`
	Simulate *bool   `yaml:"simulate"`

	Display       *bool `yaml:"display"`
	DisplayRotate *bool `yaml:"displayRotate"`

	DBPath    *string `yaml:"dbPath"`
	CSV       *bool   `yaml:"csv"`
	Retention *string `yaml:"retention"`

	ExportRatePerMin *int `yaml:"exportRatePerMin"`

	LogLevel *string `yaml:"logLevel"`
}

func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator
	if err != nil {
		return nil, err
	}
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return &fc, nil
}

func (fc *fileConfig) apply(cfg *Config) {
	if fc == nil {
		return
	}
	setString(&cfg.ListenAddr, fc.Listen)
	setString(&cfg.MetricsAddr, fc.MetricsListen)
	setString(&cfg.DataDir, fc.DataDir)
	if fc.PollInterval != nil {
		if d, err := time.ParseDuration(*fc.PollInterval); err == nil {
			cfg.PollInterval = d
		}
	}
	setInt(&cfg.HistorySize, fc.HistorySize)
	setString(&cfg.I2CBus, fc.I2CBus)
	setString(&cfg.PMSPort, fc.PMSPort)
	setBool(&cfg.Simulate, fc.Simulate)
	setBool(&cfg.DisplayEnabled, fc.Display)
	setBool(&cfg.DisplayRotate, fc.DisplayRotate)
	setString(&cfg.DBPath, fc.DBPath)
	setBool(&cfg.CSVEnabled, fc.CSV)
	if fc.Retention != nil {
		if d, err := time.ParseDuration(*fc.Retention); err == nil {
			cfg.Retention = d
		}
	}
	setInt(&cfg.ExportRatePerMin, fc.ExportRatePerMin)
	setString(&cfg.LogLevel, fc.LogLevel)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

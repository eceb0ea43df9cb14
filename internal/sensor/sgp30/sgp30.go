// SPDX-License-Identifier: MIT

// Package sgp30 drives the Sensirion SGP30 TVOC/eCO2 gas sensor over I2C.
package sgp30

import (
	"context"
	"fmt"
	"time"

	"github.com/piairqual/piairqual/internal/sensor"
	"github.com/piairqual/piairqual/internal/sensor/sensirion"
)

// DefaultAddr is the fixed I2C address of the SGP30.
const DefaultAddr = 0x58

// Command codes from the SGP30 datasheet.
const (
	cmdInitAirQuality    = 0x2003
	cmdMeasureAirQuality = 0x2008
	cmdGetBaseline       = 0x2015
	cmdSetBaseline       = 0x201E
	cmdSetHumidity       = 0x2061
	cmdGetSerialID       = 0x3682
)

// Warmup is how long the sensor emits baseline values (400 ppm eCO2,
// 0 ppb TVOC) after init_air_quality.
const Warmup = 15 * time.Second

// measureDelay is the max duration of a measure_air_quality command.
const measureDelay = 12 * time.Millisecond

// Device is an SGP30 behind a Sensirion I2C bus connection.
type Device struct {
	bus     sensirion.Bus
	started time.Time
}

var _ sensor.GasSensor = (*Device)(nil)

// New returns a driver for a sensor on the given connection.
func New(bus sensirion.Bus) *Device {
	return &Device{bus: bus}
}

// Start initialises the on-chip air quality engine. Until Warmup has
// passed, Measure returns the documented baseline values.
func (d *Device) Start(ctx context.Context) error {
	if err := sensirion.Write(d.bus, cmdInitAirQuality); err != nil {
		return fmt.Errorf("sgp30: init air quality: %w", err)
	}
	d.started = time.Now()
	return nil
}

// WarmingUp reports whether the sensor is still in its warmup window.
func (d *Device) WarmingUp() bool {
	return !d.started.IsZero() && time.Since(d.started) < Warmup
}

// Measure reads the current eCO2/TVOC sample.
func (d *Device) Measure(ctx context.Context) (sensor.AirQuality, error) {
	if err := sensirion.Write(d.bus, cmdMeasureAirQuality); err != nil {
		return sensor.AirQuality{}, fmt.Errorf("sgp30: measure air quality: %w", err)
	}
	if err := sleep(ctx, measureDelay); err != nil {
		return sensor.AirQuality{}, err
	}

	raw := make([]byte, 6)
	if err := d.bus.Tx(nil, raw); err != nil {
		return sensor.AirQuality{}, fmt.Errorf("sgp30: read air quality: %w", err)
	}
	words, err := sensirion.ParseWords(raw)
	if err != nil {
		return sensor.AirQuality{}, fmt.Errorf("sgp30: read air quality: %w", err)
	}

	return sensor.AirQuality{ECO2: int(words[0]), TVOC: int(words[1])}, nil
}

// SetHumidity updates the absolute-humidity compensation. The value is
// g/m³ in 8.8 fixed point; zero disables compensation.
func (d *Device) SetHumidity(ctx context.Context, fixedPoint uint16) error {
	if err := sensirion.Write(d.bus, cmdSetHumidity, fixedPoint); err != nil {
		return fmt.Errorf("sgp30: set humidity: %w", err)
	}
	return nil
}

// SerialID reads the 48-bit serial of the sensor.
func (d *Device) SerialID(ctx context.Context) (uint64, error) {
	words, err := sensirion.ReadWords(d.bus, cmdGetSerialID, 3)
	if err != nil {
		return 0, fmt.Errorf("sgp30: read serial: %w", err)
	}
	return uint64(words[0])<<32 | uint64(words[1])<<16 | uint64(words[2]), nil
}

// Baseline reads the current eCO2/TVOC baseline correction values.
func (d *Device) Baseline(ctx context.Context) (eco2, tvoc uint16, err error) {
	words, err := sensirion.ReadWords(d.bus, cmdGetBaseline, 2)
	if err != nil {
		return 0, 0, fmt.Errorf("sgp30: get baseline: %w", err)
	}
	return words[0], words[1], nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

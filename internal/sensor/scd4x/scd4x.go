// SPDX-License-Identifier: MIT

// Package scd4x drives the Sensirion SCD4x CO2/temperature/humidity sensor
// over I2C.
package scd4x

import (
	"context"
	"fmt"
	"time"

	"github.com/piairqual/piairqual/internal/sensor"
	"github.com/piairqual/piairqual/internal/sensor/sensirion"
)

// DefaultAddr is the fixed I2C address of the SCD4x family.
const DefaultAddr = 0x62

// Command codes from the SCD4x datasheet.
const (
	cmdStartPeriodic  = 0x21B1
	cmdReadMeasure    = 0xEC05
	cmdStopPeriodic   = 0x3F86
	cmdDataReady      = 0xE4B8
	cmdReinit         = 0x3646
	cmdGetSerial      = 0x3682
	cmdFactoryReset   = 0x3632
	cmdSelfTest       = 0x3639
	cmdSetAmbientPres = 0xE000
)

// Execution delays per command, from the datasheet.
const (
	delayRead  = time.Millisecond
	delayStop  = 500 * time.Millisecond
	delayReset = 1200 * time.Millisecond
)

// Device is an SCD4x behind a Sensirion I2C bus connection.
type Device struct {
	bus sensirion.Bus
}

var _ sensor.CO2Sensor = (*Device)(nil)

// New returns a driver for a sensor on the given connection.
func New(bus sensirion.Bus) *Device {
	return &Device{bus: bus}
}

// Start begins periodic measurement. The sensor produces a new sample
// roughly every five seconds.
func (d *Device) Start(ctx context.Context) error {
	if err := sensirion.Write(d.bus, cmdStartPeriodic); err != nil {
		return fmt.Errorf("scd4x: start periodic measurement: %w", err)
	}
	return nil
}

// Stop ends periodic measurement. The sensor needs 500ms before accepting
// further commands.
func (d *Device) Stop(ctx context.Context) error {
	if err := sensirion.Write(d.bus, cmdStopPeriodic); err != nil {
		return fmt.Errorf("scd4x: stop periodic measurement: %w", err)
	}
	return sleep(ctx, delayStop)
}

// Measure reads the most recent sample. It returns sensor.ErrNotReady when
// the sensor has not completed a measurement since the last read.
func (d *Device) Measure(ctx context.Context) (sensor.CO2Measurement, error) {
	ready, err := d.dataReady(ctx)
	if err != nil {
		return sensor.CO2Measurement{}, err
	}
	if !ready {
		return sensor.CO2Measurement{}, sensor.ErrNotReady
	}

	words, err := sensirion.ReadWords(d.bus, cmdReadMeasure, 3)
	if err != nil {
		return sensor.CO2Measurement{}, fmt.Errorf("scd4x: read measurement: %w", err)
	}

	m := sensor.CO2Measurement{
		CO2:         int(words[0]),
		Temperature: -45 + 175*float64(words[1])/65535,
		Humidity:    clamp(100*float64(words[2])/65535, 0, 100),
	}
	return m, nil
}

// SerialNumber reads the 48-bit serial of the sensor.
func (d *Device) SerialNumber(ctx context.Context) (uint64, error) {
	words, err := sensirion.ReadWords(d.bus, cmdGetSerial, 3)
	if err != nil {
		return 0, fmt.Errorf("scd4x: read serial: %w", err)
	}
	return uint64(words[0])<<32 | uint64(words[1])<<16 | uint64(words[2]), nil
}

// SetAmbientPressure sets the pressure compensation in pascal.
func (d *Device) SetAmbientPressure(ctx context.Context, pa uint32) error {
	if err := sensirion.Write(d.bus, cmdSetAmbientPres, uint16(pa/100)); err != nil {
		return fmt.Errorf("scd4x: set ambient pressure: %w", err)
	}
	return nil
}

func (d *Device) dataReady(ctx context.Context) (bool, error) {
	words, err := sensirion.ReadWords(d.bus, cmdDataReady, 1)
	if err != nil {
		return false, fmt.Errorf("scd4x: data ready status: %w", err)
	}
	// The lower 11 bits are non-zero when a sample is available.
	return words[0]&0x07FF != 0, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
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

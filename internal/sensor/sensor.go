// SPDX-License-Identifier: MIT

// Package sensor defines the measurement types and driver interfaces shared
// by the hardware and simulated sensor implementations.
package sensor

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotReady is returned when a sensor has no fresh measurement yet
	// (periodic-measurement sensors produce data on their own cadence).
	ErrNotReady = errors.New("sensor: measurement not ready")

	// ErrBadCRC is returned when an I2C word fails its CRC check.
	ErrBadCRC = errors.New("sensor: CRC mismatch")

	// ErrChecksum is returned when a serial frame fails its checksum.
	ErrChecksum = errors.New("sensor: frame checksum mismatch")
)

// Reading is one complete air-quality sample across all sensors.
type Reading struct {
	Temperature float64   `json:"temperature"` // °C, from SCD4x
	Humidity    float64   `json:"humidity"`    // %RH, from SCD4x
	CO2         int       `json:"co2"`         // ppm, from SCD4x
	TVOC        int       `json:"tvoc"`        // ppb, from SGP30
	ECO2        int       `json:"eco2"`        // ppm equivalent, from SGP30
	PM1         float64   `json:"pm1"`         // µg/m³, from PMS5003
	PM25        float64   `json:"pm25"`        // µg/m³, from PMS5003
	PM100       float64   `json:"pm100"`       // µg/m³, from PMS5003
	Timestamp   time.Time `json:"timestamp"`
}

// CO2Measurement is a single SCD4x sample.
type CO2Measurement struct {
	CO2         int     // ppm
	Temperature float64 // °C
	Humidity    float64 // %RH
}

// AirQuality is a single SGP30 sample.
type AirQuality struct {
	ECO2 int // ppm equivalent CO2
	TVOC int // ppb total VOC
}

// PMData is a single PMS5003 frame, atmospheric-environment compensated
// concentrations plus raw particle counts per 0.1L of air.
type PMData struct {
	PM1   float64 // µg/m³
	PM25  float64 // µg/m³
	PM100 float64 // µg/m³

	ParticlesGT03 int
	ParticlesGT05 int
	ParticlesGT1  int
	ParticlesGT25 int
	ParticlesGT5  int
	ParticlesGT10 int
}

// CO2Sensor is a periodic-measurement CO2/temperature/humidity sensor
// (SCD4x family).
type CO2Sensor interface {
	// Start begins periodic measurement.
	Start(ctx context.Context) error
	// Stop ends periodic measurement and lets the sensor idle.
	Stop(ctx context.Context) error
	// Measure returns the most recent sample, or ErrNotReady if the sensor
	// has not produced one since the last read.
	Measure(ctx context.Context) (CO2Measurement, error)
}

// GasSensor is a VOC/eCO2 sensor with on-chip humidity compensation
// (SGP30).
type GasSensor interface {
	// Start initialises the measurement engine; readings are baseline
	// values until the warmup period has passed.
	Start(ctx context.Context) error
	// Measure returns the current air quality sample.
	Measure(ctx context.Context) (AirQuality, error)
	// SetHumidity updates the absolute-humidity compensation, in g/m³
	// expressed as 8.8 fixed point.
	SetHumidity(ctx context.Context, fixedPoint uint16) error
}

// ParticulateSensor is a streaming particulate-matter sensor (PMS5003).
type ParticulateSensor interface {
	// Read blocks until the next complete frame or ctx is done.
	Read(ctx context.Context) (PMData, error)
}

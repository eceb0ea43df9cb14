// SPDX-License-Identifier: MIT

// Package simulated provides software stand-ins for all three sensors so
// the daemon can run without hardware. Values wander around realistic
// indoor baselines with gaussian noise, and reads fail at a configurable
// rate to exercise the monitor's error handling.
package simulated

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/piairqual/piairqual/internal/sensor"
)

// ErrSimulatedFailure is returned by injected read errors.
var ErrSimulatedFailure = errors.New("simulated: injected read failure")

// Options tunes the simulation.
type Options struct {
	ErrorRate float64 // probability per read, default 0.01
	Seed      int64   // 0 seeds from the clock
	Warmup    time.Duration
}

func (o Options) errorRate() float64 {
	if o.ErrorRate == 0 {
		return 0.01
	}
	if o.ErrorRate < 0 {
		return 0
	}
	return o.ErrorRate
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed)) // #nosec G404 -- simulation noise, not crypto
}

// CO2Sensor simulates an SCD4x.
type CO2Sensor struct {
	mu        sync.Mutex
	rng       *rand.Rand
	errRate   float64
	measuring bool
}

var _ sensor.CO2Sensor = (*CO2Sensor)(nil)

// NewCO2Sensor returns a simulated SCD4x.
func NewCO2Sensor(opts Options) *CO2Sensor {
	return &CO2Sensor{rng: newRand(opts.Seed), errRate: opts.errorRate()}
}

func (s *CO2Sensor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.measuring = true
	return nil
}

func (s *CO2Sensor) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.measuring = false
	return nil
}

func (s *CO2Sensor) Measure(ctx context.Context) (sensor.CO2Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.measuring {
		return sensor.CO2Measurement{}, sensor.ErrNotReady
	}
	if s.rng.Float64() < s.errRate {
		return sensor.CO2Measurement{}, ErrSimulatedFailure
	}

	co2 := 400 + int(s.rng.NormFloat64()*25)
	if co2 < 400 {
		co2 = 400
	}
	return sensor.CO2Measurement{
		CO2:         co2,
		Temperature: 21.0 + s.rng.NormFloat64()*0.5,
		Humidity:    clamp(45.0+s.rng.NormFloat64()*2, 0, 100),
	}, nil
}

// GasSensor simulates an SGP30, including the warmup window during which
// it reports the documented baseline values.
type GasSensor struct {
	mu        sync.Mutex
	rng       *rand.Rand
	errRate   float64
	warmup    time.Duration
	started   time.Time
	measuring bool
	humidity  uint16
}

var _ sensor.GasSensor = (*GasSensor)(nil)

// NewGasSensor returns a simulated SGP30.
func NewGasSensor(opts Options) *GasSensor {
	w := opts.Warmup
	if w == 0 {
		w = 15 * time.Second
	}
	return &GasSensor{rng: newRand(opts.Seed), errRate: opts.errorRate(), warmup: w}
}

func (s *GasSensor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.measuring = true
	s.started = time.Now()
	return nil
}

func (s *GasSensor) Measure(ctx context.Context) (sensor.AirQuality, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.measuring || time.Since(s.started) < s.warmup {
		return sensor.AirQuality{ECO2: 400, TVOC: 0}, nil
	}
	if s.rng.Float64() < s.errRate {
		return sensor.AirQuality{}, ErrSimulatedFailure
	}

	eco2 := 400 + int(s.rng.NormFloat64()*50)
	if eco2 < 400 {
		eco2 = 400
	}
	tvoc := 20 + int(s.rng.NormFloat64()*5)
	if tvoc < 0 {
		tvoc = 0
	}
	return sensor.AirQuality{ECO2: eco2, TVOC: tvoc}, nil
}

func (s *GasSensor) SetHumidity(ctx context.Context, fixedPoint uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.humidity = fixedPoint
	return nil
}

// LastHumidity reports the most recent compensation value, for tests.
func (s *GasSensor) LastHumidity() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.humidity
}

// ParticulateSensor simulates a PMS5003.
type ParticulateSensor struct {
	mu      sync.Mutex
	rng     *rand.Rand
	errRate float64
}

var _ sensor.ParticulateSensor = (*ParticulateSensor)(nil)

// NewParticulateSensor returns a simulated PMS5003.
func NewParticulateSensor(opts Options) *ParticulateSensor {
	return &ParticulateSensor{rng: newRand(opts.Seed), errRate: opts.errorRate()}
}

func (s *ParticulateSensor) Read(ctx context.Context) (sensor.PMData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng.Float64() < s.errRate {
		return sensor.PMData{}, ErrSimulatedFailure
	}

	v := 0.8 + s.rng.Float64()*0.4
	return sensor.PMData{
		PM1:   12.0 * v,
		PM25:  25.0 * v,
		PM100: 45.0 * v,

		ParticlesGT03: int(10000 * v),
		ParticlesGT05: int(8000 * v),
		ParticlesGT1:  int(5000 * v),
		ParticlesGT25: int(2000 * v),
		ParticlesGT5:  int(500 * v),
		ParticlesGT10: int(100 * v),
	}, nil
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

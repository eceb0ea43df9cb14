// SPDX-License-Identifier: MIT

// Package monitor runs the sensor poll loop and publishes readings to the
// history ring and the configured sinks.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/piairqual/piairqual/internal/history"
	aqlog "github.com/piairqual/piairqual/internal/log"
	"github.com/piairqual/piairqual/internal/metrics"
	"github.com/piairqual/piairqual/internal/sensor"
)

// Sink receives every published reading. A failing sink is logged and
// counted but never stops the poll loop.
type Sink interface {
	Name() string
	Consume(ctx context.Context, r sensor.Reading) error
}

// errBackoff is how long the loop pauses after a failed poll before
// retrying, matching the original monitor's behavior.
const errBackoff = time.Second

// Options configures a Monitor.
type Options struct {
	CO2         sensor.CO2Sensor
	Gas         sensor.GasSensor
	Particulate sensor.ParticulateSensor
	Interval    time.Duration
	HistorySize int
	Sinks       []Sink
}

// Monitor owns the poll loop, the latest reading and the history ring.
type Monitor struct {
	co2 sensor.CO2Sensor
	gas sensor.GasSensor
	pm  sensor.ParticulateSensor

	ring    *history.Ring
	sinks   []Sink
	limiter *rate.Limiter

	mu     sync.RWMutex
	latest *sensor.Reading
}

// New assembles a monitor. Interval defaults to one second, history size
// to 3600 samples.
func New(opts Options) *Monitor {
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Second
	}
	size := opts.HistorySize
	if size <= 0 {
		size = 3600
	}
	m := &Monitor{
		co2:     opts.CO2,
		gas:     opts.Gas,
		pm:      opts.Particulate,
		ring:    history.NewRing(size),
		sinks:   opts.Sinks,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
	return m
}

// History exposes the in-memory ring.
func (m *Monitor) History() *history.Ring {
	return m.ring
}

// Latest returns the most recent reading, if any has been produced.
func (m *Monitor) Latest() (sensor.Reading, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latest == nil {
		return sensor.Reading{}, false
	}
	return *m.latest, true
}

// SetInterval adjusts the poll cadence at runtime (config hot reload).
func (m *Monitor) SetInterval(d time.Duration) {
	if d > 0 {
		m.limiter.SetLimit(rate.Every(d))
	}
}

// Run starts the sensors and polls until ctx is done. Sensor errors are
// logged and retried after a short backoff; Run only returns on context
// cancellation or a failed sensor start.
func (m *Monitor) Run(ctx context.Context) error {
	logger := aqlog.WithComponent("monitor")

	if err := m.co2.Start(ctx); err != nil {
		return err
	}
	if err := m.gas.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := m.co2.Stop(stopCtx); err != nil {
			logger.Warn().Err(err).Str("event", "monitor.stop_failed").Msg("failed to stop periodic measurement")
		}
	}()

	logger.Info().Str("event", "monitor.started").Msg("sensor poll loop running")

	for {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil
		}

		start := time.Now()
		reading, err := m.poll(ctx)
		metrics.ObservePollDuration(time.Since(start).Seconds())
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn().Err(err).Str("event", "monitor.poll_failed").Msg("sensor poll failed")
			if err := sleep(ctx, errBackoff); err != nil {
				return nil
			}
			continue
		}

		m.publish(ctx, reading)
	}
}

// poll performs one full measurement cycle across all three sensors.
func (m *Monitor) poll(ctx context.Context) (sensor.Reading, error) {
	co2m, err := m.co2.Measure(ctx)
	if err != nil {
		if !errors.Is(err, sensor.ErrNotReady) {
			metrics.IncSensorReadError("scd4x")
		}
		return sensor.Reading{}, err
	}

	// Feed the SGP30's on-chip compensation from this tick's SCD4x sample
	// before measuring it.
	fp := AbsoluteHumidityFixedPoint(co2m.Temperature, co2m.Humidity)
	if err := m.gas.SetHumidity(ctx, fp); err != nil {
		metrics.IncSensorReadError("sgp30")
		return sensor.Reading{}, err
	}
	aq, err := m.gas.Measure(ctx)
	if err != nil {
		metrics.IncSensorReadError("sgp30")
		return sensor.Reading{}, err
	}

	pm, err := m.pm.Read(ctx)
	if err != nil {
		metrics.IncSensorReadError("pms5003")
		return sensor.Reading{}, err
	}

	return sensor.Reading{
		Temperature: co2m.Temperature,
		Humidity:    co2m.Humidity,
		CO2:         co2m.CO2,
		TVOC:        aq.TVOC,
		ECO2:        aq.ECO2,
		PM1:         pm.PM1,
		PM25:        pm.PM25,
		PM100:       pm.PM100,
		Timestamp:   time.Now(),
	}, nil
}

// publish stores the reading and fans it out to the sinks.
func (m *Monitor) publish(ctx context.Context, r sensor.Reading) {
	m.mu.Lock()
	m.latest = &r
	m.mu.Unlock()

	m.ring.Add(r)
	metrics.RecordReading(r)

	logger := aqlog.WithComponent("monitor")
	for _, s := range m.sinks {
		if err := s.Consume(ctx, r); err != nil {
			metrics.IncSinkError(s.Name())
			logger.Warn().Err(err).
				Str("event", "monitor.sink_failed").
				Str("sink", s.Name()).
				Msg("reading sink failed")
		}
	}
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

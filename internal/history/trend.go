// SPDX-License-Identifier: MIT

package history

import "github.com/piairqual/piairqual/internal/sensor"

// Direction classifies how a metric is moving relative to its recent
// average.
type Direction int

const (
	Steady Direction = iota
	Rising
	Falling
)

func (d Direction) String() string {
	switch d {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	default:
		return "steady"
	}
}

// Metric selects a field of a reading for trend and summary computations.
type Metric func(sensor.Reading) float64

// Field accessors for the trackable metrics.
var (
	Temperature Metric = func(r sensor.Reading) float64 { return r.Temperature }
	Humidity    Metric = func(r sensor.Reading) float64 { return r.Humidity }
	CO2         Metric = func(r sensor.Reading) float64 { return float64(r.CO2) }
	TVOC        Metric = func(r sensor.Reading) float64 { return float64(r.TVOC) }
	ECO2        Metric = func(r sensor.Reading) float64 { return float64(r.ECO2) }
	PM25        Metric = func(r sensor.Reading) float64 { return r.PM25 }
)

// trendSamples is how many recent readings feed the comparison average.
const trendSamples = 5

// Trend compares current against the mean of the last trendSamples stored
// readings; differences below threshold count as steady. With fewer than
// two readings the trend is steady.
func (r *Ring) Trend(metric Metric, current, threshold float64) Direction {
	recent := r.Last(trendSamples)
	if len(recent) < 2 {
		return Steady
	}
	var sum float64
	for _, reading := range recent {
		sum += metric(reading)
	}
	avg := sum / float64(len(recent))

	switch {
	case current-avg >= threshold:
		return Rising
	case avg-current >= threshold:
		return Falling
	default:
		return Steady
	}
}

// Stats summarises a metric over a slice of readings.
type Stats struct {
	Min, Max, Avg float64
	Count         int
}

// Summarise computes min/max/avg of metric over readings.
func Summarise(readings []sensor.Reading, metric Metric) Stats {
	if len(readings) == 0 {
		return Stats{}
	}
	s := Stats{Min: metric(readings[0]), Max: metric(readings[0]), Count: len(readings)}
	var sum float64
	for _, r := range readings {
		v := metric(r)
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		sum += v
	}
	s.Avg = sum / float64(len(readings))
	return s
}

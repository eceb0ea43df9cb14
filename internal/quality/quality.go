// SPDX-License-Identifier: MIT

// Package quality classifies readings into good/warning/bad levels and
// provides the gauge bands the display renders.
package quality

import "github.com/piairqual/piairqual/internal/sensor"

// Level is an air quality classification for one metric or overall.
type Level int

const (
	Good Level = iota
	Warning
	Bad
)

func (l Level) String() string {
	switch l {
	case Good:
		return "good"
	case Warning:
		return "warning"
	case Bad:
		return "bad"
	}
	return "bad"
}

// Thresholds holds the warning and bad cutoffs for one metric; values
// below Warn are good, values at or above Bad are bad.
type Thresholds struct {
	Warn float64
	Bad  float64
}

// Classify places a value on the good/warning/bad scale.
func (t Thresholds) Classify(v float64) Level {
	switch {
	case v >= t.Bad:
		return Bad
	case v >= t.Warn:
		return Warning
	default:
		return Good
	}
}

// Default thresholds for the classified metrics.
var (
	CO2Thresholds  = Thresholds{Warn: 800, Bad: 1200} // ppm
	TVOCThresholds = Thresholds{Warn: 220, Bad: 660}  // ppb
	PM25Thresholds = Thresholds{Warn: 12, Bad: 35}    // µg/m³
)

// Assessment is the classification of one reading.
type Assessment struct {
	CO2     Level `json:"co2"`
	TVOC    Level `json:"tvoc"`
	PM25    Level `json:"pm25"`
	Overall Level `json:"overall"`
}

// Assess classifies all metrics of a reading. Overall is the worst
// individual level.
func Assess(r sensor.Reading) Assessment {
	a := Assessment{
		CO2:  CO2Thresholds.Classify(float64(r.CO2)),
		TVOC: TVOCThresholds.Classify(float64(r.TVOC)),
		PM25: PM25Thresholds.Classify(r.PM25),
	}
	a.Overall = a.CO2
	if a.TVOC > a.Overall {
		a.Overall = a.TVOC
	}
	if a.PM25 > a.Overall {
		a.Overall = a.PM25
	}
	return a
}

// Ventilate reports whether the reading calls for opening a window: CO2 or
// TVOC in the bad band.
func Ventilate(r sensor.Reading) bool {
	return CO2Thresholds.Classify(float64(r.CO2)) == Bad ||
		TVOCThresholds.Classify(float64(r.TVOC)) == Bad
}

// Band describes a gauge segment on the display scale.
type Band struct {
	Lo, Hi float64
}

// Gauge describes a display gauge for one metric: full scale plus the
// optimal and warning bands drawn as range boxes.
type Gauge struct {
	Name    string
	Unit    string
	Min     float64
	Max     float64
	Optimal Band
	Warning Band
}

// Display gauges matching the OLED layout.
var (
	CO2Gauge  = Gauge{Name: "CO2", Unit: "PPM", Min: 400, Max: 2000, Optimal: Band{400, 1000}, Warning: Band{1000, 1500}}
	TVOCGauge = Gauge{Name: "TVOC", Unit: "PPB", Min: 0, Max: 1000, Optimal: Band{0, 300}, Warning: Band{300, 600}}
	PM25Gauge = Gauge{Name: "PM2.5", Unit: "UG/M3", Min: 0, Max: 50, Optimal: Band{0, 12}, Warning: Band{12, 35}}
)

// MarshalText lets Level serialise as its name in JSON maps.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// SPDX-License-Identifier: MIT

// Package metrics exposes the daemon's Prometheus instrumentation.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/piairqual/piairqual/internal/quality"
	"github.com/piairqual/piairqual/internal/sensor"
)

var (
	// Current readings
	temperature = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aq_temperature_celsius",
		Help: "Ambient temperature from the SCD4x",
	})
	humidity = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aq_humidity_percent",
		Help: "Relative humidity from the SCD4x",
	})
	co2 = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aq_co2_ppm",
		Help: "CO2 concentration from the SCD4x",
	})
	tvoc = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aq_tvoc_ppb",
		Help: "Total VOC from the SGP30",
	})
	eco2 = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aq_eco2_ppm",
		Help: "Equivalent CO2 from the SGP30",
	})
	pm = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aq_pm_ug_m3",
		Help: "Particulate matter concentration from the PMS5003",
	}, []string{"size"}) // size=pm1|pm2.5|pm10

	qualityLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aq_quality_level",
		Help: "Air quality classification (0=good 1=warning 2=bad)",
	}, []string{"metric"}) // metric=co2|tvoc|pm2.5|overall

	// Operational
	sensorReadErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aq_sensor_read_errors_total",
		Help: "Sensor read failures by sensor",
	}, []string{"sensor"}) // sensor=scd4x|sgp30|pms5003

	sinkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aq_sink_errors_total",
		Help: "Reading sink failures by sink",
	}, []string{"sink"}) // sink=store|csv|display

	pollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aq_poll_duration_seconds",
		Help:    "Time spent completing one full sensor poll",
		Buckets: prometheus.DefBuckets,
	})

	readingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aq_readings_total",
		Help: "Total complete readings published",
	})

	displayRenderErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aq_display_render_errors_total",
		Help: "Display render or flush failures",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aq_http_requests_total",
		Help: "HTTP requests by method, route pattern and status",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aq_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// RecordReading publishes the gauges for one complete reading.
func RecordReading(r sensor.Reading) {
	temperature.Set(r.Temperature)
	humidity.Set(r.Humidity)
	co2.Set(float64(r.CO2))
	tvoc.Set(float64(r.TVOC))
	eco2.Set(float64(r.ECO2))
	pm.WithLabelValues("pm1").Set(r.PM1)
	pm.WithLabelValues("pm2.5").Set(r.PM25)
	pm.WithLabelValues("pm10").Set(r.PM100)
	readingsTotal.Inc()

	a := quality.Assess(r)
	qualityLevel.WithLabelValues("co2").Set(float64(a.CO2))
	qualityLevel.WithLabelValues("tvoc").Set(float64(a.TVOC))
	qualityLevel.WithLabelValues("pm2.5").Set(float64(a.PM25))
	qualityLevel.WithLabelValues("overall").Set(float64(a.Overall))
}

// IncSensorReadError counts a failed read for the named sensor.
func IncSensorReadError(name string) { sensorReadErrors.WithLabelValues(name).Inc() }

// IncSinkError counts a failed sink delivery.
func IncSinkError(name string) { sinkErrors.WithLabelValues(name).Inc() }

// ObservePollDuration records the duration of one poll cycle.
func ObservePollDuration(seconds float64) { pollDuration.Observe(seconds) }

// IncDisplayRenderError counts a display failure.
func IncDisplayRenderError() { displayRenderErrors.Inc() }

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route string, status int, seconds float64) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route).Observe(seconds)
}

// SPDX-License-Identifier: MIT

package display

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piairqual/piairqual/internal/history"
	"github.com/piairqual/piairqual/internal/quality"
	"github.com/piairqual/piairqual/internal/sensor"
)

func litPixels(img *image.Gray, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.GrayAt(x, y).Y >= 0x80 {
				n++
			}
		}
	}
	return n
}

func testFrame(t *testing.T, page int, reading sensor.Reading) *image.Gray {
	t.Helper()
	// Page rotation keys off wall clock seconds; epoch+page*4 lands on the
	// requested page.
	now := time.Unix(int64(page)*4, 0)
	require.Equal(t, page, pageAt(now))
	return NewRenderer().Frame(reading, nil, now)
}

func TestPageAtRotation(t *testing.T) {
	base := time.Unix(0, 0)
	assert.Equal(t, pageEnvironment, pageAt(base))
	assert.Equal(t, pageCO2, pageAt(base.Add(4*time.Second)))
	assert.Equal(t, pageTVOC, pageAt(base.Add(8*time.Second)))
	assert.Equal(t, pagePM25, pageAt(base.Add(12*time.Second)))
	assert.Equal(t, pageEnvironment, pageAt(base.Add(16*time.Second)))
}

func TestFrameEveryPageRenders(t *testing.T) {
	reading := sensor.Reading{
		Temperature: 21.5, Humidity: 45, CO2: 600, TVOC: 120, ECO2: 500,
		PM25: 8, Timestamp: time.Now(),
	}
	for page := 0; page < pageCount; page++ {
		img := testFrame(t, page, reading)
		assert.Positive(t, litPixels(img, img.Bounds()), "page %d blank", page)
	}
}

func TestFrameVentilateAlert(t *testing.T) {
	alertArea := image.Rect(0, Height-14, Width, Height)

	good := testFrame(t, pageCO2, sensor.Reading{CO2: 600})
	assert.Zero(t, litPixels(good, alertArea))

	bad := testFrame(t, pageCO2, sensor.Reading{CO2: 1400})
	assert.Positive(t, litPixels(bad, alertArea))

	badVOC := testFrame(t, pageTVOC, sensor.Reading{TVOC: 700})
	assert.Positive(t, litPixels(badVOC, alertArea))
}

func TestGaugeValueY(t *testing.T) {
	g := quality.CO2Gauge

	assert.Equal(t, gaugeY+gaugeHeight, gaugeValueY(g, g.Min))
	assert.Equal(t, gaugeY, gaugeValueY(g, g.Max))

	mid := gaugeValueY(g, (g.Min+g.Max)/2)
	assert.Equal(t, gaugeY+gaugeHeight/2, mid)

	// Off-scale values clamp instead of leaving the gauge.
	assert.Equal(t, gaugeY+gaugeHeight, gaugeValueY(g, 0))
	assert.Equal(t, gaugeY, gaugeValueY(g, 99999))
}

func TestGaugeMarkerFollowsValue(t *testing.T) {
	low := testFrame(t, pageCO2, sensor.Reading{CO2: 450})
	high := testFrame(t, pageCO2, sensor.Reading{CO2: 1900})

	markerCol := image.Rect(gaugeX+gaugeWidth+1, gaugeY, gaugeX+gaugeWidth+5, gaugeY+gaugeHeight+1)
	lowHalf := image.Rect(markerCol.Min.X, gaugeY+gaugeHeight/2, markerCol.Max.X, markerCol.Max.Y)
	highHalf := image.Rect(markerCol.Min.X, gaugeY, markerCol.Max.X, gaugeY+gaugeHeight/2)

	assert.Positive(t, litPixels(low, lowHalf))
	assert.Positive(t, litPixels(high, highHalf))
}

func TestEnvironmentPageTrendArrows(t *testing.T) {
	hist := history.NewRing(10)
	for i := 0; i < 5; i++ {
		hist.Add(sensor.Reading{Temperature: 20, Humidity: 45})
	}

	reading := sensor.Reading{Temperature: 20, Humidity: 45}
	img := NewRenderer().Frame(reading, hist, time.Unix(0, 0))
	assert.Positive(t, litPixels(img, image.Rect(70, 37, 81, 48)), "steady arrow missing")
}

func TestProgressBarFill(t *testing.T) {
	r := NewRenderer()

	empty := image.NewGray(image.Rect(0, 0, Width, Height))
	r.drawProgressBar(empty, 2, 50, 124, 0, 100)

	full := image.NewGray(image.Rect(0, 0, Width, Height))
	r.drawProgressBar(full, 2, 50, 124, 100, 100)

	over := image.NewGray(image.Rect(0, 0, Width, Height))
	r.drawProgressBar(over, 2, 50, 124, 250, 100)

	area := image.Rect(2, 50, 126, 57)
	assert.Less(t, litPixels(empty, area), litPixels(full, area))
	assert.Equal(t, litPixels(full, area), litPixels(over, area), "overshoot clamps to full")
}

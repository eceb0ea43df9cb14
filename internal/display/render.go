// SPDX-License-Identifier: MIT

package display

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/piairqual/piairqual/internal/history"
	"github.com/piairqual/piairqual/internal/quality"
	"github.com/piairqual/piairqual/internal/sensor"
)

// pageInterval is how long each page stays up before rotating.
const pageInterval = 4 * time.Second

// Page indices in rotation order.
const (
	pageEnvironment = iota
	pageCO2
	pageTVOC
	pagePM25
	pageCount
)

// Gauge geometry, sized for the 7x13 base font.
const (
	gaugeX      = 20
	gaugeY      = 36
	gaugeWidth  = 20
	gaugeHeight = 76
)

var white = image.NewUniform(color.Gray{Y: 0xFF})

// Renderer draws reading frames for the rotating page layout.
type Renderer struct {
	face   font.Face
	ascent int
}

// NewRenderer creates a renderer using the fixed 7x13 face.
func NewRenderer() *Renderer {
	return &Renderer{
		face:   basicfont.Face7x13,
		ascent: basicfont.Face7x13.Ascent,
	}
}

// pageAt selects the page shown at a given wall clock time.
func pageAt(now time.Time) int {
	return int(now.Unix()/int64(pageInterval/time.Second)) % pageCount
}

// Frame renders one full display frame for the page active at now. hist
// feeds the trend arrows and may be nil.
func (r *Renderer) Frame(reading sensor.Reading, hist *history.Ring, now time.Time) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, Width, Height))

	r.drawTopBar(img, reading, now)

	switch pageAt(now) {
	case pageEnvironment:
		r.drawEnvironment(img, reading, hist)
	case pageCO2:
		r.drawGauge(img, quality.CO2Gauge, float64(reading.CO2))
		if quality.CO2Thresholds.Classify(float64(reading.CO2)) == quality.Bad {
			r.drawAlert(img)
		}
	case pageTVOC:
		r.drawGauge(img, quality.TVOCGauge, float64(reading.TVOC))
		if quality.TVOCThresholds.Classify(float64(reading.TVOC)) == quality.Bad {
			r.drawAlert(img)
		}
	case pagePM25:
		r.drawGauge(img, quality.PM25Gauge, reading.PM25)
	}
	return img
}

// drawTopBar puts temperature, clock and humidity on the first text row.
func (r *Renderer) drawTopBar(img *image.Gray, reading sensor.Reading, now time.Time) {
	r.text(img, 2, 1, fmt.Sprintf("%.1fC", reading.Temperature))

	clock := now.Format("15:04")
	r.text(img, (Width-r.width(clock))/2, 1, clock)

	humid := fmt.Sprintf("%.0f%%", reading.Humidity)
	r.text(img, Width-2-r.width(humid), 1, humid)
}

// drawEnvironment renders the temperature and humidity detail page.
func (r *Renderer) drawEnvironment(img *image.Gray, reading sensor.Reading, hist *history.Ring) {
	r.text(img, 2, 18, "Environment")

	r.text(img, 2, 36, fmt.Sprintf("%.1fC", reading.Temperature))
	r.drawTrendArrow(img, 70, 42, trendOf(hist, history.Temperature, reading.Temperature, 0.5))
	r.drawProgressBar(img, 2, 54, Width-4, reading.Temperature, 40)

	r.text(img, 2, 68, fmt.Sprintf("%.1f%%RH", reading.Humidity))
	r.drawTrendArrow(img, 70, 74, trendOf(hist, history.Humidity, reading.Humidity, 2))
	r.drawProgressBar(img, 2, 86, Width-4, reading.Humidity, 100)

	r.text(img, 2, 100, fmt.Sprintf("eCO2 %d ppm", reading.ECO2))
	r.drawTrendArrow(img, 104, 106, trendOf(hist, history.ECO2, float64(reading.ECO2), 5))
}

func trendOf(hist *history.Ring, m history.Metric, current, threshold float64) history.Direction {
	if hist == nil {
		return history.Steady
	}
	return hist.Trend(m, current, threshold)
}

// drawGauge renders a vertical gauge with optimal and warning band boxes
// and a triangle marker at the current value.
func (r *Renderer) drawGauge(img *image.Gray, g quality.Gauge, value float64) {
	r.text(img, gaugeX+(gaugeWidth-r.width(g.Name))/2, 16, g.Name)

	// Spine down the middle of the gauge.
	fillRect(img, gaugeX+gaugeWidth/2-1, gaugeY, 3, gaugeHeight+1)

	rect(img, gaugeX, gaugeValueY(g, g.Optimal.Hi), gaugeWidth+1, gaugeValueY(g, g.Optimal.Lo)-gaugeValueY(g, g.Optimal.Hi)+1)
	rect(img, gaugeX, gaugeValueY(g, g.Warning.Hi), gaugeWidth+1, gaugeValueY(g, g.Warning.Lo)-gaugeValueY(g, g.Warning.Hi)+1)

	pos := gaugeValueY(g, value)
	drawMarker(img, gaugeX+gaugeWidth, pos)

	r.text(img, gaugeX+gaugeWidth+10, pos-8, fmt.Sprintf("%d", int(value)))
	r.text(img, gaugeX+gaugeWidth+10, pos+6, g.Unit)
}

// gaugeValueY maps a value onto the gauge's vertical pixel range, larger
// values higher up, clamped to the scale.
func gaugeValueY(g quality.Gauge, value float64) int {
	v := value
	if v < g.Min {
		v = g.Min
	}
	if v > g.Max {
		v = g.Max
	}
	return gaugeY + gaugeHeight - int((v-g.Min)/(g.Max-g.Min)*gaugeHeight)
}

// drawMarker draws a left-pointing triangle with its apex at (x+4, y).
func drawMarker(img *image.Gray, x, y int) {
	for dx := 0; dx <= 4; dx++ {
		h := 4 - dx
		line(img, x+dx, y-h, x+dx, y+h)
	}
}

// drawTrendArrow draws a steady/rising/falling arrow at (x, y).
func (r *Renderer) drawTrendArrow(img *image.Gray, x, y int, d history.Direction) {
	switch d {
	case history.Rising:
		line(img, x+5, y-5, x+5, y+5)
		line(img, x+2, y-2, x+5, y-5)
		line(img, x+8, y-2, x+5, y-5)
	case history.Falling:
		line(img, x+5, y-5, x+5, y+5)
		line(img, x+2, y+2, x+5, y+5)
		line(img, x+8, y+2, x+5, y+5)
	default:
		line(img, x, y, x+10, y)
		line(img, x+7, y-3, x+10, y)
		line(img, x+7, y+3, x+10, y)
	}
}

// drawProgressBar draws an outlined bar filled proportionally to
// value/max.
func (r *Renderer) drawProgressBar(img *image.Gray, x, y, width int, value, max float64) {
	const barHeight = 7
	rect(img, x, y, width, barHeight)

	v := value
	if v > max {
		v = max
	}
	if v < 0 {
		v = 0
	}
	fill := int(v / max * float64(width-2))
	if fill > 0 {
		fillRect(img, x+1, y+1, fill, barHeight-2)
	}
}

// drawAlert puts the ventilation warning on the bottom row.
func (r *Renderer) drawAlert(img *image.Gray) {
	const msg = "VENTILATE!"
	r.text(img, (Width-r.width(msg))/2, Height-14, msg)
}

// text draws s with its top-left corner at (x, y).
func (r *Renderer) text(img *image.Gray, x, y int, s string) {
	d := font.Drawer{
		Dst:  img,
		Src:  white,
		Face: r.face,
		Dot:  fixed.P(x, y+r.ascent),
	}
	d.DrawString(s)
}

func (r *Renderer) width(s string) int {
	return font.MeasureString(r.face, s).Ceil()
}

func set(img *image.Gray, x, y int) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetGray(x, y, color.Gray{Y: 0xFF})
	}
}

// line draws from (x0, y0) to (x1, y1) with Bresenham's algorithm.
func line(img *image.Gray, x0, y0, x1, y1 int) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		set(img, x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// rect draws an outlined rectangle with top-left (x, y).
func rect(img *image.Gray, x, y, w, h int) {
	line(img, x, y, x+w-1, y)
	line(img, x, y+h-1, x+w-1, y+h-1)
	line(img, x, y, x, y+h-1)
	line(img, x+w-1, y, x+w-1, y+h-1)
}

func fillRect(img *image.Gray, x, y, w, h int) {
	for yy := y; yy < y+h; yy++ {
		for xx := x; xx < x+w; xx++ {
			set(img, xx, yy)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// SPDX-License-Identifier: MIT

// Package plot renders the 2x2 trend figure: temperature and humidity,
// CO2 with a 1000 ppm guide line, TVOC and eCO2 over time.
package plot

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/google/renameio/v2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/piairqual/piairqual/internal/history"
	"github.com/piairqual/piairqual/internal/sensor"
)

var (
	colTemperature = color.RGBA{R: 220, A: 255}
	colHumidity    = color.RGBA{B: 220, A: 255}
	colCO2         = color.RGBA{G: 160, A: 255}
	colTVOC        = color.RGBA{R: 200, G: 180, A: 255}
	colECO2        = color.RGBA{R: 200, B: 200, A: 255}
	colGuide       = color.RGBA{R: 220, A: 255}
)

// co2Guide is the ventilation guide line level in ppm.
const co2Guide = 1000

// WritePNG renders the trend figure for readings as a PNG.
func WritePNG(w io.Writer, readings []sensor.Reading) error {
	if len(readings) == 0 {
		return errors.New("plot: no readings")
	}

	plots, err := trendPlots(readings)
	if err != nil {
		return err
	}

	img := vgimg.New(24*vg.Centimeter, 16*vg.Centimeter)
	tiles := draw.Tiles{
		Rows: 2, Cols: 2,
		PadX: vg.Millimeter * 4, PadY: vg.Millimeter * 4,
		PadTop: vg.Millimeter * 2, PadBottom: vg.Millimeter * 2,
		PadLeft: vg.Millimeter * 2, PadRight: vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, draw.New(img))
	for r := range plots {
		for c := range plots[r] {
			plots[r][c].Draw(canvases[r][c])
		}
	}

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("plot: encode png: %w", err)
	}
	return nil
}

// WriteFile renders the figure and writes it to path atomically.
func WriteFile(path string, readings []sensor.Reading) error {
	var buf bytes.Buffer
	if err := WritePNG(&buf, readings); err != nil {
		return err
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("plot: write %s: %w", path, err)
	}
	return nil
}

func trendPlots(readings []sensor.Reading) ([][]*plot.Plot, error) {
	env := newTrendPlot("Temperature & Humidity")
	tempLine, err := addLine(env, series(readings, history.Temperature), colTemperature)
	if err != nil {
		return nil, err
	}
	humidLine, err := addLine(env, series(readings, history.Humidity), colHumidity)
	if err != nil {
		return nil, err
	}
	env.Legend.Add("temperature (C)", tempLine)
	env.Legend.Add("humidity (%RH)", humidLine)
	env.Legend.Top = true

	co2 := newTrendPlot("CO2 (ppm)")
	if _, err := addLine(co2, series(readings, history.CO2), colCO2); err != nil {
		return nil, err
	}
	if err := addGuideLine(co2, readings, co2Guide); err != nil {
		return nil, err
	}

	tvoc := newTrendPlot("TVOC (ppb)")
	if _, err := addLine(tvoc, series(readings, history.TVOC), colTVOC); err != nil {
		return nil, err
	}

	eco2 := newTrendPlot("eCO2 (ppm)")
	if _, err := addLine(eco2, series(readings, history.ECO2), colECO2); err != nil {
		return nil, err
	}

	return [][]*plot.Plot{{env, co2}, {tvoc, eco2}}, nil
}

func newTrendPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Tick.Marker = plot.TimeTicks{Format: "15:04"}
	return p
}

func series(readings []sensor.Reading, metric history.Metric) plotter.XYs {
	xys := make(plotter.XYs, len(readings))
	for i, r := range readings {
		xys[i].X = float64(r.Timestamp.Unix())
		xys[i].Y = metric(r)
	}
	return xys
}

func addLine(p *plot.Plot, xys plotter.XYs, col color.Color) (*plotter.Line, error) {
	l, err := plotter.NewLine(xys)
	if err != nil {
		return nil, fmt.Errorf("plot: build line: %w", err)
	}
	l.Color = col
	p.Add(l)
	return l, nil
}

// addGuideLine draws a dashed horizontal reference across the full time
// range.
func addGuideLine(p *plot.Plot, readings []sensor.Reading, level float64) error {
	xys := plotter.XYs{
		{X: float64(readings[0].Timestamp.Unix()), Y: level},
		{X: float64(readings[len(readings)-1].Timestamp.Unix()), Y: level},
	}
	l, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("plot: build guide line: %w", err)
	}
	l.Color = colGuide
	l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(l)
	return nil
}

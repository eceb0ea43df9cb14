// SPDX-License-Identifier: MIT

package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/piairqual/piairqual/internal/plot"
	"github.com/piairqual/piairqual/internal/quality"
	"github.com/piairqual/piairqual/internal/sensor"
	"github.com/piairqual/piairqual/internal/store"
)

const (
	defaultWindow = time.Hour
	maxWindow     = 24 * time.Hour
)

type statusResponse struct {
	Version       string              `json:"version"`
	StartedAt     time.Time           `json:"startedAt"`
	UptimeSeconds float64             `json:"uptimeSeconds"`
	HistoryLength int                 `json:"historyLength"`
	Reading       *sensor.Reading     `json:"reading,omitempty"`
	Quality       *quality.Assessment `json:"quality,omitempty"`
	Ventilate     bool                `json:"ventilate"`
}

type historyResponse struct {
	Window   string           `json:"window"`
	Count    int              `json:"count"`
	Readings []sensor.Reading `json:"readings"`
}

type qualityResponse struct {
	quality.Assessment
	Ventilate bool      `json:"ventilate"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Version:       s.version,
		StartedAt:     s.startedAt,
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		HistoryLength: s.source.History().Len(),
	}
	if reading, ok := s.source.Latest(); ok {
		a := quality.Assess(reading)
		resp.Reading = &reading
		resp.Quality = &a
		resp.Ventilate = quality.Ventilate(reading)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	reading, ok := s.source.Latest()
	if !ok {
		writeNotFound(w, "no reading yet")
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	reading, ok := s.source.Latest()
	if !ok {
		writeNotFound(w, "no reading yet")
		return
	}
	writeJSON(w, http.StatusOK, qualityResponse{
		Assessment: quality.Assess(reading),
		Ventilate:  quality.Ventilate(reading),
		Timestamp:  reading.Timestamp,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, err)
		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}

	readings, err := s.windowReadings(r, window, limit)
	if err != nil {
		writeServiceUnavailable(w, err)
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Window:   window.String(),
		Count:    len(readings),
		Readings: readings,
	})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, err)
		return
	}

	readings, err := s.windowReadings(r, window, 0)
	if err != nil {
		writeServiceUnavailable(w, err)
		return
	}

	name := fmt.Sprintf("air_quality_%s.csv", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))

	cw := csv.NewWriter(w)
	if err := store.WriteCSV(cw, readings); err != nil {
		logger("api").Error().Err(err).Str("event", "export.csv_failed").Msg("csv export failed")
	}
}

func (s *Server) handleExportPlot(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, err)
		return
	}

	readings, err := s.windowReadings(r, window, 0)
	if err != nil {
		writeServiceUnavailable(w, err)
		return
	}
	if len(readings) == 0 {
		writeNotFound(w, "no readings in window")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := plot.WritePNG(w, readings); err != nil {
		logger("api").Error().Err(err).Str("event", "export.plot_failed").Msg("plot export failed")
	}
}

// windowReadings answers from the archive when one is wired, otherwise
// from the in-memory ring. A limit of 0 returns the full window; a
// positive limit keeps the most recent n readings.
func (s *Server) windowReadings(r *http.Request, window time.Duration, limit int) ([]sensor.Reading, error) {
	if s.archive != nil {
		now := time.Now()
		return s.archive.QueryWindow(r.Context(), now.Add(-window), now, limit)
	}
	readings := s.source.History().Window(window)
	if limit > 0 && len(readings) > limit {
		readings = readings[len(readings)-limit:]
	}
	return readings, nil
}

// parseWindow reads the ?window= query parameter as a Go duration.
func parseWindow(r *http.Request) (time.Duration, error) {
	raw := r.URL.Query().Get("window")
	if raw == "" {
		return defaultWindow, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid window %q: %w", raw, err)
	}
	if d <= 0 {
		return 0, errors.New("window must be positive")
	}
	if d > maxWindow {
		return 0, fmt.Errorf("window exceeds maximum of %s", maxWindow)
	}
	return d, nil
}

// parseLimit reads the optional ?limit= query parameter. Zero means no
// limit.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid limit %q: %w", raw, err)
	}
	if n < 0 {
		return 0, errors.New("limit must not be negative")
	}
	return n, nil
}

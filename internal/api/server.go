// SPDX-License-Identifier: MIT

// Package api serves the HTTP interface: reading queries, quality
// assessment, CSV and plot exports, and the health probes.
package api

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/piairqual/piairqual/internal/health"
	"github.com/piairqual/piairqual/internal/history"
	"github.com/piairqual/piairqual/internal/sensor"
)

// ReadingSource is the live state the poll loop maintains.
type ReadingSource interface {
	Latest() (sensor.Reading, bool)
	History() *history.Ring
}

// Archive is the persisted reading history. Optional; without it history
// queries are answered from the in-memory ring only.
type Archive interface {
	QueryWindow(ctx context.Context, from, to time.Time, limit int) ([]sensor.Reading, error)
}

// Options configures a Server.
type Options struct {
	Source  ReadingSource
	Archive Archive
	Health  *health.Manager
	Version string

	// ExportRatePerMin caps the expensive export endpoints per client IP.
	// Zero disables the limit.
	ExportRatePerMin int
}

// Server holds the HTTP handler dependencies.
type Server struct {
	source    ReadingSource
	archive   Archive
	health    *health.Manager
	version   string
	startedAt time.Time

	exportRate int
}

// New creates a Server.
func New(opts Options) *Server {
	return &Server{
		source:     opts.Source,
		archive:    opts.Archive,
		health:     opts.Health,
		version:    opts.Version,
		startedAt:  time.Now(),
		exportRate: opts.ExportRatePerMin,
	}
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(recoverer)
	r.Use(requestID)
	r.Use(requestLogger)

	if s.health != nil {
		r.Get("/healthz", s.health.ServeHealth)
		r.Get("/readyz", s.health.ServeReady)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/quality", s.handleQuality)
		r.Get("/readings/latest", s.handleLatest)
		r.Get("/readings/history", s.handleHistory)

		r.Group(func(r chi.Router) {
			if s.exportRate > 0 {
				r.Use(exportRateLimit(s.exportRate))
			}
			r.Get("/export/csv", s.handleExportCSV)
			r.Get("/export/plot.png", s.handleExportPlot)
		})
	})

	return r
}

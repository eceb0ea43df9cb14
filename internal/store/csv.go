// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/piairqual/piairqual/internal/sensor"
)

// csvHeader matches the original session log column order.
var csvHeader = []string{
	"timestamp", "temperature", "humidity", "co2", "tvoc", "eco2", "pm10", "pm25", "pm100",
}

// csvRow renders one reading; "pm10" is PM1.0 to stay column-compatible
// with existing session logs.
func csvRow(r sensor.Reading) []string {
	return []string{
		r.Timestamp.Format(time.RFC3339),
		strconv.FormatFloat(r.Temperature, 'f', 2, 64),
		strconv.FormatFloat(r.Humidity, 'f', 2, 64),
		strconv.Itoa(r.CO2),
		strconv.Itoa(r.TVOC),
		strconv.Itoa(r.ECO2),
		strconv.FormatFloat(r.PM1, 'f', 2, 64),
		strconv.FormatFloat(r.PM25, 'f', 2, 64),
		strconv.FormatFloat(r.PM100, 'f', 2, 64),
	}
}

// CSVLogger appends every reading to a per-session CSV file named
// air_quality_YYYYMMDD_HHMMSS.csv in the data directory.
type CSVLogger struct {
	mu   sync.Mutex
	f    *os.File
	w    *csv.Writer
	path string
}

// NewCSVLogger creates the session file and writes the header.
func NewCSVLogger(dir string, now time.Time) (*CSVLogger, error) {
	path := filepath.Join(dir, fmt.Sprintf("air_quality_%s.csv", now.Format("20060102_150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644) // #nosec G304 -- path built from the configured data dir
	if err != nil {
		return nil, fmt.Errorf("store: create session log: %w", err)
	}

	l := &CSVLogger{f: f, w: csv.NewWriter(f), path: path}
	if err := l.w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("store: write csv header: %w", err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("store: flush csv header: %w", err)
	}
	return l, nil
}

// Path returns the session file path.
func (l *CSVLogger) Path() string {
	return l.path
}

// Append writes one reading row and flushes it to the file.
func (l *CSVLogger) Append(r sensor.Reading) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.w.Write(csvRow(r)); err != nil {
		return fmt.Errorf("store: append csv row: %w", err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return fmt.Errorf("store: flush csv row: %w", err)
	}
	return nil
}

// Close flushes and closes the session file.
func (l *CSVLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		_ = l.f.Close()
		return err
	}
	return l.f.Close()
}

// Name implements monitor.Sink.
func (l *CSVLogger) Name() string { return "csv" }

// Consume implements monitor.Sink by appending the reading.
func (l *CSVLogger) Consume(ctx context.Context, r sensor.Reading) error {
	return l.Append(r)
}

// WriteCSV renders readings in the session log format to an arbitrary
// writer, for the API export endpoint.
func WriteCSV(w *csv.Writer, readings []sensor.Reading) error {
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range readings {
		if err := w.Write(csvRow(r)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

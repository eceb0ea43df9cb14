// SPDX-License-Identifier: MIT

// Package store persists readings: a SQLite database for queryable history
// and per-session CSV logs matching the original file format.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure Go driver

	"github.com/piairqual/piairqual/internal/sensor"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ts          INTEGER NOT NULL,
	temperature REAL    NOT NULL,
	humidity    REAL    NOT NULL,
	co2         INTEGER NOT NULL,
	tvoc        INTEGER NOT NULL,
	eco2        INTEGER NOT NULL,
	pm1         REAL    NOT NULL,
	pm25        REAL    NOT NULL,
	pm100       REAL    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_readings_ts ON readings(ts);
`

// DB is the SQLite-backed reading store.
type DB struct {
	db *sql.DB
}

// Open initialises the database at path with WAL mode and busy timeout
// applied to every pooled connection, and creates the schema.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Single writer (the poll loop) plus a few API readers under WAL.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the underlying pool.
func (s *DB) Close() error {
	return s.db.Close()
}

// Ping verifies connectivity, for health checks.
func (s *DB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Insert stores one reading.
func (s *DB) Insert(ctx context.Context, r sensor.Reading) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO readings (ts, temperature, humidity, co2, tvoc, eco2, pm1, pm25, pm100)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Timestamp.UnixMilli(), r.Temperature, r.Humidity,
		r.CO2, r.TVOC, r.ECO2, r.PM1, r.PM25, r.PM100)
	if err != nil {
		return fmt.Errorf("store: insert reading: %w", err)
	}
	return nil
}

// QueryWindow returns readings with timestamps in [from, to], oldest
// first, capped at limit rows (0 means no cap).
func (s *DB) QueryWindow(ctx context.Context, from, to time.Time, limit int) ([]sensor.Reading, error) {
	q := `
		SELECT ts, temperature, humidity, co2, tvoc, eco2, pm1, pm25, pm100
		FROM readings
		WHERE ts >= ? AND ts <= ?
		ORDER BY ts ASC`
	args := []any{from.UnixMilli(), to.UnixMilli()}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query window: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []sensor.Reading
	for rows.Next() {
		var r sensor.Reading
		var ts int64
		if err := rows.Scan(&ts, &r.Temperature, &r.Humidity, &r.CO2, &r.TVOC, &r.ECO2, &r.PM1, &r.PM25, &r.PM100); err != nil {
			return nil, fmt.Errorf("store: scan reading: %w", err)
		}
		r.Timestamp = time.UnixMilli(ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Latest returns the most recent stored reading.
func (s *DB) Latest(ctx context.Context) (sensor.Reading, error) {
	var r sensor.Reading
	var ts int64
	err := s.db.QueryRowContext(ctx, `
		SELECT ts, temperature, humidity, co2, tvoc, eco2, pm1, pm25, pm100
		FROM readings ORDER BY ts DESC LIMIT 1`).
		Scan(&ts, &r.Temperature, &r.Humidity, &r.CO2, &r.TVOC, &r.ECO2, &r.PM1, &r.PM25, &r.PM100)
	if err != nil {
		return sensor.Reading{}, err
	}
	r.Timestamp = time.UnixMilli(ts)
	return r, nil
}

// Prune deletes readings older than cutoff and returns the rows removed.
func (s *DB) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM readings WHERE ts < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("store: prune: %w", err)
	}
	return res.RowsAffected()
}

// VerifyIntegrity runs PRAGMA quick_check and returns diagnostic rows if
// the database is corrupt, nil when healthy.
func (s *DB) VerifyIntegrity(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA quick_check;")
	if err != nil {
		return nil, fmt.Errorf("store: quick_check: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []string
	for rows.Next() {
		var res string
		if err := rows.Scan(&res); err != nil {
			return nil, fmt.Errorf("store: scan quick_check row: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(results) == 1 && strings.EqualFold(results[0], "ok") {
		return nil, nil
	}
	return results, nil
}

// Name implements monitor.Sink.
func (s *DB) Name() string { return "store" }

// Consume implements monitor.Sink by inserting the reading.
func (s *DB) Consume(ctx context.Context, r sensor.Reading) error {
	return s.Insert(ctx, r)
}

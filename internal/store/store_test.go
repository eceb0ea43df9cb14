// SPDX-License-Identifier: MIT

package store

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piairqual/piairqual/internal/sensor"
)

func testReading(co2 int, ts time.Time) sensor.Reading {
	return sensor.Reading{
		Temperature: 21.5, Humidity: 45.2, CO2: co2, TVOC: 120, ECO2: 520,
		PM1: 3.1, PM25: 8.4, PM100: 12.0, Timestamp: ts,
	}
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "readings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestInsertAndQueryWindow(t *testing.T) {
	db := openTestDB(t)
	ctx := t.Context()
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, db.Insert(ctx, testReading(400+i, base.Add(time.Duration(i)*time.Minute))))
	}

	got, err := db.QueryWindow(ctx, base.Add(time.Minute), base.Add(3*time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 401, got[0].CO2)
	assert.Equal(t, 403, got[2].CO2)
	assert.Equal(t, base.Add(time.Minute).UnixMilli(), got[0].Timestamp.UnixMilli())
	assert.InDelta(t, 21.5, got[0].Temperature, 0.001)
}

func TestQueryWindowLimit(t *testing.T) {
	db := openTestDB(t)
	ctx := t.Context()
	base := time.Now()

	for i := 0; i < 10; i++ {
		require.NoError(t, db.Insert(ctx, testReading(400+i, base.Add(time.Duration(i)*time.Second))))
	}

	got, err := db.QueryWindow(ctx, base.Add(-time.Hour), base.Add(time.Hour), 4)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestLatest(t *testing.T) {
	db := openTestDB(t)
	ctx := t.Context()
	base := time.Now()

	require.NoError(t, db.Insert(ctx, testReading(410, base.Add(-time.Minute))))
	require.NoError(t, db.Insert(ctx, testReading(999, base)))

	latest, err := db.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 999, latest.CO2)
}

func TestPrune(t *testing.T) {
	db := openTestDB(t)
	ctx := t.Context()
	base := time.Now()

	require.NoError(t, db.Insert(ctx, testReading(400, base.Add(-48*time.Hour))))
	require.NoError(t, db.Insert(ctx, testReading(500, base)))

	n, err := db.Prune(ctx, base.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	latest, err := db.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 500, latest.CO2)
}

func TestVerifyIntegrity(t *testing.T) {
	db := openTestDB(t)
	problems, err := db.VerifyIntegrity(t.Context())
	require.NoError(t, err)
	assert.Nil(t, problems)
}

func TestCSVLogger(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC)

	l, err := NewCSVLogger(dir, now)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "air_quality_20260825_093000.csv"), l.Path())

	require.NoError(t, l.Append(testReading(420, now)))
	require.NoError(t, l.Append(testReading(430, now.Add(time.Second))))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3, "header plus two rows")
	assert.Equal(t, "timestamp,temperature,humidity,co2,tvoc,eco2,pm10,pm25,pm100", lines[0])
	assert.Contains(t, lines[1], ",420,")
	assert.Contains(t, lines[2], ",430,")
}

func TestCSVLoggerRefusesExistingFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	_, err := NewCSVLogger(dir, now)
	require.NoError(t, err)

	_, err = NewCSVLogger(dir, now)
	require.Error(t, err, "same-second session file already exists")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	readings := []sensor.Reading{
		testReading(400, time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)),
		testReading(800, time.Date(2026, 8, 25, 10, 1, 0, 0, time.UTC)),
	}
	require.NoError(t, WriteCSV(w, readings))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "2026-08-25T10:00:00Z,21.50,45.20,400,"))
}

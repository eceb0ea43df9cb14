// SPDX-License-Identifier: MIT

package display

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piairqual/piairqual/internal/history"
	"github.com/piairqual/piairqual/internal/sensor"
)

type countingDevice struct {
	mu    sync.Mutex
	draws int
	fail  bool
}

func (d *countingDevice) Bounds() image.Rectangle { return image.Rect(0, 0, Width, Height) }

func (d *countingDevice) Draw(img *image.Gray) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draws++
	if d.fail {
		return errors.New("panel gone")
	}
	return nil
}

func (d *countingDevice) Close() error { return nil }

func (d *countingDevice) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draws
}

func runLoop(t *testing.T, l *Loop, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, l.Run(ctx))
}

func TestLoopDrawsLatestReading(t *testing.T) {
	dev := &countingDevice{}
	var mu sync.Mutex
	reading := sensor.Reading{CO2: 500, Timestamp: time.Now()}

	l := NewLoop(dev, func() (sensor.Reading, bool) {
		mu.Lock()
		defer mu.Unlock()
		// Fresh timestamp every call forces a redraw each tick.
		reading.Timestamp = time.Now()
		return reading, true
	}, history.NewRing(10))

	runLoop(t, l, 450*time.Millisecond)
	assert.GreaterOrEqual(t, dev.count(), 2)
}

func TestLoopSkipsWithoutReading(t *testing.T) {
	dev := &countingDevice{}
	l := NewLoop(dev, func() (sensor.Reading, bool) {
		return sensor.Reading{}, false
	}, nil)

	runLoop(t, l, 300*time.Millisecond)
	assert.Zero(t, dev.count())
}

func TestLoopSkipsUnchangedFrame(t *testing.T) {
	dev := &countingDevice{}
	fixed := sensor.Reading{CO2: 500, Timestamp: time.Unix(1000, 0)}
	l := NewLoop(dev, func() (sensor.Reading, bool) { return fixed, true }, nil)
	// Frozen clock keeps the page constant too.
	l.now = func() time.Time { return time.Unix(1000, 0) }

	runLoop(t, l, 400*time.Millisecond)
	assert.Equal(t, 1, dev.count())
}

func TestLoopSurvivesDrawErrors(t *testing.T) {
	dev := &countingDevice{fail: true}
	l := NewLoop(dev, func() (sensor.Reading, bool) {
		return sensor.Reading{Timestamp: time.Now()}, true
	}, nil)

	runLoop(t, l, 300*time.Millisecond)
	assert.GreaterOrEqual(t, dev.count(), 1)
}

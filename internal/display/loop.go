// SPDX-License-Identifier: MIT

package display

import (
	"context"
	"time"

	"github.com/piairqual/piairqual/internal/history"
	aqlog "github.com/piairqual/piairqual/internal/log"
	"github.com/piairqual/piairqual/internal/metrics"
	"github.com/piairqual/piairqual/internal/sensor"
)

const (
	refreshInterval = 100 * time.Millisecond
	drawErrBackoff  = time.Second
)

// Loop refreshes the device at 10Hz with the latest reading. Redraws are
// skipped while both the reading and the active page are unchanged.
type Loop struct {
	dev      Device
	renderer *Renderer
	latest   func() (sensor.Reading, bool)
	hist     *history.Ring
	now      func() time.Time
}

// NewLoop wires a device to a latest-reading accessor and the history ring
// used for trend arrows.
func NewLoop(dev Device, latest func() (sensor.Reading, bool), hist *history.Ring) *Loop {
	return &Loop{
		dev:      dev,
		renderer: NewRenderer(),
		latest:   latest,
		hist:     hist,
		now:      time.Now,
	}
}

// Run refreshes the display until ctx is done. Draw errors are logged and
// retried after a short backoff; they never end the loop.
func (l *Loop) Run(ctx context.Context) error {
	logger := aqlog.WithComponent("display")
	logger.Info().Str("event", "display.started").Msg("display refresh loop running")

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	var lastDrawn time.Time
	lastPage := -1
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		reading, ok := l.latest()
		if !ok {
			continue
		}

		now := l.now()
		page := pageAt(now)
		if reading.Timestamp.Equal(lastDrawn) && page == lastPage {
			continue
		}

		frame := l.renderer.Frame(reading, l.hist, now)
		if err := l.dev.Draw(frame); err != nil {
			metrics.IncDisplayRenderError()
			logger.Warn().Err(err).Str("event", "display.draw_failed").Msg("display update failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(drawErrBackoff):
			}
			continue
		}
		lastDrawn, lastPage = reading.Timestamp, page
	}
}

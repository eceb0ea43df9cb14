// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"time"

	"github.com/piairqual/piairqual/internal/sensor"
)

// SensorChecker reports on the freshness of the latest reading. No reading
// yet means unhealthy (the daemon is still warming up); a reading older
// than the stale threshold means degraded, and far older means unhealthy.
type SensorChecker struct {
	latest func() (sensor.Reading, bool)
	stale  time.Duration
	dead   time.Duration
}

// NewSensorChecker builds a checker around a latest-reading accessor.
// stale should be a few poll intervals; readings older than dead flip the
// daemon unhealthy.
func NewSensorChecker(latest func() (sensor.Reading, bool), stale, dead time.Duration) *SensorChecker {
	return &SensorChecker{latest: latest, stale: stale, dead: dead}
}

func (c *SensorChecker) Name() string { return "sensors" }

func (c *SensorChecker) Check(ctx context.Context) CheckResult {
	r, ok := c.latest()
	if !ok {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "no reading produced yet",
		}
	}

	age := time.Since(r.Timestamp)
	switch {
	case age > c.dead:
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  fmt.Sprintf("last reading %s old", age.Round(time.Second)),
		}
	case age > c.stale:
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("last reading %s old", age.Round(time.Second)),
		}
	default:
		return CheckResult{
			Status:  StatusHealthy,
			Message: "readings current",
		}
	}
}

// Pinger is anything with a context-aware ping, e.g. the reading store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker verifies the reading store answers.
type StoreChecker struct {
	store Pinger
}

// NewStoreChecker builds a checker for the persistence layer.
func NewStoreChecker(store Pinger) *StoreChecker {
	return &StoreChecker{store: store}
}

func (c *StoreChecker) Name() string { return "store" }

func (c *StoreChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "store reachable"}
}

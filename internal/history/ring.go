// SPDX-License-Identifier: MIT

// Package history keeps a bounded in-memory ring of readings with trend
// and summary computations for the display and the API.
package history

import (
	"sync"
	"time"

	"github.com/piairqual/piairqual/internal/sensor"
)

// Ring is a fixed-capacity reading buffer. Oldest entries are evicted
// first. All methods are safe for concurrent use.
type Ring struct {
	mu    sync.RWMutex
	buf   []sensor.Reading
	head  int // next write position
	count int
}

// NewRing returns a ring holding at most capacity readings.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]sensor.Reading, capacity)}
}

// Add appends a reading, evicting the oldest when full.
func (r *Ring) Add(reading sensor.Reading) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.head] = reading
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Len returns the number of stored readings.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Snapshot returns all stored readings, oldest first.
func (r *Ring) Snapshot() []sensor.Reading {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lockedTail(r.count)
}

// Last returns up to n most recent readings, oldest first.
func (r *Ring) Last(n int) []sensor.Reading {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n > r.count {
		n = r.count
	}
	return r.lockedTail(n)
}

// Window returns readings newer than now-d, oldest first.
func (r *Ring) Window(d time.Duration) []sensor.Reading {
	cutoff := time.Now().Add(-d)
	all := r.Snapshot()
	for i, reading := range all {
		if reading.Timestamp.After(cutoff) {
			return all[i:]
		}
	}
	return nil
}

func (r *Ring) lockedTail(n int) []sensor.Reading {
	out := make([]sensor.Reading, 0, n)
	start := r.head - n
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < n; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

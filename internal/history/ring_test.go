// SPDX-License-Identifier: MIT

package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piairqual/piairqual/internal/sensor"
)

func reading(co2 int, ts time.Time) sensor.Reading {
	return sensor.Reading{CO2: co2, Timestamp: ts}
}

func TestRingEviction(t *testing.T) {
	r := NewRing(3)
	base := time.Now()

	for i := 1; i <= 5; i++ {
		r.Add(reading(i, base.Add(time.Duration(i)*time.Second)))
	}

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 3, r.Cap())

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, 3, snap[0].CO2, "oldest surviving reading first")
	assert.Equal(t, 5, snap[2].CO2)
}

func TestRingLast(t *testing.T) {
	r := NewRing(10)
	base := time.Now()
	for i := 1; i <= 4; i++ {
		r.Add(reading(i, base))
	}

	last2 := r.Last(2)
	require.Len(t, last2, 2)
	assert.Equal(t, 3, last2[0].CO2)
	assert.Equal(t, 4, last2[1].CO2)

	assert.Len(t, r.Last(99), 4, "Last larger than contents returns all")
}

func TestRingWindow(t *testing.T) {
	r := NewRing(10)
	now := time.Now()
	r.Add(reading(1, now.Add(-time.Hour)))
	r.Add(reading(2, now.Add(-time.Minute)))
	r.Add(reading(3, now.Add(-time.Second)))

	w := r.Window(10 * time.Minute)
	require.Len(t, w, 2)
	assert.Equal(t, 2, w[0].CO2)
}

func TestRingTimestampsNonDecreasing(t *testing.T) {
	r := NewRing(5)
	base := time.Now()
	for i := 0; i < 12; i++ {
		r.Add(reading(i, base.Add(time.Duration(i)*time.Second)))
	}
	snap := r.Snapshot()
	for i := 1; i < len(snap); i++ {
		assert.False(t, snap[i].Timestamp.Before(snap[i-1].Timestamp))
	}
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name      string
		history   []int
		current   float64
		threshold float64
		want      Direction
	}{
		{"too little history", []int{800}, 900, 5, Steady},
		{"rising", []int{800, 800, 800, 800, 800}, 900, 5, Rising},
		{"falling", []int{800, 800, 800, 800, 800}, 700, 5, Falling},
		{"within threshold", []int{800, 800, 800, 800, 800}, 803, 5, Steady},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRing(10)
			for _, v := range tc.history {
				r.Add(reading(v, time.Now()))
			}
			assert.Equal(t, tc.want, r.Trend(CO2, tc.current, tc.threshold))
		})
	}
}

func TestSummarise(t *testing.T) {
	readings := []sensor.Reading{
		{CO2: 400}, {CO2: 800}, {CO2: 600},
	}
	s := Summarise(readings, CO2)
	assert.Equal(t, 400.0, s.Min)
	assert.Equal(t, 800.0, s.Max)
	assert.Equal(t, 600.0, s.Avg)
	assert.Equal(t, 3, s.Count)

	assert.Equal(t, Stats{}, Summarise(nil, CO2))
}

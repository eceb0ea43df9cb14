// SPDX-License-Identifier: MIT

package sgp30

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piairqual/piairqual/internal/sensor"
	"github.com/piairqual/piairqual/internal/sensor/sensirion"
)

// fakeBus serves the SGP30 write-then-read transaction pattern: commands
// arrive as writes, measurement data is fetched by a bare read.
type fakeBus struct {
	writes   [][]byte
	nextRead []byte
}

func (f *fakeBus) Tx(w, r []byte) error {
	if len(w) > 0 {
		cp := make([]byte, len(w))
		copy(cp, w)
		f.writes = append(f.writes, cp)
	}
	if len(r) > 0 {
		copy(r, f.nextRead)
	}
	return nil
}

func words(ws ...uint16) []byte {
	var out []byte
	for _, w := range ws {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], w)
		out = append(out, b[0], b[1], sensirion.CRC8(b[:]))
	}
	return out
}

func TestMeasure(t *testing.T) {
	bus := &fakeBus{nextRead: words(412, 19)}
	dev := New(bus)

	aq, err := dev.Measure(t.Context())
	require.NoError(t, err)

	assert.Equal(t, sensor.AirQuality{ECO2: 412, TVOC: 19}, aq)
	require.NotEmpty(t, bus.writes)
	assert.Equal(t, []byte{0x20, 0x08}, bus.writes[0])
}

func TestMeasureBadCRC(t *testing.T) {
	raw := words(412, 19)
	raw[5] ^= 0xFF
	bus := &fakeBus{nextRead: raw}
	dev := New(bus)

	_, err := dev.Measure(t.Context())
	require.ErrorIs(t, err, sensor.ErrBadCRC)
}

func TestSetHumidity(t *testing.T) {
	bus := &fakeBus{}
	dev := New(bus)

	// 10.0 g/m³ in 8.8 fixed point.
	require.NoError(t, dev.SetHumidity(t.Context(), 0x0A00))

	require.Len(t, bus.writes, 1)
	w := bus.writes[0]
	require.Len(t, w, 5)
	assert.Equal(t, []byte{0x20, 0x61, 0x0A, 0x00}, w[:4])
	assert.Equal(t, sensirion.CRC8([]byte{0x0A, 0x00}), w[4])
}

func TestWarmup(t *testing.T) {
	bus := &fakeBus{}
	dev := New(bus)

	assert.False(t, dev.WarmingUp(), "not started yet")

	require.NoError(t, dev.Start(t.Context()))
	assert.True(t, dev.WarmingUp())

	dev.started = time.Now().Add(-Warmup - time.Second)
	assert.False(t, dev.WarmingUp())
}

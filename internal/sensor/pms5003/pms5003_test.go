// SPDX-License-Identifier: MIT

package pms5003

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piairqual/piairqual/internal/sensor"
)

// buildFrame assembles a valid frame from 13 data words.
func buildFrame(words [13]uint16) []byte {
	buf := make([]byte, 0, frameLen)
	buf = append(buf, magic1, magic2)
	buf = binary.BigEndian.AppendUint16(buf, payloadLen)
	for _, w := range words {
		buf = binary.BigEndian.AppendUint16(buf, w)
	}
	var sum uint16
	for _, b := range buf {
		sum += uint16(b)
	}
	return binary.BigEndian.AppendUint16(buf, sum)
}

func testWords() [13]uint16 {
	// std pm1/pm2.5/pm10, atm pm1/pm2.5/pm10, six count buckets, reserved
	return [13]uint16{10, 20, 40, 12, 25, 45, 10000, 8000, 5000, 2000, 500, 100, 0}
}

func TestReadFrame(t *testing.T) {
	dev := New(bytes.NewReader(buildFrame(testWords())))

	data, err := dev.Read(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 12.0, data.PM1, "atmospheric PM1.0")
	assert.Equal(t, 25.0, data.PM25)
	assert.Equal(t, 45.0, data.PM100)
	assert.Equal(t, 10000, data.ParticlesGT03)
	assert.Equal(t, 100, data.ParticlesGT10)
}

func TestReadResyncsOnGarbage(t *testing.T) {
	var stream bytes.Buffer
	stream.Write([]byte{0x00, 0x42, 0x00, 0xFF, 0x42}) // noise, including a lone magic1
	stream.Write(buildFrame(testWords()))

	dev := New(&stream)

	data, err := dev.Read(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 25.0, data.PM25)
}

func TestReadBadChecksum(t *testing.T) {
	frame := buildFrame(testWords())
	frame[10] ^= 0xFF

	dev := New(bytes.NewReader(frame))

	_, err := dev.Read(t.Context())
	require.ErrorIs(t, err, sensor.ErrChecksum)
}

func TestReadBadLengthWord(t *testing.T) {
	frame := buildFrame(testWords())
	frame[3] = 99 // corrupt payload length

	dev := New(bytes.NewReader(frame))

	_, err := dev.Read(t.Context())
	require.Error(t, err)
	assert.NotErrorIs(t, err, sensor.ErrChecksum)
}

func TestReadGivesUpWithoutHeader(t *testing.T) {
	noise := bytes.Repeat([]byte{0x00}, 10*frameLen)

	dev := New(bytes.NewReader(noise))

	_, err := dev.Read(t.Context())
	require.Error(t, err)
}

func TestBackToBackFrames(t *testing.T) {
	var stream bytes.Buffer
	first := testWords()
	second := testWords()
	second[4] = 30 // atm PM2.5
	stream.Write(buildFrame(first))
	stream.Write(buildFrame(second))

	dev := New(&stream)

	d1, err := dev.Read(t.Context())
	require.NoError(t, err)
	d2, err := dev.Read(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 25.0, d1.PM25)
	assert.Equal(t, 30.0, d2.PM25)
}

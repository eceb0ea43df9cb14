// SPDX-License-Identifier: MIT

package sensirion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piairqual/piairqual/internal/sensor"
)

func TestCRC8KnownVectors(t *testing.T) {
	// Vectors from the Sensirion SGP30 and SCD4x datasheets.
	tests := []struct {
		data []byte
		want byte
	}{
		{[]byte{0xBE, 0xEF}, 0x92},
		{[]byte{0x00, 0x00}, 0x81},
		{[]byte{0x66, 0x67}, 0xA2},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, CRC8(tc.data), "CRC8(% X)", tc.data)
	}
}

func TestCommandEncoding(t *testing.T) {
	assert.Equal(t, []byte{0x20, 0x08}, Command(0x2008))

	// set_absolute_humidity with one argument word carries its CRC.
	got := Command(0x2061, 0x0F80)
	require.Len(t, got, 5)
	assert.Equal(t, []byte{0x20, 0x61, 0x0F, 0x80}, got[:4])
	assert.Equal(t, CRC8([]byte{0x0F, 0x80}), got[4])
}

func TestParseWords(t *testing.T) {
	raw := []byte{0xBE, 0xEF, 0x92, 0x00, 0x00, 0x81}
	words, err := ParseWords(raw)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0xBEEF, 0x0000}, words)
}

func TestParseWordsBadCRC(t *testing.T) {
	raw := []byte{0xBE, 0xEF, 0x00}
	_, err := ParseWords(raw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sensor.ErrBadCRC))
}

func TestParseWordsBadLength(t *testing.T) {
	_, err := ParseWords([]byte{0x01, 0x02})
	require.Error(t, err)
}

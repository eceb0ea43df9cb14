// SPDX-License-Identifier: MIT

// Package sensirion implements the I2C word framing shared by Sensirion
// sensors (SCD4x, SGP30): 16-bit command codes and big-endian data words,
// each word followed by a CRC-8 (polynomial 0x31, init 0xFF).
package sensirion

import (
	"encoding/binary"
	"fmt"

	"github.com/piairqual/piairqual/internal/sensor"
)

// Bus is the minimal I2C transaction surface the drivers need. It is
// satisfied by periph.io's i2c.Dev.
type Bus interface {
	Tx(w, r []byte) error
}

// CRC8 computes the Sensirion CRC over data.
func CRC8(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// Command encodes cmd plus zero or more argument words, each argument
// followed by its CRC.
func Command(cmd uint16, args ...uint16) []byte {
	buf := make([]byte, 2, 2+3*len(args))
	binary.BigEndian.PutUint16(buf, cmd)
	for _, a := range args {
		var w [2]byte
		binary.BigEndian.PutUint16(w[:], a)
		buf = append(buf, w[0], w[1], CRC8(w[:]))
	}
	return buf
}

// ReadWords issues cmd and reads n data words, verifying the CRC of each.
func ReadWords(bus Bus, cmd uint16, n int) ([]uint16, error) {
	raw := make([]byte, 3*n)
	if err := bus.Tx(Command(cmd), raw); err != nil {
		return nil, fmt.Errorf("sensirion: command %#04x: %w", cmd, err)
	}
	return ParseWords(raw)
}

// ParseWords decodes a CRC-framed response buffer into data words.
func ParseWords(raw []byte) ([]uint16, error) {
	if len(raw)%3 != 0 {
		return nil, fmt.Errorf("sensirion: response length %d not a multiple of 3", len(raw))
	}
	words := make([]uint16, 0, len(raw)/3)
	for i := 0; i < len(raw); i += 3 {
		if CRC8(raw[i:i+2]) != raw[i+2] {
			return nil, fmt.Errorf("%w: word %d", sensor.ErrBadCRC, i/3)
		}
		words = append(words, binary.BigEndian.Uint16(raw[i:i+2]))
	}
	return words, nil
}

// Write issues cmd with arguments and no response.
func Write(bus Bus, cmd uint16, args ...uint16) error {
	if err := bus.Tx(Command(cmd, args...), nil); err != nil {
		return fmt.Errorf("sensirion: command %#04x: %w", cmd, err)
	}
	return nil
}

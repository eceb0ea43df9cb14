// SPDX-License-Identifier: MIT

// Package pms5003 drives the Plantower PMS5003 particulate sensor over its
// 9600 baud serial link.
//
// The sensor streams 32-byte frames: the magic bytes 0x42 0x4D, a 16-bit
// payload length (always 28), thirteen big-endian data words and a 16-bit
// additive checksum covering everything before it.
package pms5003

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/piairqual/piairqual/internal/sensor"
)

const (
	magic1 = 0x42
	magic2 = 0x4D

	payloadLen = 28
	frameLen   = 4 + payloadLen // magic + length word + payload
)

// Baud is the fixed serial rate of the sensor.
const Baud = 9600

// Device reads frames from an open serial port (or any byte stream).
type Device struct {
	r io.Reader
}

var _ sensor.ParticulateSensor = (*Device)(nil)

// New returns a driver reading from r, typically a go.bug.st/serial port
// opened at Baud.
func New(r io.Reader) *Device {
	return &Device{r: r}
}

// Read blocks until the next complete, checksum-valid frame. It
// resynchronizes on the magic bytes, so joining the stream mid-frame or
// after line noise recovers on the following frame boundary.
func (d *Device) Read(ctx context.Context) (sensor.PMData, error) {
	type result struct {
		data sensor.PMData
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := d.readFrame()
		ch <- result{data, err}
	}()

	select {
	case <-ctx.Done():
		return sensor.PMData{}, ctx.Err()
	case res := <-ch:
		return res.data, res.err
	}
}

func (d *Device) readFrame() (sensor.PMData, error) {
	buf := make([]byte, frameLen)
	if err := d.sync(buf); err != nil {
		return sensor.PMData{}, err
	}
	if _, err := io.ReadFull(d.r, buf[2:]); err != nil {
		return sensor.PMData{}, fmt.Errorf("pms5003: read frame: %w", err)
	}
	return parseFrame(buf)
}

// sync consumes bytes until the 0x42 0x4D frame header and stores it in
// buf[0:2].
func (d *Device) sync(buf []byte) error {
	var b [1]byte
	seen1 := false
	for i := 0; i < 4*frameLen; i++ {
		if _, err := io.ReadFull(d.r, b[:]); err != nil {
			return fmt.Errorf("pms5003: sync: %w", err)
		}
		switch {
		case !seen1 && b[0] == magic1:
			seen1 = true
		case seen1 && b[0] == magic2:
			buf[0], buf[1] = magic1, magic2
			return nil
		default:
			seen1 = b[0] == magic1
		}
	}
	return fmt.Errorf("pms5003: no frame header within %d bytes", 4*frameLen)
}

// parseFrame validates and decodes a complete frame buffer.
func parseFrame(buf []byte) (sensor.PMData, error) {
	if len(buf) != frameLen {
		return sensor.PMData{}, fmt.Errorf("pms5003: frame length %d, want %d", len(buf), frameLen)
	}
	if buf[0] != magic1 || buf[1] != magic2 {
		return sensor.PMData{}, fmt.Errorf("pms5003: bad frame header % X", buf[:2])
	}
	if l := binary.BigEndian.Uint16(buf[2:4]); l != payloadLen {
		return sensor.PMData{}, fmt.Errorf("pms5003: payload length %d, want %d", l, payloadLen)
	}

	var sum uint16
	for _, b := range buf[:frameLen-2] {
		sum += uint16(b)
	}
	if got := binary.BigEndian.Uint16(buf[frameLen-2:]); got != sum {
		return sensor.PMData{}, fmt.Errorf("%w: got %#04x, computed %#04x", sensor.ErrChecksum, got, sum)
	}

	word := func(i int) int {
		return int(binary.BigEndian.Uint16(buf[4+2*i:]))
	}

	// Words 0-2 are "standard particle" (factory calibration) values,
	// words 3-5 atmospheric-environment concentrations; the original
	// exposes the atmospheric set.
	return sensor.PMData{
		PM1:   float64(word(3)),
		PM25:  float64(word(4)),
		PM100: float64(word(5)),

		ParticlesGT03: word(6),
		ParticlesGT05: word(7),
		ParticlesGT1:  word(8),
		ParticlesGT25: word(9),
		ParticlesGT5:  word(10),
		ParticlesGT10: word(11),
	}, nil
}

// SPDX-License-Identifier: MIT

package display

import (
	"fmt"
	"image"

	"periph.io/x/conn/v3/i2c"
)

// DefaultAddr is the usual SH1106 I2C address.
const DefaultAddr = 0x3C

const (
	sh1106Pages = Height / 8

	// The SH1106 RAM is 132 columns wide; a 128px panel is centred.
	sh1106ColOffset = 2
)

// sh1106Init powers the panel up in page addressing mode with the
// multiplex ratio set for 128 rows.
var sh1106Init = []byte{
	0xAE,       // display off
	0xD5, 0x50, // clock divide ratio
	0xA8, 0x7F, // multiplex ratio, 128 rows
	0xD3, 0x00, // display offset
	0x40,       // start line 0
	0xAD, 0x8B, // charge pump on
	0xA1,       // segment remap
	0xC8,       // COM scan decrement
	0xDA, 0x12, // COM pin configuration
	0x81, 0x80, // contrast
	0xD9, 0x22, // precharge period
	0xDB, 0x35, // VCOM deselect level
	0xA4, // resume to RAM content
	0xA6, // normal polarity
	0xAF, // display on
}

// SH1106 drives a 128x128 OLED over I2C in page mode.
type SH1106 struct {
	dev    *i2c.Dev
	rotate bool
	buf    []byte
}

// NewSH1106 initialises the panel on bus at addr. rotate flips the image
// 180 degrees for upside-down mounting.
func NewSH1106(bus i2c.Bus, addr uint16, rotate bool) (*SH1106, error) {
	d := &SH1106{
		dev:    &i2c.Dev{Bus: bus, Addr: addr},
		rotate: rotate,
		buf:    make([]byte, Width),
	}
	if err := d.command(sh1106Init...); err != nil {
		return nil, fmt.Errorf("display: init sh1106: %w", err)
	}
	return d, nil
}

func (d *SH1106) command(cmds ...byte) error {
	return d.dev.Tx(append([]byte{0x00}, cmds...), nil)
}

func (d *SH1106) data(b []byte) error {
	return d.dev.Tx(append([]byte{0x40}, b...), nil)
}

// Bounds returns the panel dimensions.
func (d *SH1106) Bounds() image.Rectangle {
	return image.Rect(0, 0, Width, Height)
}

// SetContrast adjusts panel brightness.
func (d *SH1106) SetContrast(level byte) error {
	return d.command(0x81, level)
}

// Draw pushes a full frame, one 8-row page at a time.
func (d *SH1106) Draw(img *image.Gray) error {
	b := img.Bounds()
	if b.Dx() != Width || b.Dy() != Height {
		return fmt.Errorf("display: frame is %dx%d, panel is %dx%d", b.Dx(), b.Dy(), Width, Height)
	}

	for page := 0; page < sh1106Pages; page++ {
		err := d.command(
			0xB0|byte(page),
			0x00|sh1106ColOffset, // lower column nibble
			0x10,                 // upper column nibble
		)
		if err != nil {
			return fmt.Errorf("display: select page %d: %w", page, err)
		}

		for x := 0; x < Width; x++ {
			var col byte
			for bit := 0; bit < 8; bit++ {
				sx, sy := x, page*8+bit
				if d.rotate {
					sx, sy = Width-1-sx, Height-1-sy
				}
				if img.GrayAt(b.Min.X+sx, b.Min.Y+sy).Y >= 0x80 {
					col |= 1 << bit
				}
			}
			d.buf[x] = col
		}
		if err := d.data(d.buf); err != nil {
			return fmt.Errorf("display: write page %d: %w", page, err)
		}
	}
	return nil
}

// Close blanks the panel.
func (d *SH1106) Close() error {
	return d.command(0xAE)
}

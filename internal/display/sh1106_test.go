// SPDX-License-Identifier: MIT

package display

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"periph.io/x/conn/v3/physic"
)

type recordBus struct {
	writes [][]byte
	err    error
}

func (b *recordBus) String() string { return "record" }

func (b *recordBus) Tx(addr uint16, w, r []byte) error {
	if b.err != nil {
		return b.err
	}
	b.writes = append(b.writes, append([]byte(nil), w...))
	return nil
}

func (b *recordBus) SetSpeed(f physic.Frequency) error { return nil }

func TestNewSH1106SendsInit(t *testing.T) {
	bus := &recordBus{}
	_, err := NewSH1106(bus, DefaultAddr, false)
	require.NoError(t, err)

	require.Len(t, bus.writes, 1)
	seq := bus.writes[0]
	assert.Equal(t, byte(0x00), seq[0], "commands use control byte 0x00")
	assert.Contains(t, seq, byte(0xAE), "display off")
	assert.Equal(t, byte(0xAF), seq[len(seq)-1], "display on last")
}

func TestDrawPacksPages(t *testing.T) {
	bus := &recordBus{}
	d, err := NewSH1106(bus, DefaultAddr, false)
	require.NoError(t, err)
	bus.writes = nil

	img := image.NewGray(d.Bounds())
	img.SetGray(5, 10, color.Gray{Y: 0xFF}) // page 1, bit 2

	require.NoError(t, d.Draw(img))

	// One page-select plus one data write per page.
	require.Len(t, bus.writes, 2*sh1106Pages)

	pageSelect := bus.writes[2]
	assert.Equal(t, []byte{0x00, 0xB1, 0x02, 0x10}, pageSelect, "page 1 with column offset")

	data := bus.writes[3]
	require.Len(t, data, 1+Width)
	assert.Equal(t, byte(0x40), data[0], "data control byte")
	assert.Equal(t, byte(1<<2), data[1+5], "pixel (5,10) in page 1 column 5")

	// Everything else stays dark.
	var lit int
	for _, w := range bus.writes {
		if w[0] != 0x40 {
			continue
		}
		for _, b := range w[1:] {
			if b != 0 {
				lit++
			}
		}
	}
	assert.Equal(t, 1, lit)
}

func TestDrawRotated(t *testing.T) {
	bus := &recordBus{}
	d, err := NewSH1106(bus, DefaultAddr, true)
	require.NoError(t, err)
	bus.writes = nil

	img := image.NewGray(d.Bounds())
	img.SetGray(0, 0, color.Gray{Y: 0xFF})

	require.NoError(t, d.Draw(img))

	// (0,0) lands at (127,127): last page, last column, bit 7.
	last := bus.writes[len(bus.writes)-1]
	assert.Equal(t, byte(1<<7), last[1+Width-1])
}

func TestDrawRejectsWrongSize(t *testing.T) {
	d, err := NewSH1106(&recordBus{}, DefaultAddr, false)
	require.NoError(t, err)

	err = d.Draw(image.NewGray(image.Rect(0, 0, 64, 64)))
	assert.Error(t, err)
}

func TestDrawPropagatesBusError(t *testing.T) {
	bus := &recordBus{}
	d, err := NewSH1106(bus, DefaultAddr, false)
	require.NoError(t, err)

	bus.err = errors.New("i2c timeout")
	assert.Error(t, d.Draw(image.NewGray(d.Bounds())))
}

// SPDX-License-Identifier: MIT

package display

import (
	"fmt"
	"image"
	"io"
	"strings"
)

// brailleDots maps (y%4, x%2) to the dot bit inside one braille cell.
var brailleDots = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Terminal renders frames as braille characters to a writer, for running
// without panel hardware. Each braille cell covers a 2x4 pixel block.
type Terminal struct {
	w    io.Writer
	ansi bool
}

// NewTerminal creates a terminal device. When ansi is set, every frame is
// preceded by a cursor-home escape so the output repaints in place.
func NewTerminal(w io.Writer, ansi bool) *Terminal {
	return &Terminal{w: w, ansi: ansi}
}

// Bounds returns the emulated panel dimensions.
func (t *Terminal) Bounds() image.Rectangle {
	return image.Rect(0, 0, Width, Height)
}

// Draw writes one frame as Height/4 lines of Width/2 braille runes.
func (t *Terminal) Draw(img *image.Gray) error {
	b := img.Bounds()
	var sb strings.Builder
	if t.ansi {
		sb.WriteString("\x1b[H")
	}
	for cy := 0; cy < Height/4; cy++ {
		for cx := 0; cx < Width/2; cx++ {
			cell := rune(0x2800)
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if img.GrayAt(b.Min.X+cx*2+dx, b.Min.Y+cy*4+dy).Y >= 0x80 {
						cell |= brailleDots[dy][dx]
					}
				}
			}
			sb.WriteRune(cell)
		}
		sb.WriteByte('\n')
	}
	if _, err := fmt.Fprint(t.w, sb.String()); err != nil {
		return fmt.Errorf("display: write terminal frame: %w", err)
	}
	return nil
}

// Close is a no-op for terminal output.
func (t *Terminal) Close() error {
	return nil
}

// SPDX-License-Identifier: MIT

// Package display renders readings to a 128x128 monochrome OLED. The
// renderer draws into an image.Gray framebuffer; Device implementations
// push frames to real hardware or to a terminal for development.
package display

import "image"

// Width and Height of the supported panel.
const (
	Width  = 128
	Height = 128
)

// Device is a monochrome frame sink. Pixels with luma >= 0x80 are lit.
type Device interface {
	Bounds() image.Rectangle
	Draw(img *image.Gray) error
	Close() error
}

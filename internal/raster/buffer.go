// Package raster holds the RGBA pixel buffer and the geometry and convolution
// primitives the sticker pipeline is built from.
//
// A PixelBuffer is a value: every transform returns a freshly allocated buffer and
// the pixel slice of an existing buffer is never handed out for writing.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// ErrInvalidDimensions is returned when a pixel slice does not match width*height*4.
var ErrInvalidDimensions = errors.New("invalid buffer dimensions")

// PixelBuffer is an immutable, row-major, non-premultiplied RGBA image.
type PixelBuffer struct {
	width  int
	height int
	pix    []byte
}

// RGB is one pixel's color channels as floating point values.
type RGB [3]float64

// New copies pix into a new buffer. len(pix) must equal width*height*4.
func New(width, height int, pix []byte) (PixelBuffer, error) {
	if width <= 0 || height <= 0 || len(pix) != width*height*4 {
		return PixelBuffer{}, fmt.Errorf("%w: %dx%d with %d bytes", ErrInvalidDimensions, width, height, len(pix))
	}
	return PixelBuffer{width: width, height: height, pix: bytes.Clone(pix)}, nil
}

// Filled returns a width x height buffer where every pixel is c.
func Filled(width, height int, c [4]uint8) PixelBuffer {
	b := alloc(width, height)
	for i := 0; i < len(b.pix); i += 4 {
		copy(b.pix[i:i+4], c[:])
	}
	return b
}

// FromImage converts any image into a buffer with straight (non-premultiplied) alpha.
func FromImage(img image.Image) PixelBuffer {
	var src *image.NRGBA
	if n, ok := img.(*image.NRGBA); ok {
		src = n
	} else {
		src = imaging.Clone(img)
	}
	bounds := src.Bounds()
	b := alloc(bounds.Dx(), bounds.Dy())
	rowLen := b.width * 4
	for y := 0; y < b.height; y++ {
		off := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		copy(b.pix[y*rowLen:(y+1)*rowLen], src.Pix[off:off+rowLen])
	}
	return b
}

func alloc(width, height int) PixelBuffer {
	return PixelBuffer{width: width, height: height, pix: make([]byte, width*height*4)}
}

// Width returns the buffer width in pixels.
func (b PixelBuffer) Width() int { return b.width }

// Height returns the buffer height in pixels.
func (b PixelBuffer) Height() int { return b.height }

// Empty reports whether b is the zero buffer.
func (b PixelBuffer) Empty() bool { return b.width == 0 || b.height == 0 }

// Pixels returns a copy of the RGBA bytes.
func (b PixelBuffer) Pixels() []byte { return bytes.Clone(b.pix) }

// At returns the RGBA value at (x, y).
func (b PixelBuffer) At(x, y int) [4]uint8 {
	i := (y*b.width + x) * 4
	return [4]uint8{b.pix[i], b.pix[i+1], b.pix[i+2], b.pix[i+3]}
}

// Clone returns an independent copy of b.
func (b PixelBuffer) Clone() PixelBuffer {
	return PixelBuffer{width: b.width, height: b.height, pix: bytes.Clone(b.pix)}
}

// Equal reports whether a and b have the same dimensions and identical bytes.
func (b PixelBuffer) Equal(o PixelBuffer) bool {
	return b.width == o.width && b.height == o.height && bytes.Equal(b.pix, o.pix)
}

// NRGBA returns a new image.NRGBA holding a copy of the pixels.
func (b PixelBuffer) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    bytes.Clone(b.pix),
		Stride: b.width * 4,
		Rect:   image.Rect(0, 0, b.width, b.height),
	}
}

// Map applies fn to the RGB channels of every pixel. Results are rounded and clamped
// to [0,255]; alpha is copied unchanged.
func Map(src PixelBuffer, fn func(c RGB) RGB) PixelBuffer {
	dst := alloc(src.width, src.height)
	for i := 0; i < len(src.pix); i += 4 {
		out := fn(RGB{float64(src.pix[i]), float64(src.pix[i+1]), float64(src.pix[i+2])})
		dst.pix[i] = Clamp(out[0])
		dst.pix[i+1] = Clamp(out[1])
		dst.pix[i+2] = Clamp(out[2])
		dst.pix[i+3] = src.pix[i+3]
	}
	return dst
}

// Zip applies fn to corresponding pixels of a and b, which must share dimensions.
// Alpha is taken from a. If the dimensions differ, a copy of a is returned.
func Zip(a, b PixelBuffer, fn func(ca, cb RGB) RGB) PixelBuffer {
	if a.width != b.width || a.height != b.height {
		return a.Clone()
	}
	dst := alloc(a.width, a.height)
	for i := 0; i < len(a.pix); i += 4 {
		out := fn(
			RGB{float64(a.pix[i]), float64(a.pix[i+1]), float64(a.pix[i+2])},
			RGB{float64(b.pix[i]), float64(b.pix[i+1]), float64(b.pix[i+2])},
		)
		dst.pix[i] = Clamp(out[0])
		dst.pix[i+1] = Clamp(out[1])
		dst.pix[i+2] = Clamp(out[2])
		dst.pix[i+3] = a.pix[i+3]
	}
	return dst
}

// Clamp rounds v to the nearest integer and limits it to [0,255].
func Clamp(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Round(v)
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

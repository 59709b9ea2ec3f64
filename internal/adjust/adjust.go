// Package adjust implements the brightness, contrast, saturation and sharpness
// transforms. Each one touches RGB only, leaves alpha alone and returns a new
// buffer.
package adjust

import (
	"math"

	"stickerkit/internal/raster"
)

// unsharpKernel is the fixed 3x3 blur behind Sharpness.
var unsharpKernel = raster.MustKernel(
	1, 2, 1,
	2, 4, 2,
	1, 2, 1,
)

// Brightness scales every channel by value.
func Brightness(b raster.PixelBuffer, value float64) raster.PixelBuffer {
	return raster.Map(b, func(c raster.RGB) raster.RGB {
		return raster.RGB{c[0] * value, c[1] * value, c[2] * value}
	})
}

// ContrastFactor returns the contrast multiplier for value and false when the
// formula's denominator vanishes (value = 259/255).
func ContrastFactor(value float64) (float64, bool) {
	denom := 255 * (259 - value*255)
	if math.Abs(denom) < 1e-9 {
		return 0, false
	}
	return (259 * (value*255 + 255)) / denom, true
}

// Contrast stretches channels around mid-gray 128. At the formula's singular
// point the buffer is returned unchanged.
func Contrast(b raster.PixelBuffer, value float64) raster.PixelBuffer {
	f, ok := ContrastFactor(value)
	if !ok {
		return b.Clone()
	}
	return raster.Map(b, func(c raster.RGB) raster.RGB {
		return raster.RGB{f*(c[0]-128) + 128, f*(c[1]-128) + 128, f*(c[2]-128) + 128}
	})
}

// Luma is the BT.709 weighted gray of c.
func Luma(c raster.RGB) float64 {
	return 0.2126*c[0] + 0.7152*c[1] + 0.0722*c[2]
}

// Saturation pushes channels away from (value > 1) or toward (value < 1) the
// pixel's luma.
func Saturation(b raster.PixelBuffer, value float64) raster.PixelBuffer {
	return raster.Map(b, func(c raster.RGB) raster.RGB {
		gray := Luma(c)
		return raster.RGB{
			gray + (c[0]-gray)*value,
			gray + (c[1]-gray)*value,
			gray + (c[2]-gray)*value,
		}
	})
}

// Sharpness is an unsharp mask with amount (value-1)*2 over a 3x3 blur.
func Sharpness(b raster.PixelBuffer, value float64) raster.PixelBuffer {
	if value == Neutral {
		return b.Clone()
	}
	blurred := raster.ConvolveDiv(b, unsharpKernel, 16)
	amount := (value - Neutral) * 2
	return raster.Zip(b, blurred, func(c, blur raster.RGB) raster.RGB {
		return raster.RGB{
			c[0] + amount*(c[0]-blur[0]),
			c[1] + amount*(c[1]-blur[1]),
			c[2] + amount*(c[2]-blur[2]),
		}
	})
}

// ApplyAll runs brightness, contrast, saturation and sharpness in that order,
// skipping each one that is at Neutral. The steps do not commute, so the order is
// part of the contract. The result never aliases b.
func ApplyAll(b raster.PixelBuffer, v Values) raster.PixelBuffer {
	out := b.Clone()
	if v.Brightness != Neutral {
		out = Brightness(out, v.Brightness)
	}
	if v.Contrast != Neutral {
		out = Contrast(out, v.Contrast)
	}
	if v.Saturation != Neutral {
		out = Saturation(out, v.Saturation)
	}
	if v.Sharpness != Neutral {
		out = Sharpness(out, v.Sharpness)
	}
	return out
}

package raster

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"
)

// DefaultMaxSize is the longest side of a canonical sticker buffer.
const DefaultMaxSize = 512

// DefaultFilter is the resampling kernel used when none is configured.
var DefaultFilter = imaging.Lanczos

var resampleFilters = map[string]imaging.ResampleFilter{
	"lanczos":           imaging.Lanczos,
	"catmullrom":        imaging.CatmullRom,
	"mitchell":          imaging.MitchellNetravali,
	"linear":            imaging.Linear,
	"box":               imaging.Box,
	"bspline":           imaging.BSpline,
	"gaussian":          imaging.Gaussian,
	"hann":              imaging.Hann,
	"hamming":           imaging.Hamming,
	"blackman":          imaging.Blackman,
	"bartlett":          imaging.Bartlett,
	"welch":             imaging.Welch,
	"cosine":            imaging.Cosine,
	"mitchellnetravali": imaging.MitchellNetravali,
}

// FilterByName resolves a resampling filter name. Nearest-neighbor is refused
// because it aliases badly on downscale.
func FilterByName(name string) (imaging.ResampleFilter, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return DefaultFilter, nil
	}
	f, ok := resampleFilters[key]
	if !ok {
		return imaging.ResampleFilter{}, fmt.Errorf("unsupported resample filter %q", name)
	}
	return f, nil
}

// TargetSize maps the larger side of width x height to min(larger, maxSize) and
// scales the other side proportionally, rounded to the nearest pixel and never
// below one pixel.
func TargetSize(width, height, maxSize int) (int, int) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if width <= 0 || height <= 0 {
		return width, height
	}

	var newWidth, newHeight int
	if width >= height {
		newWidth = min(width, maxSize)
		newHeight = int(math.Round(float64(height) / float64(width) * float64(newWidth)))
	} else {
		newHeight = min(height, maxSize)
		newWidth = int(math.Round(float64(width) / float64(height) * float64(newHeight)))
	}
	return max(newWidth, 1), max(newHeight, 1)
}

// Resize scales b to fit maxSize with DefaultFilter. See ResizeWith.
func Resize(b PixelBuffer, maxSize int) PixelBuffer {
	return ResizeWith(b, maxSize, DefaultFilter)
}

// ResizeWith scales b so its larger side is at most maxSize, keeping the aspect
// ratio. When the size does not change b is returned as is. Reductions of more
// than 2x on either axis are done by repeated halving first, then a final
// resample to the exact target.
func ResizeWith(b PixelBuffer, maxSize int, filter imaging.ResampleFilter) PixelBuffer {
	if b.Empty() {
		return b
	}
	targetWidth, targetHeight := TargetSize(b.width, b.height, maxSize)
	if targetWidth == b.width && targetHeight == b.height {
		return b
	}
	if filter.Support <= 0 {
		filter = DefaultFilter
	}

	var current image.Image = b.view()
	for _, step := range StepDownSizes(b.width, b.height, targetWidth, targetHeight) {
		current = imaging.Resize(current, step[0], step[1], filter)
	}

	return FromImage(imaging.Resize(current, targetWidth, targetHeight, filter))
}

// StepDownSizes lists the intermediate halving sizes ResizeWith goes through
// before the final resample. It is empty for reductions of 2x or less.
func StepDownSizes(width, height, targetWidth, targetHeight int) [][2]int {
	var steps [][2]int
	for width > targetWidth*2 || height > targetHeight*2 {
		width = max(int(math.Round(float64(width)/2)), targetWidth)
		height = max(int(math.Round(float64(height)/2)), targetHeight)
		steps = append(steps, [2]int{width, height})
	}
	return steps
}

// view wraps the pixels in an image.NRGBA without copying. Callers inside the
// package must treat the result as read-only.
func (b PixelBuffer) view() *image.NRGBA {
	return &image.NRGBA{Pix: b.pix, Stride: b.width * 4, Rect: image.Rect(0, 0, b.width, b.height)}
}

// Package filter holds the named stylistic filters. Every filter is a kernel
// convolution from the raster package followed by an optional per-pixel pass.
package filter

import (
	"math"

	"stickerkit/internal/raster"
)

var (
	sharpenKernel = raster.MustKernel(
		0, -1, 0,
		-1, 5, -1,
		0, -1, 0,
	)
	edgeEnhanceKernel = raster.MustKernel(
		-1, -1, -1,
		-1, 9, -1,
		-1, -1, -1,
	)
	embossKernel = raster.MustKernel(
		-2, -1, 0,
		-1, 1, 1,
		0, 1, 2,
	)
	contourKernel = raster.MustKernel(
		-1, -1, -1,
		-1, 8, -1,
		-1, -1, -1,
	)
	detailKernel = raster.MustKernel(
		0, -1, 0,
		-1, 10, -1,
		0, -1, 0,
	)
	sobelX = raster.MustKernel(
		-1, 0, 1,
		-2, 0, 2,
		-1, 0, 1,
	)
	sobelY = raster.MustKernel(
		-1, -2, -1,
		0, 0, 0,
		1, 2, 1,
	)
	boxKernel = raster.MustKernel(
		1, 1, 1,
		1, 1, 1,
		1, 1, 1,
	)
)

// ApplySharpen boosts each pixel against its four direct neighbors.
func ApplySharpen(b raster.PixelBuffer) raster.PixelBuffer {
	return raster.ConvolveDiv(b, sharpenKernel, 1)
}

// GaussianKernel builds a (2*ceil(radius)+1)^2 kernel with sigma radius/2.
func GaussianKernel(radius float64) raster.Kernel {
	size := int(math.Ceil(radius))*2 + 1
	center := size / 2
	sigma := radius / 2
	denom := 2 * sigma * sigma
	weights := make([]float64, size*size)
	if !(denom > 0) {
		// Degenerate sigma: only the center carries weight.
		weights[center*size+center] = 1
		return raster.Kernel{Size: size, Weights: weights}
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x-center), float64(y-center)
			weights[y*size+x] = math.Exp(-(dx*dx + dy*dy) / denom)
		}
	}
	return raster.Kernel{Size: size, Weights: weights}
}

// ApplyGaussianBlur blurs with GaussianKernel(radius). The radius is clamped
// first; a clamped radius of 0, NaN included, is a copy.
func ApplyGaussianBlur(b raster.PixelBuffer, radius float64) raster.PixelBuffer {
	radius = ClampRadius(radius)
	if radius <= 0 {
		return b.Clone()
	}
	k := GaussianKernel(radius)
	return raster.ConvolveDiv(b, k, k.Sum())
}

// ApplyBoxBlur is a cheap 3x3 mean blur.
func ApplyBoxBlur(b raster.PixelBuffer) raster.PixelBuffer {
	return raster.ConvolveDiv(b, boxKernel, 9)
}

// ApplyEdgeEnhance sharpens against all eight neighbors.
func ApplyEdgeEnhance(b raster.PixelBuffer) raster.PixelBuffer {
	return raster.ConvolveDiv(b, edgeEnhanceKernel, 1)
}

// ApplyEmboss lifts the relief kernel's output by 128.
func ApplyEmboss(b raster.PixelBuffer) raster.PixelBuffer {
	relief := raster.ConvolveDiv(b, embossKernel, 1)
	return raster.Map(relief, func(c raster.RGB) raster.RGB {
		return raster.RGB{c[0] + 128, c[1] + 128, c[2] + 128}
	})
}

// ApplyContour draws edges as dark lines on white.
func ApplyContour(b raster.PixelBuffer) raster.PixelBuffer {
	edges := raster.ConvolveDiv(b, contourKernel, 1)
	return raster.Map(edges, func(c raster.RGB) raster.RGB {
		return raster.RGB{255 - c[0], 255 - c[1], 255 - c[2]}
	})
}

// ApplyDetail is a mild sharpen: the four-neighbor kernel divided by 6.
func ApplyDetail(b raster.PixelBuffer) raster.PixelBuffer {
	return raster.ConvolveDiv(b, detailKernel, 6)
}

// ApplyFindEdges writes the Sobel gradient magnitude, averaged over the three
// channels, as a gray level. The per-axis gradients are the clamped convolution
// outputs.
func ApplyFindEdges(b raster.PixelBuffer) raster.PixelBuffer {
	gx := raster.ConvolveDiv(b, sobelX, 1)
	gy := raster.ConvolveDiv(b, sobelY, 1)
	return raster.Zip(gx, gy, func(x, y raster.RGB) raster.RGB {
		sum := x[0]*x[0] + y[0]*y[0] + x[1]*x[1] + y[1]*y[1] + x[2]*x[2] + y[2]*y[2]
		v := math.Min(255, math.Sqrt(sum)/math.Sqrt(3))
		return raster.RGB{v, v, v}
	})
}

// Apply runs the filter chosen by s. None and unknown kinds return a copy.
func Apply(b raster.PixelBuffer, s Spec) raster.PixelBuffer {
	switch s.Kind {
	case Sharpen:
		return ApplySharpen(b)
	case Blur:
		return ApplyGaussianBlur(b, s.BlurRadius)
	case EdgeEnhance:
		return ApplyEdgeEnhance(b)
	case Emboss:
		return ApplyEmboss(b)
	case Contour:
		return ApplyContour(b)
	case Detail:
		return ApplyDetail(b)
	case FindEdges:
		return ApplyFindEdges(b)
	default:
		return b.Clone()
	}
}

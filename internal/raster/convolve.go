package raster

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidKernel is returned for kernels that are not square with an odd side.
var ErrInvalidKernel = errors.New("invalid convolution kernel")

// Kernel is a square convolution matrix stored row-major.
type Kernel struct {
	Size    int
	Weights []float64
}

// NewKernel validates weights as an odd-sided square matrix.
func NewKernel(weights []float64) (Kernel, error) {
	size := int(math.Sqrt(float64(len(weights))))
	if size*size != len(weights) || size%2 == 0 {
		return Kernel{}, fmt.Errorf("%w: %d weights", ErrInvalidKernel, len(weights))
	}
	return Kernel{Size: size, Weights: weights}, nil
}

// MustKernel is NewKernel for package-level kernel literals.
func MustKernel(weights ...float64) Kernel {
	k, err := NewKernel(weights)
	if err != nil {
		panic(err)
	}
	return k
}

// Sum returns the total of the kernel weights.
func (k Kernel) Sum() float64 {
	var sum float64
	for _, w := range k.Weights {
		sum += w
	}
	return sum
}

// DefaultDivisor is the kernel sum, or 1 when the weights cancel out.
func (k Kernel) DefaultDivisor() float64 {
	if sum := k.Sum(); sum != 0 {
		return sum
	}
	return 1
}

// Convolve applies k to the RGB channels of b using the kernel's default divisor.
func Convolve(b PixelBuffer, k Kernel) PixelBuffer {
	return ConvolveDiv(b, k, k.DefaultDivisor())
}

// ConvolveDiv applies k to the RGB channels of b and divides each sum by divisor.
// Samples outside the buffer repeat the nearest edge pixel. Alpha is copied from
// the source pixel at the same position.
func ConvolveDiv(b PixelBuffer, k Kernel, divisor float64) PixelBuffer {
	if b.Empty() || k.Size == 0 {
		return b.Clone()
	}
	if divisor == 0 {
		divisor = 1
	}

	half := k.Size / 2
	dst := alloc(b.width, b.height)

	// Clamped sample coordinates for every kernel offset, computed once per axis.
	xs := edgeIndex(b.width, half)
	ys := edgeIndex(b.height, half)

	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			var r, g, bl float64
			for ky := 0; ky < k.Size; ky++ {
				rowOff := ys[y+ky] * b.width
				kRow := k.Weights[ky*k.Size : (ky+1)*k.Size]
				for kx, w := range kRow {
					if w == 0 {
						continue
					}
					i := (rowOff + xs[x+kx]) * 4
					r += float64(b.pix[i]) * w
					g += float64(b.pix[i+1]) * w
					bl += float64(b.pix[i+2]) * w
				}
			}
			o := (y*b.width + x) * 4
			dst.pix[o] = Clamp(r / divisor)
			dst.pix[o+1] = Clamp(g / divisor)
			dst.pix[o+2] = Clamp(bl / divisor)
			dst.pix[o+3] = b.pix[o+3]
		}
	}
	return dst
}

// edgeIndex returns, for every position p in [-half, n+half), the coordinate
// clamped into [0, n-1], shifted so that index p+half holds position p.
func edgeIndex(n, half int) []int {
	idx := make([]int, n+2*half)
	for i := range idx {
		idx[i] = clampInt(i-half, 0, n-1)
	}
	return idx
}

package raster

// Crop copies the region described by box into a new buffer. The box is clamped to
// the buffer bounds first, and a box that clamps to nothing yields a copy of b.
func Crop(b PixelBuffer, box BoundingBox) PixelBuffer {
	box = clampBox(b, box)
	if box.Left == 0 && box.Top == 0 && box.Width == b.width && box.Height == b.height {
		return b.Clone()
	}

	dst := alloc(box.Width, box.Height)
	rowLen := box.Width * 4
	for y := 0; y < box.Height; y++ {
		src := ((box.Top+y)*b.width + box.Left) * 4
		copy(dst.pix[y*rowLen:(y+1)*rowLen], b.pix[src:src+rowLen])
	}
	return dst
}

func clampBox(b PixelBuffer, box BoundingBox) BoundingBox {
	left := clampInt(box.Left, 0, b.width-1)
	top := clampInt(box.Top, 0, b.height-1)
	width := clampInt(box.Width, 0, b.width-left)
	height := clampInt(box.Height, 0, b.height-top)
	if width == 0 || height == 0 {
		return FullBox(b)
	}
	return BoundingBox{
		Left:   left,
		Top:    top,
		Right:  left + width - 1,
		Bottom: top + height - 1,
		Width:  width,
		Height: height,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

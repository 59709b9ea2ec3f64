package raster

// AlphaThreshold is the alpha value a pixel must exceed to count as content.
const AlphaThreshold = 1

// BoundingBox is an inclusive pixel rectangle.
type BoundingBox struct {
	Left   int
	Top    int
	Right  int
	Bottom int
	Width  int
	Height int
}

// FullBox returns the box covering all of b.
func FullBox(b PixelBuffer) BoundingBox {
	return BoundingBox{
		Left:   0,
		Top:    0,
		Right:  b.width - 1,
		Bottom: b.height - 1,
		Width:  b.width,
		Height: b.height,
	}
}

// DetectBoundingBox returns the smallest box holding every pixel whose alpha is
// above AlphaThreshold. A buffer without such pixels yields FullBox.
func DetectBoundingBox(b PixelBuffer) BoundingBox {
	left, top := b.width, b.height
	right, bottom := -1, -1

	for y := 0; y < b.height; y++ {
		row := b.pix[y*b.width*4 : (y+1)*b.width*4]
		for x := 0; x < b.width; x++ {
			if row[x*4+3] <= AlphaThreshold {
				continue
			}
			if x < left {
				left = x
			}
			if x > right {
				right = x
			}
			if y < top {
				top = y
			}
			if y > bottom {
				bottom = y
			}
		}
	}

	if right < left || bottom < top {
		return FullBox(b)
	}

	return BoundingBox{
		Left:   left,
		Top:    top,
		Right:  right,
		Bottom: bottom,
		Width:  right - left + 1,
		Height: bottom - top + 1,
	}
}

package raster

import (
	"image"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
)

// DefaultThumbnailSize is the longest side of a preview thumbnail.
const DefaultThumbnailSize = 128

// Pipeline is the ingest transform: trim transparent borders, then fit to MaxSize.
type Pipeline struct {
	MaxSize int
	Filter  imaging.ResampleFilter
}

// DefaultPipeline trims and fits to 512 pixels with DefaultFilter.
func DefaultPipeline() Pipeline {
	return Pipeline{MaxSize: DefaultMaxSize, Filter: DefaultFilter}
}

// Process runs detect -> crop -> resize on src and returns the canonical buffer.
func (p Pipeline) Process(src PixelBuffer) PixelBuffer {
	box := DetectBoundingBox(src)
	cropped := Crop(src, box)
	return ResizeWith(cropped, p.MaxSize, p.Filter)
}

// ProcessImage is the ingest transform with default settings.
func ProcessImage(src PixelBuffer) PixelBuffer {
	return DefaultPipeline().Process(src)
}

// Thumbnail scales b in a single CatmullRom pass so its larger side is at most
// maxSize. It is a preview helper and skips the step-down used by Resize.
func Thumbnail(b PixelBuffer, maxSize int) PixelBuffer {
	if maxSize <= 0 {
		maxSize = DefaultThumbnailSize
	}
	if b.Empty() {
		return b
	}
	width, height := TargetSize(b.width, b.height, maxSize)
	if width == b.width && height == b.height {
		return b.Clone()
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), b.view(), b.view().Bounds(), xdraw.Src, nil)
	return FromImage(dst)
}

package codec

import (
	"bytes"
	"fmt"
	"image/png"
	"io"

	"github.com/disintegration/imaging"

	"stickerkit/internal/raster"
)

// EncodePNG writes b as a non-interlaced RGBA PNG.
func EncodePNG(w io.Writer, b raster.PixelBuffer) error {
	if b.Empty() {
		return fmt.Errorf("encode png: %w", raster.ErrInvalidDimensions)
	}
	if err := imaging.Encode(w, b.NRGBA(), imaging.PNG, imaging.PNGCompressionLevel(png.DefaultCompression)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// PNGBytes returns b encoded as PNG.
func PNGBytes(b raster.PixelBuffer) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

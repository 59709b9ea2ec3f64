// Package codec turns source bytes into pixel buffers and pixel buffers into
// lossless PNG bytes.
package codec

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"

	"stickerkit/internal/raster"
	"stickerkit/pkg/imgutil"
)

// Decoder turns one named source into a pixel buffer. Failures are *DecodeError.
type Decoder interface {
	Decode(name string, data []byte) (raster.PixelBuffer, error)
}

// PNGDecoder accepts single-frame PNG sources only.
type PNGDecoder struct {
	// IgnoreOrientation skips the eXIf orientation transform.
	IgnoreOrientation bool
	Logger            *slog.Logger
}

// Decode decodes data with the default PNGDecoder.
func Decode(name string, data []byte) (raster.PixelBuffer, error) {
	return PNGDecoder{}.Decode(name, data)
}

func (d PNGDecoder) Decode(name string, data []byte) (raster.PixelBuffer, error) {
	fail := func(err error) (raster.PixelBuffer, error) {
		return raster.PixelBuffer{}, &DecodeError{Name: name, Err: err}
	}

	if len(data) == 0 {
		return fail(ErrEmptySource)
	}
	if kind := imgutil.SniffBytes(data); kind != imgutil.KindPNG {
		return fail(fmt.Errorf("%w: %s", ErrUnsupportedFormat, kind))
	}

	info, err := imgutil.ReadPNGInfo(bytes.NewReader(data))
	if err != nil {
		return fail(err)
	}
	if info.Animated {
		return fail(fmt.Errorf("%w: %d frames", ErrAnimated, info.Frames))
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return fail(err)
	}

	orientation := imgutil.OrientationNormal
	if !d.IgnoreOrientation && len(info.Exif) > 0 {
		ex, err := imgutil.ReadExif(info.Exif)
		if err != nil {
			// A broken eXIf chunk does not make the pixels unusable.
			d.logger().Debug("ignoring unreadable exif", "name", name, "error", err)
		} else {
			orientation = ex.Orientation
		}
	}
	img = Orient(img, orientation)

	b := raster.FromImage(img)
	d.logger().Debug("decoded source",
		"name", name,
		"width", b.Width(),
		"height", b.Height(),
		"color", info.ColorModel(),
		"orientation", orientation,
	)
	return b, nil
}

func (d PNGDecoder) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// Orient applies an EXIF orientation (1-8) so the result displays upright.
func Orient(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

package scan

import (
	"bytes"
	"errors"
	"fmt"

	"stickerkit/internal/codec"
	"stickerkit/internal/raster"
	"stickerkit/pkg/imgutil"
)

// inspection is the raw material notes are built from.
type inspection struct {
	kind    imgutil.Kind
	png     imgutil.PNGInfo
	exif    imgutil.ExifInfo
	decoded raster.PixelBuffer
	box     raster.BoundingBox
	content bool
	output  [2]int
	steps   int
}

func inspect(display string, kind imgutil.Kind, data []byte, opts Options) (Report, error) {
	report := Report{Path: display, Kind: kind}
	in := inspection{kind: kind, exif: imgutil.ExifInfo{Orientation: imgutil.OrientationNormal}}

	source := []string{
		fmt.Sprintf("format=%s", kind),
		fmt.Sprintf("size=%d bytes", len(data)),
	}

	var exifErr error
	if kind == imgutil.KindPNG {
		info, err := imgutil.ReadPNGInfo(bytes.NewReader(data))
		if err != nil {
			return report, err
		}
		in.png = info
		source = append(source,
			fmt.Sprintf("dimensions=%dx%d", info.Width, info.Height),
			fmt.Sprintf("color=%s", info.ColorModel()),
			fmt.Sprintf("bit_depth=%d", info.BitDepth),
		)
		if info.Animated {
			source = append(source, fmt.Sprintf("frames=%d", info.Frames))
		}
		in.exif, exifErr = imgutil.ReadExif(info.Exif)
	} else {
		in.exif, exifErr = imgutil.ReadExifSearch(bytes.NewReader(data))
	}
	if exifErr != nil {
		opts.logger().Debug("unreadable exif", "path", display, "error", exifErr)
	}
	report.Details = append(report.Details, Detail{Category: "Source", Values: source})

	decoder := codec.PNGDecoder{Logger: opts.Logger}
	decoded, err := decoder.Decode(display, data)
	if err != nil {
		var de *codec.DecodeError
		if errors.As(err, &de) {
			report.Rejected = de.Err.Error()
		} else {
			report.Rejected = err.Error()
		}
	} else {
		in.decoded = decoded
		report.Details = append(report.Details, geometry(&in, opts.pipeline()))
	}

	if meta := metadata(in); len(meta.Values) > 0 {
		report.Details = append(report.Details, meta)
	}
	report.Notes = buildNotes(in, report.Details)
	return report, nil
}

func (o Options) pipeline() raster.Pipeline {
	p := o.Pipeline
	if p.MaxSize <= 0 {
		p.MaxSize = raster.DefaultMaxSize
	}
	return p
}

// geometry predicts what the ingest pipeline produces from in.decoded.
func geometry(in *inspection, p raster.Pipeline) Detail {
	b := in.decoded
	in.box = raster.DetectBoundingBox(b)
	in.content = hasContent(b)

	w, h := raster.TargetSize(in.box.Width, in.box.Height, p.MaxSize)
	in.output = [2]int{w, h}
	in.steps = len(raster.StepDownSizes(in.box.Width, in.box.Height, w, h))

	values := []string{
		fmt.Sprintf("decoded=%dx%d", b.Width(), b.Height()),
		fmt.Sprintf("trim=%dx%d at (%d,%d)", in.box.Width, in.box.Height, in.box.Left, in.box.Top),
		fmt.Sprintf("output=%dx%d", w, h),
	}
	if in.steps > 0 {
		values = append(values, fmt.Sprintf("step_down=%d", in.steps))
	}
	return Detail{Category: "Geometry", Values: values}
}

func metadata(in inspection) Detail {
	d := Detail{Category: "Metadata"}
	for _, tag := range in.exif.Tags {
		d.Values = append(d.Values, fmt.Sprintf("%s=%s", tag.Name, tag.Value))
	}
	for _, key := range in.png.TextKeys {
		d.Values = append(d.Values, fmt.Sprintf("text=%s", key))
	}
	if in.png.HasTime {
		d.Values = append(d.Values, "tIME=present")
	}
	return d
}

func hasContent(b raster.PixelBuffer) bool {
	for y := 0; y < b.Height(); y++ {
		for x := 0; x < b.Width(); x++ {
			if b.At(x, y)[3] > raster.AlphaThreshold {
				return true
			}
		}
	}
	return false
}

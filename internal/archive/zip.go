// Package archive bundles rendered stickers into a single zip container.
package archive

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"stickerkit/internal/codec"
	"stickerkit/internal/raster"
)

// DefaultCompressionLevel is a moderate deflate level.
const DefaultCompressionLevel = 6

// Entry is one staged file: a name inside the container and the buffer to encode.
type Entry struct {
	Name   string
	Buffer raster.PixelBuffer
}

// Archive is a materialized container.
type Archive struct {
	Name    string
	Data    []byte
	Entries int
}

// Exporter writes the staged entries, in order, into one container named name.
type Exporter interface {
	Export(name string, entries []Entry) (Archive, error)
}

// ZipExporter encodes every entry as PNG and deflates it into a zip file.
type ZipExporter struct {
	// Level is the deflate level, 1-9. Zero means DefaultCompressionLevel.
	Level int
	// Modified stamps every entry; the zero value uses the current time.
	Modified time.Time
	Logger   *slog.Logger
}

// NewZipExporter returns an exporter with the default compression level.
func NewZipExporter() *ZipExporter {
	return &ZipExporter{Level: DefaultCompressionLevel}
}

func (z *ZipExporter) Export(name string, entries []Entry) (Archive, error) {
	var buf bytes.Buffer
	if err := z.WriteTo(&buf, name, entries); err != nil {
		return Archive{}, err
	}
	return Archive{Name: name, Data: buf.Bytes(), Entries: len(entries)}, nil
}

// WriteTo streams the container for entries into w.
func (z *ZipExporter) WriteTo(w io.Writer, name string, entries []Entry) error {
	level := z.Level
	if level == 0 {
		level = DefaultCompressionLevel
	}
	if level < flate.BestSpeed || level > flate.BestCompression {
		return &ExportError{Archive: name, Err: fmt.Errorf("%w: %d", ErrInvalidLevel, level)}
	}
	modified := z.Modified
	if modified.IsZero() {
		modified = time.Now()
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	for _, e := range entries {
		data, err := codec.PNGBytes(e.Buffer)
		if err != nil {
			_ = zw.Close()
			return &ExportError{Archive: name, Entry: e.Name, Err: err}
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			_ = zw.Close()
			return &ExportError{Archive: name, Entry: e.Name, Err: err}
		}
		if _, err := fw.Write(data); err != nil {
			_ = zw.Close()
			return &ExportError{Archive: name, Entry: e.Name, Err: err}
		}
		z.logger().Debug("archived entry", "archive", name, "entry", e.Name, "bytes", len(data))
	}

	if err := zw.Close(); err != nil {
		return &ExportError{Archive: name, Err: err}
	}
	return nil
}

func (z *ZipExporter) logger() *slog.Logger {
	if z.Logger != nil {
		return z.Logger
	}
	return slog.Default()
}

package imgutil

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidPNG is returned when the stream does not start with the PNG signature
// or its chunk layout is broken.
var ErrInvalidPNG = errors.New("invalid PNG")

// maxExifChunk bounds the eXIf payload kept in memory.
const maxExifChunk = 16 << 20

// PNGInfo is what a single pass over the chunk list reveals about a PNG.
type PNGInfo struct {
	Width     int
	Height    int
	BitDepth  uint8
	ColorType uint8
	// Transparency is set when a tRNS chunk is present.
	Transparency bool
	// Animated is set when an acTL chunk marks the file as APNG.
	Animated bool
	Frames   int
	Exif     []byte
	TextKeys []string
	HasTime  bool
}

// HasAlpha reports whether decoded pixels can carry transparency.
func (p PNGInfo) HasAlpha() bool {
	return p.ColorType == 4 || p.ColorType == 6 || p.Transparency
}

// ColorModel names the IHDR color type.
func (p PNGInfo) ColorModel() string {
	switch p.ColorType {
	case 0:
		return "gray"
	case 2:
		return "rgb"
	case 3:
		return "paletted"
	case 4:
		return "gray+alpha"
	case 6:
		return "rgba"
	default:
		return fmt.Sprintf("type %d", p.ColorType)
	}
}

// ReadPNGInfo walks the chunk list up to IEND without decoding image data.
func ReadPNGInfo(r io.Reader) (PNGInfo, error) {
	info := PNGInfo{}
	br := bufio.NewReader(r)

	sig := make([]byte, 8)
	if _, err := io.ReadFull(br, sig); err != nil {
		return info, fmt.Errorf("%w: %v", ErrInvalidPNG, err)
	}
	if !bytes.Equal(sig, pngSig) {
		return info, fmt.Errorf("%w: bad signature", ErrInvalidPNG)
	}

	sawHeader := false
	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(br, header); err != nil {
			if err == io.EOF && sawHeader {
				return info, nil
			}
			return info, fmt.Errorf("%w: %v", ErrInvalidPNG, err)
		}
		length := binary.BigEndian.Uint32(header[:4])
		if length > 1<<31-1 {
			return info, fmt.Errorf("%w: chunk length %d", ErrInvalidPNG, length)
		}
		chunkName := string(header[4:8])

		switch chunkName {
		case "IHDR":
			data, err := readChunk(br, length)
			if err != nil {
				return info, err
			}
			if len(data) < 13 {
				return info, fmt.Errorf("%w: short IHDR", ErrInvalidPNG)
			}
			info.Width = int(binary.BigEndian.Uint32(data[0:4]))
			info.Height = int(binary.BigEndian.Uint32(data[4:8]))
			info.BitDepth = data[8]
			info.ColorType = data[9]
			sawHeader = true
		case "acTL":
			data, err := readChunk(br, length)
			if err != nil {
				return info, err
			}
			info.Animated = true
			if len(data) >= 4 {
				info.Frames = int(binary.BigEndian.Uint32(data[0:4]))
			}
		case "eXIf":
			if length > maxExifChunk {
				if err := skipChunk(br, length); err != nil {
					return info, err
				}
				break
			}
			data, err := readChunk(br, length)
			if err != nil {
				return info, err
			}
			info.Exif = data
		case "tEXt", "zTXt", "iTXt":
			data, err := readChunk(br, length)
			if err != nil {
				return info, err
			}
			if key := textKey(data); key != "" {
				info.TextKeys = append(info.TextKeys, key)
			}
		case "tRNS":
			info.Transparency = true
			if err := skipChunk(br, length); err != nil {
				return info, err
			}
		case "tIME":
			info.HasTime = true
			if err := skipChunk(br, length); err != nil {
				return info, err
			}
		default:
			if err := skipChunk(br, length); err != nil {
				return info, err
			}
		}

		if chunkName == "IEND" {
			return info, nil
		}
	}
}

// readChunk reads a chunk body and discards its CRC.
func readChunk(br *bufio.Reader, length uint32) ([]byte, error) {
	data := make([]byte, length)
	if _, err := io.ReadFull(br, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPNG, err)
	}
	if _, err := io.CopyN(io.Discard, br, 4); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPNG, err)
	}
	return data, nil
}

func skipChunk(br *bufio.Reader, length uint32) error {
	if _, err := io.CopyN(io.Discard, br, int64(length)+4); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPNG, err)
	}
	return nil
}

func textKey(data []byte) string {
	idx := bytes.IndexByte(data, 0)
	if idx <= 0 {
		return ""
	}
	return strings.TrimSpace(string(data[:idx]))
}

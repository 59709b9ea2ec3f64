package codec

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stickerkit/internal/raster"
)

var marked = [4]uint8{250, 10, 20, 255}

// fixture is a 3x2 buffer with one marked pixel at the origin and a
// translucent bottom row.
func fixture(t *testing.T) raster.PixelBuffer {
	t.Helper()
	pix := make([]byte, 0, 3*2*4)
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			switch {
			case x == 0 && y == 0:
				pix = append(pix, marked[:]...)
			case y == 1:
				pix = append(pix, 0, 0, 200, 77)
			default:
				pix = append(pix, 30, 30, 30, 255)
			}
		}
	}
	b, err := raster.New(3, 2, pix)
	require.NoError(t, err)
	return b
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	b := fixture(t)
	data, err := PNGBytes(b)
	require.NoError(t, err)

	out, err := Decode("fixture.png", data)
	require.NoError(t, err)
	assert.True(t, out.Equal(b))
}

func TestEncodeEmptyBuffer(t *testing.T) {
	_, err := PNGBytes(raster.PixelBuffer{})
	assert.ErrorIs(t, err, raster.ErrInvalidDimensions)
}

func TestDecodeFailures(t *testing.T) {
	valid, err := PNGBytes(fixture(t))
	require.NoError(t, err)

	actl := make([]byte, 8)
	binary.BigEndian.PutUint32(actl, 2)
	animated := insertAfterIHDR(valid, "acTL", actl)

	corrupt := append([]byte{}, valid[:8]...)
	corrupt = append(corrupt, bytes.Repeat([]byte{0xab}, 64)...)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrEmptySource},
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10, 'J', 'F', 'I', 'F', 0, 1}, ErrUnsupportedFormat},
		{"text", []byte("this is not an image at all"), ErrUnsupportedFormat},
		{"apng", animated, ErrAnimated},
		{"corrupt", corrupt, nil},
		{"truncated", valid[:len(valid)-20], nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.name+".png", tt.data)
			require.Error(t, err)
			assert.True(t, IsDecodeError(err))
			assert.Contains(t, err.Error(), tt.name+".png")
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestDecodeAppliesOrientation(t *testing.T) {
	valid, err := PNGBytes(fixture(t))
	require.NoError(t, err)
	rotated := insertBeforeIEND(valid, "eXIf", orientationTIFF(6))

	out, err := Decode("rotated.png", rotated)
	require.NoError(t, err)
	require.Equal(t, 2, out.Width())
	require.Equal(t, 3, out.Height())
	// A quarter turn clockwise moves the top-left pixel to the top-right.
	assert.Equal(t, marked, out.At(1, 0))

	out, err = PNGDecoder{IgnoreOrientation: true}.Decode("rotated.png", rotated)
	require.NoError(t, err)
	assert.True(t, out.Equal(fixture(t)))
}

func TestDecodeIgnoresBrokenExif(t *testing.T) {
	valid, err := PNGBytes(fixture(t))
	require.NoError(t, err)
	withJunk := insertBeforeIEND(valid, "eXIf", []byte("junk"))

	out, err := Decode("junk.png", withJunk)
	require.NoError(t, err)
	assert.True(t, out.Equal(fixture(t)))
}

func TestOrient(t *testing.T) {
	img := fixture(t).NRGBA()
	for o := 1; o <= 8; o++ {
		out := Orient(img, o)
		if o >= 5 {
			assert.Equal(t, 2, out.Bounds().Dx(), "orientation %d", o)
		} else {
			assert.Equal(t, 3, out.Bounds().Dx(), "orientation %d", o)
		}
	}
	assert.Equal(t, img, Orient(img, 0))
}

func insertBeforeIEND(data []byte, chunkType string, body []byte) []byte {
	insertAt := len(data) - 12
	out := append([]byte{}, data[:insertAt]...)
	out = append(out, buildPNGChunk(chunkType, body)...)
	return append(out, data[insertAt:]...)
}

func insertAfterIHDR(data []byte, chunkType string, body []byte) []byte {
	insertAt := 8 + 25
	out := append([]byte{}, data[:insertAt]...)
	out = append(out, buildPNGChunk(chunkType, body)...)
	return append(out, data[insertAt:]...)
}

func buildPNGChunk(chunkType string, data []byte) []byte {
	typed := append([]byte(chunkType), data...)
	chunk := make([]byte, 4, 12+len(data))
	binary.BigEndian.PutUint32(chunk, uint32(len(data)))
	chunk = append(chunk, typed...)
	return binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(typed))
}

func orientationTIFF(orientation uint16) []byte {
	var tiff bytes.Buffer
	tiff.Write([]byte{0x49, 0x49, 0x2a, 0x00})
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(1))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0x0112))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(3))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(1))
	_ = binary.Write(&tiff, binary.LittleEndian, orientation)
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(0))
	return tiff.Bytes()
}

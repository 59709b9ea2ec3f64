package adjust

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stickerkit/internal/raster"
)

func sample(t *testing.T) raster.PixelBuffer {
	t.Helper()
	pix := make([]byte, 0, 6*4*4)
	for i := 0; i < 24; i++ {
		pix = append(pix, uint8(i*10), uint8(255-i*7), uint8((i*31)%256), uint8(i*11))
	}
	b, err := raster.New(6, 4, pix)
	require.NoError(t, err)
	return b
}

func TestApplyAllNeutralIsBitIdentical(t *testing.T) {
	b := sample(t)
	out := ApplyAll(b, Default())
	assert.True(t, out.Equal(b))
}

func TestApplyAllIsOrderSensitive(t *testing.T) {
	b := sample(t)

	forward := Contrast(Brightness(b, 1.4), 0.6)
	backward := Brightness(Contrast(b, 0.6), 1.4)
	require.False(t, forward.Equal(backward), "brightness and contrast do not commute")

	got := ApplyAll(b, Values{Brightness: 1.4, Contrast: 0.6, Saturation: Neutral, Sharpness: Neutral})
	assert.True(t, got.Equal(forward))
}

func TestBrightness(t *testing.T) {
	b := raster.Filled(1, 1, [4]uint8{100, 200, 10, 77})
	assert.Equal(t, [4]uint8{150, 255, 15, 77}, Brightness(b, 1.5).At(0, 0))
	assert.Equal(t, [4]uint8{0, 0, 0, 77}, Brightness(b, 0).At(0, 0))
}

func TestContrast(t *testing.T) {
	b := raster.Filled(1, 1, [4]uint8{128, 200, 50, 9})

	f, ok := ContrastFactor(0)
	require.True(t, ok)
	assert.InDelta(t, 1.0, f, 1e-12)
	assert.True(t, Contrast(b, 0).Equal(b))

	f, ok = ContrastFactor(0.5)
	require.True(t, ok)
	assert.InDelta(t, 259*382.5/(255*131.5), f, 1e-12)
	assert.Equal(t, [4]uint8{128, 255, 0, 9}, Contrast(b, 0.5).At(0, 0))
}

func TestContrastSingularityIsIdentity(t *testing.T) {
	_, ok := ContrastFactor(259.0 / 255.0)
	require.False(t, ok)

	b := sample(t)
	assert.True(t, Contrast(b, 259.0/255.0).Equal(b))
}

func TestSaturationZeroIsGrayscale(t *testing.T) {
	b := raster.Filled(1, 1, [4]uint8{200, 100, 50, 255})
	got := Saturation(b, 0).At(0, 0)
	gray := raster.Clamp(0.2126*200 + 0.7152*100 + 0.0722*50)
	assert.Equal(t, [4]uint8{gray, gray, gray, 255}, got)
}

func TestSharpnessNeutralAndUniform(t *testing.T) {
	b := sample(t)
	assert.True(t, Sharpness(b, 1).Equal(b))

	flat := raster.Filled(5, 5, [4]uint8{40, 80, 120, 255})
	assert.True(t, Sharpness(flat, 2).Equal(flat), "no detail to amplify")
}

func TestSharpnessAmplifiesEdges(t *testing.T) {
	pix := make([]byte, 3*1*4)
	copy(pix, []byte{0, 0, 0, 255, 200, 200, 200, 255, 0, 0, 0, 255})
	b, err := raster.New(3, 1, pix)
	require.NoError(t, err)

	out := Sharpness(b, 2)
	assert.Equal(t, uint8(255), out.At(1, 0)[0])
}

func TestAlphaUntouched(t *testing.T) {
	b := sample(t)
	v := Values{Brightness: 0.3, Contrast: 1.7, Saturation: 0.2, Sharpness: 1.9}
	out := ApplyAll(b, v)
	for y := 0; y < b.Height(); y++ {
		for x := 0; x < b.Width(); x++ {
			assert.Equal(t, b.At(x, y)[3], out.At(x, y)[3])
		}
	}
}

func TestValuesWithAndValidate(t *testing.T) {
	v, err := Default().With("Contrast", 3)
	require.NoError(t, err)
	assert.Equal(t, Max, v.Contrast)
	assert.Equal(t, Neutral, Default().Contrast, "Default is a fresh value")

	_, err = v.With("gamma", 1)
	require.ErrorIs(t, err, ErrUnknownAdjustment)

	require.NoError(t, v.Validate())
	assert.Error(t, Values{Brightness: -1, Contrast: 1, Saturation: 1, Sharpness: 1}.Validate())
	assert.True(t, Default().IsNeutral())
}

package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stickerkit/internal/adjust"
	"stickerkit/internal/filter"
	"stickerkit/internal/raster"
)

func canonical(t *testing.T) raster.PixelBuffer {
	t.Helper()
	pix := make([]byte, 0, 8*5*4)
	for i := 0; i < 40; i++ {
		pix = append(pix, uint8(i*6), uint8(200-i*3), uint8((i*47)%256), uint8(255-i))
	}
	b, err := raster.New(8, 5, pix)
	require.NoError(t, err)
	return b
}

func TestNeutralRenderRoundTrips(t *testing.T) {
	b := canonical(t)
	s := DefaultSettings()
	require.True(t, s.IsIdentity())

	out := Render(b, s)
	assert.True(t, out.Equal(b))
}

func TestRenderDoesNotTouchCanonical(t *testing.T) {
	b := canonical(t)
	before := b.Clone()

	s := DefaultSettings()
	var err error
	s.Adjustments, err = s.Adjustments.With("brightness", 1.3)
	require.NoError(t, err)
	s.Adjustments, err = s.Adjustments.With("sharpness", 1.8)
	require.NoError(t, err)
	s.Filter = filter.Spec{Kind: filter.Blur, BlurRadius: 2}

	out := Render(b, s)
	assert.False(t, out.Equal(b))
	assert.True(t, b.Equal(before))
}

func TestRenderAdjustsBeforeFiltering(t *testing.T) {
	b := canonical(t)
	s := Settings{
		Adjustments: adjust.Values{Brightness: 1.5, Contrast: 1, Saturation: 1, Sharpness: 1},
		Filter:      filter.Spec{Kind: filter.Emboss},
	}
	want := filter.Apply(adjust.ApplyAll(b, s.Adjustments), s.Filter)
	assert.True(t, Render(b, s).Equal(want))
}

func TestRenderClampsOutOfRangeValues(t *testing.T) {
	b := canonical(t)
	s := DefaultSettings()
	s.Adjustments.Brightness = 7
	want := adjust.Brightness(b, adjust.Max)
	assert.True(t, Render(b, s).Equal(want))
}

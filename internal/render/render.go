// Package render derives display and export buffers from a canonical buffer.
package render

import (
	"fmt"

	"stickerkit/internal/adjust"
	"stickerkit/internal/filter"
	"stickerkit/internal/raster"
)

// Settings are the user controlled parameters applied on every render.
type Settings struct {
	Adjustments adjust.Values
	Filter      filter.Spec
}

// DefaultSettings is neutral adjustments and no filter.
func DefaultSettings() Settings {
	return Settings{Adjustments: adjust.Default(), Filter: filter.NoFilter()}
}

// IsIdentity reports whether rendering with s returns the canonical buffer unchanged.
func (s Settings) IsIdentity() bool {
	return s.Adjustments.IsNeutral() && s.Filter.Kind == filter.None
}

func (s Settings) String() string {
	a := s.Adjustments
	return fmt.Sprintf("b=%.2f c=%.2f s=%.2f sh=%.2f filter=%s",
		a.Brightness, a.Contrast, a.Saturation, a.Sharpness, s.Filter)
}

// Render applies the adjustments and then the filter to canonical. The result is
// always a new buffer; canonical is never modified.
func Render(canonical raster.PixelBuffer, s Settings) raster.PixelBuffer {
	adjusted := adjust.ApplyAll(canonical, s.Adjustments.Clamped())
	if s.Filter.Kind == filter.None {
		return adjusted
	}
	return filter.Apply(adjusted, s.Filter)
}

package adjust

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// Neutral leaves a channel untouched.
	Neutral = 1.0
	// Min and Max bound every adjustment value.
	Min = 0.0
	Max = 2.0
)

// ErrUnknownAdjustment is returned by With for a name that is not one of the four.
var ErrUnknownAdjustment = errors.New("unknown adjustment")

// Values holds the four tone/detail factors. The zero Values is not neutral; use
// Default.
type Values struct {
	Brightness float64 `yaml:"brightness" json:"brightness"`
	Contrast   float64 `yaml:"contrast" json:"contrast"`
	Saturation float64 `yaml:"saturation" json:"saturation"`
	Sharpness  float64 `yaml:"sharpness" json:"sharpness"`
}

// Default returns all four values at Neutral.
func Default() Values {
	return Values{Brightness: Neutral, Contrast: Neutral, Saturation: Neutral, Sharpness: Neutral}
}

// IsNeutral reports whether applying v would change nothing.
func (v Values) IsNeutral() bool {
	return v == Default()
}

// Clamped returns v with every value limited to [Min, Max].
func (v Values) Clamped() Values {
	return Values{
		Brightness: clamp(v.Brightness),
		Contrast:   clamp(v.Contrast),
		Saturation: clamp(v.Saturation),
		Sharpness:  clamp(v.Sharpness),
	}
}

// Validate returns an error naming the first value outside [Min, Max].
func (v Values) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"brightness", v.Brightness},
		{"contrast", v.Contrast},
		{"saturation", v.Saturation},
		{"sharpness", v.Sharpness},
	} {
		if f.value < Min || f.value > Max || math.IsNaN(f.value) {
			return fmt.Errorf("%s %.3f outside [%.1f, %.1f]", f.name, f.value, Min, Max)
		}
	}
	return nil
}

// With returns a copy of v with the named value replaced (clamped).
func (v Values) With(name string, value float64) (Values, error) {
	value = clamp(value)
	switch strings.ToLower(name) {
	case "brightness":
		v.Brightness = value
	case "contrast":
		v.Contrast = value
	case "saturation":
		v.Saturation = value
	case "sharpness":
		v.Sharpness = value
	default:
		return v, fmt.Errorf("%w: %q", ErrUnknownAdjustment, name)
	}
	return v, nil
}

func clamp(x float64) float64 {
	if math.IsNaN(x) {
		return Neutral
	}
	if x < Min {
		return Min
	}
	if x > Max {
		return Max
	}
	return x
}

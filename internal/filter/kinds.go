package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFilter is returned by Parse for names outside the library.
var ErrUnknownFilter = errors.New("unknown filter")

// Kind names one entry of the filter library.
type Kind int

const (
	None Kind = iota
	Sharpen
	Blur
	EdgeEnhance
	Emboss
	Contour
	Detail
	FindEdges
)

const (
	// DefaultBlurRadius is used when a blur is selected without a radius.
	DefaultBlurRadius = 3.0
	// MaxBlurRadius bounds the blur radius; it gives a 21x21 kernel.
	MaxBlurRadius = 10.0
)

var kindNames = map[Kind]string{
	None:        "none",
	Sharpen:     "sharpen",
	Blur:        "blur",
	EdgeEnhance: "edge_enhance",
	Emboss:      "emboss",
	Contour:     "contour",
	Detail:      "detail",
	FindEdges:   "find_edges",
}

var kindLabels = map[Kind]string{
	None:        "None",
	Sharpen:     "Sharpen",
	Blur:        "Blur",
	EdgeEnhance: "Edge Enhance",
	Emboss:      "Emboss",
	Contour:     "Contour",
	Detail:      "Detail",
	FindEdges:   "Find Edges",
}

// Kinds lists every filter except None in display order.
func Kinds() []Kind {
	return []Kind{Sharpen, Blur, EdgeEnhance, Emboss, Contour, Detail, FindEdges}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Label is the human readable name of k.
func (k Kind) Label() string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	return "Unknown"
}

// Spec selects at most one filter. BlurRadius only matters for Blur.
type Spec struct {
	Kind       Kind
	BlurRadius float64
}

// NoFilter is the identity spec.
func NoFilter() Spec {
	return Spec{Kind: None, BlurRadius: DefaultBlurRadius}
}

// WithBlurRadius returns a copy of s with the radius clamped to [0, MaxBlurRadius].
func (s Spec) WithBlurRadius(radius float64) Spec {
	s.BlurRadius = ClampRadius(radius)
	return s
}

// Toggle selects k, or clears the selection when k is already active.
func (s Spec) Toggle(k Kind) Spec {
	if s.Kind == k {
		s.Kind = None
		return s
	}
	s.Kind = k
	return s
}

func (s Spec) String() string {
	if s.Kind == Blur {
		return fmt.Sprintf("blur(%.1f)", s.BlurRadius)
	}
	return s.Kind.String()
}

// Parse resolves a filter name such as "edge_enhance" or "Find Edges". The empty
// string is None.
func Parse(name string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if key == "" {
		return None, nil
	}
	for k, n := range kindNames {
		if n == key {
			return k, nil
		}
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
}

// ClampRadius limits r to [0, MaxBlurRadius].
func ClampRadius(r float64) float64 {
	if r != r || r < 0 {
		return 0
	}
	if r > MaxBlurRadius {
		return MaxBlurRadius
	}
	return r
}

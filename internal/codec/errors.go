package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySource is returned for zero-length input.
	ErrEmptySource = errors.New("empty source")
	// ErrUnsupportedFormat is returned for anything that is not a PNG.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrAnimated is returned for APNG sources.
	ErrAnimated = errors.New("animated images are not supported")
)

// DecodeError reports that a source could not be turned into a pixel buffer.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("decode: %v", e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err is, or wraps, a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

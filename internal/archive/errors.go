package archive

import (
	"errors"
	"fmt"
)

// ErrInvalidLevel is returned for deflate levels outside 1-9.
var ErrInvalidLevel = errors.New("invalid compression level")

// ExportError reports that the archive could not be materialized. Entry names the
// staged file that failed, if any.
type ExportError struct {
	Archive string
	Entry   string
	Err     error
}

func (e *ExportError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("export %s: %v", e.Archive, e.Err)
	}
	return fmt.Sprintf("export %s: entry %s: %v", e.Archive, e.Entry, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

package scan

import (
	"log/slog"

	"stickerkit/internal/raster"
	"stickerkit/pkg/imgutil"
)

type Options struct {
	// Pipeline predicts the canonical output size. Zero means the default.
	Pipeline raster.Pipeline
	// SkipDir is not descended into when it lies inside the scanned root.
	SkipDir string
	// Workers defaults to runtime.NumCPU.
	Workers int
	Logger  *slog.Logger
}

type Job struct {
	Path    string
	Display string
}

type Result struct {
	Display   string
	Supported bool
	Err       error
	Report    *Report
}

type Summary struct {
	Total    int
	Scanned  int
	Rejected int
	Errors   int
}

// Report is everything scan learned about one image file.
type Report struct {
	Path string
	Kind imgutil.Kind
	// Rejected holds the reason the file cannot be ingested, empty when it can.
	Rejected string
	Details  []Detail
	Notes    []Note
}

type Detail struct {
	Category string
	Values   []string
}

type Note struct {
	Kind    string
	Message string
}

type ProgressUpdate struct {
	TotalDelta     int
	ProcessedDelta int
	ErrorDelta     int
	RejectedDelta  int
}

// Package editor is the single image workflow: load one source, tweak the render
// settings with immediate re-rendering, then export a PNG.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"stickerkit/internal/archive"
	"stickerkit/internal/codec"
	"stickerkit/internal/filter"
	"stickerkit/internal/raster"
	"stickerkit/internal/render"
)

var (
	// ErrNoImage is returned by operations that need a loaded image.
	ErrNoImage = errors.New("no image loaded")
	// ErrLoadInProgress is returned when Load is called while another load runs.
	ErrLoadInProgress = errors.New("a load is already in progress")
)

// Session holds one canonical buffer and the render derived from it.
type Session struct {
	loading atomic.Bool

	decoder  codec.Decoder
	pipeline raster.Pipeline
	log      *slog.Logger

	mu           sync.RWMutex
	name         string
	original     raster.PixelBuffer
	canonical    raster.PixelBuffer
	display      raster.PixelBuffer
	settings     render.Settings
	showOriginal bool
	lastErr      error
}

// Option configures a Session.
type Option func(*Session)

// WithDecoder replaces the PNG decoder.
func WithDecoder(d codec.Decoder) Option {
	return func(s *Session) { s.decoder = d }
}

// WithPipeline sets the trim and fit parameters used by Load.
func WithPipeline(p raster.Pipeline) Option {
	return func(s *Session) { s.pipeline = p }
}

// WithLogger sets the session logger. nil keeps slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns an empty session with neutral settings.
func New(opts ...Option) *Session {
	s := &Session{
		decoder:  codec.PNGDecoder{},
		pipeline: raster.DefaultPipeline(),
		log:      slog.Default(),
		settings: render.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load decodes data and runs the ingest pipeline on it. On success the session
// starts over with default settings. On failure the previous image, if any, is
// kept untouched and the error is also available from LastError.
func (s *Session) Load(name string, data []byte) error {
	if !s.loading.CompareAndSwap(false, true) {
		return ErrLoadInProgress
	}
	defer s.loading.Store(false)

	src, err := s.decoder.Decode(name, data)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		s.log.Warn("load failed", "name", name, "error", err)
		return err
	}
	canonical := s.pipeline.Process(src)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
	s.original = src
	s.canonical = canonical
	s.display = canonical.Clone()
	s.settings = render.DefaultSettings()
	s.showOriginal = false
	s.lastErr = nil
	s.log.Info("image loaded",
		"name", name,
		"source", fmt.Sprintf("%dx%d", src.Width(), src.Height()),
		"canonical", fmt.Sprintf("%dx%d", canonical.Width(), canonical.Height()),
	)
	return nil
}

// Loaded reports whether an image is present.
func (s *Session) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.canonical.Empty()
}

// Name is the source name of the loaded image.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// LastError is the error of the most recent failed Load, cleared by a
// successful Load or Clear.
func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Session) Settings() render.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Canonical is the trimmed and fitted buffer all renders start from.
func (s *Session) Canonical() raster.PixelBuffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.canonical
}

// Rendered is the canonical buffer with the current settings applied.
func (s *Session) Rendered() raster.PixelBuffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.display
}

// View is what a preview should show: the decoded source while the original is
// toggled on, the rendered buffer otherwise.
func (s *Session) View() raster.PixelBuffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.showOriginal {
		return s.original
	}
	return s.display
}

// SetAdjustment changes one named adjustment and re-renders.
func (s *Session) SetAdjustment(name string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canonical.Empty() {
		return ErrNoImage
	}
	v, err := s.settings.Adjustments.With(name, value)
	if err != nil {
		return err
	}
	s.settings.Adjustments = v
	s.rerender()
	return nil
}

// SetFilter toggles k and re-renders.
func (s *Session) SetFilter(k filter.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canonical.Empty() {
		return ErrNoImage
	}
	s.settings.Filter = s.settings.Filter.Toggle(k)
	s.rerender()
	return nil
}

// SetBlurRadius changes the blur radius and re-renders.
func (s *Session) SetBlurRadius(r float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canonical.Empty() {
		return ErrNoImage
	}
	s.settings.Filter = s.settings.Filter.WithBlurRadius(r)
	s.rerender()
	return nil
}

// ApplySettings replaces all render settings at once and re-renders.
func (s *Session) ApplySettings(settings render.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canonical.Empty() {
		return ErrNoImage
	}
	s.settings = render.Settings{
		Adjustments: settings.Adjustments.Clamped(),
		Filter:      settings.Filter.WithBlurRadius(settings.Filter.BlurRadius),
	}
	s.rerender()
	return nil
}

// ToggleOriginal flips between the source and the render in View and returns
// the new state.
func (s *Session) ToggleOriginal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showOriginal = !s.showOriginal
	return s.showOriginal
}

// Reset restores default settings; the render becomes a copy of the canonical
// buffer.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canonical.Empty() {
		return ErrNoImage
	}
	s.settings = render.DefaultSettings()
	s.display = s.canonical.Clone()
	return nil
}

// Clear drops the image and all settings.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = ""
	s.original = raster.PixelBuffer{}
	s.canonical = raster.PixelBuffer{}
	s.display = raster.PixelBuffer{}
	s.settings = render.DefaultSettings()
	s.showOriginal = false
	s.lastErr = nil
}

// Export encodes the rendered buffer as PNG and names it after the source.
func (s *Session) Export() (string, []byte, error) {
	s.mu.RLock()
	name, display := s.name, s.display
	s.mu.RUnlock()
	if display.Empty() {
		return "", nil, ErrNoImage
	}
	data, err := codec.PNGBytes(display)
	if err != nil {
		return "", nil, &archive.ExportError{Archive: archive.StickerFilename(name), Err: err}
	}
	return archive.StickerFilename(name), data, nil
}

func (s *Session) rerender() {
	s.display = render.Render(s.canonical, s.settings)
}

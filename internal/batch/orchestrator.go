// Package batch sequences the ingest pipeline over many sources and bundles the
// rendered results into one archive.
//
// An Orchestrator owns the working set of items and the current render settings.
// At most one Run, ingest or export, is active at a time; a second begin request
// fails with ErrBusy. A Run advances one item per Step so a host can interleave
// its own work between items, or call Ingest/Export to drive it to completion.
package batch

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"stickerkit/internal/adjust"
	"stickerkit/internal/archive"
	"stickerkit/internal/codec"
	"stickerkit/internal/filter"
	"stickerkit/internal/metrics"
	"stickerkit/internal/raster"
	"stickerkit/internal/render"
)

// Orchestrator owns the working set and runs ingest and export over it.
type Orchestrator struct {
	busy atomic.Bool

	decoder   codec.Decoder
	exporter  archive.Exporter
	pipeline  raster.Pipeline
	thumbSize int
	log       *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	yield     func()

	mu        sync.RWMutex
	items     []*Item
	selected  uuid.UUID
	settings  render.Settings
	state     State
	observers []Observer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDecoder replaces the PNG decoder used during ingest.
func WithDecoder(d codec.Decoder) Option {
	return func(o *Orchestrator) { o.decoder = d }
}

// WithExporter replaces the zip exporter.
func WithExporter(e archive.Exporter) Option {
	return func(o *Orchestrator) { o.exporter = e }
}

// WithPipeline sets the trim and fit parameters applied to every item.
func WithPipeline(p raster.Pipeline) Option {
	return func(o *Orchestrator) { o.pipeline = p }
}

// WithThumbnailSize sets the longest side of item thumbnails. Values <= 0 are
// ignored.
func WithThumbnailSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.thumbSize = n
		}
	}
}

// WithLogger sets the logger. nil keeps slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMetrics records runs and items on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock sets the time source used for archive names.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithYield sets the hook Ingest and Export call between items. The default is
// runtime.Gosched.
func WithYield(yield func()) Option {
	return func(o *Orchestrator) { o.yield = yield }
}

// WithObserver registers fn for State publications, like Observe.
func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, fn) }
}

// New returns an idle orchestrator with an empty working set.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		decoder:   codec.PNGDecoder{},
		exporter:  archive.NewZipExporter(),
		pipeline:  raster.DefaultPipeline(),
		thumbSize: raster.DefaultThumbnailSize,
		log:       slog.Default(),
		now:       time.Now,
		yield:     runtime.Gosched,
		settings:  render.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.yield == nil {
		o.yield = func() {}
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	return o
}

// Observe registers fn for all future State publications.
func (o *Orchestrator) Observe(fn Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}

// State returns the current progress snapshot.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Busy reports whether a run is active.
func (o *Orchestrator) Busy() bool { return o.busy.Load() }

func (o *Orchestrator) publish() {
	o.mu.RLock()
	st := o.state
	observers := append([]Observer(nil), o.observers...)
	o.mu.RUnlock()

	for _, fn := range observers {
		fn(st)
	}
}

// Items returns the working set in collection order.
func (o *Orchestrator) Items() []Item {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Item, len(o.items))
	for i, it := range o.items {
		out[i] = *it
	}
	return out
}

// Item returns the item with the given id.
func (o *Orchestrator) Item(id uuid.UUID) (Item, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if idx := o.indexOf(id); idx >= 0 {
		return *o.items[idx], true
	}
	return Item{}, false
}

// Len is the size of the working set.
func (o *Orchestrator) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.items)
}

// Counts returns how many items are ready and how many failed.
func (o *Orchestrator) Counts() (ready, failed int) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, it := range o.items {
		switch it.Status {
		case StatusReady:
			ready++
		case StatusError:
			failed++
		}
	}
	return ready, failed
}

func (o *Orchestrator) indexOf(id uuid.UUID) int {
	for i, it := range o.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// Select makes id the selected item. uuid.Nil clears the selection.
func (o *Orchestrator) Select(id uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if id != uuid.Nil && o.indexOf(id) < 0 {
		return ErrUnknownItem
	}
	o.selected = id
	return nil
}

// Selected returns the selected item, if any.
func (o *Orchestrator) Selected() (Item, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if idx := o.indexOf(o.selected); idx >= 0 {
		return *o.items[idx], true
	}
	return Item{}, false
}

// Navigate moves the selection one item forward or back, wrapping around. It does
// nothing without a selection or with fewer than two items.
func (o *Orchestrator) Navigate(dir Direction) {
	o.mu.Lock()
	defer o.mu.Unlock()
	idx := o.indexOf(o.selected)
	n := len(o.items)
	if idx < 0 || n <= 1 {
		return
	}
	if dir == Prev {
		idx = (idx - 1 + n) % n
	} else {
		idx = (idx + 1) % n
	}
	o.selected = o.items[idx].ID
}

// Remove drops an item from the working set. Removing the selected item selects
// the first remaining one.
func (o *Orchestrator) Remove(id uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	idx := o.indexOf(id)
	if idx < 0 {
		return ErrUnknownItem
	}
	o.items = append(o.items[:idx:idx], o.items[idx+1:]...)
	if o.selected == id {
		o.selected = uuid.Nil
		if len(o.items) > 0 {
			o.selected = o.items[0].ID
		}
	}
	return nil
}

// Clear drops every item and resets the render settings.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = nil
	o.selected = uuid.Nil
	o.settings = render.DefaultSettings()
}

// Settings returns the current render settings.
func (o *Orchestrator) Settings() render.Settings {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.settings
}

// SetAdjustment sets one named adjustment, clamped to [0,2].
func (o *Orchestrator) SetAdjustment(name string, value float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, err := o.settings.Adjustments.With(name, value)
	if err != nil {
		return err
	}
	o.settings.Adjustments = v
	return nil
}

// SetAdjustments replaces all four adjustments.
func (o *Orchestrator) SetAdjustments(v adjust.Values) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.settings.Adjustments = v.Clamped()
}

// SetFilter selects k, or clears the filter when k is already active.
func (o *Orchestrator) SetFilter(k filter.Kind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.settings.Filter = o.settings.Filter.Toggle(k)
}

// SetBlurRadius sets the blur radius, clamped to [0,10].
func (o *Orchestrator) SetBlurRadius(r float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.settings.Filter = o.settings.Filter.WithBlurRadius(r)
}

// ApplySettings replaces the render settings, clamping out-of-range values.
func (o *Orchestrator) ApplySettings(s render.Settings) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.settings = render.Settings{
		Adjustments: s.Adjustments.Clamped(),
		Filter:      s.Filter.WithBlurRadius(s.Filter.BlurRadius),
	}
}

// Reset restores neutral adjustments, no filter and the default blur radius.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.settings = render.DefaultSettings()
}

// Display renders the selected item with the current settings. It reports false
// when nothing ready is selected.
func (o *Orchestrator) Display() (raster.PixelBuffer, bool) {
	o.mu.RLock()
	idx := o.indexOf(o.selected)
	if idx < 0 || o.items[idx].Status != StatusReady {
		o.mu.RUnlock()
		return raster.PixelBuffer{}, false
	}
	canonical := o.items[idx].Canonical
	settings := o.settings
	o.mu.RUnlock()

	return render.Render(canonical, settings), true
}

package batch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stickerkit/internal/adjust"
	"stickerkit/internal/archive"
	"stickerkit/internal/codec"
	"stickerkit/internal/filter"
	"stickerkit/internal/metrics"
	"stickerkit/internal/raster"
	"stickerkit/internal/render"
)

var fixedNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func pngSource(t *testing.T, name string, w, h int, c [4]uint8) Source {
	t.Helper()
	data, err := codec.PNGBytes(raster.Filled(w, h, c))
	require.NoError(t, err)
	return Source{Name: name, Data: data}
}

type recordingExporter struct {
	mu      sync.Mutex
	calls   int
	archive string
	entries []archive.Entry
	err     error
}

func (e *recordingExporter) Export(name string, entries []archive.Entry) (archive.Archive, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.archive = name
	e.entries = append([]archive.Entry(nil), entries...)
	if e.err != nil {
		return archive.Archive{}, e.err
	}
	return archive.Archive{Name: name, Data: []byte("zip"), Entries: len(entries)}, nil
}

type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (r *stateRecorder) observe(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) phases() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Phase
	for _, s := range r.states {
		if len(out) == 0 || out[len(out)-1] != s.Phase {
			out = append(out, s.Phase)
		}
	}
	return out
}

func (r *stateRecorder) maxCurrent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.states {
		n = max(n, s.Current)
	}
	return n
}

func newTestOrchestrator(opts ...Option) *Orchestrator {
	base := []Option{WithClock(func() time.Time { return fixedNow }), WithYield(func() {})}
	return New(append(base, opts...)...)
}

func TestIngestIsolatesCorruptItem(t *testing.T) {
	rec := &stateRecorder{}
	o := newTestOrchestrator(WithObserver(rec.observe))

	sources := []Source{
		pngSource(t, "a.png", 20, 10, [4]uint8{255, 0, 0, 255}),
		pngSource(t, "b.png", 10, 10, [4]uint8{0, 255, 0, 255}),
		{Name: "broken.png", Data: []byte("\x89PNG\r\n\x1a\nthis is not a png body")},
		pngSource(t, "d.png", 10, 30, [4]uint8{0, 0, 255, 255}),
		pngSource(t, "e.png", 4, 4, [4]uint8{9, 9, 9, 255}),
	}
	ids, err := o.Ingest(context.Background(), sources)
	require.NoError(t, err)
	require.Len(t, ids, 5)

	items := o.Items()
	require.Len(t, items, 5)
	for i, it := range items {
		assert.Equal(t, ids[i], it.ID)
		assert.Equal(t, sources[i].Name, it.Name)
		if i == 2 {
			assert.Equal(t, StatusError, it.Status)
			assert.NotEmpty(t, it.Error)
			assert.True(t, it.Canonical.Empty())
			continue
		}
		assert.Equal(t, StatusReady, it.Status, it.Name)
		assert.False(t, it.Canonical.Empty())
		assert.NotEmpty(t, it.Thumbnail)
	}

	assert.Equal(t, 5, rec.maxCurrent())
	assert.Equal(t, []Phase{PhaseLoading, PhaseIdle}, rec.phases())
	assert.Equal(t, State{}, o.State())
	assert.False(t, o.Busy())

	ready, failed := o.Counts()
	assert.Equal(t, 4, ready)
	assert.Equal(t, 1, failed)

	selected, ok := o.Selected()
	require.True(t, ok)
	assert.Equal(t, ids[0], selected.ID)
}

func TestIngestStepByStep(t *testing.T) {
	o := newTestOrchestrator()
	ctx := context.Background()

	run, err := o.BeginIngest(ctx, []Source{
		pngSource(t, "one.png", 8, 8, [4]uint8{1, 2, 3, 255}),
		pngSource(t, "two.png", 8, 8, [4]uint8{4, 5, 6, 255}),
		pngSource(t, "three.png", 8, 8, [4]uint8{7, 8, 9, 255}),
	})
	require.NoError(t, err)
	assert.Equal(t, State{Processing: true, Phase: PhaseLoading, Total: 3}, o.State())
	for _, it := range o.Items() {
		assert.Equal(t, StatusPending, it.Status)
	}

	require.NoError(t, run.Step())
	assert.Equal(t, 1, o.State().Current)
	items := o.Items()
	assert.Equal(t, StatusReady, items[0].Status)
	assert.Equal(t, StatusPending, items[1].Status)

	_, err = o.BeginIngest(ctx, []Source{pngSource(t, "late.png", 2, 2, [4]uint8{0, 0, 0, 255})})
	assert.ErrorIs(t, err, ErrBusy)
	_, err = o.BeginExport(ctx)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 3, o.Len())

	require.NoError(t, run.Step())
	require.NoError(t, run.Step())
	assert.True(t, run.Done())
	assert.False(t, o.Busy())
	assert.ErrorIs(t, run.Step(), ErrRunFinished)
}

func TestIngestEmptyIsNoop(t *testing.T) {
	o := newTestOrchestrator()
	run, err := o.BeginIngest(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, run.Done())
	assert.False(t, o.Busy())
	assert.Zero(t, o.Len())
}

func TestIngestRecoversFromPanickingDecoder(t *testing.T) {
	o := newTestOrchestrator(WithDecoder(panickyDecoder{bad: "boom.png"}))
	_, err := o.Ingest(context.Background(), []Source{
		pngSource(t, "fine.png", 3, 3, [4]uint8{1, 1, 1, 255}),
		pngSource(t, "boom.png", 3, 3, [4]uint8{1, 1, 1, 255}),
	})
	require.NoError(t, err)

	items := o.Items()
	assert.Equal(t, StatusReady, items[0].Status)
	assert.Equal(t, StatusError, items[1].Status)
	assert.Contains(t, items[1].Error, ErrItemPanic.Error())
	assert.False(t, o.Busy())
}

type panickyDecoder struct{ bad string }

func (d panickyDecoder) Decode(name string, data []byte) (raster.PixelBuffer, error) {
	if name == d.bad {
		panic("decoder exploded")
	}
	return codec.Decode(name, data)
}

func TestIngestRunsPipeline(t *testing.T) {
	o := newTestOrchestrator()
	_, err := o.Ingest(context.Background(), []Source{
		pngSource(t, "wide.png", 1000, 400, [4]uint8{255, 0, 0, 255}),
	})
	require.NoError(t, err)

	it := o.Items()[0]
	assert.Equal(t, 512, it.Canonical.Width())
	assert.Equal(t, 205, it.Canonical.Height())

	thumb, err := codec.Decode("thumb.png", it.Thumbnail)
	require.NoError(t, err)
	assert.Equal(t, raster.DefaultThumbnailSize, thumb.Width())
}

func TestExportWithNothingReadyIsNoop(t *testing.T) {
	exp := &recordingExporter{}
	rec := &stateRecorder{}
	o := newTestOrchestrator(WithExporter(exp), WithObserver(rec.observe))

	out, err := o.Export(context.Background())
	require.NoError(t, err)
	assert.Nil(t, out)

	_, err = o.Ingest(context.Background(), []Source{{Name: "bad.png", Data: []byte("nope")}})
	require.NoError(t, err)
	before := len(rec.states)

	out, err = o.Export(context.Background())
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Zero(t, exp.calls)
	assert.Equal(t, State{}, o.State())
	assert.False(t, o.Busy())
	assert.Len(t, rec.states, before)
}

func TestEmptyExportLeavesActiveGauge(t *testing.T) {
	m := metrics.New()
	o := newTestOrchestrator(WithMetrics(m))

	out, err := o.Export(context.Background())
	require.NoError(t, err)
	assert.Nil(t, out)

	expected := `
# HELP stickerkit_runs_active Runs currently in progress.
# TYPE stickerkit_runs_active gauge
stickerkit_runs_active 0
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "stickerkit_runs_active"))
}

func TestIngestStopsWhenContextEnds(t *testing.T) {
	m := metrics.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o := newTestOrchestrator(WithMetrics(m), WithObserver(func(s State) {
		if s.Current == 1 {
			cancel()
		}
	}))
	sources := []Source{
		pngSource(t, "a.png", 2, 2, [4]uint8{1, 1, 1, 255}),
		pngSource(t, "b.png", 2, 2, [4]uint8{2, 2, 2, 255}),
		pngSource(t, "c.png", 2, 2, [4]uint8{3, 3, 3, 255}),
	}

	ids, err := o.Ingest(ctx, sources)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, ids, 3)

	items := o.Items()
	assert.Equal(t, StatusReady, items[0].Status)
	assert.Equal(t, StatusError, items[1].Status)
	assert.Equal(t, StatusError, items[2].Status)
	assert.Equal(t, context.Canceled.Error(), items[2].Error)

	assert.False(t, o.Busy())
	assert.Equal(t, State{}, o.State())

	expected := `
# HELP stickerkit_runs_total Batch runs by kind and outcome.
# TYPE stickerkit_runs_total counter
stickerkit_runs_total{kind="ingest",outcome="canceled"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "stickerkit_runs_total"))
}

func TestExportStopsWhenContextEnds(t *testing.T) {
	exp := &recordingExporter{}
	o := newTestOrchestrator(WithExporter(exp))
	_, err := o.Ingest(context.Background(), []Source{pngSource(t, "a.png", 2, 2, [4]uint8{1, 1, 1, 255})})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := o.Export(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, out)
	assert.Zero(t, exp.calls)
	assert.False(t, o.Busy())

	ready, _ := o.Counts()
	assert.Equal(t, 1, ready)
}

func TestExportPhasesOrderAndSettings(t *testing.T) {
	exp := &recordingExporter{}
	o := newTestOrchestrator(WithExporter(exp))
	ctx := context.Background()

	_, err := o.Ingest(ctx, []Source{
		pngSource(t, "zebra.png", 6, 6, [4]uint8{200, 100, 50, 255}),
		{Name: "skip.png", Data: []byte("corrupt")},
		pngSource(t, "apple.png", 6, 4, [4]uint8{10, 100, 200, 255}),
		pngSource(t, "mango.png", 4, 6, [4]uint8{90, 90, 90, 128}),
	})
	require.NoError(t, err)
	require.NoError(t, o.SetAdjustment("brightness", 1.2))
	o.SetFilter(filter.Emboss)
	want := o.Settings()

	run, err := o.BeginExport(ctx)
	require.NoError(t, err)
	assert.Equal(t, State{Processing: true, Phase: PhaseApplying, Total: 3}, o.State())

	// Settings changes after the run started do not leak into the export.
	o.Reset()

	require.NoError(t, run.Step())
	require.NoError(t, run.Step())
	assert.Equal(t, PhaseApplying, o.State().Phase)
	require.NoError(t, run.Step())
	assert.Equal(t, State{Processing: true, Phase: PhaseCompressing, Current: 3, Total: 3}, o.State())
	assert.Zero(t, exp.calls)

	require.NoError(t, run.Step())
	assert.True(t, run.Done())
	assert.Equal(t, State{}, o.State())

	a, err := run.Result()
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "stickers_2026-10-18.zip", a.Name)
	assert.Equal(t, 1, exp.calls)

	require.Len(t, exp.entries, 3)
	assert.Equal(t, "zebra_sticker.png", exp.entries[0].Name)
	assert.Equal(t, "apple_sticker.png", exp.entries[1].Name)
	assert.Equal(t, "mango_sticker.png", exp.entries[2].Name)

	items := o.Items()
	assert.True(t, exp.entries[0].Buffer.Equal(render.Render(items[0].Canonical, want)))
	assert.True(t, exp.entries[1].Buffer.Equal(render.Render(items[2].Canonical, want)))
}

func TestExportNeutralRoundTripsCanonical(t *testing.T) {
	exp := &recordingExporter{}
	o := newTestOrchestrator(WithExporter(exp))
	_, err := o.Ingest(context.Background(), []Source{pngSource(t, "a.png", 5, 5, [4]uint8{3, 4, 5, 200})})
	require.NoError(t, err)

	_, err = o.Export(context.Background())
	require.NoError(t, err)
	require.Len(t, exp.entries, 1)
	assert.True(t, exp.entries[0].Buffer.Equal(o.Items()[0].Canonical))
}

func TestExportDeduplicatesNames(t *testing.T) {
	exp := &recordingExporter{}
	o := newTestOrchestrator(WithExporter(exp))
	_, err := o.Ingest(context.Background(), []Source{
		pngSource(t, "left/cat.png", 2, 2, [4]uint8{1, 1, 1, 255}),
		pngSource(t, "right/cat.png", 2, 2, [4]uint8{2, 2, 2, 255}),
	})
	require.NoError(t, err)

	_, err = o.Export(context.Background())
	require.NoError(t, err)
	require.Len(t, exp.entries, 2)
	assert.Equal(t, "cat_sticker.png", exp.entries[0].Name)
	assert.Equal(t, "cat_sticker_2.png", exp.entries[1].Name)
}

func TestExportFailureIsSurfaced(t *testing.T) {
	m := metrics.New()
	exp := &recordingExporter{err: errors.New("disk full")}
	o := newTestOrchestrator(WithExporter(exp), WithMetrics(m))
	_, err := o.Ingest(context.Background(), []Source{pngSource(t, "a.png", 2, 2, [4]uint8{1, 1, 1, 255})})
	require.NoError(t, err)

	out, err := o.Export(context.Background())
	assert.Nil(t, out)
	var exportErr *archive.ExportError
	require.True(t, errors.As(err, &exportErr))
	assert.Equal(t, "stickers_2026-10-18.zip", exportErr.Archive)
	assert.Contains(t, err.Error(), "disk full")

	assert.False(t, o.Busy())
	assert.Equal(t, State{}, o.State())

	n, err := testutil.GatherAndCount(m.Registry(), "stickerkit_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestExportWithZipExporter(t *testing.T) {
	o := newTestOrchestrator()
	_, err := o.Ingest(context.Background(), []Source{pngSource(t, "a.png", 3, 3, [4]uint8{1, 2, 3, 255})})
	require.NoError(t, err)

	out, err := o.Export(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, 1, out.Entries)
	assert.Equal(t, []byte("PK"), out.Data[:2])
}

func TestBusyRejectionIsCounted(t *testing.T) {
	m := metrics.New()
	o := newTestOrchestrator(WithMetrics(m))
	run, err := o.BeginIngest(context.Background(), []Source{pngSource(t, "a.png", 2, 2, [4]uint8{1, 1, 1, 255})})
	require.NoError(t, err)

	_, err = o.Ingest(context.Background(), []Source{pngSource(t, "b.png", 2, 2, [4]uint8{1, 1, 1, 255})})
	assert.ErrorIs(t, err, ErrBusy)
	_, err = o.Export(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	for !run.Done() {
		require.NoError(t, run.Step())
	}

	n, err := testutil.GatherAndCount(m.Registry(), "stickerkit_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSelectionNavigateRemove(t *testing.T) {
	o := newTestOrchestrator()
	ids, err := o.Ingest(context.Background(), []Source{
		pngSource(t, "a.png", 2, 2, [4]uint8{1, 1, 1, 255}),
		pngSource(t, "b.png", 2, 2, [4]uint8{2, 2, 2, 255}),
		pngSource(t, "c.png", 2, 2, [4]uint8{3, 3, 3, 255}),
	})
	require.NoError(t, err)

	selectedID := func() uuid.UUID {
		it, ok := o.Selected()
		require.True(t, ok)
		return it.ID
	}
	assert.Equal(t, ids[0], selectedID())

	o.Navigate(Prev)
	assert.Equal(t, ids[2], selectedID())
	o.Navigate(Next)
	assert.Equal(t, ids[0], selectedID())
	o.Navigate(Next)
	assert.Equal(t, ids[1], selectedID())

	require.NoError(t, o.Remove(ids[1]))
	assert.Equal(t, ids[0], selectedID())
	assert.ErrorIs(t, o.Remove(ids[1]), ErrUnknownItem)
	assert.ErrorIs(t, o.Select(uuid.New()), ErrUnknownItem)

	require.NoError(t, o.Select(ids[2]))
	assert.Equal(t, ids[2], selectedID())
	require.NoError(t, o.Remove(ids[0]))
	assert.Equal(t, ids[2], selectedID())

	o.Navigate(Next)
	assert.Equal(t, ids[2], selectedID())

	require.NoError(t, o.Remove(ids[2]))
	_, ok := o.Selected()
	assert.False(t, ok)
}

func TestSettingsAndDisplay(t *testing.T) {
	o := newTestOrchestrator()
	_, ok := o.Display()
	assert.False(t, ok)

	_, err := o.Ingest(context.Background(), []Source{pngSource(t, "a.png", 4, 4, [4]uint8{100, 100, 100, 255})})
	require.NoError(t, err)

	shown, ok := o.Display()
	require.True(t, ok)
	assert.True(t, shown.Equal(o.Items()[0].Canonical))

	o.SetFilter(filter.Contour)
	assert.Equal(t, filter.Contour, o.Settings().Filter.Kind)
	o.SetFilter(filter.Contour)
	assert.Equal(t, filter.None, o.Settings().Filter.Kind)

	o.SetBlurRadius(25)
	assert.Equal(t, filter.MaxBlurRadius, o.Settings().Filter.BlurRadius)
	require.NoError(t, o.SetAdjustment("Brightness", 2))
	assert.Error(t, o.SetAdjustment("hue", 1))

	shown, ok = o.Display()
	require.True(t, ok)
	assert.Equal(t, [4]uint8{200, 200, 200, 255}, shown.At(1, 1))

	o.Reset()
	assert.Equal(t, render.DefaultSettings(), o.Settings())

	o.ApplySettings(render.Settings{
		Adjustments: adjust.Values{Brightness: -1, Contrast: 1, Saturation: 1, Sharpness: 3},
		Filter:      filter.Spec{Kind: filter.Emboss, BlurRadius: -2},
	})
	assert.Equal(t, 0.0, o.Settings().Adjustments.Brightness)
	assert.Equal(t, 2.0, o.Settings().Adjustments.Sharpness)
	assert.Equal(t, filter.Emboss, o.Settings().Filter.Kind)
	assert.Equal(t, 0.0, o.Settings().Filter.BlurRadius)

	require.NoError(t, o.SetAdjustment("contrast", 0.4))
	o.Clear()
	assert.Zero(t, o.Len())
	assert.Equal(t, render.DefaultSettings(), o.Settings())
	_, ok = o.Selected()
	assert.False(t, ok)
}

func TestRemoveDuringIngest(t *testing.T) {
	o := newTestOrchestrator()
	run, err := o.BeginIngest(context.Background(), []Source{
		pngSource(t, "a.png", 2, 2, [4]uint8{1, 1, 1, 255}),
		pngSource(t, "b.png", 2, 2, [4]uint8{2, 2, 2, 255}),
	})
	require.NoError(t, err)
	require.NoError(t, o.Remove(run.IDs()[1]))

	for !run.Done() {
		require.NoError(t, run.Step())
	}
	assert.Equal(t, 1, o.Len())
	ready, failed := o.Counts()
	assert.Equal(t, 1, ready)
	assert.Zero(t, failed)
}

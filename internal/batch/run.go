package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stickerkit/internal/archive"
	"stickerkit/internal/codec"
	"stickerkit/internal/metrics"
	"stickerkit/internal/raster"
	"stickerkit/internal/render"
	"stickerkit/pkg/logging"
)

// Run is one ingest or export pass. It is driven by a single goroutine calling
// Step until Done reports true.
type Run struct {
	o    *Orchestrator
	ctx  context.Context
	kind string
	ids  []uuid.UUID
	next int
	done bool

	settings    render.Settings
	archiveName string
	staged      []archive.Entry
	result      *archive.Archive
	err         error
}

// Kind is metrics.KindIngest or metrics.KindExport.
func (r *Run) Kind() string { return r.kind }

// Done reports whether the run has released the orchestrator.
func (r *Run) Done() bool { return r.done }

// IDs returns the items the run covers, in processing order.
func (r *Run) IDs() []uuid.UUID { return append([]uuid.UUID(nil), r.ids...) }

// Result returns the archive of a finished export run, or nil if nothing was
// exported, along with the export failure if there was one.
func (r *Run) Result() (*archive.Archive, error) { return r.result, r.err }

// BeginIngest appends one Pending item per source and returns the run that loads
// them. An empty source list returns a finished run and changes nothing.
func (o *Orchestrator) BeginIngest(ctx context.Context, sources []Source) (*Run, error) {
	if len(sources) == 0 {
		return &Run{o: o, ctx: ctx, kind: metrics.KindIngest, done: true}, nil
	}
	if !o.busy.CompareAndSwap(false, true) {
		o.metrics.RunRejected(metrics.KindIngest)
		return nil, ErrBusy
	}
	o.metrics.RunStarted()

	r := &Run{o: o, kind: metrics.KindIngest, ids: make([]uuid.UUID, 0, len(sources))}
	r.ctx = runContext(ctx, r.kind)

	o.mu.Lock()
	for _, src := range sources {
		it := &Item{ID: uuid.New(), Name: src.Name, Source: src.Data, Status: StatusPending}
		o.items = append(o.items, it)
		r.ids = append(r.ids, it.ID)
	}
	o.state = State{Processing: true, Phase: PhaseLoading, Total: len(sources)}
	o.mu.Unlock()

	o.log.InfoContext(r.ctx, "ingest started", "total", len(sources))
	o.publish()
	return r, nil
}

// BeginExport stages every Ready item, in collection order, for rendering with
// the settings in effect now. With no Ready items it returns a finished run and
// the exporter is never called.
func (o *Orchestrator) BeginExport(ctx context.Context) (*Run, error) {
	if !o.busy.CompareAndSwap(false, true) {
		o.metrics.RunRejected(metrics.KindExport)
		return nil, ErrBusy
	}

	r := &Run{o: o, kind: metrics.KindExport}
	r.ctx = runContext(ctx, r.kind)

	o.mu.Lock()
	for _, it := range o.items {
		if it.Status == StatusReady {
			r.ids = append(r.ids, it.ID)
		}
	}
	if len(r.ids) == 0 {
		o.state = State{}
		o.mu.Unlock()
		r.done = true
		o.busy.Store(false)
		o.metrics.RunSkipped(r.kind, metrics.OutcomeEmpty)
		o.log.DebugContext(r.ctx, "export skipped, nothing ready")
		return r, nil
	}
	r.settings = o.settings
	r.archiveName = archive.ArchiveName(o.now())
	o.state = State{Processing: true, Phase: PhaseApplying, Total: len(r.ids)}
	o.mu.Unlock()

	o.metrics.RunStarted()
	o.log.InfoContext(r.ctx, "export started",
		"total", len(r.ids),
		"archive", r.archiveName,
		"settings", r.settings.String(),
	)
	o.publish()
	return r, nil
}

func runContext(ctx context.Context, kind string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return logging.AppendCtx(ctx,
		slog.String("run", uuid.NewString()),
		slog.String("kind", kind),
	)
}

// Step advances the run by one unit of work: one item while loading or applying,
// then a single compressing step for exports. Per-item ingest failures are
// recorded on the item and do not produce an error; an export failure is
// returned from the compressing step.
func (r *Run) Step() error {
	if r.done {
		return ErrRunFinished
	}
	if r.kind == metrics.KindIngest {
		r.stepIngest()
		return nil
	}
	if r.next < len(r.ids) {
		r.stepApply()
		return nil
	}
	return r.stepCompress()
}

func (r *Run) stepIngest() {
	o := r.o
	id := r.ids[r.next]
	r.next++

	o.mu.Lock()
	idx := o.indexOf(id)
	var name string
	var data []byte
	if idx >= 0 {
		it := o.items[idx]
		it.Status = StatusLoading
		name, data = it.Name, it.Source
	}
	o.mu.Unlock()

	removed := idx < 0
	status := StatusError
	if !removed {
		o.publish()

		started := time.Now()
		canonical, thumb, err := o.ingestOne(name, data)

		o.mu.Lock()
		if idx = o.indexOf(id); idx >= 0 {
			it := o.items[idx]
			if err != nil {
				it.Status = StatusError
				it.Error = err.Error()
			} else {
				it.Status = StatusReady
				it.Canonical = canonical
				it.Thumbnail = thumb
				if o.selected == uuid.Nil {
					o.selected = id
				}
			}
		}
		o.mu.Unlock()

		if err == nil {
			status = StatusReady
		}
		o.metrics.ItemDone(PhaseLoading.String(), status.String(), time.Since(started))
		if err != nil {
			o.log.WarnContext(r.ctx, "item failed", "item", id, "name", name, "error", err)
		}
	}

	o.mu.Lock()
	o.state.Current++
	if !removed && status == StatusError {
		o.state.Failed++
	}
	st := o.state
	o.mu.Unlock()

	if removed {
		o.log.InfoContext(r.ctx, "item removed before loading", "item", id, "current", st.Current, "total", st.Total)
	} else {
		o.log.InfoContext(r.ctx, "item processed",
			"item", id,
			"name", name,
			"status", status.String(),
			"current", st.Current,
			"total", st.Total,
		)
	}

	o.publish()

	if r.next == len(r.ids) {
		outcome := metrics.OutcomeOK
		if st.Failed > 0 && st.Failed == st.Total {
			outcome = metrics.OutcomeError
		}
		r.finish(outcome)
		o.log.InfoContext(r.ctx, "ingest finished", "total", st.Total, "failed", st.Failed)
		o.publish()
	}
}

// ingestOne decodes, trims, fits and thumbnails one source. A panic in any stage
// is turned into an error for that item only.
func (o *Orchestrator) ingestOne(name string, data []byte) (canonical raster.PixelBuffer, thumb []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrItemPanic, p)
		}
	}()

	src, err := o.decoder.Decode(name, data)
	if err != nil {
		return raster.PixelBuffer{}, nil, err
	}
	canonical = o.pipeline.Process(src)
	thumb, err = codec.PNGBytes(raster.Thumbnail(canonical, o.thumbSize))
	if err != nil {
		return raster.PixelBuffer{}, nil, fmt.Errorf("thumbnail: %w", err)
	}
	return canonical, thumb, nil
}

func (r *Run) stepApply() {
	o := r.o
	id := r.ids[r.next]
	r.next++

	if it, ok := o.Item(id); ok && it.Status == StatusReady {
		started := time.Now()
		out := render.Render(it.Canonical, r.settings)
		r.staged = append(r.staged, archive.Entry{Name: archive.StickerFilename(it.Name), Buffer: out})
		o.metrics.ItemDone(PhaseApplying.String(), StatusReady.String(), time.Since(started))
		o.log.DebugContext(r.ctx, "item rendered", "item", id, "name", it.Name)
	}

	o.mu.Lock()
	o.state.Current++
	if r.next == len(r.ids) {
		o.state.Phase = PhaseCompressing
	}
	o.mu.Unlock()
	o.publish()
}

func (r *Run) stepCompress() error {
	o := r.o
	if len(r.staged) == 0 {
		r.finish(metrics.OutcomeEmpty)
		o.publish()
		return nil
	}

	names := make([]string, len(r.staged))
	for i, e := range r.staged {
		names[i] = e.Name
	}
	for i, n := range archive.UniqueNames(names) {
		r.staged[i].Name = n
	}

	a, err := o.exporter.Export(r.archiveName, r.staged)
	if err != nil {
		var exportErr *archive.ExportError
		if !errors.As(err, &exportErr) {
			err = &archive.ExportError{Archive: r.archiveName, Err: err}
		}
		r.err = err
		o.log.ErrorContext(r.ctx, "export failed", "archive", r.archiveName, "error", err)
		r.finish(metrics.OutcomeError)
		o.publish()
		return err
	}

	r.result = &a
	o.metrics.ArchiveWritten(len(a.Data))
	o.log.InfoContext(r.ctx, "export finished",
		"archive", a.Name,
		"entries", a.Entries,
		"bytes", len(a.Data),
	)
	r.finish(metrics.OutcomeOK)
	o.publish()
	return nil
}

// Abort ends an unfinished run early. Ingest items the run has not reached yet
// are marked failed with err; an export discards what it staged and produces no
// archive.
func (r *Run) Abort(err error) {
	if r.done {
		return
	}
	o := r.o
	if r.kind == metrics.KindIngest {
		o.mu.Lock()
		for _, id := range r.ids[r.next:] {
			if idx := o.indexOf(id); idx >= 0 {
				it := o.items[idx]
				it.Status = StatusError
				it.Error = err.Error()
			}
		}
		o.mu.Unlock()
	}
	r.err = err
	o.log.WarnContext(r.ctx, "run aborted",
		"current", r.next,
		"total", len(r.ids),
		"error", err,
	)
	r.finish(metrics.OutcomeCanceled)
	o.publish()
}

// finish returns the orchestrator to Idle and releases the run guard.
func (r *Run) finish(outcome string) {
	r.done = true
	r.staged = nil

	r.o.mu.Lock()
	r.o.state = State{}
	r.o.mu.Unlock()

	r.o.busy.Store(false)
	r.o.metrics.RunFinished(r.kind, outcome)
}

// Ingest loads sources to completion, yielding between items, and returns the
// ids of the new items. When ctx ends first the run is aborted and ctx's error
// returned.
func (o *Orchestrator) Ingest(ctx context.Context, sources []Source) ([]uuid.UUID, error) {
	r, err := o.BeginIngest(ctx, sources)
	if err != nil {
		return nil, err
	}
	for !r.Done() {
		if err := r.ctx.Err(); err != nil {
			r.Abort(err)
			return r.IDs(), err
		}
		if err := r.Step(); err != nil {
			return r.IDs(), err
		}
		o.yield()
	}
	return r.IDs(), nil
}

// Export renders and archives every Ready item. It returns a nil archive and a
// nil error when nothing is ready, and ctx's error if ctx ends before the archive
// is written.
func (o *Orchestrator) Export(ctx context.Context) (*archive.Archive, error) {
	r, err := o.BeginExport(ctx)
	if err != nil {
		return nil, err
	}
	for !r.Done() {
		if err := r.ctx.Err(); err != nil {
			r.Abort(err)
			return nil, err
		}
		if err := r.Step(); err != nil {
			return nil, err
		}
		o.yield()
	}
	return r.Result()
}

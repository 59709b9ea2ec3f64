// Package scan inspects image files without changing them: what the ingest
// pipeline would make of each one and which metadata it would drop.
package scan

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"stickerkit/pkg/fsutil"
	"stickerkit/pkg/imgutil"
)

// Run inspects root, a file or a directory, with a pool of workers. Progress is
// sent on updates when it is not nil; Run never closes it. Reports are sorted
// by path.
func Run(ctx context.Context, root string, opts Options, updates chan<- ProgressUpdate) (Summary, []Report, error) {
	summary := Summary{}
	var reports []Report

	info, err := os.Stat(root)
	if err != nil {
		return summary, nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return summary, nil, err
	}

	skipAbs := fsutil.NestedDir(absRoot, opts.SkipDir)

	send := func(u ProgressUpdate) {
		if updates != nil {
			updates <- u
		}
	}

	jobs := make(chan Job)
	results := make(chan Result)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			worker(ctx, jobs, results, opts, send)
		}()
	}

	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for res := range results {
			if res.Err != nil {
				summary.Errors++
				send(ProgressUpdate{ErrorDelta: 1})
				opts.logger().Warn("scan failed", "path", res.Display, "error", res.Err)
			}
			if !res.Supported {
				continue
			}
			summary.Total++
			if res.Report == nil {
				send(ProgressUpdate{ProcessedDelta: 1})
				continue
			}
			summary.Scanned++
			update := ProgressUpdate{ProcessedDelta: 1}
			if res.Report.Rejected != "" {
				summary.Rejected++
				update.RejectedDelta = 1
			}
			send(update)
			reports = append(reports, *res.Report)
		}
	}()

	producerErr := make(chan error, 1)
	go func() {
		defer close(jobs)

		sendJob := func(job Job) error {
			select {
			case jobs <- job:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if !info.IsDir() {
			producerErr <- sendJob(Job{Path: absRoot, Display: filepath.Base(absRoot)})
			return
		}

		fsys := os.DirFS(absRoot)
		producerErr <- fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if skipAbs != "" && fsutil.IsWithin(filepath.Join(absRoot, path), skipAbs) {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			return sendJob(Job{Path: filepath.Join(absRoot, path), Display: path})
		})
	}()

	wg.Wait()
	close(results)
	<-collectorDone

	sort.Slice(reports, func(i, j int) bool { return reports[i].Path < reports[j].Path })

	if err := <-producerErr; err != nil {
		return summary, reports, err
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return summary, reports, err
	}
	return summary, reports, nil
}

func worker(ctx context.Context, jobs <-chan Job, results chan<- Result, opts Options, send func(ProgressUpdate)) {
	for job := range jobs {
		if ctx.Err() != nil {
			return
		}

		res := Result{Display: job.Display}

		kind, err := imgutil.SniffFile(job.Path)
		if errors.Is(err, imgutil.ErrShortHeader) {
			continue
		}
		if err != nil {
			res.Err = err
			results <- res
			continue
		}
		if kind == imgutil.KindUnknown {
			continue
		}

		res.Supported = true
		send(ProgressUpdate{TotalDelta: 1})

		data, err := os.ReadFile(job.Path)
		if err != nil {
			res.Err = err
			results <- res
			continue
		}

		report, err := inspect(job.Display, kind, data, opts)
		if err != nil {
			res.Err = err
			results <- res
			continue
		}
		res.Report = &report
		results <- res
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

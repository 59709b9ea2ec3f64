package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"stickerkit/internal/archive"
	"stickerkit/internal/batch"
	"stickerkit/internal/codec"
	"stickerkit/internal/tui"
)

func NewBatchCmd(ctx context.Context, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [flags] <path>",
		Short: "Turn every PNG under a path into stickers and zip them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := a.renderSettings(cmd)
			if err != nil {
				return err
			}
			outDir := a.outputDir(cmd)
			thumbs, _ := cmd.Flags().GetBool("thumbnails")

			sources, err := batch.CollectSources(args[0], outDir)
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				return fmt.Errorf("no images found in %s", args[0])
			}

			o := batch.New(
				batch.WithDecoder(codec.PNGDecoder{Logger: a.log}),
				batch.WithExporter(&archive.ZipExporter{
					Level:    a.cfg.CompressionLevel,
					Modified: time.Now(),
					Logger:   a.log,
				}),
				batch.WithPipeline(a.cfg.Pipeline()),
				batch.WithThumbnailSize(a.cfg.ThumbnailSize),
				batch.WithLogger(a.log),
				batch.WithMetrics(a.metrics),
			)
			o.ApplySettings(settings)

			var result *archive.Archive
			err = withProgress(ctx, cmd, "stickerkit batch", func(ctx context.Context, updates chan<- tui.Progress) error {
				o.Observe(func(s batch.State) { updates <- tui.FromState(s) })
				if _, err := o.Ingest(ctx, sources); err != nil {
					return err
				}
				arch, err := o.Export(ctx)
				result = arch
				return err
			})
			if err != nil {
				return err
			}

			ready, failed := o.Counts()
			rows := []tui.SummaryRow{
				{Label: "Sources", Value: fmt.Sprintf("%d", len(sources))},
				{Label: "Stickers", Value: fmt.Sprintf("%d", ready)},
				{Label: "Failed", Value: fmt.Sprintf("%d", failed), Warn: failed > 0},
				{Label: "Settings", Value: settings.String()},
			}

			if result != nil {
				path, err := archive.WriteFile(outDir, result.Name, result.Data)
				if err != nil {
					return err
				}
				if abs, absErr := filepath.Abs(path); absErr == nil {
					path = abs
				}
				rows = append(rows,
					tui.SummaryRow{Label: "Archive", Value: path},
					tui.SummaryRow{Label: "Archive size", Value: tui.FormatBytes(int64(len(result.Data)))},
				)
			}
			if thumbs {
				n, err := writeThumbnails(filepath.Join(outDir, "thumbnails"), o.Items())
				if err != nil {
					return err
				}
				rows = append(rows, tui.SummaryRow{Label: "Thumbnails", Value: fmt.Sprintf("%d", n)})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, tui.RenderSummary(rows))
			for _, item := range o.Items() {
				if item.Status == batch.StatusError {
					fmt.Fprintf(w, "%s %s\n", errorNameStyle.Render(item.Name), dimStyle.Render(item.Error))
				}
			}
			if result == nil {
				fmt.Fprintln(w, "Nothing to export.")
			}
			return nil
		},
	}
	addSettingsFlags(cmd)
	addProgressFlags(cmd)
	cmd.Flags().Bool("thumbnails", false, "also write preview thumbnails")
	return cmd
}

func writeThumbnails(dir string, items []batch.Item) (int, error) {
	var names []string
	var data [][]byte
	for _, item := range items {
		if item.Status != batch.StatusReady || len(item.Thumbnail) == 0 {
			continue
		}
		names = append(names, archive.ThumbnailFilename(item.Name))
		data = append(data, item.Thumbnail)
	}
	for i, name := range archive.UniqueNames(names) {
		if _, err := archive.WriteFile(dir, name, data[i]); err != nil {
			return i, err
		}
	}
	return len(names), nil
}

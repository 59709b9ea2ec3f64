package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"stickerkit/internal/archive"
	"stickerkit/internal/codec"
	"stickerkit/internal/editor"
	"stickerkit/internal/metrics"
	"stickerkit/internal/tui"
)

func NewProcessCmd(ctx context.Context, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [flags] <file>",
		Short: "Turn one PNG into <name>_sticker.png",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := a.renderSettings(cmd)
			if err != nil {
				return err
			}
			out, err := a.processFile(ctx, args[0], a.outputDir(cmd), func(s *editor.Session) error {
				return s.ApplySettings(settings)
			})
			if err != nil {
				return err
			}

			info, err := os.Stat(out)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderSummary([]tui.SummaryRow{
				{Label: "Settings", Value: settings.String()},
				{Label: "Sticker", Value: out},
				{Label: "Size", Value: tui.FormatBytes(info.Size())},
			}))
			return nil
		},
	}
	addSettingsFlags(cmd)
	return cmd
}

// processFile runs one file through a fresh editor session and writes the
// sticker into outDir. configure runs between load and export.
func (a *app) processFile(ctx context.Context, path, outDir string, configure func(*editor.Session) error) (string, error) {
	started := time.Now()
	a.metrics.RunStarted()
	outcome := metrics.OutcomeError
	defer func() { a.metrics.RunFinished(metrics.KindProcess, outcome) }()

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	s := editor.New(
		editor.WithDecoder(codec.PNGDecoder{Logger: a.log}),
		editor.WithPipeline(a.cfg.Pipeline()),
		editor.WithLogger(a.log),
	)
	if err := s.Load(filepath.Base(path), data); err != nil {
		a.metrics.ItemDone(metrics.KindProcess, "error", time.Since(started))
		return "", err
	}
	if configure != nil {
		if err := configure(s); err != nil {
			return "", err
		}
	}

	name, png, err := s.Export()
	if err != nil {
		return "", err
	}
	out, err := archive.WriteFile(outDir, name, png)
	if err != nil {
		return "", err
	}

	outcome = metrics.OutcomeOK
	a.metrics.ItemDone(metrics.KindProcess, "ready", time.Since(started))
	a.log.InfoContext(ctx, "sticker written", "source", path, "path", out, "settings", s.Settings().String())
	return out, nil
}

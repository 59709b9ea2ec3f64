package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"stickerkit/internal/editor"
	"stickerkit/internal/watch"
)

func NewWatchCmd(ctx context.Context, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [flags] <dir>",
		Short: "Process every PNG dropped into a folder until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := a.renderSettings(cmd)
			if err != nil {
				return err
			}
			outDir := a.outputDir(cmd)
			debounce, _ := cmd.Flags().GetDuration("debounce")

			handler := func(ctx context.Context, path string) error {
				out, err := a.processFile(ctx, path, outDir, func(s *editor.Session) error {
					return s.ApplySettings(settings)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", filepath.Base(path), out)
				return nil
			}

			w, err := watch.New(args[0], handler,
				watch.WithDebounce(debounce),
				watch.WithLogger(a.log),
			)
			if err != nil {
				return err
			}
			return w.Run(ctx)
		},
	}
	addSettingsFlags(cmd)
	cmd.Flags().Duration("debounce", watch.DefaultDebounce, "quiet time before a changed file is processed")
	return cmd
}

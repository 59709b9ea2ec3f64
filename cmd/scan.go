package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"stickerkit/internal/scan"
	"stickerkit/internal/tui"
)

func NewScanCmd(ctx context.Context, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <path>",
		Short: "Report what processing would do to each image, without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := scan.Options{
				Pipeline: a.cfg.Pipeline(),
				SkipDir:  a.outputDir(cmd),
				Logger:   a.log,
			}

			var summary scan.Summary
			var reports []scan.Report
			err := withProgress(ctx, cmd, "stickerkit scan", func(ctx context.Context, out chan<- tui.Progress) error {
				updates := make(chan scan.ProgressUpdate, 64)
				forwarded := make(chan struct{})
				go func() {
					defer close(forwarded)
					p := tui.Progress{Phase: "scanning"}
					for u := range updates {
						p.Total += u.TotalDelta
						p.Current += u.ProcessedDelta
						p.Failed += u.ErrorDelta
						p.Rejected += u.RejectedDelta
						out <- p
					}
				}()

				var err error
				summary, reports, err = scan.Run(ctx, args[0], opts, updates)
				close(updates)
				<-forwarded
				return err
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printReports(w, reports)
			fmt.Fprintln(w)
			fmt.Fprintln(w, tui.RenderSummary([]tui.SummaryRow{
				{Label: "Images found", Value: fmt.Sprintf("%d", summary.Total)},
				{Label: "Ready to ingest", Value: fmt.Sprintf("%d", summary.Scanned-summary.Rejected)},
				{Label: "Rejected", Value: fmt.Sprintf("%d", summary.Rejected), Warn: summary.Rejected > 0},
				{Label: "Errors", Value: fmt.Sprintf("%d", summary.Errors), Warn: summary.Errors > 0},
			}))
			return nil
		},
	}
	addProgressFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "folder to skip while scanning (default from config)")
	return cmd
}

func printReports(w io.Writer, reports []scan.Report) {
	for i, report := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		header := scanFileStyle.Render(report.Path)
		if report.Rejected != "" {
			header += " " + errorNameStyle.Render("rejected: "+report.Rejected)
		}
		fmt.Fprintln(w, header)

		for _, detail := range report.Details {
			if len(detail.Values) == 0 {
				continue
			}
			fmt.Fprintf(w, "  %s\n", scanCategoryStyle.Render(detail.Category+":"))
			for _, value := range detail.Values {
				fmt.Fprintf(w, "    %s %s\n", bulletStyle.Render("-"), scanValueStyle.Render(value))
			}
		}
		for _, note := range report.Notes {
			fmt.Fprintf(w, "  %s %s\n", noteKindStyle.Render(note.Kind+":"), dimStyle.Render(note.Message))
		}
	}
}

var (
	scanFileStyle     = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	scanCategoryStyle = lipgloss.NewStyle().Foreground(tui.ColorAccentAlt)
	scanValueStyle    = lipgloss.NewStyle().Foreground(tui.ColorInk)
	noteKindStyle     = lipgloss.NewStyle().Foreground(tui.ColorWarn)
	errorNameStyle    = lipgloss.NewStyle().Foreground(tui.ColorError)
	dimStyle          = lipgloss.NewStyle().Foreground(tui.ColorDim)
	bulletStyle       = lipgloss.NewStyle().Foreground(tui.ColorDim)
)

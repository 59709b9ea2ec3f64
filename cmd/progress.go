package cmd

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"stickerkit/internal/tui"
)

func addProgressFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-tui", false, "disable the progress display")
}

// progressUI shows snapshots from updates until the channel is closed or the
// user quits, and reports whether the user quit early.
type progressUI func(updates <-chan tui.Progress) (interrupted bool)

func teaProgress(title string) progressUI {
	return func(updates <-chan tui.Progress) bool {
		final, err := tea.NewProgram(tui.NewModel(title, updates)).Run()
		if err != nil {
			return false
		}
		m, ok := final.(tui.Model)
		return ok && m.Interrupted()
	}
}

// withProgress runs fn while a progress model renders what fn sends. Without a
// terminal, or with --no-tui, the snapshots are discarded.
func withProgress(ctx context.Context, cmd *cobra.Command, title string, fn func(ctx context.Context, updates chan<- tui.Progress) error) error {
	noTUI, _ := cmd.Flags().GetBool("no-tui")
	var ui progressUI
	if !noTUI && isatty.IsTerminal(os.Stdout.Fd()) {
		ui = teaProgress(title)
	}
	return runProgress(ctx, ui, fn)
}

// runProgress hands fn a context that is canceled when the user quits ui. The
// updates channel is read until fn returns, so fn never blocks on a display
// that has already gone away.
func runProgress(ctx context.Context, ui progressUI, fn func(ctx context.Context, updates chan<- tui.Progress) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan tui.Progress, 64)
	uiDone := make(chan struct{})
	go func() {
		defer close(uiDone)
		if ui != nil && ui(updates) {
			cancel()
		}
		for range updates {
		}
	}()

	err := fn(ctx, updates)
	close(updates)
	<-uiDone
	return err
}

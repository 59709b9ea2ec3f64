package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stickerkit/internal/tui"
)

func waitProgress(t *testing.T, ui progressUI, fn func(ctx context.Context, updates chan<- tui.Progress) error) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- runProgress(context.Background(), ui, fn) }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("runProgress did not return")
		return nil
	}
}

func TestProgressQuitCancelsAndDrains(t *testing.T) {
	quit := func(<-chan tui.Progress) bool { return true }

	sent := 0
	err := waitProgress(t, quit, func(ctx context.Context, updates chan<- tui.Progress) error {
		// Far more snapshots than the channel buffers, with nobody rendering them.
		for i := 0; i < 1000; i++ {
			updates <- tui.Progress{Phase: "loading", Current: i, Total: 1000}
			sent++
		}
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1000, sent)
}

func TestProgressCompletesNormally(t *testing.T) {
	var seen []int
	follow := func(updates <-chan tui.Progress) bool {
		for p := range updates {
			seen = append(seen, p.Current)
		}
		return false
	}

	boom := errors.New("boom")
	err := waitProgress(t, follow, func(ctx context.Context, updates chan<- tui.Progress) error {
		for i := 1; i <= 3; i++ {
			updates <- tui.Progress{Current: i, Total: 3}
		}
		assert.NoError(t, ctx.Err())
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestProgressWithoutDisplay(t *testing.T) {
	err := waitProgress(t, nil, func(ctx context.Context, updates chan<- tui.Progress) error {
		for i := 0; i < 200; i++ {
			updates <- tui.Progress{Current: i}
		}
		return ctx.Err()
	})
	assert.NoError(t, err)
}

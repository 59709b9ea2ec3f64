package batch

import "errors"

var (
	// ErrBusy is returned when a run is requested while another one is active.
	ErrBusy = errors.New("a batch run is already active")
	// ErrUnknownItem is returned for ids that are not in the working set.
	ErrUnknownItem = errors.New("unknown item")
	// ErrRunFinished is returned by Step once the run is done.
	ErrRunFinished = errors.New("run already finished")
	// ErrItemPanic wraps a panic recovered while processing a single item.
	ErrItemPanic = errors.New("item processing panicked")
)

package batch

import (
	"github.com/google/uuid"

	"stickerkit/internal/raster"
)

// Status is the lifecycle position of one item.
type Status int

const (
	StatusPending Status = iota
	StatusLoading
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Phase is what the orchestrator is doing right now.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseApplying
	PhaseCompressing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseApplying:
		return "applying"
	case PhaseCompressing:
		return "compressing"
	default:
		return "unknown"
	}
}

// Source is one raw input. BeginIngest takes ownership of Data; callers must not
// modify it afterwards.
type Source struct {
	Name string
	Data []byte
}

// Item is a snapshot of one working-set entry. Source and Thumbnail are shared
// with the orchestrator and must be treated as read-only.
type Item struct {
	ID        uuid.UUID
	Name      string
	Source    []byte
	Canonical raster.PixelBuffer
	Thumbnail []byte
	Status    Status
	Error     string
}

// State is the progress snapshot published after every transition.
type State struct {
	Processing bool
	Phase      Phase
	Current    int
	Total      int
	// Failed counts items of the current run that ended in StatusError.
	Failed int
}

// Fraction is Current/Total, 0 when there is nothing to do.
func (s State) Fraction() float64 {
	if s.Total <= 0 {
		return 0
	}
	f := float64(s.Current) / float64(s.Total)
	if f > 1 {
		return 1
	}
	return f
}

// Observer receives every published State. It is called synchronously from the
// goroutine driving the run and must not call back into a Run.
type Observer func(State)

// Direction for Navigate.
type Direction int

const (
	Next Direction = iota
	Prev
)

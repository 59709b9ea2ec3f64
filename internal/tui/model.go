package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"stickerkit/internal/batch"
)

// Progress is one snapshot of a running job.
type Progress struct {
	Phase    string
	Current  int
	Total    int
	Failed   int
	Rejected int
}

// FromState converts an orchestrator snapshot.
func FromState(s batch.State) Progress {
	return Progress{Phase: s.Phase.String(), Current: s.Current, Total: s.Total, Failed: s.Failed}
}

type Model struct {
	title    string
	updates  <-chan Progress
	started  time.Time
	width    int
	progress Progress
	quitting bool
	// interrupted is set when the user quit with Ctrl-C before the job ended.
	interrupted bool
}

type doneMsg struct{}

type updateMsg Progress

// NewModel renders snapshots from updates until the channel is closed.
func NewModel(title string, updates <-chan Progress) Model {
	return Model{title: title, updates: updates, started: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.progress = Progress(msg)
		return m, listenForUpdates(m.updates)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			m.interrupted = true
			return m, tea.Quit
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

// Interrupted reports whether the user quit the display before the job ended.
func (m Model) Interrupted() bool { return m.interrupted }

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = max(20, min(60, m.width-10))
	}

	ratio := 0.0
	if m.progress.Total > 0 {
		ratio = math.Min(1, float64(m.progress.Current)/float64(m.progress.Total))
	}

	phase := m.progress.Phase
	if phase == "" {
		phase = "starting"
	}
	counts := fmt.Sprintf("  failed:%d", m.progress.Failed)
	if m.progress.Rejected > 0 {
		counts += fmt.Sprintf(" rejected:%d", m.progress.Rejected)
	}

	lines := []string{
		titleStyle.Render(m.title),
		labelStyle.Render(fmt.Sprintf("%s: %d/%d", phase, m.progress.Current, m.progress.Total)) + dimStyle.Render(counts),
		dimStyle.Render(fmt.Sprintf("Elapsed: %s", time.Since(m.started).Round(time.Millisecond))),
		barStyle.Render(renderBar(barWidth, ratio)),
	}
	return strings.Join(lines, "\n")
}

func listenForUpdates(updates <-chan Progress) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	filled = max(0, min(width, filled))
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	labelStyle = lipgloss.NewStyle().Foreground(ColorInk)
	barStyle   = lipgloss.NewStyle().Foreground(ColorSuccess)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorDim)
)

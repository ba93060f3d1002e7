// Package tui provides a Bubble Tea terminal dashboard for the media
// download manager.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chatvault/mediadl/internal/download"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC")).
			Width(18)

	valueStyle = lipgloss.NewStyle().
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)
)

// pollInterval is how often the dashboard refreshes from the manager.
const pollInterval = 500 * time.Millisecond

// Model is the Bubble Tea model for the stats dashboard.
type Model struct {
	manager *download.Manager
	spinner spinner.Model
	stats   download.Stats

	width  int
	height int
}

// NewModel creates a dashboard model over a running manager.
func NewModel(manager *download.Manager) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))

	return Model{
		manager: manager,
		spinner: sp,
		stats:   manager.Stats(),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tick())
}

// TickMsg requests a fresh stats snapshot.
type TickMsg struct{}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		m.stats = m.manager.Stats()
		return m, m.tick()
	}

	return m, nil
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(pollInterval, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Media Download Manager"))
	b.WriteString("\n")
	b.WriteString(m.spinner.View())
	b.WriteString(dimStyle.Render(" watching"))
	b.WriteString("\n\n")

	b.WriteString(boxStyle.Render(m.viewStats()))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("q: quit"))

	return b.String()
}

func (m Model) viewStats() string {
	var b strings.Builder

	s := m.stats

	row := func(label string, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	row("Processed", valueStyle.Render(fmt.Sprintf("%d", s.Processed)))
	row("Downloaded", successStyle.Render(fmt.Sprintf("%d", s.Downloaded)))
	row("Deduplicated", valueStyle.Render(fmt.Sprintf("%d", s.Deduplicated)))
	row("Errors", errorStyle.Render(fmt.Sprintf("%d", s.Errors)))
	row("Dropped", warningStyle.Render(fmt.Sprintf("%d", s.Dropped)))
	row("Retries", warningStyle.Render(fmt.Sprintf("%d", s.Retries)))
	b.WriteString("\n")
	row("Queue", fmt.Sprintf("%d waiting, %d delayed", s.QueueLength, s.DelayedLength))
	row("Active", fmt.Sprintf("%d", s.ActiveDownloads))
	row("Cache entries", fmt.Sprintf("%d", s.CacheSize))
	row("Breaker", m.breakerView(s))

	return b.String()
}

func (m Model) breakerView(s download.Stats) string {
	label := fmt.Sprintf("%s (%d trips)", s.BreakerState, s.BreakerTrips)
	switch s.BreakerState {
	case "open":
		return errorStyle.Render(label)
	case "half-open":
		return warningStyle.Render(label)
	default:
		return successStyle.Render(label)
	}
}

// Run starts the dashboard over the given manager and blocks until quit.
func Run(manager *download.Manager) error {
	p := tea.NewProgram(NewModel(manager), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Package dashboard is a live terminal view of host CPU and RAM
// utilization over a rolling window of samples.
package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/weiihann/stackbench/sampler"
)

// SampleMsg announces that a new sample is in the window.
type SampleMsg sampler.Sample

// Window is the rolling sample buffer the dashboard draws from.
type Window interface {
	Snapshot() sampler.Series
}

const (
	cpuColor   = lipgloss.Color("196")
	memColor   = lipgloss.Color("33")
	labelWidth = 16
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

// Model is the Bubble Tea model of the dashboard.
type Model struct {
	window   Window
	capacity int
	interval time.Duration

	series sampler.Series
	width  int

	keys KeyMap
	help help.Model
}

// NewModel creates a Model drawing from window.
func NewModel(window Window, capacity int, interval time.Duration) Model {
	return Model{
		window:   window,
		capacity: capacity,
		interval: interval,
		keys:     DefaultKeyMap(),
		help:     help.New(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}

	case SampleMsg:
		m.series = m.window.Snapshot()
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("stackbench monitor"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  every %s, %d/%d samples",
		m.interval, len(m.series), m.capacity)))
	b.WriteString("\n\n")

	last, ok := m.series.Last()
	if !ok {
		b.WriteString(dimStyle.Render("waiting for first sample..."))
		b.WriteString("\n\n")
		b.WriteString(m.help.View(m.keys))

		return b.String()
	}

	cpu := make([]float64, len(m.series))
	mem := make([]float64, len(m.series))
	for i, s := range m.series {
		cpu[i] = s.CPUPercent
		mem[i] = s.MemPercent
	}

	width := m.capacity
	if m.width > labelWidth {
		width = min(width, m.width-labelWidth)
	}

	fmt.Fprintf(&b, "CPU %6.1f%%  %s\n", last.CPUPercent, NewSparkline(cpu, width, cpuColor).Render())
	fmt.Fprintf(&b, "RAM %6.1f%%  %s\n", last.MemPercent, NewSparkline(mem, width, memColor).Render())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

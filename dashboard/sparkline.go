package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// sparkBlocks are Unicode block elements for 8 levels of height.
var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders percentages as a Unicode bar chart on a fixed 0..100
// scale, so bars from different windows stay comparable.
type Sparkline struct {
	Data  []float64
	Width int
	Color lipgloss.Color
}

// NewSparkline creates a sparkline with default styling.
func NewSparkline(data []float64, width int, c lipgloss.Color) Sparkline {
	return Sparkline{
		Data:  data,
		Width: width,
		Color: c,
	}
}

// Render produces the sparkline string. When there are more points than
// columns the most recent ones are shown.
func (s Sparkline) Render() string {
	data := s.Data
	if s.Width > 0 && len(data) > s.Width {
		data = data[len(data)-s.Width:]
	}

	if len(data) == 0 {
		return ""
	}

	var b strings.Builder

	for _, v := range data {
		b.WriteRune(sparkBlocks[level(v)])
	}

	return lipgloss.NewStyle().Foreground(s.Color).Render(b.String())
}

func level(v float64) int {
	idx := int(v / 100 * 7)
	if idx > 7 {
		return 7
	}
	if idx < 0 {
		return 0
	}

	return idx
}

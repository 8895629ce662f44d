// Package meter draws the output level as a fixed-width bar on a terminal.
package meter

import (
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/samber/lo"
)

const (
	DefaultWidth = 20
	DefaultGlyph = '█'
)

var (
	filledColor   = lipgloss.Color("11")
	unfilledColor = lipgloss.Color("238")
)

// Meter redraws a level bar from the top left of the screen on every Draw.
type Meter struct {
	Width int
	Glyph rune

	out      *termenv.Output
	filled   lipgloss.Style
	unfilled lipgloss.Style
}

// New returns a Meter writing to w. Colors are only emitted when w is a color capable terminal.
func New(w io.Writer, width int) *Meter {
	if width <= 0 {
		width = DefaultWidth
	}

	r := lipgloss.NewRenderer(w)

	return &Meter{
		Width:    width,
		Glyph:    DefaultGlyph,
		out:      termenv.NewOutput(w),
		filled:   r.NewStyle().Foreground(filledColor),
		unfilled: r.NewStyle().Foreground(unfilledColor).Faint(true),
	}
}

// Filled returns the number of glyph cells lit for level, rounded to the nearest cell.
func (m *Meter) Filled(level float64) int {
	if math.IsNaN(level) {
		return 0
	}
	return int(math.Round(lo.Clamp(level, 0, 1) * float64(m.Width)))
}

// Bar renders the bar for level without any cursor control.
func (m *Meter) Bar(level float64) string {
	n := m.Filled(level)
	glyph := string(m.Glyph)

	var b strings.Builder
	b.WriteString(m.filled.Render(strings.Repeat(glyph, n)))
	if n < m.Width {
		b.WriteString(m.unfilled.Render(strings.Repeat(" ", m.Width-n)))
	}
	return b.String()
}

// Draw clears the screen, homes the cursor and writes the bar.
func (m *Meter) Draw(level float64) error {
	m.out.ClearScreen()
	m.out.MoveCursor(1, 1)
	_, err := m.out.WriteString(m.Bar(level))
	return err
}

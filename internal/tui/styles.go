package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"penguindash/internal/views"
)

var (
	primary = lipgloss.Color("#101F38")
	accent  = lipgloss.Color("#8BC34A")
	muted   = lipgloss.Color("#6b7280")
	border  = lipgloss.Color("#2a3850")
)

// Styles groups the lipgloss styles the dashboard renders with.
type Styles struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Focused  lipgloss.Style
	Muted    lipgloss.Style
	Box      lipgloss.Style
	BoxLabel lipgloss.Style
	BoxValue lipgloss.Style
	Help     lipgloss.Style
}

// DefaultStyles returns the dashboard palette.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1),
		Label:    lipgloss.NewStyle().Bold(true),
		Focused:  lipgloss.NewStyle().Bold(true).Foreground(accent),
		Muted:    lipgloss.NewStyle().Foreground(muted),
		Box:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border).Padding(0, 1).Width(22),
		BoxLabel: lipgloss.NewStyle().Foreground(muted),
		BoxValue: lipgloss.NewStyle().Bold(true).Foreground(primary),
		Help:     lipgloss.NewStyle().Foreground(muted).MarginTop(1),
	}
}

// seriesStyle colors the i-th histogram series like the PNG chart.
func seriesStyle(i int) lipgloss.Style {
	c := views.SeriesColor(i)
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)))
}

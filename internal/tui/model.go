// Package tui is the terminal dashboard: a mass slider, species checkboxes,
// value boxes, a body mass histogram and the data table for one session.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"penguindash/internal/core"
	"penguindash/internal/dashboard"
	"penguindash/internal/views"
)

// Focus is the panel receiving navigation keys.
type Focus int

const (
	FocusControls Focus = iota
	FocusTable
)

// Options configures the model. Zero values select defaults.
type Options struct {
	Title string
	// Step is the slider increment; shift multiplies it by ten.
	Step float64
	// BarWidth is the widest histogram bar in cells.
	BarWidth int
	// TableHeight is the number of visible table rows.
	TableHeight int
}

// Model renders a dashboard session. Every key that changes a control is one
// event: it is applied to the session and the returned snapshot is rendered
// before the next message is handled.
type Model struct {
	session  *dashboard.Session
	controls core.Controls
	opts     Options
	styles   Styles
	printer  *message.Printer

	focus    Focus
	snap     dashboard.Snapshot
	table    table.Model
	width    int
	quitting bool
}

// New builds a model over s.
func New(s *dashboard.Session, opts Options) Model {
	if opts.Title == "" {
		opts.Title = "Penguins dashboard"
	}
	if opts.Step <= 0 {
		opts.Step = 50
	}
	if opts.BarWidth <= 0 {
		opts.BarWidth = 40
	}
	if opts.TableHeight <= 0 {
		opts.TableHeight = 10
	}
	columns := views.TableColumns()
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{Title: c, Width: max(len(c), 10)}
	}
	m := Model{
		session:  s,
		controls: s.Controls(),
		opts:     opts,
		styles:   DefaultStyles(),
		printer:  message.NewPrinter(language.English),
		table: table.New(
			table.WithColumns(cols),
			table.WithHeight(opts.TableHeight),
		),
	}
	m.render(s.Snapshot())
	return m
}

// Snapshot returns the snapshot currently on screen.
func (m Model) Snapshot() dashboard.Snapshot { return m.snap }

// Focus returns the focused panel.
func (m Model) Focus() Focus { return m.focus }

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "tab":
		if m.focus == FocusControls {
			m.focus = FocusTable
			m.table.Focus()
		} else {
			m.focus = FocusControls
			m.table.Blur()
		}
		return m, nil
	case "left", "right", "shift+left", "shift+right":
		m.moveSlider(key)
		return m, nil
	case "a":
		m.apply(core.Update{Species: append([]string{}, m.controls.Species.Choices...)})
		return m, nil
	case "n":
		m.apply(core.Update{Species: []string{}})
		return m, nil
	}
	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		if i := int(key[0] - '1'); i < len(m.controls.Species.Choices) {
			m.toggle(m.controls.Species.Choices[i])
		}
		return m, nil
	}
	if m.focus == FocusTable {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

// moveSlider steps the mass ceiling, keeping it within the slider bounds.
func (m *Model) moveSlider(key string) {
	delta := m.opts.Step
	if strings.HasPrefix(key, "shift+") {
		delta *= 10
	}
	if strings.HasSuffix(key, "left") {
		delta = -delta
	}
	current := m.snap.State.MassCeiling
	next := current + delta
	next = max(next, m.controls.Mass.Min)
	next = min(next, m.controls.Mass.Max)
	if next == current {
		return
	}
	m.apply(core.Update{MassCeiling: &next})
}

func (m *Model) toggle(species string) {
	selected := make([]string, 0, len(m.snap.State.Species)+1)
	found := false
	for _, s := range m.snap.State.Species {
		if s == species {
			found = true
			continue
		}
		selected = append(selected, s)
	}
	if !found {
		selected = append(selected, species)
	}
	m.apply(core.Update{Species: selected})
}

func (m *Model) apply(u core.Update) {
	m.render(m.session.Apply(u))
}

func (m *Model) render(snap dashboard.Snapshot) {
	m.snap = snap
	rows := make([]table.Row, len(snap.Table.Rows))
	for i, r := range snap.Table.Rows {
		row := make(table.Row, len(r))
		for j, cell := range r {
			row[j] = views.FormatCell(cell)
		}
		rows[i] = row
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(m.opts.Title))
	b.WriteString("\n")
	b.WriteString(m.viewControls())
	b.WriteString("\n\n")
	b.WriteString(m.viewBoxes())
	b.WriteString("\n\n")
	b.WriteString(m.viewChart())
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render("←/→ mass  shift+←/→ ×10  1-3 species  a all  n none  tab focus  q quit"))
	return b.String()
}

func (m Model) viewControls() string {
	label := m.styles.Label
	if m.focus == FocusControls {
		label = m.styles.Focused
	}
	slider := m.controls.Mass
	ceiling := m.snap.State.MassCeiling

	const width = 30
	filled := 0
	if slider.Max > slider.Min {
		filled = int((ceiling - slider.Min) / (slider.Max - slider.Min) * width)
	}
	filled = min(max(filled, 0), width)
	bar := strings.Repeat("━", filled) + "●" + strings.Repeat("─", width-filled)

	var b strings.Builder
	b.WriteString(label.Render(slider.Label))
	b.WriteString(" ")
	b.WriteString(m.printer.Sprintf("%.0f", slider.Min))
	b.WriteString(" ")
	b.WriteString(bar)
	b.WriteString(" ")
	b.WriteString(m.printer.Sprintf("%.0f", slider.Max))
	b.WriteString("  ≤ ")
	b.WriteString(m.printer.Sprintf("%.0f g", ceiling))
	b.WriteString("\n")
	b.WriteString(label.Render(m.controls.Species.Label))
	for i, choice := range m.controls.Species.Choices {
		box := "[ ]"
		if m.snap.State.Selected(choice) {
			box = "[x]"
		}
		b.WriteString(m.printer.Sprintf("  %s %d %s", box, i+1, choice))
	}
	return b.String()
}

func (m Model) viewBoxes() string {
	text := m.snap.Summary.Text
	count := text.Count
	if m.snap.Summary.Count > 0 {
		count = m.printer.Sprintf("%d", m.snap.Summary.Count)
	}
	box := func(label, value string) string {
		return m.styles.Box.Render(m.styles.BoxLabel.Render(label) + "\n" + m.styles.BoxValue.Render(value))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		box("Number of penguins", count),
		box("Average bill length", text.MeanBillLength),
		box("Average bill depth", text.MeanBillDepth),
	)
}

// viewChart draws one stacked horizontal bar per histogram bin.
func (m Model) viewChart() string {
	h := m.snap.Chart
	if h.Total == 0 || len(h.Bins) == 0 {
		return m.styles.Muted.Render(views.Placeholder) + "\n"
	}
	peak := h.Max()
	var b strings.Builder
	for i, bin := range h.Bins {
		b.WriteString(m.printer.Sprintf("%6.0f-%-6.0f ", bin.Lower, bin.Upper))
		total := 0
		for s, series := range h.Series {
			n := series.Counts[i]
			total += n
			cells := n * m.opts.BarWidth / peak
			if n > 0 && cells == 0 {
				cells = 1
			}
			b.WriteString(seriesStyle(s).Render(strings.Repeat("█", cells)))
		}
		if total > 0 {
			b.WriteString(m.printer.Sprintf(" %d", total))
		}
		b.WriteString("\n")
	}
	legend := make([]string, len(h.Series))
	for s, series := range h.Series {
		legend[s] = seriesStyle(s).Render("█") + " " + series.Species
	}
	b.WriteString(strings.Join(legend, "  "))
	b.WriteString("\n")
	return b.String()
}

// Package dashboard hosts interactive sessions: one filter controller per
// client with its display consumers, serialized per session.
package dashboard

import (
	"penguindash/internal/core"
	"penguindash/internal/views"
)

// Snapshot is every consumer's output for a single state version.
type Snapshot struct {
	Version uint64           `json:"version"`
	State   core.FilterState `json:"state"`
	Summary views.Summary    `json:"summary"`
	Chart   views.Histogram  `json:"chart"`
	Table   views.Table      `json:"table"`
}

// Board holds the latest output of the summary, chart and table consumers.
// Render is subscribed to a controller and recomputes all three together.
type Board struct {
	bins  int
	order []string
	last  Snapshot
}

// NewBoard returns a board whose chart uses bins and lists series in order.
func NewBoard(bins int, order []string) *Board {
	return &Board{bins: bins, order: append([]string(nil), order...)}
}

// Render recomputes every consumer from v.
func (b *Board) Render(v core.View) {
	b.last = Snapshot{
		Version: v.Version,
		State:   v.State.Clone(),
		Summary: views.Summarize(v),
		Chart:   views.NewHistogram(v, b.bins, b.order),
		Table:   views.NewTable(v),
	}
}

// Snapshot returns the outputs of the last Render.
func (b *Board) Snapshot() Snapshot { return b.last }

package views

import (
	"math"
	"sort"

	"penguindash/internal/core"
	"penguindash/pkg/domain"
)

// DefaultBins is the histogram bin count when none is configured.
const DefaultBins = 20

// Bin is the half-open interval [Lower, Upper); the last bin also includes
// its upper edge.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Series holds one species' count per bin.
type Series struct {
	Species string `json:"species"`
	Counts  []int  `json:"counts"`
}

// Histogram is the body mass distribution of a view grouped by species. All
// series share the same bin edges.
type Histogram struct {
	Version uint64   `json:"version"`
	Column  string   `json:"column"`
	Bins    []Bin    `json:"bins"`
	Series  []Series `json:"series"`
	Total   int      `json:"total"`
}

// Max returns the largest stacked bin height.
func (h Histogram) Max() int {
	best := 0
	for i := range h.Bins {
		sum := 0
		for _, s := range h.Series {
			sum += s.Counts[i]
		}
		if sum > best {
			best = sum
		}
	}
	return best
}

// NewHistogram bins the view's body masses. Series follow order; species in
// the view but not in order come after it, sorted. Species with no rows in
// the view get no series. bins <= 0 selects DefaultBins.
func NewHistogram(v core.View, bins int, order []string) Histogram {
	if bins <= 0 {
		bins = DefaultBins
	}
	h := Histogram{Version: v.Version, Column: domain.ColumnBodyMass, Bins: []Bin{}, Series: []Series{}}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range v.Records {
		if m, ok := finiteMeasure(r, domain.ColumnBodyMass); ok {
			lo = math.Min(lo, m)
			hi = math.Max(hi, m)
			h.Total++
		}
	}
	if h.Total == 0 {
		return h
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}
	n := float64(bins)
	width := (hi - lo) / n
	edge := func(i int) float64 { return lo + float64(i)*width }
	position := func(m float64) float64 { return (m - lo) / width }
	if math.IsInf(hi-lo, 0) {
		// The range overflows float64; work on halved values instead.
		half := (hi/2 - lo/2) / n
		edge = func(i int) float64 { f := float64(i) / n; return lo*(1-f) + hi*f }
		position = func(m float64) float64 { return (m/2 - lo/2) / half }
	}
	h.Bins = make([]Bin, bins)
	for i := range h.Bins {
		h.Bins[i] = Bin{Lower: edge(i), Upper: edge(i + 1)}
	}
	h.Bins[bins-1].Upper = hi

	counts := make(map[string][]int)
	for _, r := range v.Records {
		m, ok := finiteMeasure(r, domain.ColumnBodyMass)
		if !ok {
			continue
		}
		idx := bins - 1
		if pos := position(m); pos < n {
			idx = max(int(pos), 0)
		}
		if counts[r.Species] == nil {
			counts[r.Species] = make([]int, bins)
		}
		counts[r.Species][idx]++
	}
	for _, species := range seriesOrder(counts, order) {
		h.Series = append(h.Series, Series{Species: species, Counts: counts[species]})
	}
	return h
}

func seriesOrder(counts map[string][]int, order []string) []string {
	out := make([]string, 0, len(counts))
	listed := make(map[string]bool, len(order))
	for _, s := range order {
		if _, ok := counts[s]; ok && !listed[s] {
			out = append(out, s)
		}
		listed[s] = true
	}
	var rest []string
	for s := range counts {
		if !listed[s] {
			rest = append(rest, s)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

package core

import (
	"sort"

	"penguindash/pkg/domain"
)

// FilterState is the committed value of both controls. Species is a set held
// sorted and de-duplicated; it is never nil.
type FilterState struct {
	MassCeiling float64  `json:"mass"`
	Species     []string `json:"species"`
}

// NewFilterState normalizes species into a set. Values are kept verbatim:
// out-of-range ceilings and unknown labels are legal.
func NewFilterState(massCeiling float64, species []string) FilterState {
	return FilterState{MassCeiling: massCeiling, Species: normalizeSpecies(species)}
}

func normalizeSpecies(values []string) []string {
	out := make([]string, 0, len(values))
	out = append(out, values...)
	sort.Strings(out)
	w := 0
	for i, v := range out {
		if i > 0 && v == out[w-1] {
			continue
		}
		out[w] = v
		w++
	}
	return out[:w]
}

// Selected reports whether species is in the selected set.
func (s FilterState) Selected(species string) bool {
	i := sort.SearchStrings(s.Species, species)
	return i < len(s.Species) && s.Species[i] == species
}

// Matches applies both predicates. A record without a body mass never
// satisfies the ceiling.
func (s FilterState) Matches(r *domain.Record) bool {
	if r.BodyMassG == nil || !(*r.BodyMassG < s.MassCeiling) {
		return false
	}
	return s.Selected(r.Species)
}

// Clone returns a copy that shares no memory with s.
func (s FilterState) Clone() FilterState {
	return FilterState{MassCeiling: s.MassCeiling, Species: append([]string{}, s.Species...)}
}

// Equal reports whether both states select the same rows.
func (s FilterState) Equal(o FilterState) bool {
	if s.MassCeiling != o.MassCeiling || len(s.Species) != len(o.Species) {
		return false
	}
	for i := range s.Species {
		if s.Species[i] != o.Species[i] {
			return false
		}
	}
	return true
}

// View is the filtered subsequence of the dataset for one state version.
// Indices holds the dataset positions of Records, ascending.
type View struct {
	Version uint64          `json:"version"`
	State   FilterState     `json:"state"`
	Indices []int           `json:"indices"`
	Records []domain.Record `json:"records"`
}

// Len returns the number of matching records.
func (v View) Len() int { return len(v.Records) }

// Empty reports whether no record matched.
func (v View) Empty() bool { return len(v.Records) == 0 }

// Clone returns a deep copy of v.
func (v View) Clone() View {
	out := View{
		Version: v.Version,
		State:   v.State.Clone(),
		Indices: append([]int{}, v.Indices...),
		Records: make([]domain.Record, len(v.Records)),
	}
	for i, r := range v.Records {
		out.Records[i] = r.Clone()
	}
	return out
}

// Filter derives the view of ds under state in a single ordered pass.
func Filter(ds *domain.Dataset, state FilterState) View {
	view := View{State: state.Clone(), Indices: []int{}, Records: []domain.Record{}}
	ds.Each(func(i int, r *domain.Record) bool {
		if state.Matches(r) {
			view.Indices = append(view.Indices, i)
			view.Records = append(view.Records, r.Clone())
		}
		return true
	})
	return view
}

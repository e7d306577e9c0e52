package core

import "penguindash/pkg/domain"

// Control names as they appear on every surface.
const (
	ControlMass    = "mass"
	ControlSpecies = "species"
)

// SliderControl describes the numeric mass-ceiling input.
type SliderControl struct {
	Name    string  `json:"name"`
	Label   string  `json:"label"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
	Step    float64 `json:"step"`
}

// CheckboxGroupControl describes the multi-select species input.
type CheckboxGroupControl struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Choices []string `json:"choices"`
	Default []string `json:"default"`
}

// Controls is the full set of filter inputs a surface renders.
type Controls struct {
	Mass    SliderControl        `json:"mass"`
	Species CheckboxGroupControl `json:"species"`
}

// DefaultControls returns the slider [2000, 6000] defaulting to 6000 and the
// species group defaulting to every species.
func DefaultControls() Controls {
	return Controls{
		Mass: SliderControl{
			Name:    ControlMass,
			Label:   "Mass",
			Min:     2000,
			Max:     6000,
			Default: 6000,
			Step:    1,
		},
		Species: CheckboxGroupControl{
			Name:    ControlSpecies,
			Label:   "Species",
			Choices: domain.AllSpecies(),
			Default: domain.AllSpecies(),
		},
	}
}

// InitialState is the filter state a fresh controller starts from.
func (c Controls) InitialState() FilterState {
	return NewFilterState(c.Mass.Default, c.Species.Default)
}

func (c Controls) clone() Controls {
	out := c
	out.Species.Choices = append([]string(nil), c.Species.Choices...)
	out.Species.Default = append([]string(nil), c.Species.Default...)
	return out
}

// Package domain defines the penguin measurement record and the immutable
// dataset shared by every dashboard component.
package domain

// Species labels present in the Palmer penguins data.
const (
	SpeciesAdelie    = "Adelie"
	SpeciesGentoo    = "Gentoo"
	SpeciesChinstrap = "Chinstrap"
)

// Column names, matching the palmerpenguins CSV header.
const (
	ColumnSpecies       = "species"
	ColumnIsland        = "island"
	ColumnBillLength    = "bill_length_mm"
	ColumnBillDepth     = "bill_depth_mm"
	ColumnFlipperLength = "flipper_length_mm"
	ColumnBodyMass      = "body_mass_g"
	ColumnSex           = "sex"
	ColumnYear          = "year"
)

// AllSpecies returns the known species labels in display order.
func AllSpecies() []string {
	return []string{SpeciesAdelie, SpeciesGentoo, SpeciesChinstrap}
}

// AllColumns returns every column of a Record in source order.
func AllColumns() []string {
	return []string{
		ColumnSpecies, ColumnIsland, ColumnBillLength, ColumnBillDepth,
		ColumnFlipperLength, ColumnBodyMass, ColumnSex, ColumnYear,
	}
}

// Record is one measured penguin. Measurements are nil when the source cell
// was missing ("NA").
type Record struct {
	Species         string   `json:"species"`
	Island          string   `json:"island"`
	BillLengthMM    *float64 `json:"bill_length_mm"`
	BillDepthMM     *float64 `json:"bill_depth_mm"`
	FlipperLengthMM *float64 `json:"flipper_length_mm"`
	BodyMassG       *float64 `json:"body_mass_g"`
	Sex             string   `json:"sex,omitempty"`
	Year            int      `json:"year,omitempty"`
}

// Float returns a pointer to v for populating optional measurements.
func Float(v float64) *float64 {
	return &v
}

// Measure returns the numeric measurement stored under column and whether it
// is present. Unknown and non-numeric columns report false.
func (r Record) Measure(column string) (float64, bool) {
	var p *float64
	switch column {
	case ColumnBillLength:
		p = r.BillLengthMM
	case ColumnBillDepth:
		p = r.BillDepthMM
	case ColumnFlipperLength:
		p = r.FlipperLengthMM
	case ColumnBodyMass:
		p = r.BodyMassG
	case ColumnYear:
		if r.Year == 0 {
			return 0, false
		}
		return float64(r.Year), true
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Value returns the cell stored under column as a plain value: a string for
// text columns, a float64 for present measurements and nil otherwise.
func (r Record) Value(column string) any {
	switch column {
	case ColumnSpecies:
		return r.Species
	case ColumnIsland:
		return r.Island
	case ColumnSex:
		if r.Sex == "" {
			return nil
		}
		return r.Sex
	}
	if v, ok := r.Measure(column); ok {
		return v
	}
	return nil
}

// IsNumeric reports whether column holds measurements.
func IsNumeric(column string) bool {
	switch column {
	case ColumnBillLength, ColumnBillDepth, ColumnFlipperLength, ColumnBodyMass, ColumnYear:
		return true
	default:
		return false
	}
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	dup := r
	dup.BillLengthMM = cloneFloat(r.BillLengthMM)
	dup.BillDepthMM = cloneFloat(r.BillDepthMM)
	dup.FlipperLengthMM = cloneFloat(r.FlipperLengthMM)
	dup.BodyMassG = cloneFloat(r.BodyMassG)
	return dup
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

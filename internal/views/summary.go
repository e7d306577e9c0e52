// Package views derives the dashboard's display outputs from a filtered view.
// Every function here is pure: the same view always renders the same output.
package views

import (
	"fmt"
	"math"
	"strconv"

	"penguindash/internal/core"
	"penguindash/pkg/domain"
)

// Placeholder is rendered in place of a statistic that has no inputs.
const Placeholder = "no data"

// Mean is an arithmetic mean that is invalid when computed over no values.
type Mean struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// Format renders the mean with one decimal and unit, or Placeholder.
func (m Mean) Format(unit string) string {
	if !m.Valid {
		return Placeholder
	}
	return fmt.Sprintf("%.1f %s", m.Value, unit)
}

// SummaryText is the display form of a Summary.
type SummaryText struct {
	Count          string `json:"count"`
	MeanBillLength string `json:"mean_bill_length"`
	MeanBillDepth  string `json:"mean_bill_depth"`
	MeanBodyMass   string `json:"mean_body_mass"`
}

// Summary holds the value boxes for one view.
type Summary struct {
	Version        uint64      `json:"version"`
	Count          int         `json:"count"`
	MeanBillLength Mean        `json:"mean_bill_length"`
	MeanBillDepth  Mean        `json:"mean_bill_depth"`
	MeanBodyMass   Mean        `json:"mean_body_mass"`
	Text           SummaryText `json:"text"`
}

// Summarize counts the view and averages its measurements, skipping missing
// values.
func Summarize(v core.View) Summary {
	s := Summary{
		Version:        v.Version,
		Count:          v.Len(),
		MeanBillLength: meanOf(v.Records, domain.ColumnBillLength),
		MeanBillDepth:  meanOf(v.Records, domain.ColumnBillDepth),
		MeanBodyMass:   meanOf(v.Records, domain.ColumnBodyMass),
	}
	s.Text = SummaryText{
		Count:          strconv.Itoa(s.Count),
		MeanBillLength: s.MeanBillLength.Format("mm"),
		MeanBillDepth:  s.MeanBillDepth.Format("mm"),
		MeanBodyMass:   s.MeanBodyMass.Format("g"),
	}
	return s
}

func meanOf(records []domain.Record, column string) Mean {
	var sum float64
	n := 0
	for _, r := range records {
		if v, ok := finiteMeasure(r, column); ok {
			sum += v
			n++
		}
	}
	mean := sum / float64(n)
	if n == 0 || math.IsNaN(mean) || math.IsInf(mean, 0) {
		return Mean{}
	}
	return Mean{Value: mean, Valid: true}
}

// finiteMeasure is Record.Measure with NaN and infinities treated as missing.
func finiteMeasure(r domain.Record, column string) (float64, bool) {
	v, ok := r.Measure(column)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

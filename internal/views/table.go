package views

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"penguindash/internal/core"
	"penguindash/pkg/domain"
)

// TableColumns is the projection shown by the data table.
func TableColumns() []string {
	return []string{
		domain.ColumnSpecies, domain.ColumnIsland, domain.ColumnBillLength,
		domain.ColumnBillDepth, domain.ColumnBodyMass,
	}
}

// Table is the projected view. Cells are strings, float64 or nil for missing
// values. Indices are the dataset positions of Rows.
type Table struct {
	Version uint64   `json:"version"`
	Columns []string `json:"columns"`
	Indices []int    `json:"indices"`
	Rows    [][]any  `json:"rows"`
}

// NewTable projects every record of the view onto TableColumns.
func NewTable(v core.View) Table {
	cols := TableColumns()
	t := Table{
		Version: v.Version,
		Columns: cols,
		Indices: append([]int{}, v.Indices...),
		Rows:    make([][]any, len(v.Records)),
	}
	for i, r := range v.Records {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = r.Value(c)
		}
		t.Rows[i] = row
	}
	return t
}

// TableQuery is the table's own sorting and filtering. It narrows what the
// table shows and never feeds back into the filter state.
type TableQuery struct {
	SortBy     string
	Descending bool
	// Contains keeps rows whose cell contains the substring, case-insensitively.
	Contains map[string]string
	// Min and Max bound numeric columns inclusively; missing cells fail both.
	Min map[string]float64
	Max map[string]float64
}

// IsZero reports whether q leaves the table unchanged.
func (q TableQuery) IsZero() bool {
	return q.SortBy == "" && len(q.Contains) == 0 && len(q.Min) == 0 && len(q.Max) == 0
}

// Query returns the rows of t that pass q, sorted when SortBy is set. Sorting
// is stable and places missing values last in both directions.
func (t Table) Query(q TableQuery) (Table, error) {
	pos := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		pos[c] = i
	}
	lookup := func(col string) (int, error) {
		i, ok := pos[col]
		if !ok {
			return 0, fmt.Errorf("unknown table column %q", col)
		}
		return i, nil
	}

	ranges := map[int]*rangeFilter{}
	addBound := func(col string, v float64, isMin bool) error {
		i, err := lookup(col)
		if err != nil {
			return err
		}
		if !domain.IsNumeric(col) {
			return fmt.Errorf("range filter on text column %q", col)
		}
		rf := ranges[i]
		if rf == nil {
			rf = &rangeFilter{}
			ranges[i] = rf
		}
		if isMin {
			rf.min, rf.hasMin = v, true
		} else {
			rf.max, rf.hasMax = v, true
		}
		return nil
	}
	for col, v := range q.Min {
		if err := addBound(col, v, true); err != nil {
			return Table{}, err
		}
	}
	for col, v := range q.Max {
		if err := addBound(col, v, false); err != nil {
			return Table{}, err
		}
	}
	contains := make(map[int]string, len(q.Contains))
	for col, sub := range q.Contains {
		i, err := lookup(col)
		if err != nil {
			return Table{}, err
		}
		contains[i] = strings.ToLower(sub)
	}
	sortCol := -1
	if q.SortBy != "" {
		i, err := lookup(q.SortBy)
		if err != nil {
			return Table{}, err
		}
		sortCol = i
	}

	out := Table{Version: t.Version, Columns: append([]string{}, t.Columns...), Indices: []int{}, Rows: [][]any{}}
	for r, row := range t.Rows {
		if !rowPasses(row, contains, ranges) {
			continue
		}
		out.Rows = append(out.Rows, row)
		out.Indices = append(out.Indices, t.Indices[r])
	}
	if sortCol < 0 {
		return out, nil
	}

	order := make([]int, len(out.Rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return cellLess(out.Rows[order[a]][sortCol], out.Rows[order[b]][sortCol], q.Descending)
	})
	rows := make([][]any, len(order))
	indices := make([]int, len(order))
	for i, o := range order {
		rows[i] = out.Rows[o]
		indices[i] = out.Indices[o]
	}
	out.Rows, out.Indices = rows, indices
	return out, nil
}

type rangeFilter struct {
	min, max       float64
	hasMin, hasMax bool
}

func (f *rangeFilter) admits(cell any) bool {
	v, ok := cell.(float64)
	if !ok {
		return false
	}
	if f.hasMin && v < f.min {
		return false
	}
	if f.hasMax && v > f.max {
		return false
	}
	return true
}

func rowPasses(row []any, contains map[int]string, ranges map[int]*rangeFilter) bool {
	for i, sub := range contains {
		if !strings.Contains(strings.ToLower(FormatCell(row[i])), sub) {
			return false
		}
	}
	for i, rf := range ranges {
		if !rf.admits(row[i]) {
			return false
		}
	}
	return true
}

// cellLess orders cells ascending (or descending), always putting nil last.
func cellLess(a, b any, desc bool) bool {
	if a == nil || b == nil {
		return a != nil && b == nil
	}
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return false
		}
		if desc {
			return av > bv
		}
		return av < bv
	case string:
		bv, ok := b.(string)
		if !ok {
			return false
		}
		if desc {
			return av > bv
		}
		return av < bv
	}
	return false
}

// FormatCell renders a table cell as text; missing cells are empty.
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	default:
		return fmt.Sprint(val)
	}
}

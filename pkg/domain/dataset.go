package domain

// Dataset is the ordered, immutable collection of records loaded at startup.
// Every accessor hands out copies so callers cannot mutate shared state.
type Dataset struct {
	records []Record
	source  string
}

// NewDataset builds a dataset from records, copying them.
func NewDataset(source string, records []Record) *Dataset {
	cp := make([]Record, len(records))
	for i, r := range records {
		cp[i] = r.Clone()
	}
	return &Dataset{records: cp, source: source}
}

// Source describes where the dataset was loaded from.
func (d *Dataset) Source() string {
	if d == nil {
		return ""
	}
	return d.source
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// At returns a copy of the record at index i.
func (d *Dataset) At(i int) Record {
	return d.records[i].Clone()
}

// Records returns a copy of all records in original order.
func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	out := make([]Record, len(d.records))
	for i, r := range d.records {
		out[i] = r.Clone()
	}
	return out
}

// Each calls fn for every record in order until fn returns false. The record
// passed to fn must not be retained or modified.
func (d *Dataset) Each(fn func(i int, r *Record) bool) {
	if d == nil {
		return
	}
	for i := range d.records {
		if !fn(i, &d.records[i]) {
			return
		}
	}
}

// Species returns the distinct species labels in first-seen order.
func (d *Dataset) Species() []string {
	if d == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, r := range d.records {
		if _, ok := seen[r.Species]; ok {
			continue
		}
		seen[r.Species] = struct{}{}
		out = append(out, r.Species)
	}
	return out
}

package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRecordMeasureAndValue(t *testing.T) {
	r := Record{Species: SpeciesGentoo, Island: "Biscoe", BillLengthMM: Float(46.1), BodyMassG: Float(4500), Year: 2007}
	if v, ok := r.Measure(ColumnBodyMass); !ok || v != 4500 {
		t.Fatalf("expected mass 4500, got %v %v", v, ok)
	}
	if _, ok := r.Measure(ColumnBillDepth); ok {
		t.Fatalf("expected missing bill depth")
	}
	if _, ok := r.Measure(ColumnIsland); ok {
		t.Fatalf("text columns are not measurements")
	}
	if got := r.Value(ColumnIsland); got != "Biscoe" {
		t.Fatalf("unexpected island %v", got)
	}
	if got := r.Value(ColumnSex); got != nil {
		t.Fatalf("expected nil sex, got %v", got)
	}
	if got := r.Value(ColumnYear); got != float64(2007) {
		t.Fatalf("unexpected year %v", got)
	}
}

func TestIsNumeric(t *testing.T) {
	for _, col := range AllColumns() {
		want := col != ColumnSpecies && col != ColumnIsland && col != ColumnSex
		if IsNumeric(col) != want {
			t.Fatalf("IsNumeric(%s) = %v", col, !want)
		}
	}
}

func TestRecordJSONMissingAsNull(t *testing.T) {
	data, err := json.Marshal(Record{Species: SpeciesAdelie, Island: "Dream"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"body_mass_g":null`) {
		t.Fatalf("expected null mass, got %s", data)
	}
	if strings.Contains(string(data), `"sex"`) {
		t.Fatalf("expected sex omitted, got %s", data)
	}
}

func TestDatasetCopiesRecords(t *testing.T) {
	src := []Record{{Species: SpeciesAdelie, BodyMassG: Float(3000)}}
	ds := NewDataset("test", src)
	*src[0].BodyMassG = 9999
	if *ds.At(0).BodyMassG != 3000 {
		t.Fatalf("dataset must not alias caller records")
	}
	out := ds.Records()
	*out[0].BodyMassG = 1
	if *ds.At(0).BodyMassG != 3000 {
		t.Fatalf("Records must return copies")
	}
}

func TestDatasetSpeciesFirstSeenOrder(t *testing.T) {
	ds := NewDataset("test", []Record{
		{Species: SpeciesGentoo}, {Species: SpeciesAdelie}, {Species: SpeciesGentoo},
	})
	got := ds.Species()
	if len(got) != 2 || got[0] != SpeciesGentoo || got[1] != SpeciesAdelie {
		t.Fatalf("unexpected species %v", got)
	}
}

func TestDatasetEachStops(t *testing.T) {
	ds := NewDataset("test", []Record{{Species: "a"}, {Species: "b"}, {Species: "c"}})
	var seen []string
	ds.Each(func(_ int, r *Record) bool {
		seen = append(seen, r.Species)
		return len(seen) < 2
	})
	if len(seen) != 2 {
		t.Fatalf("expected early stop, saw %v", seen)
	}
	var nilDS *Dataset
	if nilDS.Len() != 0 || nilDS.Records() != nil {
		t.Fatalf("nil dataset should be empty")
	}
}

package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"penguindash/internal/infra/source/sqlite"
	"penguindash/pkg/domain"
)

func TestLoadEmbeddedDefault(t *testing.T) {
	ds, err := Load(context.Background(), Config{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Len() != 344 {
		t.Fatalf("expected 344 embedded records, got %d", ds.Len())
	}
	species := ds.Species()
	if len(species) != 3 || species[0] != domain.SpeciesAdelie {
		t.Fatalf("unexpected species %v", species)
	}
	perSpecies := map[string]int{}
	missingMass := 0
	ds.Each(func(_ int, r *domain.Record) bool {
		perSpecies[r.Species]++
		if r.BodyMassG == nil {
			missingMass++
		}
		return true
	})
	if perSpecies[domain.SpeciesAdelie] != 152 || perSpecies[domain.SpeciesGentoo] != 124 || perSpecies[domain.SpeciesChinstrap] != 68 {
		t.Fatalf("unexpected species counts %v", perSpecies)
	}
	if missingMass != 2 || ds.At(3).BodyMassG != nil || ds.At(271).BodyMassG != nil {
		t.Fatalf("expected the two NA rows to have missing mass, got %d", missingMass)
	}
	if ds.Source() != "embedded:penguins.csv" {
		t.Fatalf("unexpected source %q", ds.Source())
	}
}

func TestLoadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.csv")
	body := "island,species,body_mass_g\nDream,Chinstrap,3500\nBiscoe,Gentoo,NA\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	ds, err := Load(context.Background(), Config{Driver: DriverCSV, Path: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", ds.Len())
	}
	first := ds.At(0)
	if first.Species != domain.SpeciesChinstrap || first.Island != "Dream" || *first.BodyMassG != 3500 {
		t.Fatalf("unexpected record %+v", first)
	}
}

func TestLoadFailuresAreDataUnavailable(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.csv")
	if err := os.WriteFile(empty, []byte("species,island\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	broken := filepath.Join(dir, "broken.csv")
	if err := os.WriteFile(broken, []byte("species,island,body_mass_g\nAdelie,Dream,heavy\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cases := map[string]Config{
		"missing file":  {Driver: DriverCSV, Path: filepath.Join(dir, "nope.csv")},
		"no path":       {Driver: DriverCSV},
		"zero records":  {Driver: DriverCSV, Path: empty},
		"parse failure": {Driver: DriverCSV, Path: broken},
		"missing db":    {Driver: DriverSQLite, Path: filepath.Join(dir, "nope.db")},
		"unknown":       {Driver: "excel"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(context.Background(), cfg)
			if !errors.Is(err, ErrDataUnavailable) {
				t.Fatalf("expected ErrDataUnavailable, got %v", err)
			}
			var ue *UnavailableError
			if !errors.As(err, &ue) {
				t.Fatalf("expected *UnavailableError, got %T", err)
			}
			if ue.Driver != cfg.Driver {
				t.Fatalf("expected driver %s, got %s", cfg.Driver, ue.Driver)
			}
		})
	}
}

func TestLoadSQLiteSeededFromEmbedded(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "penguins.db")
	records, err := EmbeddedRecords()
	if err != nil {
		t.Fatalf("EmbeddedRecords: %v", err)
	}
	store, err := sqlite.Open(path, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Seed(ctx, records); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_ = store.Close()

	ds, err := Load(ctx, Config{Driver: DriverSQLite, Path: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Len() != len(records) {
		t.Fatalf("expected %d records, got %d", len(records), ds.Len())
	}
	for i := range records {
		if ds.At(i).Species != records[i].Species || ds.At(i).Island != records[i].Island {
			t.Fatalf("row %d differs after round trip", i)
		}
	}
}

func TestDriverValid(t *testing.T) {
	for _, d := range Drivers() {
		if !d.Valid() {
			t.Fatalf("expected %s to be valid", d)
		}
	}
	if Driver("memory").Valid() {
		t.Fatalf("memory is not a dataset driver")
	}
}

func TestUnavailableErrorMessage(t *testing.T) {
	err := &UnavailableError{Driver: DriverCSV, Source: "x.csv", Err: errors.New("boom")}
	if !strings.Contains(err.Error(), "dataset unavailable") || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

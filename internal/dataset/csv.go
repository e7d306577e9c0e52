package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"penguindash/pkg/domain"
)

// ParseCSV reads records in the palmerpenguins layout. Columns are matched by
// header name in any order. "NA" and empty cells are missing values, as are
// NaN and infinities. species and island are required columns. Text cells
// are NFC-normalized so labels compare equal regardless of how the source
// encoded accents.
func ParseCSV(r io.Reader) ([]domain.Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{domain.ColumnSpecies, domain.ColumnIsland} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var out []domain.Record
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec, err := parseRow(index, row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseRow(index map[string]int, row []string) (domain.Record, error) {
	cell := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		v := norm.NFC.String(strings.TrimSpace(row[i]))
		if v == "NA" {
			return ""
		}
		return v
	}
	rec := domain.Record{
		Species: cell(domain.ColumnSpecies),
		Island:  cell(domain.ColumnIsland),
		Sex:     cell(domain.ColumnSex),
	}
	if rec.Species == "" {
		return rec, errors.New("empty species")
	}
	targets := []struct {
		col string
		dst **float64
	}{
		{domain.ColumnBillLength, &rec.BillLengthMM},
		{domain.ColumnBillDepth, &rec.BillDepthMM},
		{domain.ColumnFlipperLength, &rec.FlipperLengthMM},
		{domain.ColumnBodyMass, &rec.BodyMassG},
	}
	for _, t := range targets {
		raw := cell(t.col)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return rec, fmt.Errorf("column %s: %w", t.col, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		*t.dst = domain.Float(v)
	}
	if raw := cell(domain.ColumnYear); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			return rec, fmt.Errorf("column %s: %w", domain.ColumnYear, err)
		}
		rec.Year = y
	}
	return rec, nil
}

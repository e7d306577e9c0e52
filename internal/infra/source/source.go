// Package source holds the SQL shared by the relational dataset sources.
// Both SQLite and Postgres accept the same DDL; only placeholders differ.
package source

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"penguindash/pkg/domain"
)

// DefaultTable is the table read when no table name is configured.
const DefaultTable = "penguins"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CheckTable returns table (or DefaultTable when empty) after verifying it is
// a plain SQL identifier safe to interpolate.
func CheckTable(table string) (string, error) {
	if strings.TrimSpace(table) == "" {
		return DefaultTable, nil
	}
	if !identPattern.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// CreateTableSQL returns the DDL for the records table.
func CreateTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		row_no INTEGER NOT NULL PRIMARY KEY,
		species TEXT NOT NULL,
		island TEXT NOT NULL,
		bill_length_mm DOUBLE PRECISION,
		bill_depth_mm DOUBLE PRECISION,
		flipper_length_mm DOUBLE PRECISION,
		body_mass_g DOUBLE PRECISION,
		sex TEXT,
		year INTEGER
	)`, table)
}

// SelectSQL returns the ordered select over the records table.
func SelectSQL(table string) string {
	return fmt.Sprintf(`SELECT species, island, bill_length_mm, bill_depth_mm, flipper_length_mm, body_mass_g, sex, year FROM %s ORDER BY row_no`, table)
}

// InsertSQL returns the insert statement using placeholder(i) for the i-th
// (1-based) parameter.
func InsertSQL(table string, placeholder func(i int) string) string {
	params := make([]string, 9)
	for i := range params {
		params[i] = placeholder(i + 1)
	}
	return fmt.Sprintf(`INSERT INTO %s (row_no, species, island, bill_length_mm, bill_depth_mm, flipper_length_mm, body_mass_g, sex, year) VALUES (%s)`,
		table, strings.Join(params, ","))
}

// InsertArgs returns the parameters for inserting r at position rowNo.
func InsertArgs(rowNo int, r domain.Record) []any {
	var sex sql.NullString
	if r.Sex != "" {
		sex = sql.NullString{String: r.Sex, Valid: true}
	}
	var year sql.NullInt64
	if r.Year != 0 {
		year = sql.NullInt64{Int64: int64(r.Year), Valid: true}
	}
	return []any{
		rowNo, r.Species, r.Island,
		nullFloat(r.BillLengthMM), nullFloat(r.BillDepthMM), nullFloat(r.FlipperLengthMM), nullFloat(r.BodyMassG),
		sex, year,
	}
}

// ScanRecords drains rows produced by SelectSQL.
func ScanRecords(rows *sql.Rows) ([]domain.Record, error) {
	var out []domain.Record
	for rows.Next() {
		var r domain.Record
		var billLength, billDepth, flipper, mass sql.NullFloat64
		var sex sql.NullString
		var year sql.NullInt64
		if err := rows.Scan(&r.Species, &r.Island, &billLength, &billDepth, &flipper, &mass, &sex, &year); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.BillLengthMM = fromNull(billLength)
		r.BillDepthMM = fromNull(billDepth)
		r.FlipperLengthMM = fromNull(flipper)
		r.BodyMassG = fromNull(mass)
		if sex.Valid {
			r.Sex = sex.String
		}
		if year.Valid {
			r.Year = int(year.Int64)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return domain.Float(v.Float64)
}

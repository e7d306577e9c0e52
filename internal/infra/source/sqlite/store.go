// Package sqlite reads and seeds penguin records in an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"penguindash/internal/infra/source"
	"penguindash/pkg/domain"
)

// Store wraps a SQLite database holding one records table.
type Store struct {
	db    *sql.DB
	path  string
	table string
}

// Open opens (creating if needed) the SQLite file at path.
func Open(path, table string) (*Store, error) {
	if path == "" {
		path = "penguins.db"
	}
	tbl, err := source.CheckTable(table)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &Store{db: db, path: path, table: tbl}, nil
}

// Load returns every record in insertion order.
func (s *Store) Load(ctx context.Context) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, source.SelectSQL(s.table))
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", s.table, err)
	}
	defer func() { _ = rows.Close() }()
	return source.ScanRecords(rows)
}

// Seed replaces the table contents with records in a single transaction.
func (s *Store) Seed(ctx context.Context, records []domain.Record) (retErr error) {
	if _, err := s.db.ExecContext(ctx, source.CreateTableSQL(s.table)); err != nil {
		return fmt.Errorf("create %s table: %w", s.table, err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, s.table)); err != nil {
		return fmt.Errorf("clear %s: %w", s.table, err)
	}
	insert := source.InsertSQL(s.table, func(int) string { return "?" })
	for i, r := range records {
		if _, err := tx.ExecContext(ctx, insert, source.InsertArgs(i, r)...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

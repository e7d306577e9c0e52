// Package postgres reads and seeds penguin records in a PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"penguindash/internal/infra/source"
	"penguindash/pkg/domain"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/penguindash?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store wraps a PostgreSQL connection pool and one records table.
type Store struct {
	db    *sql.DB
	table string
}

// Open connects using dsn (falls back to defaultDSN) and pings the server.
func Open(ctx context.Context, dsn, table string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	tbl, err := source.CheckTable(table)
	if err != nil {
		return nil, err
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db, table: tbl}, nil
}

// Load returns every record ordered by row number.
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
		return fmt.Errorf("ensure %s table: %w", s.table, err)
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
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`TRUNCATE %s`, s.table)); err != nil {
		return fmt.Errorf("truncate %s: %w", s.table, err)
	}
	insert := source.InsertSQL(s.table, func(i int) string { return "$" + strconv.Itoa(i) })
	for i, r := range records {
		if _, err := tx.ExecContext(ctx, insert, source.InsertArgs(i, r)...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sql.Open implementation used by Open and returns
// a restore func. Tests use it to inject stub drivers.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}

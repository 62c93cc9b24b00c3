/*
Package sqlite provides a SQLite-backed repository.

KEY TABLES:

	filing_statuses      static catalog, keyed by code
	tax_years            rate constants, one row per year
	standard_deductions  amount per (tax_year, filing_status)
	tax_brackets         rate schedule rows per (tax_year, filing_status)
	estimates            stored estimates, input and result as JSON

Money and rates are stored as TEXT decimal strings so no value ever passes
through a float. Foreign keys are enforced; inserting a deduction or bracket
for an unseeded year or status fails with domain.ErrNotFound.

USAGE:

	repo, err := sqlite.New("./taxes.db")
	if err != nil {
	    log.Fatal(err)
	}
	defer repo.Close()

Use ":memory:" for a throwaway database. The schema is migrated on New.
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/rpgo/estimated-tax/internal/repository"
)

// BackendName is the registry key for this backend.
const BackendName = "sqlite"

// Store implements repository.Repository on SQLite.
type Store struct {
	db *sql.DB
}

var _ repository.Repository = (*Store)(nil)

// Factory registers the sqlite backend with a repository.Registry.
type Factory struct{}

func (Factory) Backend() string { return BackendName }

func (Factory) Open(ctx context.Context, cfg repository.DBConfig) (repository.Repository, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = "taxest.db"
	}
	return NewContext(ctx, dsn)
}

// New opens (creating if needed) the database at path and migrates it.
func New(path string) (*Store, error) {
	return NewContext(context.Background(), path)
}

// NewContext is New with a context for the initial migration.
func NewContext(ctx context.Context, path string) (*Store, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", path+sep+"_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a :memory: database exists per connection, and SQLite allows one writer anyway
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS filing_statuses (
		id INTEGER PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tax_years (
		tax_year INTEGER PRIMARY KEY,
		ss_wage_max TEXT NOT NULL,
		ss_tax_rate TEXT NOT NULL,
		medicare_tax_rate TEXT NOT NULL,
		se_tax_deductible_percentage TEXT NOT NULL,
		se_deduction_factor TEXT NOT NULL,
		required_payment_threshold TEXT NOT NULL,
		min_se_threshold TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS standard_deductions (
		tax_year INTEGER NOT NULL REFERENCES tax_years(tax_year) ON DELETE CASCADE,
		filing_status TEXT NOT NULL REFERENCES filing_statuses(code) ON DELETE CASCADE,
		amount TEXT NOT NULL,
		PRIMARY KEY (tax_year, filing_status)
	);

	CREATE TABLE IF NOT EXISTS tax_brackets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tax_year INTEGER NOT NULL REFERENCES tax_years(tax_year) ON DELETE CASCADE,
		filing_status TEXT NOT NULL REFERENCES filing_statuses(code) ON DELETE CASCADE,
		min_income TEXT NOT NULL,
		max_income TEXT,
		base_tax TEXT NOT NULL,
		tax_rate TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tax_brackets_schedule
		ON tax_brackets(tax_year, filing_status);

	CREATE TABLE IF NOT EXISTS estimates (
		id TEXT PRIMARY KEY,
		tax_year INTEGER NOT NULL,
		filing_status TEXT NOT NULL,
		input_json TEXT NOT NULL,
		result_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_estimates_tax_year
		ON estimates(tax_year);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// mapError translates SQLite constraint failures into domain sentinels.
func mapError(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch {
	case sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey:
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	case sqliteErr.Code == sqlite3.ErrConstraint:
		return fmt.Errorf("%w: %v", domain.ErrInvalidReferenceData, err)
	}
	return err
}

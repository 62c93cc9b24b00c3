// Package postgres is a PostgreSQL repository backend built on pgxpool.
//
// Amounts are stored as NUMERIC and always cross the wire as text, so
// values are parsed straight into decimal.Decimal.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/rpgo/estimated-tax/internal/repository"
	"github.com/shopspring/decimal"
)

// BackendName is the registry key for this backend.
const BackendName = "postgres"

// PostgreSQL SQLSTATE codes the store maps to domain errors.
const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

// Store implements repository.Repository on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ repository.Repository = (*Store)(nil)

// Factory registers the postgres backend with a repository.Registry.
type Factory struct{}

func (Factory) Backend() string { return BackendName }

func (Factory) Open(ctx context.Context, cfg repository.DBConfig) (repository.Repository, error) {
	return New(ctx, cfg.DSN)
}

// New connects to dsn, verifies the connection and migrates the schema.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres backend requires a DSN")
	}
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	store := &Store{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close releases every pooled connection.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
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
		ss_wage_max NUMERIC NOT NULL,
		ss_tax_rate NUMERIC NOT NULL,
		medicare_tax_rate NUMERIC NOT NULL,
		se_tax_deductible_percentage NUMERIC NOT NULL,
		se_deduction_factor NUMERIC NOT NULL,
		required_payment_threshold NUMERIC NOT NULL,
		min_se_threshold NUMERIC NOT NULL
	);

	CREATE TABLE IF NOT EXISTS standard_deductions (
		tax_year INTEGER NOT NULL REFERENCES tax_years(tax_year) ON DELETE CASCADE,
		filing_status TEXT NOT NULL REFERENCES filing_statuses(code) ON DELETE CASCADE ON UPDATE CASCADE,
		amount NUMERIC NOT NULL,
		PRIMARY KEY (tax_year, filing_status)
	);

	CREATE TABLE IF NOT EXISTS tax_brackets (
		id BIGSERIAL PRIMARY KEY,
		tax_year INTEGER NOT NULL REFERENCES tax_years(tax_year) ON DELETE CASCADE,
		filing_status TEXT NOT NULL REFERENCES filing_statuses(code) ON DELETE CASCADE ON UPDATE CASCADE,
		min_income NUMERIC NOT NULL,
		max_income NUMERIC,
		base_tax NUMERIC NOT NULL,
		tax_rate NUMERIC NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tax_brackets_schedule
		ON tax_brackets(tax_year, filing_status, min_income);

	CREATE TABLE IF NOT EXISTS estimates (
		id UUID PRIMARY KEY,
		tax_year INTEGER NOT NULL,
		filing_status TEXT NOT NULL,
		input JSONB NOT NULL,
		result JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_estimates_tax_year
		ON estimates(tax_year);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// mapError translates constraint violations into domain sentinels.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case foreignKeyViolation:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, pgErr.Message)
	case uniqueViolation:
		return fmt.Errorf("%w: %s", domain.ErrInvalidReferenceData, pgErr.Message)
	}
	return err
}

// scanNumerics parses NUMERIC columns selected as ::text into dst, in order.
func scanNumerics(raw []string, dst ...*decimal.Decimal) error {
	for i, d := range dst {
		v, err := decimal.NewFromString(raw[i])
		if err != nil {
			return fmt.Errorf("invalid numeric %q: %w", raw[i], err)
		}
		*d = v
	}
	return nil
}

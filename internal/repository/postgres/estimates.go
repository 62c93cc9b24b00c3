package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rpgo/estimated-tax/internal/domain"
)

func (s *Store) SaveEstimate(ctx context.Context, e *domain.Estimate) error {
	if e == nil || e.ID == uuid.Nil {
		return fmt.Errorf("%w: estimate must have an id", domain.ErrInvalidInput)
	}
	inputJSON, err := json.Marshal(e.Input)
	if err != nil {
		return fmt.Errorf("failed to marshal estimate input: %w", err)
	}
	resultJSON, err := json.Marshal(e.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal estimate result: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO estimates (id, tax_year, filing_status, input, result, created_at, updated_at)
		VALUES ($1::uuid, $2, $3, $4::jsonb, $5::jsonb, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			tax_year = EXCLUDED.tax_year,
			filing_status = EXCLUDED.filing_status,
			input = EXCLUDED.input,
			result = EXCLUDED.result,
			updated_at = EXCLUDED.updated_at`,
		e.ID.String(), e.Input.TaxYear, string(e.Input.FilingStatus),
		string(inputJSON), string(resultJSON), e.CreatedAt.UTC(), e.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save estimate %s: %w", e.ID, mapError(err))
	}
	return nil
}

const selectEstimate = `SELECT id::text, input::text, result::text, created_at, updated_at FROM estimates`

func (s *Store) GetEstimate(ctx context.Context, id uuid.UUID) (*domain.Estimate, error) {
	row := s.pool.QueryRow(ctx, selectEstimate+` WHERE id = $1::uuid`, id.String())
	e, err := scanEstimate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("estimate %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) ListEstimates(ctx context.Context, year *int) ([]domain.Estimate, error) {
	query := selectEstimate
	var args []any
	if year != nil {
		query += ` WHERE tax_year = $1`
		args = append(args, *year)
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query estimates: %w", err)
	}
	defer rows.Close()

	estimates := []domain.Estimate{}
	for rows.Next() {
		e, err := scanEstimate(rows)
		if err != nil {
			return nil, err
		}
		estimates = append(estimates, *e)
	}
	return estimates, rows.Err()
}

func (s *Store) DeleteEstimate(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM estimates WHERE id = $1::uuid`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete estimate %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("estimate %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanEstimate(row pgx.Row) (*domain.Estimate, error) {
	var e domain.Estimate
	var id, inputJSON, resultJSON string
	if err := row.Scan(&id, &inputJSON, &resultJSON, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan estimate: %w", err)
	}

	var err error
	if e.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid estimate id %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(inputJSON), &e.Input); err != nil {
		return nil, fmt.Errorf("failed to unmarshal estimate %s input: %w", id, err)
	}
	if err := json.Unmarshal([]byte(resultJSON), &e.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal estimate %s result: %w", id, err)
	}
	return &e, nil
}

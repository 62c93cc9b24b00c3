package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
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

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO estimates (id, tax_year, filing_status, input_json, result_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tax_year = excluded.tax_year,
			filing_status = excluded.filing_status,
			input_json = excluded.input_json,
			result_json = excluded.result_json,
			updated_at = excluded.updated_at`,
		e.ID.String(), e.Input.TaxYear, string(e.Input.FilingStatus),
		string(inputJSON), string(resultJSON),
		e.CreatedAt.UTC().Format(time.RFC3339Nano), e.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save estimate %s: %w", e.ID, mapError(err))
	}
	return nil
}

func (s *Store) GetEstimate(ctx context.Context, id uuid.UUID) (*domain.Estimate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, input_json, result_json, created_at, updated_at
		FROM estimates WHERE id = ?`, id.String())
	e, err := scanEstimate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("estimate %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) ListEstimates(ctx context.Context, year *int) ([]domain.Estimate, error) {
	query := `SELECT id, input_json, result_json, created_at, updated_at FROM estimates`
	var args []any
	if year != nil {
		query += ` WHERE tax_year = ?`
		args = append(args, *year)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM estimates WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete estimate %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete estimate %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("estimate %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEstimate(row rowScanner) (*domain.Estimate, error) {
	var (
		id, inputJSON, resultJSON string
		createdAt, updatedAt      string
	)
	if err := row.Scan(&id, &inputJSON, &resultJSON, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan estimate: %w", err)
	}

	var e domain.Estimate
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
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at for estimate %s: %w", id, err)
	}
	if e.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at for estimate %s: %w", id, err)
	}
	return &e, nil
}

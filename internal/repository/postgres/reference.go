package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/shopspring/decimal"
)

func (s *Store) GetTaxYearConfig(ctx context.Context, year int) (domain.TaxYearConfig, error) {
	query := `
		SELECT ss_wage_max::text, ss_tax_rate::text, medicare_tax_rate::text,
			se_tax_deductible_percentage::text, se_deduction_factor::text,
			required_payment_threshold::text, min_se_threshold::text
		FROM tax_years
		WHERE tax_year = $1
	`
	raw := make([]string, 7)
	err := s.pool.QueryRow(ctx, query, year).Scan(&raw[0], &raw[1], &raw[2], &raw[3], &raw[4], &raw[5], &raw[6])
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TaxYearConfig{}, fmt.Errorf("tax year %d: %w", year, domain.ErrNotFound)
	}
	if err != nil {
		return domain.TaxYearConfig{}, fmt.Errorf("failed to query tax year %d: %w", year, err)
	}

	cfg := domain.TaxYearConfig{TaxYear: year}
	if err := scanNumerics(raw,
		&cfg.SSWageMax, &cfg.SSTaxRate, &cfg.MedicareTaxRate,
		&cfg.SETaxDeductiblePercentage, &cfg.SEDeductionFactor,
		&cfg.RequiredPaymentThreshold, &cfg.MinSEThreshold,
	); err != nil {
		return domain.TaxYearConfig{}, fmt.Errorf("tax year %d: %w", year, err)
	}
	return cfg, nil
}

func (s *Store) ListTaxYears(ctx context.Context) ([]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT tax_year FROM tax_years ORDER BY tax_year DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tax years: %w", err)
	}
	years, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("failed to scan tax years: %w", err)
	}
	return years, nil
}

func (s *Store) ListFilingStatuses(ctx context.Context) ([]domain.FilingStatus, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, code, name FROM filing_statuses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query filing statuses: %w", err)
	}
	defer rows.Close()

	statuses := []domain.FilingStatus{}
	for rows.Next() {
		var fs domain.FilingStatus
		var code string
		if err := rows.Scan(&fs.ID, &code, &fs.Name); err != nil {
			return nil, fmt.Errorf("failed to scan filing status: %w", err)
		}
		fs.Code = domain.FilingStatusCode(code)
		statuses = append(statuses, fs)
	}
	return statuses, rows.Err()
}

func (s *Store) GetStandardDeduction(ctx context.Context, year int, status domain.FilingStatusCode) (decimal.Decimal, error) {
	var raw string
	err := s.pool.QueryRow(ctx, `
		SELECT amount::text FROM standard_deductions
		WHERE tax_year = $1 AND filing_status = $2`, year, string(status)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("standard deduction %d/%s: %w", year, status, domain.ErrNotFound)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query standard deduction %d/%s: %w", year, status, err)
	}
	return decimal.NewFromString(raw)
}

func (s *Store) GetTaxBrackets(ctx context.Context, year int, status domain.FilingStatusCode) ([]domain.TaxBracket, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT min_income::text, max_income::text, base_tax::text, tax_rate::text
		FROM tax_brackets
		WHERE tax_year = $1 AND filing_status = $2
		ORDER BY min_income`, year, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query tax brackets %d/%s: %w", year, status, err)
	}
	defer rows.Close()

	var brackets []domain.TaxBracket
	for rows.Next() {
		var minIncome, baseTax, rate string
		var maxIncome *string
		if err := rows.Scan(&minIncome, &maxIncome, &baseTax, &rate); err != nil {
			return nil, fmt.Errorf("failed to scan tax bracket: %w", err)
		}

		b := domain.TaxBracket{TaxYear: year, FilingStatus: status}
		if err := scanNumerics([]string{minIncome, baseTax, rate}, &b.MinIncome, &b.BaseTax, &b.TaxRate); err != nil {
			return nil, err
		}
		if maxIncome != nil {
			hi, err := decimal.NewFromString(*maxIncome)
			if err != nil {
				return nil, fmt.Errorf("invalid numeric %q: %w", *maxIncome, err)
			}
			b.MaxIncome = &hi
		}
		brackets = append(brackets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(brackets) == 0 {
		return nil, fmt.Errorf("tax brackets %d/%s: %w", year, status, domain.ErrNotFound)
	}
	return brackets, nil
}

func (s *Store) PutTaxYearConfig(ctx context.Context, cfg domain.TaxYearConfig) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tax_years (tax_year, ss_wage_max, ss_tax_rate, medicare_tax_rate,
			se_tax_deductible_percentage, se_deduction_factor, required_payment_threshold, min_se_threshold)
		VALUES ($1, $2::numeric, $3::numeric, $4::numeric, $5::numeric, $6::numeric, $7::numeric, $8::numeric)
		ON CONFLICT (tax_year) DO UPDATE SET
			ss_wage_max = EXCLUDED.ss_wage_max,
			ss_tax_rate = EXCLUDED.ss_tax_rate,
			medicare_tax_rate = EXCLUDED.medicare_tax_rate,
			se_tax_deductible_percentage = EXCLUDED.se_tax_deductible_percentage,
			se_deduction_factor = EXCLUDED.se_deduction_factor,
			required_payment_threshold = EXCLUDED.required_payment_threshold,
			min_se_threshold = EXCLUDED.min_se_threshold`,
		cfg.TaxYear, cfg.SSWageMax.String(), cfg.SSTaxRate.String(), cfg.MedicareTaxRate.String(),
		cfg.SETaxDeductiblePercentage.String(), cfg.SEDeductionFactor.String(),
		cfg.RequiredPaymentThreshold.String(), cfg.MinSEThreshold.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to save tax year %d: %w", cfg.TaxYear, mapError(err))
	}
	return nil
}

func (s *Store) PutFilingStatus(ctx context.Context, status domain.FilingStatus) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO filing_statuses (id, code, name) VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET id = EXCLUDED.id, name = EXCLUDED.name`,
		status.ID, string(status.Code), status.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to save filing status %s: %w", status.Code, mapError(err))
	}
	return nil
}

func (s *Store) PutStandardDeduction(ctx context.Context, d domain.StandardDeduction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO standard_deductions (tax_year, filing_status, amount) VALUES ($1, $2, $3::numeric)
		ON CONFLICT (tax_year, filing_status) DO UPDATE SET amount = EXCLUDED.amount`,
		d.TaxYear, string(d.FilingStatus), d.Amount.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to save standard deduction %d/%s: %w", d.TaxYear, d.FilingStatus, mapError(err))
	}
	return nil
}

func (s *Store) ReplaceTaxBrackets(ctx context.Context, year int, status domain.FilingStatusCode, brackets []domain.TaxBracket) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var yearExists, statusExists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM tax_years WHERE tax_year = $1),
			EXISTS (SELECT 1 FROM filing_statuses WHERE code = $2)`, year, string(status)).Scan(&yearExists, &statusExists)
	if err != nil {
		return fmt.Errorf("failed to check schedule %d/%s: %w", year, status, err)
	}
	if !yearExists {
		return fmt.Errorf("tax year %d: %w", year, domain.ErrNotFound)
	}
	if !statusExists {
		return fmt.Errorf("filing status %s: %w", status, domain.ErrNotFound)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM tax_brackets WHERE tax_year = $1 AND filing_status = $2`, year, string(status)); err != nil {
		return fmt.Errorf("failed to clear tax brackets %d/%s: %w", year, status, err)
	}

	batch := &pgx.Batch{}
	for _, b := range brackets {
		var maxIncome *string
		if b.MaxIncome != nil {
			hi := b.MaxIncome.String()
			maxIncome = &hi
		}
		batch.Queue(`
			INSERT INTO tax_brackets (tax_year, filing_status, min_income, max_income, base_tax, tax_rate)
			VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6::numeric)`,
			year, string(status), b.MinIncome.String(), maxIncome, b.BaseTax.String(), b.TaxRate.String())
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert tax brackets %d/%s: %w", year, status, mapError(err))
	}
	return tx.Commit(ctx)
}

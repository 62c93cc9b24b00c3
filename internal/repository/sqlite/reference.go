package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/shopspring/decimal"
)

func (s *Store) GetTaxYearConfig(ctx context.Context, year int) (domain.TaxYearConfig, error) {
	cfg := domain.TaxYearConfig{TaxYear: year}
	err := s.db.QueryRowContext(ctx, `
		SELECT ss_wage_max, ss_tax_rate, medicare_tax_rate, se_tax_deductible_percentage,
			se_deduction_factor, required_payment_threshold, min_se_threshold
		FROM tax_years WHERE tax_year = ?`, year).Scan(
		&cfg.SSWageMax, &cfg.SSTaxRate, &cfg.MedicareTaxRate, &cfg.SETaxDeductiblePercentage,
		&cfg.SEDeductionFactor, &cfg.RequiredPaymentThreshold, &cfg.MinSEThreshold,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TaxYearConfig{}, fmt.Errorf("tax year %d: %w", year, domain.ErrNotFound)
	}
	if err != nil {
		return domain.TaxYearConfig{}, fmt.Errorf("failed to query tax year %d: %w", year, err)
	}
	return cfg, nil
}

func (s *Store) ListTaxYears(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tax_year FROM tax_years ORDER BY tax_year DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tax years: %w", err)
	}
	defer rows.Close()

	years := []int{}
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("failed to scan tax year: %w", err)
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

func (s *Store) ListFilingStatuses(ctx context.Context) ([]domain.FilingStatus, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, code, name FROM filing_statuses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query filing statuses: %w", err)
	}
	defer rows.Close()

	statuses := []domain.FilingStatus{}
	for rows.Next() {
		var fs domain.FilingStatus
		if err := rows.Scan(&fs.ID, &fs.Code, &fs.Name); err != nil {
			return nil, fmt.Errorf("failed to scan filing status: %w", err)
		}
		statuses = append(statuses, fs)
	}
	return statuses, rows.Err()
}

func (s *Store) GetStandardDeduction(ctx context.Context, year int, status domain.FilingStatusCode) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := s.db.QueryRowContext(ctx, `
		SELECT amount FROM standard_deductions
		WHERE tax_year = ? AND filing_status = ?`, year, string(status)).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("standard deduction %d/%s: %w", year, status, domain.ErrNotFound)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query standard deduction %d/%s: %w", year, status, err)
	}
	return amount, nil
}

func (s *Store) GetTaxBrackets(ctx context.Context, year int, status domain.FilingStatusCode) ([]domain.TaxBracket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT min_income, max_income, base_tax, tax_rate
		FROM tax_brackets
		WHERE tax_year = ? AND filing_status = ?`, year, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query tax brackets %d/%s: %w", year, status, err)
	}
	defer rows.Close()

	var brackets []domain.TaxBracket
	for rows.Next() {
		b := domain.TaxBracket{TaxYear: year, FilingStatus: status}
		var maxIncome decimal.NullDecimal
		if err := rows.Scan(&b.MinIncome, &maxIncome, &b.BaseTax, &b.TaxRate); err != nil {
			return nil, fmt.Errorf("failed to scan tax bracket: %w", err)
		}
		if maxIncome.Valid {
			b.MaxIncome = &maxIncome.Decimal
		}
		brackets = append(brackets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(brackets) == 0 {
		return nil, fmt.Errorf("tax brackets %d/%s: %w", year, status, domain.ErrNotFound)
	}

	// TEXT columns do not order numerically
	sort.SliceStable(brackets, func(i, j int) bool { return brackets[i].MinIncome.LessThan(brackets[j].MinIncome) })
	return brackets, nil
}

func (s *Store) PutTaxYearConfig(ctx context.Context, cfg domain.TaxYearConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tax_years (tax_year, ss_wage_max, ss_tax_rate, medicare_tax_rate,
			se_tax_deductible_percentage, se_deduction_factor, required_payment_threshold, min_se_threshold)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tax_year) DO UPDATE SET
			ss_wage_max = excluded.ss_wage_max,
			ss_tax_rate = excluded.ss_tax_rate,
			medicare_tax_rate = excluded.medicare_tax_rate,
			se_tax_deductible_percentage = excluded.se_tax_deductible_percentage,
			se_deduction_factor = excluded.se_deduction_factor,
			required_payment_threshold = excluded.required_payment_threshold,
			min_se_threshold = excluded.min_se_threshold`,
		cfg.TaxYear, cfg.SSWageMax, cfg.SSTaxRate, cfg.MedicareTaxRate,
		cfg.SETaxDeductiblePercentage, cfg.SEDeductionFactor, cfg.RequiredPaymentThreshold, cfg.MinSEThreshold,
	)
	if err != nil {
		return fmt.Errorf("failed to save tax year %d: %w", cfg.TaxYear, mapError(err))
	}
	return nil
}

func (s *Store) PutFilingStatus(ctx context.Context, status domain.FilingStatus) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO filing_statuses (id, code, name) VALUES (?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET id = excluded.id, name = excluded.name`,
		status.ID, string(status.Code), status.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to save filing status %s: %w", status.Code, mapError(err))
	}
	return nil
}

func (s *Store) PutStandardDeduction(ctx context.Context, d domain.StandardDeduction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO standard_deductions (tax_year, filing_status, amount) VALUES (?, ?, ?)
		ON CONFLICT(tax_year, filing_status) DO UPDATE SET amount = excluded.amount`,
		d.TaxYear, string(d.FilingStatus), d.Amount,
	)
	if err != nil {
		return fmt.Errorf("failed to save standard deduction %d/%s: %w", d.TaxYear, d.FilingStatus, mapError(err))
	}
	return nil
}

func (s *Store) ReplaceTaxBrackets(ctx context.Context, year int, status domain.FilingStatusCode, brackets []domain.TaxBracket) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkScheduleKey(ctx, tx, year, status); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tax_brackets WHERE tax_year = ? AND filing_status = ?`, year, string(status)); err != nil {
		return fmt.Errorf("failed to clear tax brackets %d/%s: %w", year, status, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tax_brackets (tax_year, filing_status, min_income, max_income, base_tax, tax_rate)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare bracket insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range brackets {
		var maxIncome decimal.NullDecimal
		if b.MaxIncome != nil {
			maxIncome = decimal.NewNullDecimal(*b.MaxIncome)
		}
		if _, err := stmt.ExecContext(ctx, year, string(status), b.MinIncome, maxIncome, b.BaseTax, b.TaxRate); err != nil {
			return fmt.Errorf("failed to insert tax bracket %d/%s: %w", year, status, mapError(err))
		}
	}
	return tx.Commit()
}

func checkScheduleKey(ctx context.Context, tx *sql.Tx, year int, status domain.FilingStatusCode) error {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tax_years WHERE tax_year = ?`, year).Scan(&n); err != nil {
		return fmt.Errorf("failed to query tax year %d: %w", year, err)
	}
	if n == 0 {
		return fmt.Errorf("tax year %d: %w", year, domain.ErrNotFound)
	}
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM filing_statuses WHERE code = ?`, string(status)).Scan(&n); err != nil {
		return fmt.Errorf("failed to query filing status %s: %w", status, err)
	}
	if n == 0 {
		return fmt.Errorf("filing status %s: %w", status, domain.ErrNotFound)
	}
	return nil
}

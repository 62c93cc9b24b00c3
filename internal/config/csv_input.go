package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/shopspring/decimal"
)

// Batch CSV columns. Headers are matched by name so column order is free.
const (
	colTaxYear       = "tax_year"
	colFilingStatus  = "filing_status"
	colExpectedAGI   = "expected_agi"
	colDeduction     = "expected_deduction"
	colQBIDeduction  = "expected_qbi_deduction"
	colAMT           = "expected_amt"
	colCredits       = "expected_credits"
	colOtherTaxes    = "expected_other_taxes"
	colWithholding   = "expected_withholding"
	colPriorYearTax  = "prior_year_tax"
	colSEIncome      = "se_income"
	colCRPPayments   = "expected_crp_payments"
	colExpectedWages = "expected_wages"
)

var requiredBatchColumns = []string{colTaxYear, colFilingStatus, colExpectedAGI}

var optionalBatchColumns = []string{
	colDeduction, colQBIDeduction, colAMT, colCredits, colOtherTaxes,
	colWithholding, colPriorYearTax, colSEIncome, colCRPPayments, colExpectedWages,
}

// RowError reports a problem with one data row; Row is 1-based and does not
// count the header.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// LoadBatchFile reads a CSV file of estimate inputs.
func (ip *InputParser) LoadBatchFile(filename string) ([]domain.TaxEstimateInput, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer f.Close()
	return ip.ParseBatch(f)
}

// ParseBatch reads estimate inputs from CSV, one per row, in file order.
// Empty optional cells are left unset.
func (ip *InputParser) ParseBatch(r io.Reader) ([]domain.TaxEstimateInput, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: batch file is empty", domain.ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredBatchColumns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", domain.ErrInvalidInput, name)
		}
	}

	var inputs []domain.TaxEstimateInput
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &RowError{Row: row, Err: err}
		}

		input, err := parseBatchRecord(record, index)
		if err == nil {
			err = ip.ValidateInput(input)
		}
		if err != nil {
			return nil, &RowError{Row: row, Err: err}
		}
		inputs = append(inputs, *input)
	}
	return inputs, nil
}

func parseBatchRecord(record []string, index map[string]int) (*domain.TaxEstimateInput, error) {
	cell := func(name string) string {
		i, ok := index[name]
		if !ok {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	year, err := strconv.Atoi(cell(colTaxYear))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s %q", domain.ErrInvalidInput, colTaxYear, cell(colTaxYear))
	}
	status, err := domain.ParseFilingStatusCode(cell(colFilingStatus))
	if err != nil {
		return nil, err
	}
	agi, err := decimal.NewFromString(cell(colExpectedAGI))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s %q", domain.ErrInvalidInput, colExpectedAGI, cell(colExpectedAGI))
	}

	input := &domain.TaxEstimateInput{TaxYear: year, FilingStatus: status, ExpectedAGI: agi}
	targets := map[string]**decimal.Decimal{
		colDeduction:     &input.ExpectedDeduction,
		colQBIDeduction:  &input.ExpectedQBIDeduction,
		colAMT:           &input.ExpectedAMT,
		colCredits:       &input.ExpectedCredits,
		colOtherTaxes:    &input.ExpectedOtherTaxes,
		colWithholding:   &input.ExpectedWithholding,
		colPriorYearTax:  &input.PriorYearTax,
		colSEIncome:      &input.SEIncome,
		colCRPPayments:   &input.ExpectedCRPPayments,
		colExpectedWages: &input.ExpectedWages,
	}
	for _, name := range optionalBatchColumns {
		raw := cell(name)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid %s %q", domain.ErrInvalidInput, name, raw)
		}
		*targets[name] = &d
	}
	return input, nil
}

package calculation

import (
	"fmt"

	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/shopspring/decimal"
)

// ValidateEstimateInput rejects inputs the worksheets cannot interpret.
// SE income may be negative (a net loss); every other amount may not.
func ValidateEstimateInput(in domain.TaxEstimateInput) error {
	if in.TaxYear <= 0 {
		return fmt.Errorf("%w: tax year must be positive, got %d", domain.ErrInvalidInput, in.TaxYear)
	}
	if !in.FilingStatus.Valid() {
		return fmt.Errorf("%w: unrecognized filing status %q", domain.ErrInvalidInput, in.FilingStatus)
	}
	if in.ExpectedAGI.IsNegative() {
		return fmt.Errorf("%w: expected AGI cannot be negative", domain.ErrInvalidInput)
	}

	optional := []struct {
		name  string
		value *decimal.Decimal
	}{
		{"expected deduction", in.ExpectedDeduction},
		{"expected QBI deduction", in.ExpectedQBIDeduction},
		{"expected AMT", in.ExpectedAMT},
		{"expected credits", in.ExpectedCredits},
		{"expected other taxes", in.ExpectedOtherTaxes},
		{"expected withholding", in.ExpectedWithholding},
		{"prior year tax", in.PriorYearTax},
		{"expected CRP payments", in.ExpectedCRPPayments},
		{"expected wages", in.ExpectedWages},
	}
	for _, f := range optional {
		if f.value != nil && f.value.IsNegative() {
			return fmt.Errorf("%w: %s cannot be negative", domain.ErrInvalidInput, f.name)
		}
	}
	return nil
}

// ValidateTaxYearConfig checks the rate constants of a seeded year.
func ValidateTaxYearConfig(cfg domain.TaxYearConfig) error {
	if err := NewSEWorksheetConfig(cfg).Validate(); err != nil {
		return fmt.Errorf("tax year %d: %w", cfg.TaxYear, err)
	}
	if cfg.RequiredPaymentThreshold.IsNegative() {
		return fmt.Errorf("%w: tax year %d required payment threshold cannot be negative",
			domain.ErrInvalidReferenceData, cfg.TaxYear)
	}
	return nil
}

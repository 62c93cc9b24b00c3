package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxEstimateInput is the taxpayer-supplied side of Form 1040-ES.
// Optional amounts are pointers: nil means "not supplied" and is treated as
// zero by the calculators, which keeps it distinguishable from an explicit 0.
type TaxEstimateInput struct {
	TaxYear      int              `yaml:"tax_year" json:"tax_year"`
	FilingStatus FilingStatusCode `yaml:"filing_status" json:"filing_status"`

	// Estimated Tax Worksheet inputs
	ExpectedAGI          decimal.Decimal  `yaml:"expected_agi" json:"expected_agi"`
	ExpectedDeduction    *decimal.Decimal `yaml:"expected_deduction,omitempty" json:"expected_deduction,omitempty"` // nil or 0 selects the standard deduction
	ExpectedQBIDeduction *decimal.Decimal `yaml:"expected_qbi_deduction,omitempty" json:"expected_qbi_deduction,omitempty"`
	ExpectedAMT          *decimal.Decimal `yaml:"expected_amt,omitempty" json:"expected_amt,omitempty"`
	ExpectedCredits      *decimal.Decimal `yaml:"expected_credits,omitempty" json:"expected_credits,omitempty"`
	ExpectedOtherTaxes   *decimal.Decimal `yaml:"expected_other_taxes,omitempty" json:"expected_other_taxes,omitempty"`
	ExpectedWithholding  *decimal.Decimal `yaml:"expected_withholding,omitempty" json:"expected_withholding,omitempty"`
	PriorYearTax         *decimal.Decimal `yaml:"prior_year_tax,omitempty" json:"prior_year_tax,omitempty"`

	// SE Worksheet inputs
	SEIncome            *decimal.Decimal `yaml:"se_income,omitempty" json:"se_income,omitempty"`
	ExpectedCRPPayments *decimal.Decimal `yaml:"expected_crp_payments,omitempty" json:"expected_crp_payments,omitempty"`
	ExpectedWages       *decimal.Decimal `yaml:"expected_wages,omitempty" json:"expected_wages,omitempty"`
}

// SEWorksheetResult carries every line of the SE Tax and Deduction Worksheet.
type SEWorksheetResult struct {
	CombinedSEIncome    decimal.Decimal `json:"combined_se_income"`     // lines 1a + 1b + 2
	NetEarnings         decimal.Decimal `json:"net_earnings"`           // line 3
	MedicareTax         decimal.Decimal `json:"medicare_tax"`           // line 4
	RemainingSSWageBase decimal.Decimal `json:"remaining_ss_wage_base"` // line 7
	SSTaxableEarnings   decimal.Decimal `json:"ss_taxable_earnings"`    // line 8
	SocialSecurityTax   decimal.Decimal `json:"social_security_tax"`    // line 9
	SelfEmploymentTax   decimal.Decimal `json:"self_employment_tax"`    // line 10
	SETaxDeduction      decimal.Decimal `json:"se_tax_deduction"`       // line 11
	BelowThreshold      bool            `json:"below_threshold"`
}

// TaxEstimateResult is the computed output of one estimate. It is built once
// and never patched; changed inputs produce a new result.
type TaxEstimateResult struct {
	CalculatedSETax           decimal.Decimal `json:"calculated_se_tax"`
	CalculatedTotalTax        decimal.Decimal `json:"calculated_total_tax"`
	CalculatedRequiredPayment decimal.Decimal `json:"calculated_required_payment"`
	PaymentRequired           bool            `json:"payment_required"`

	// Worksheet detail
	SEWorksheet           SEWorksheetResult `json:"se_worksheet"`
	SETaxDeduction        decimal.Decimal   `json:"se_tax_deduction"`
	DeductionUsed         decimal.Decimal   `json:"deduction_used"`
	UsedStandardDeduction bool              `json:"used_standard_deduction"`
	QBIDeduction          decimal.Decimal   `json:"qbi_deduction"`
	TaxableIncome         decimal.Decimal   `json:"taxable_income"`
	OrdinaryIncomeTax     decimal.Decimal   `json:"ordinary_income_tax"`
	TaxBeforeCredits      decimal.Decimal   `json:"tax_before_credits"`
	TaxAfterCredits       decimal.Decimal   `json:"tax_after_credits"`
	RequiredPaymentBasis  decimal.Decimal   `json:"required_payment_basis"`
	RequiredThreshold     decimal.Decimal   `json:"required_threshold"`
	QuarterlyPayment      decimal.Decimal   `json:"quarterly_payment"`
}

// Estimate is a stored calculation. IDs are UUIDv7 so they sort by creation
// time and stay stable when estimates move between backends.
type Estimate struct {
	ID        uuid.UUID         `json:"id"`
	Input     TaxEstimateInput  `json:"input"`
	Result    TaxEstimateResult `json:"result"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewEstimate stamps a freshly computed result with a new identifier.
func NewEstimate(input TaxEstimateInput, result TaxEstimateResult) (*Estimate, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate estimate id: %w", err)
	}
	now := time.Now().UTC()
	return &Estimate{
		ID:        id,
		Input:     input,
		Result:    result,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

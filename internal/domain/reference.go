package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TaxYearConfig holds the IRS rate constants for a single tax year.
// One record per year; it is never modified after it is seeded.
type TaxYearConfig struct {
	TaxYear                   int             `yaml:"tax_year" json:"tax_year"`
	SSWageMax                 decimal.Decimal `yaml:"ss_wage_max" json:"ss_wage_max"`
	SSTaxRate                 decimal.Decimal `yaml:"ss_tax_rate" json:"ss_tax_rate"`
	MedicareTaxRate           decimal.Decimal `yaml:"medicare_tax_rate" json:"medicare_tax_rate"`
	SETaxDeductiblePercentage decimal.Decimal `yaml:"se_tax_deductible_percentage" json:"se_tax_deductible_percentage"` // 0.9235
	SEDeductionFactor         decimal.Decimal `yaml:"se_deduction_factor" json:"se_deduction_factor"`                   // 0.50
	RequiredPaymentThreshold  decimal.Decimal `yaml:"required_payment_threshold" json:"required_payment_threshold"`
	MinSEThreshold            decimal.Decimal `yaml:"min_se_threshold" json:"min_se_threshold"`
}

// FilingStatusCode is the short code identifying a filing status.
type FilingStatusCode string

const (
	Single                    FilingStatusCode = "S"
	MarriedFilingJointly      FilingStatusCode = "MFJ"
	MarriedFilingSeparately   FilingStatusCode = "MFS"
	HeadOfHousehold           FilingStatusCode = "HOH"
	QualifyingSurvivingSpouse FilingStatusCode = "QSS"
)

// FilingStatusCodes lists every known code in catalog order.
var FilingStatusCodes = []FilingStatusCode{
	Single,
	MarriedFilingJointly,
	MarriedFilingSeparately,
	HeadOfHousehold,
	QualifyingSurvivingSpouse,
}

// ParseFilingStatusCode accepts a code in any letter case.
func ParseFilingStatusCode(s string) (FilingStatusCode, error) {
	code := FilingStatusCode(strings.ToUpper(strings.TrimSpace(s)))
	if !code.Valid() {
		return "", fmt.Errorf("%w: unrecognized filing status %q", ErrInvalidInput, s)
	}
	return code, nil
}

// Valid reports whether c is one of the five IRS filing statuses.
func (c FilingStatusCode) Valid() bool {
	for _, known := range FilingStatusCodes {
		if c == known {
			return true
		}
	}
	return false
}

// Name returns the long form used on Form 1040.
func (c FilingStatusCode) Name() string {
	switch c {
	case Single:
		return "Single"
	case MarriedFilingJointly:
		return "Married Filing Jointly"
	case MarriedFilingSeparately:
		return "Married Filing Separately"
	case HeadOfHousehold:
		return "Head of Household"
	case QualifyingSurvivingSpouse:
		return "Qualifying Surviving Spouse"
	}
	return string(c)
}

// FilingStatus is an entry in the static filing-status catalog.
type FilingStatus struct {
	ID   int              `yaml:"id" json:"id"`
	Code FilingStatusCode `yaml:"code" json:"code"`
	Name string           `yaml:"name" json:"name"`
}

// StandardDeduction is keyed by (tax year, filing status).
type StandardDeduction struct {
	TaxYear      int              `yaml:"tax_year" json:"tax_year"`
	FilingStatus FilingStatusCode `yaml:"filing_status" json:"filing_status"`
	Amount       decimal.Decimal  `yaml:"amount" json:"amount"`
}

// TaxBracket is one row of a rate schedule. A nil MaxIncome marks the
// unbounded top bracket; BaseTax is the cumulative tax owed at MinIncome.
type TaxBracket struct {
	TaxYear      int              `yaml:"tax_year" json:"tax_year"`
	FilingStatus FilingStatusCode `yaml:"filing_status" json:"filing_status"`
	MinIncome    decimal.Decimal  `yaml:"min_income" json:"min_income"`
	MaxIncome    *decimal.Decimal `yaml:"max_income,omitempty" json:"max_income,omitempty"`
	TaxRate      decimal.Decimal  `yaml:"tax_rate" json:"tax_rate"`
	BaseTax      decimal.Decimal  `yaml:"base_tax" json:"base_tax"`
}

// Unbounded reports whether b is the top bracket of its schedule.
func (b TaxBracket) Unbounded() bool {
	return b.MaxIncome == nil
}

// Contains reports whether income falls in [MinIncome, MaxIncome).
func (b TaxBracket) Contains(income decimal.Decimal) bool {
	if income.LessThan(b.MinIncome) {
		return false
	}
	return b.MaxIncome == nil || income.LessThan(*b.MaxIncome)
}

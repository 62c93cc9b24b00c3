package config

import (
	"fmt"
	"os"

	"github.com/rpgo/estimated-tax/internal/calculation"
	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/rpgo/estimated-tax/pkg/money"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// InputParser handles parsing of estimate input documents
type InputParser struct{}

// NewInputParser creates a new input parser
func NewInputParser() *InputParser {
	return &InputParser{}
}

// LoadFromFile loads a single estimate input from a YAML or JSON file
func (ip *InputParser) LoadFromFile(filename string) (*domain.TaxEstimateInput, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return ip.Parse(data)
}

// Parse decodes an input document. JSON is accepted as a subset of YAML.
func (ip *InputParser) Parse(data []byte) (*domain.TaxEstimateInput, error) {
	var doc inputDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	input, err := doc.toInput()
	if err != nil {
		return nil, fmt.Errorf("input validation failed: %w", err)
	}
	if err := ip.ValidateInput(input); err != nil {
		return nil, fmt.Errorf("input validation failed: %w", err)
	}
	return input, nil
}

// ValidateInput validates a decoded input
func (ip *InputParser) ValidateInput(input *domain.TaxEstimateInput) error {
	if input == nil {
		return fmt.Errorf("%w: no input provided", domain.ErrInvalidInput)
	}
	if input.TaxYear == 0 {
		return fmt.Errorf("%w: tax_year is required", domain.ErrInvalidInput)
	}
	if input.FilingStatus == "" {
		return fmt.Errorf("%w: filing_status is required", domain.ErrInvalidInput)
	}
	return calculation.ValidateEstimateInput(*input)
}

// inputDocument mirrors TaxEstimateInput but keeps the filing status as free
// text so "mfj" and "MFJ" both decode.
type inputDocument struct {
	TaxYear              int              `yaml:"tax_year"`
	FilingStatus         string           `yaml:"filing_status"`
	ExpectedAGI          *decimal.Decimal `yaml:"expected_agi"`
	ExpectedDeduction    *decimal.Decimal `yaml:"expected_deduction"`
	ExpectedQBIDeduction *decimal.Decimal `yaml:"expected_qbi_deduction"`
	ExpectedAMT          *decimal.Decimal `yaml:"expected_amt"`
	ExpectedCredits      *decimal.Decimal `yaml:"expected_credits"`
	ExpectedOtherTaxes   *decimal.Decimal `yaml:"expected_other_taxes"`
	ExpectedWithholding  *decimal.Decimal `yaml:"expected_withholding"`
	PriorYearTax         *decimal.Decimal `yaml:"prior_year_tax"`
	SEIncome             *decimal.Decimal `yaml:"se_income"`
	ExpectedCRPPayments  *decimal.Decimal `yaml:"expected_crp_payments"`
	ExpectedWages        *decimal.Decimal `yaml:"expected_wages"`
}

func (d inputDocument) toInput() (*domain.TaxEstimateInput, error) {
	if d.ExpectedAGI == nil {
		return nil, fmt.Errorf("%w: expected_agi is required", domain.ErrInvalidInput)
	}

	input := &domain.TaxEstimateInput{
		TaxYear:              d.TaxYear,
		ExpectedAGI:          *d.ExpectedAGI,
		ExpectedDeduction:    d.ExpectedDeduction,
		ExpectedQBIDeduction: d.ExpectedQBIDeduction,
		ExpectedAMT:          d.ExpectedAMT,
		ExpectedCredits:      d.ExpectedCredits,
		ExpectedOtherTaxes:   d.ExpectedOtherTaxes,
		ExpectedWithholding:  d.ExpectedWithholding,
		PriorYearTax:         d.PriorYearTax,
		SEIncome:             d.SEIncome,
		ExpectedCRPPayments:  d.ExpectedCRPPayments,
		ExpectedWages:        d.ExpectedWages,
	}
	if d.FilingStatus != "" {
		code, err := domain.ParseFilingStatusCode(d.FilingStatus)
		if err != nil {
			return nil, err
		}
		input.FilingStatus = code
	}
	return input, nil
}

// CreateExampleInput returns a self-employed single filer, useful as a
// starting template.
func (ip *InputParser) CreateExampleInput(taxYear int) *domain.TaxEstimateInput {
	return &domain.TaxEstimateInput{
		TaxYear:             taxYear,
		FilingStatus:        domain.Single,
		ExpectedAGI:         decimal.NewFromInt(60000),
		ExpectedWithholding: money.Ptr(decimal.NewFromInt(2500)),
		SEIncome:            money.Ptr(decimal.NewFromInt(25000)),
		ExpectedWages:       money.Ptr(decimal.NewFromInt(40000)),
	}
}

// MarshalInput renders an input back into the document format LoadFromFile
// reads.
func (ip *InputParser) MarshalInput(input *domain.TaxEstimateInput) ([]byte, error) {
	data, err := yaml.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input: %w", err)
	}
	return data, nil
}

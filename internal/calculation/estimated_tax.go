package calculation

import (
	"github.com/rpgo/estimated-tax/pkg/money"
	"github.com/shopspring/decimal"
)

// ESTIMATED TAX WORKSHEET (Form 1040-ES), lines assembled here:
//
//	1   expected AGI (already reduced by the deductible half of SE tax)
//	2a  deduction (itemized/expected, else standard)
//	2b  QBI deduction
//	3   taxable income, floored at zero
//	4   tax from the rate schedule
//	5   alternative minimum tax
//	6   line 4 + line 5
//	7   credits
//	8   line 6 - line 7, floored at zero
//	9   self-employment tax
//	10  other taxes
//	11  total tax, line 8 + line 9 + line 10
//
// The SE tax deduction enters on line 1 through AGI and is not netted again.

// EstimatedTaxInput groups the amounts the assembler consumes.
type EstimatedTaxInput struct {
	AGI          decimal.Decimal
	Deduction    decimal.Decimal
	QBIDeduction decimal.Decimal
	AMT          decimal.Decimal
	Credits      decimal.Decimal
	SETax        decimal.Decimal
	OtherTaxes   decimal.Decimal
}

// EstimatedTaxLines holds the assembled worksheet lines.
type EstimatedTaxLines struct {
	TaxableIncome     decimal.Decimal // line 3
	OrdinaryIncomeTax decimal.Decimal // line 4
	TaxBeforeCredits  decimal.Decimal // line 6
	TaxAfterCredits   decimal.Decimal // line 8
	TotalTax          decimal.Decimal // line 11
}

// EstimatedTaxWorksheet assembles total tax liability
type EstimatedTaxWorksheet struct {
	Brackets *BracketTaxCalculator
}

// NewEstimatedTaxWorksheet creates an assembler over a bracket calculator
func NewEstimatedTaxWorksheet(brackets *BracketTaxCalculator) *EstimatedTaxWorksheet {
	return &EstimatedTaxWorksheet{Brackets: brackets}
}

// Calculate assembles lines 3 through 11. Each line is rounded once.
func (w *EstimatedTaxWorksheet) Calculate(in EstimatedTaxInput) (EstimatedTaxLines, error) {
	taxable := money.NonNegative(money.RoundHalfUp(in.AGI.Sub(in.Deduction).Sub(in.QBIDeduction)))

	ordinary, err := w.Brackets.Calculate(taxable)
	if err != nil {
		return EstimatedTaxLines{}, err
	}

	beforeCredits := money.RoundHalfUp(ordinary.Add(in.AMT))
	// Nonrefundable credits cannot reduce SE or other taxes
	afterCredits := money.NonNegative(money.RoundHalfUp(beforeCredits.Sub(in.Credits)))
	total := money.NonNegative(money.RoundHalfUp(afterCredits.Add(in.SETax).Add(in.OtherTaxes)))

	return EstimatedTaxLines{
		TaxableIncome:     taxable,
		OrdinaryIncomeTax: ordinary,
		TaxBeforeCredits:  beforeCredits,
		TaxAfterCredits:   afterCredits,
		TotalTax:          total,
	}, nil
}

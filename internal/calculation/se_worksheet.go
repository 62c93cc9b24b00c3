package calculation

import (
	"fmt"

	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/rpgo/estimated-tax/pkg/money"
	"github.com/shopspring/decimal"
)

// SE TAX AND DEDUCTION WORKSHEET (Form 1040-ES):
//
//	1a+1b+2  combined SE income (net profit plus CRP payments)
//	3        combined x 92.35%
//	4        line 3 x 2.9% Medicare (no wage cap)
//	5        maximum earnings subject to social security
//	6        wages already subject to social security
//	7        line 5 - line 6, floored at zero
//	8        smaller of line 3 or line 7
//	9        line 8 x 12.4% social security
//	10       SE tax, line 4 + line 9
//	11       deductible part, line 10 x 50%
//
// Combined income below the minimum threshold ($400) owes no SE tax.
// Farm and non-farm income are not split.

// SEWorksheetConfig holds the year-specific constants used by the worksheet.
type SEWorksheetConfig struct {
	SSWageMax         decimal.Decimal
	SSTaxRate         decimal.Decimal
	MedicareTaxRate   decimal.Decimal
	NetEarningsFactor decimal.Decimal
	DeductionFactor   decimal.Decimal
	MinSEThreshold    decimal.Decimal
}

// NewSEWorksheetConfig extracts the SE constants from a tax year record.
func NewSEWorksheetConfig(cfg domain.TaxYearConfig) SEWorksheetConfig {
	return SEWorksheetConfig{
		SSWageMax:         cfg.SSWageMax,
		SSTaxRate:         cfg.SSTaxRate,
		MedicareTaxRate:   cfg.MedicareTaxRate,
		NetEarningsFactor: cfg.SETaxDeductiblePercentage,
		DeductionFactor:   cfg.SEDeductionFactor,
		MinSEThreshold:    cfg.MinSEThreshold,
	}
}

// Validate checks every constant against its legal range.
func (c SEWorksheetConfig) Validate() error {
	one := decimal.NewFromInt(1)
	if !c.NetEarningsFactor.IsPositive() || c.NetEarningsFactor.GreaterThan(one) {
		return fmt.Errorf("%w: net earnings factor must be in (0, 1], got %s", domain.ErrInvalidReferenceData, c.NetEarningsFactor)
	}
	if !isFraction(c.SSTaxRate) {
		return fmt.Errorf("%w: social security tax rate must be in [0, 1], got %s", domain.ErrInvalidReferenceData, c.SSTaxRate)
	}
	if !isFraction(c.MedicareTaxRate) {
		return fmt.Errorf("%w: medicare tax rate must be in [0, 1], got %s", domain.ErrInvalidReferenceData, c.MedicareTaxRate)
	}
	if !isFraction(c.DeductionFactor) {
		return fmt.Errorf("%w: deduction factor must be in [0, 1], got %s", domain.ErrInvalidReferenceData, c.DeductionFactor)
	}
	if !c.SSWageMax.IsPositive() {
		return fmt.Errorf("%w: social security wage maximum must be positive, got %s", domain.ErrInvalidReferenceData, c.SSWageMax)
	}
	if c.MinSEThreshold.IsNegative() {
		return fmt.Errorf("%w: minimum SE threshold cannot be negative, got %s", domain.ErrInvalidReferenceData, c.MinSEThreshold)
	}
	return nil
}

func isFraction(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(decimal.NewFromInt(1))
}

// SEWorksheet computes self-employment tax and its deductible half
type SEWorksheet struct {
	Config SEWorksheetConfig
	Logger Logger
}

// NewSEWorksheet creates a new SE worksheet calculator
func NewSEWorksheet(config SEWorksheetConfig) *SEWorksheet {
	return &SEWorksheet{Config: config, Logger: NopLogger{}}
}

// Calculate runs the worksheet. CRP payments are added to SE income before
// the threshold test; wages only shrink the social security base.
func (w *SEWorksheet) Calculate(seIncome, crpPayments, wages decimal.Decimal) (domain.SEWorksheetResult, error) {
	if err := w.Config.Validate(); err != nil {
		return domain.SEWorksheetResult{}, err
	}
	log := loggerOrNop(w.Logger)

	combined := money.RoundHalfUp(seIncome.Add(crpPayments))
	if combined.LessThan(w.Config.MinSEThreshold) {
		log.Debugf("SE income %s below threshold %s; no SE tax", combined, w.Config.MinSEThreshold)
		return domain.SEWorksheetResult{CombinedSEIncome: combined, BelowThreshold: true}, nil
	}

	// Line 3
	netEarnings := money.MulRate(combined, w.Config.NetEarningsFactor)
	if !netEarnings.IsPositive() {
		return domain.SEWorksheetResult{CombinedSEIncome: combined, NetEarnings: netEarnings}, nil
	}

	// Line 4: Medicare applies to all net earnings
	medicareTax := money.MulRate(netEarnings, w.Config.MedicareTaxRate)

	// Lines 5-8: wages and SE earnings share one social security wage base
	remaining := money.NonNegative(w.Config.SSWageMax.Sub(wages))
	if remaining.IsZero() {
		log.Debugf("wages %s exhaust SS wage base %s; no SS tax on SE income", wages, w.Config.SSWageMax)
	}
	ssTaxable := decimal.Min(netEarnings, remaining)

	// Line 9
	ssTax := money.MulRate(ssTaxable, w.Config.SSTaxRate)

	// Lines 10-11
	seTax := medicareTax.Add(ssTax)
	deduction := money.MulRate(seTax, w.Config.DeductionFactor)

	return domain.SEWorksheetResult{
		CombinedSEIncome:    combined,
		NetEarnings:         netEarnings,
		MedicareTax:         medicareTax,
		RemainingSSWageBase: remaining,
		SSTaxableEarnings:   ssTaxable,
		SocialSecurityTax:   ssTax,
		SelfEmploymentTax:   seTax,
		SETaxDeduction:      deduction,
	}, nil
}

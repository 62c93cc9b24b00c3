package calculation

import (
	"context"
	"fmt"

	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/rpgo/estimated-tax/internal/repository"
	"github.com/rpgo/estimated-tax/pkg/money"
	"github.com/shopspring/decimal"
)

// Stage names the phase an estimate failed in.
type Stage string

const (
	StageLoading   Stage = "loading"
	StageComputing Stage = "computing"
)

// EstimateError is the single terminal error of a failed estimate.
// It unwraps to the domain sentinel that caused it.
type EstimateError struct {
	Stage        Stage
	TaxYear      int
	FilingStatus domain.FilingStatusCode
	Err          error
}

func (e *EstimateError) Error() string {
	return fmt.Sprintf("estimate %d/%s failed while %s: %v", e.TaxYear, e.FilingStatus, e.Stage, e.Err)
}

func (e *EstimateError) Unwrap() error { return e.Err }

// Engine orchestrates one 1040-ES estimate: it loads reference data, then
// runs the SE worksheet, bracket tax, assembler and payment rule in order.
// Engine holds no mutable state and is safe for concurrent use.
type Engine struct {
	Reference repository.ReferenceData
	Logger    Logger
}

// NewEngine creates an engine backed by the given reference data
func NewEngine(ref repository.ReferenceData) *Engine {
	return &Engine{Reference: ref, Logger: NopLogger{}}
}

// SetLogger sets the logger for the engine. If nil is provided, a no-op logger is used.
func (e *Engine) SetLogger(l Logger) {
	e.Logger = loggerOrNop(l)
}

// referenceSet is everything the computing stage needs for one year/status.
type referenceSet struct {
	config            domain.TaxYearConfig
	standardDeduction decimal.Decimal
	brackets          []domain.TaxBracket
}

// ComputeEstimate returns a fully populated result or a single *EstimateError.
// Cancelling ctx abandons the reference fetch; once computing starts the
// remaining work is synchronous.
func (e *Engine) ComputeEstimate(ctx context.Context, input domain.TaxEstimateInput) (*domain.TaxEstimateResult, error) {
	fail := func(stage Stage, err error) error {
		return &EstimateError{Stage: stage, TaxYear: input.TaxYear, FilingStatus: input.FilingStatus, Err: err}
	}
	log := loggerOrNop(e.Logger)

	if err := ValidateEstimateInput(input); err != nil {
		return nil, fail(StageLoading, err)
	}

	ref, err := e.load(ctx, input.TaxYear, input.FilingStatus)
	if err != nil {
		log.Warnf("loading reference data for %d/%s: %v", input.TaxYear, input.FilingStatus, err)
		return nil, fail(StageLoading, err)
	}

	result, err := e.compute(input, ref)
	if err != nil {
		log.Errorf("computing estimate for %d/%s: %v", input.TaxYear, input.FilingStatus, err)
		return nil, fail(StageComputing, err)
	}

	log.Debugf("estimate %d/%s: total tax %s, required payment %s",
		input.TaxYear, input.FilingStatus, result.CalculatedTotalTax.StringFixed(2), result.CalculatedRequiredPayment.StringFixed(2))
	return result, nil
}

func (e *Engine) load(ctx context.Context, year int, status domain.FilingStatusCode) (*referenceSet, error) {
	if e.Reference == nil {
		return nil, fmt.Errorf("%w: no reference data configured", domain.ErrNotFound)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg, err := e.Reference.GetTaxYearConfig(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("tax year %d: %w", year, err)
	}
	if err := ValidateTaxYearConfig(cfg); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	statuses, err := e.Reference.ListFilingStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("filing statuses: %w", err)
	}
	if !catalogContains(statuses, status) {
		return nil, fmt.Errorf("%w: filing status %q is not in the catalog", domain.ErrInvalidInput, status)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stdDed, err := e.Reference.GetStandardDeduction(ctx, year, status)
	if err != nil {
		return nil, fmt.Errorf("standard deduction %d/%s: %w", year, status, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	brackets, err := e.Reference.GetTaxBrackets(ctx, year, status)
	if err != nil {
		return nil, fmt.Errorf("tax brackets %d/%s: %w", year, status, err)
	}

	// Last chance to cancel before the synchronous stage
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &referenceSet{config: cfg, standardDeduction: stdDed, brackets: brackets}, nil
}

func (e *Engine) compute(input domain.TaxEstimateInput, ref *referenceSet) (*domain.TaxEstimateResult, error) {
	se := NewSEWorksheet(NewSEWorksheetConfig(ref.config))
	se.Logger = e.Logger
	seResult, err := se.Calculate(
		money.OrZero(input.SEIncome),
		money.OrZero(input.ExpectedCRPPayments),
		money.OrZero(input.ExpectedWages),
	)
	if err != nil {
		return nil, err
	}

	deduction, usedStandard := selectDeduction(input.ExpectedDeduction, ref.standardDeduction)
	qbi := money.OrZero(input.ExpectedQBIDeduction)

	worksheet := NewEstimatedTaxWorksheet(NewBracketTaxCalculator(ref.brackets))
	lines, err := worksheet.Calculate(EstimatedTaxInput{
		AGI:          input.ExpectedAGI,
		Deduction:    deduction,
		QBIDeduction: qbi,
		AMT:          money.OrZero(input.ExpectedAMT),
		Credits:      money.OrZero(input.ExpectedCredits),
		SETax:        seResult.SelfEmploymentTax,
		OtherTaxes:   money.OrZero(input.ExpectedOtherTaxes),
	})
	if err != nil {
		return nil, err
	}

	payment := DecideRequiredPayment(lines.TotalTax, money.OrZero(input.ExpectedWithholding), ref.config.RequiredPaymentThreshold)

	return &domain.TaxEstimateResult{
		CalculatedSETax:           seResult.SelfEmploymentTax,
		CalculatedTotalTax:        lines.TotalTax,
		CalculatedRequiredPayment: payment.Amount,
		PaymentRequired:           payment.Required,
		SEWorksheet:               seResult,
		SETaxDeduction:            seResult.SETaxDeduction,
		DeductionUsed:             deduction,
		UsedStandardDeduction:     usedStandard,
		QBIDeduction:              qbi,
		TaxableIncome:             lines.TaxableIncome,
		OrdinaryIncomeTax:         lines.OrdinaryIncomeTax,
		TaxBeforeCredits:          lines.TaxBeforeCredits,
		TaxAfterCredits:           lines.TaxAfterCredits,
		RequiredPaymentBasis:      payment.Basis,
		RequiredThreshold:         ref.config.RequiredPaymentThreshold,
		QuarterlyPayment:          payment.Quarterly,
	}, nil
}

// selectDeduction prefers a supplied positive deduction over the standard one.
func selectDeduction(expected *decimal.Decimal, standard decimal.Decimal) (decimal.Decimal, bool) {
	if expected != nil && expected.IsPositive() {
		return money.RoundHalfUp(*expected), false
	}
	return money.RoundHalfUp(standard), true
}

func catalogContains(statuses []domain.FilingStatus, code domain.FilingStatusCode) bool {
	for _, s := range statuses {
		if s.Code == code {
			return true
		}
	}
	return false
}

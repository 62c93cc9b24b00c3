package calculation_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rpgo/estimated-tax/internal/calculation"
	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/rpgo/estimated-tax/internal/refdata"
	"github.com/rpgo/estimated-tax/internal/repository"
	"github.com/rpgo/estimated-tax/internal/repository/memory"
	"github.com/rpgo/estimated-tax/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seededEngine(t *testing.T) (*calculation.Engine, *refdata.Dataset) {
	t.Helper()
	store := memory.New()
	ds, err := refdata.SeedDefault(context.Background(), store)
	require.NoError(t, err)
	return calculation.NewEngine(store), ds
}

func TestComputeEstimate_WageEarner(t *testing.T) {
	engine, _ := seededEngine(t)

	result, err := engine.ComputeEstimate(context.Background(), domain.TaxEstimateInput{
		TaxYear:             2025,
		FilingStatus:        domain.Single,
		ExpectedAGI:         dec("60000"),
		ExpectedDeduction:   money.Ptr(dec("15000")),
		ExpectedWithholding: money.Ptr(decimal.Zero),
	})
	require.NoError(t, err)

	assert.Equal(t, "45000.00", result.TaxableIncome.StringFixed(2))
	assert.Equal(t, "5161.50", result.OrdinaryIncomeTax.StringFixed(2))
	assert.Equal(t, "0.00", result.CalculatedSETax.StringFixed(2))
	assert.Equal(t, "5161.50", result.CalculatedTotalTax.StringFixed(2))
	assert.Equal(t, "5161.50", result.CalculatedRequiredPayment.StringFixed(2))
	assert.True(t, result.PaymentRequired)
	assert.Equal(t, "1290.38", result.QuarterlyPayment.StringFixed(2))
	assert.False(t, result.UsedStandardDeduction)
}

func TestComputeEstimate_StandardDeductionFallback(t *testing.T) {
	engine, _ := seededEngine(t)

	for _, deduction := range []*decimal.Decimal{nil, money.Ptr(decimal.Zero)} {
		result, err := engine.ComputeEstimate(context.Background(), domain.TaxEstimateInput{
			TaxYear:           2025,
			FilingStatus:      domain.Single,
			ExpectedAGI:       dec("60000"),
			ExpectedDeduction: deduction,
		})
		require.NoError(t, err)
		assert.True(t, result.UsedStandardDeduction)
		assert.Equal(t, "15000.00", result.DeductionUsed.StringFixed(2))
		assert.Equal(t, "5161.50", result.CalculatedTotalTax.StringFixed(2))
	}

	result, err := engine.ComputeEstimate(context.Background(), domain.TaxEstimateInput{
		TaxYear:      2025,
		FilingStatus: domain.MarriedFilingJointly,
		ExpectedAGI:  dec("130000"),
	})
	require.NoError(t, err)
	assert.Equal(t, "30000.00", result.DeductionUsed.StringFixed(2))
	// 100,000 in the 22% bracket of Schedule Y-1
	assert.Equal(t, "11828.00", result.OrdinaryIncomeTax.StringFixed(2))
}

func TestComputeEstimate_SEIncomeBelowThreshold(t *testing.T) {
	engine, _ := seededEngine(t)

	for _, wages := range []string{"0", "90000", "250000"} {
		result, err := engine.ComputeEstimate(context.Background(), domain.TaxEstimateInput{
			TaxYear:             2025,
			FilingStatus:        domain.Single,
			ExpectedAGI:         dec("60000"),
			SEIncome:            money.Ptr(dec("300")),
			ExpectedWages:       money.Ptr(dec(wages)),
			ExpectedCRPPayments: money.Ptr(dec("50")),
		})
		require.NoError(t, err)
		assert.True(t, result.CalculatedSETax.IsZero(), "wages %s", wages)
		assert.True(t, result.SEWorksheet.BelowThreshold)
	}
}

func TestComputeEstimate_SelfEmployed(t *testing.T) {
	engine, _ := seededEngine(t)

	result, err := engine.ComputeEstimate(context.Background(), domain.TaxEstimateInput{
		TaxYear:             2025,
		FilingStatus:        domain.Single,
		ExpectedAGI:         dec("197712.26"),
		SEIncome:            money.Ptr(dec("50000")),
		ExpectedWages:       money.Ptr(dec("150000")),
		ExpectedWithholding: money.Ptr(dec("30000")),
	})
	require.NoError(t, err)

	assert.Equal(t, "46175.00", result.SEWorksheet.NetEarnings.StringFixed(2))
	assert.Equal(t, "26100.00", result.SEWorksheet.RemainingSSWageBase.StringFixed(2))
	assert.Equal(t, "3236.40", result.SEWorksheet.SocialSecurityTax.StringFixed(2))
	assert.Equal(t, "1339.08", result.SEWorksheet.MedicareTax.StringFixed(2))
	assert.Equal(t, "4575.48", result.CalculatedSETax.StringFixed(2))
	assert.Equal(t, "2287.74", result.SETaxDeduction.StringFixed(2))

	// AGI already reflects the SE deduction; taxable = 197,712.26 - 15,000
	assert.Equal(t, "182712.26", result.TaxableIncome.StringFixed(2))
	assert.Equal(t, "36697.94", result.OrdinaryIncomeTax.StringFixed(2))
	assert.Equal(t, "41273.42", result.CalculatedTotalTax.StringFixed(2))
	assert.Equal(t, "11273.42", result.CalculatedRequiredPayment.StringFixed(2))
}

func TestComputeEstimate_Idempotent(t *testing.T) {
	engine, _ := seededEngine(t)
	input := domain.TaxEstimateInput{
		TaxYear:              2024,
		FilingStatus:         domain.HeadOfHousehold,
		ExpectedAGI:          dec("88123.45"),
		ExpectedQBIDeduction: money.Ptr(dec("1234.56")),
		ExpectedAMT:          money.Ptr(dec("10")),
		ExpectedCredits:      money.Ptr(dec("2000")),
		SEIncome:             money.Ptr(dec("24000")),
		ExpectedWithholding:  money.Ptr(dec("1500")),
	}

	first, err := engine.ComputeEstimate(context.Background(), input)
	require.NoError(t, err)
	second, err := engine.ComputeEstimate(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComputeEstimate_ConcurrentCallers(t *testing.T) {
	engine, _ := seededEngine(t)
	input := domain.TaxEstimateInput{TaxYear: 2025, FilingStatus: domain.Single, ExpectedAGI: dec("60000")}
	want, err := engine.ComputeEstimate(context.Background(), input)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := engine.ComputeEstimate(context.Background(), input)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

func TestSeededSchedules_Continuous(t *testing.T) {
	_, ds := seededEngine(t)
	cent := dec("0.01")

	for _, year := range ds.Years() {
		for _, status := range domain.FilingStatusCodes {
			calc := calculation.NewBracketTaxCalculator(ds.Schedule(year, status))
			for _, b := range calc.Brackets {
				if b.Unbounded() {
					continue
				}
				below, err := calc.Calculate(b.MaxIncome.Sub(cent))
				require.NoError(t, err)
				at, err := calc.Calculate(*b.MaxIncome)
				require.NoError(t, err)
				assert.True(t, at.Sub(below).LessThanOrEqual(cent),
					"%d/%s discontinuous at %s: %s vs %s", year, status, b.MaxIncome, below, at)
			}
		}
	}
}

func TestComputeEstimate_MonotonicTotalTax(t *testing.T) {
	engine, _ := seededEngine(t)
	prev := decimal.Zero
	for agi := int64(0); agi <= 800000; agi += 7919 {
		result, err := engine.ComputeEstimate(context.Background(), domain.TaxEstimateInput{
			TaxYear:      2025,
			FilingStatus: domain.MarriedFilingSeparately,
			ExpectedAGI:  decimal.NewFromInt(agi),
		})
		require.NoError(t, err)
		require.True(t, result.CalculatedTotalTax.GreaterThanOrEqual(prev), "total tax dropped at AGI %d", agi)
		prev = result.CalculatedTotalTax
	}
}

func TestComputeEstimate_Errors(t *testing.T) {
	engine, _ := seededEngine(t)

	tests := []struct {
		name    string
		input   domain.TaxEstimateInput
		wantErr error
	}{
		{
			name:    "unseeded year",
			input:   domain.TaxEstimateInput{TaxYear: 1999, FilingStatus: domain.Single, ExpectedAGI: dec("50000")},
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "unknown filing status",
			input:   domain.TaxEstimateInput{TaxYear: 2025, FilingStatus: "XYZ", ExpectedAGI: dec("50000")},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "negative agi",
			input:   domain.TaxEstimateInput{TaxYear: 2025, FilingStatus: domain.Single, ExpectedAGI: dec("-1")},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name: "negative withholding",
			input: domain.TaxEstimateInput{
				TaxYear: 2025, FilingStatus: domain.Single, ExpectedAGI: dec("1"),
				ExpectedWithholding: money.Ptr(dec("-100")),
			},
			wantErr: domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.ComputeEstimate(context.Background(), tt.input)
			assert.Nil(t, result)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var estErr *calculation.EstimateError
			require.True(t, errors.As(err, &estErr))
			assert.Equal(t, calculation.StageLoading, estErr.Stage)
		})
	}
}

func TestComputeEstimate_NegativeSEIncomeAllowed(t *testing.T) {
	engine, _ := seededEngine(t)
	result, err := engine.ComputeEstimate(context.Background(), domain.TaxEstimateInput{
		TaxYear: 2025, FilingStatus: domain.Single, ExpectedAGI: dec("40000"),
		SEIncome: money.Ptr(dec("-8000")),
	})
	require.NoError(t, err)
	assert.True(t, result.CalculatedSETax.IsZero())
}

func TestComputeEstimate_Canceled(t *testing.T) {
	engine, _ := seededEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.ComputeEstimate(ctx, domain.TaxEstimateInput{
		TaxYear: 2025, FilingStatus: domain.Single, ExpectedAGI: dec("60000"),
	})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}

// brokenReference serves one deliberately malformed schedule.
type brokenReference struct {
	repository.ReferenceData
	brackets []domain.TaxBracket
	cfg      *domain.TaxYearConfig
}

func (b brokenReference) GetTaxBrackets(ctx context.Context, year int, status domain.FilingStatusCode) ([]domain.TaxBracket, error) {
	return b.brackets, nil
}

func (b brokenReference) GetTaxYearConfig(ctx context.Context, year int) (domain.TaxYearConfig, error) {
	if b.cfg != nil {
		return *b.cfg, nil
	}
	return b.ReferenceData.GetTaxYearConfig(ctx, year)
}

func TestComputeEstimate_BadReferenceData(t *testing.T) {
	store := memory.New()
	ds, err := refdata.SeedDefault(context.Background(), store)
	require.NoError(t, err)
	input := domain.TaxEstimateInput{TaxYear: 2025, FilingStatus: domain.Single, ExpectedAGI: dec("80000")}

	// schedule missing the 12% and 22% brackets
	schedule := ds.Schedule(2025, domain.Single)
	gapped := append([]domain.TaxBracket{schedule[0]}, schedule[3:]...)
	engine := calculation.NewEngine(brokenReference{ReferenceData: store, brackets: gapped})

	_, err = engine.ComputeEstimate(context.Background(), input)
	assert.ErrorIs(t, err, domain.ErrBracketGap)
	var estErr *calculation.EstimateError
	require.True(t, errors.As(err, &estErr))
	assert.Equal(t, calculation.StageComputing, estErr.Stage)

	// rate stored as a percentage
	cfg, err := store.GetTaxYearConfig(context.Background(), 2025)
	require.NoError(t, err)
	cfg.SSTaxRate = dec("12.4")
	engine = calculation.NewEngine(brokenReference{ReferenceData: store, brackets: schedule, cfg: &cfg})
	_, err = engine.ComputeEstimate(context.Background(), input)
	assert.ErrorIs(t, err, domain.ErrInvalidReferenceData)
}

func TestComputeEstimate_NoReference(t *testing.T) {
	engine := calculation.NewEngine(nil)
	_, err := engine.ComputeEstimate(context.Background(), domain.TaxEstimateInput{
		TaxYear: 2025, FilingStatus: domain.Single, ExpectedAGI: dec("1"),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

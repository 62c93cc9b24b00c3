// Package repositorytest is a conformance suite every repository backend
// runs from its own tests, so that memory, sqlite and postgres behave alike.
package repositorytest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rpgo/estimated-tax/internal/calculation"
	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/rpgo/estimated-tax/internal/refdata"
	"github.com/rpgo/estimated-tax/internal/repository"
	"github.com/rpgo/estimated-tax/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// OpenFunc returns a fresh, empty repository. Cleanup is the caller's job.
type OpenFunc func(t *testing.T) repository.Repository

// Run executes the full suite against repositories produced by open.
func Run(t *testing.T, open OpenFunc) {
	t.Run("ReferenceData", func(t *testing.T) { testReferenceData(t, open) })
	t.Run("ReferenceNotFound", func(t *testing.T) { testReferenceNotFound(t, open) })
	t.Run("SeedIsIdempotent", func(t *testing.T) { testSeedIdempotent(t, open) })
	t.Run("WritesRequireParents", func(t *testing.T) { testWritesRequireParents(t, open) })
	t.Run("Estimates", func(t *testing.T) { testEstimates(t, open) })
	t.Run("CanceledContext", func(t *testing.T) { testCanceledContext(t, open) })
}

// Seeded opens a repository and loads the embedded reference tables into it.
func Seeded(t *testing.T, open OpenFunc) (repository.Repository, *refdata.Dataset) {
	t.Helper()
	repo := open(t)
	ds, err := refdata.SeedDefault(context.Background(), repo)
	require.NoError(t, err)
	return repo, ds
}

func testReferenceData(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	repo, ds := Seeded(t, open)

	years, err := repo.ListTaxYears(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2025, 2024}, years)

	cfg, err := repo.GetTaxYearConfig(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, 2025, cfg.TaxYear)
	assertDecimal(t, "176100", cfg.SSWageMax)
	assertDecimal(t, "0.124", cfg.SSTaxRate)
	assertDecimal(t, "0.029", cfg.MedicareTaxRate)
	assertDecimal(t, "0.9235", cfg.SETaxDeductiblePercentage)
	assertDecimal(t, "0.5", cfg.SEDeductionFactor)
	assertDecimal(t, "1000", cfg.RequiredPaymentThreshold)
	assertDecimal(t, "400", cfg.MinSEThreshold)

	statuses, err := repo.ListFilingStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, len(domain.FilingStatusCodes))
	for i, fs := range statuses {
		assert.Equal(t, i+1, fs.ID)
		assert.Equal(t, domain.FilingStatusCodes[i], fs.Code)
		assert.Equal(t, fs.Code.Name(), fs.Name)
	}

	ded, err := repo.GetStandardDeduction(ctx, 2025, domain.MarriedFilingJointly)
	require.NoError(t, err)
	assertDecimal(t, "30000", ded)

	for _, year := range ds.Years() {
		for _, code := range domain.FilingStatusCodes {
			brackets, err := repo.GetTaxBrackets(ctx, year, code)
			require.NoError(t, err, "%d/%s", year, code)
			want := ds.Schedule(year, code)
			require.Len(t, brackets, len(want), "%d/%s", year, code)
			require.NoError(t, calculation.ValidateBrackets(brackets), "%d/%s", year, code)
			for i := range want {
				assert.True(t, want[i].MinIncome.Equal(brackets[i].MinIncome))
				assert.True(t, want[i].BaseTax.Equal(brackets[i].BaseTax))
				assert.True(t, want[i].TaxRate.Equal(brackets[i].TaxRate))
				assert.Equal(t, want[i].Unbounded(), brackets[i].Unbounded())
				assert.Equal(t, year, brackets[i].TaxYear)
				assert.Equal(t, code, brackets[i].FilingStatus)
			}
		}
	}
}

func testReferenceNotFound(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	repo, _ := Seeded(t, open)

	_, err := repo.GetTaxYearConfig(ctx, 1999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.GetStandardDeduction(ctx, 1999, domain.Single)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.GetTaxBrackets(ctx, 1999, domain.Single)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.GetStandardDeduction(ctx, 2025, domain.FilingStatusCode("XX"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// a year with constants but no schedule yet
	cfg, err := repo.GetTaxYearConfig(ctx, 2025)
	require.NoError(t, err)
	cfg.TaxYear = 2026
	require.NoError(t, repo.PutTaxYearConfig(ctx, cfg))
	_, err = repo.GetTaxBrackets(ctx, 2026, domain.Single)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testSeedIdempotent(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	repo, ds := Seeded(t, open)

	require.NoError(t, refdata.Seed(ctx, repo, ds))

	brackets, err := repo.GetTaxBrackets(ctx, 2025, domain.Single)
	require.NoError(t, err)
	assert.Len(t, brackets, len(ds.Schedule(2025, domain.Single)))

	statuses, err := repo.ListFilingStatuses(ctx)
	require.NoError(t, err)
	assert.Len(t, statuses, len(ds.FilingStatuses))

	// overwrite one deduction and read it back
	require.NoError(t, repo.PutStandardDeduction(ctx, domain.StandardDeduction{
		TaxYear: 2025, FilingStatus: domain.Single, Amount: decimal.RequireFromString("15100"),
	}))
	ded, err := repo.GetStandardDeduction(ctx, 2025, domain.Single)
	require.NoError(t, err)
	assertDecimal(t, "15100", ded)
}

func testWritesRequireParents(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	repo, ds := Seeded(t, open)

	err := repo.PutStandardDeduction(ctx, domain.StandardDeduction{
		TaxYear: 1999, FilingStatus: domain.Single, Amount: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = repo.ReplaceTaxBrackets(ctx, 1999, domain.Single, ds.Schedule(2025, domain.Single))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// failed writes leave the existing schedule alone
	brackets, err := repo.GetTaxBrackets(ctx, 2025, domain.Single)
	require.NoError(t, err)
	assert.Len(t, brackets, len(ds.Schedule(2025, domain.Single)))
}

func newTestEstimate(t *testing.T, year int, status domain.FilingStatusCode) *domain.Estimate {
	t.Helper()
	input := domain.TaxEstimateInput{
		TaxYear:             year,
		FilingStatus:        status,
		ExpectedAGI:         decimal.RequireFromString("60000"),
		ExpectedDeduction:   money.Ptr(decimal.RequireFromString("15000")),
		ExpectedWithholding: money.Ptr(decimal.Zero),
		SEIncome:            money.Ptr(decimal.RequireFromString("-250.50")),
	}
	result := domain.TaxEstimateResult{
		CalculatedTotalTax:        decimal.RequireFromString("5161.50"),
		CalculatedRequiredPayment: decimal.RequireFromString("5161.50"),
		PaymentRequired:           true,
		TaxableIncome:             decimal.RequireFromString("45000"),
		QuarterlyPayment:          decimal.RequireFromString("1290.38"),
		SEWorksheet:               domain.SEWorksheetResult{BelowThreshold: true},
	}
	e, err := domain.NewEstimate(input, result)
	require.NoError(t, err)
	return e
}

func testEstimates(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	repo, _ := Seeded(t, open)

	first := newTestEstimate(t, 2025, domain.Single)
	second := newTestEstimate(t, 2024, domain.HeadOfHousehold)
	third := newTestEstimate(t, 2025, domain.MarriedFilingJointly)
	for _, e := range []*domain.Estimate{first, second, third} {
		require.NoError(t, repo.SaveEstimate(ctx, e))
	}

	got, err := repo.GetEstimate(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 2025, got.Input.TaxYear)
	assert.Equal(t, domain.Single, got.Input.FilingStatus)
	assertDecimal(t, "60000", got.Input.ExpectedAGI)
	require.NotNil(t, got.Input.SEIncome)
	assertDecimal(t, "-250.5", *got.Input.SEIncome)
	require.NotNil(t, got.Input.ExpectedWithholding, "explicit zero must survive storage")
	assert.True(t, got.Input.ExpectedWithholding.IsZero())
	assert.Nil(t, got.Input.ExpectedCredits, "absent amounts stay absent")
	assertDecimal(t, "5161.5", got.Result.CalculatedTotalTax)
	assertDecimal(t, "1290.38", got.Result.QuarterlyPayment)
	assert.True(t, got.Result.PaymentRequired)
	assert.True(t, got.Result.SEWorksheet.BelowThreshold)
	assert.WithinDuration(t, first.CreatedAt, got.CreatedAt, time.Millisecond)

	all, err := repo.ListEstimates(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID, third.ID}, estimateIDs(all))

	year := 2025
	filtered, err := repo.ListEstimates(ctx, &year)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first.ID, third.ID}, estimateIDs(filtered))

	// saving under an existing id replaces the record
	first.Result.CalculatedTotalTax = decimal.RequireFromString("6000")
	first.UpdatedAt = first.UpdatedAt.Add(time.Minute)
	require.NoError(t, repo.SaveEstimate(ctx, first))
	got, err = repo.GetEstimate(ctx, first.ID)
	require.NoError(t, err)
	assertDecimal(t, "6000", got.Result.CalculatedTotalTax)
	all, err = repo.ListEstimates(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, repo.DeleteEstimate(ctx, second.ID))
	_, err = repo.GetEstimate(ctx, second.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteEstimate(ctx, second.ID), domain.ErrNotFound)

	_, err = repo.GetEstimate(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testCanceledContext(t *testing.T, open OpenFunc) {
	repo, _ := Seeded(t, open)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.GetTaxYearConfig(ctx, 2025)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)

	_, err = repo.GetTaxBrackets(ctx, 2025, domain.Single)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func estimateIDs(estimates []domain.Estimate) []uuid.UUID {
	ids := make([]uuid.UUID, len(estimates))
	for i, e := range estimates {
		ids[i] = e.ID
	}
	return ids
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

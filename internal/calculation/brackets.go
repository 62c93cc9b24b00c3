package calculation

import (
	"fmt"
	"sort"

	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/rpgo/estimated-tax/pkg/money"
	"github.com/shopspring/decimal"
)

// BracketTaxCalculator computes ordinary income tax from one rate schedule
type BracketTaxCalculator struct {
	Brackets []domain.TaxBracket // sorted ascending by MinIncome
}

// NewBracketTaxCalculator creates a calculator over a sorted schedule
func NewBracketTaxCalculator(brackets []domain.TaxBracket) *BracketTaxCalculator {
	return &BracketTaxCalculator{Brackets: brackets}
}

// Calculate returns base tax plus the marginal rate on income above the
// bracket floor. Negative taxable income is clamped to zero first.
func (c *BracketTaxCalculator) Calculate(taxableIncome decimal.Decimal) (decimal.Decimal, error) {
	income := money.NonNegative(taxableIncome)

	bracket, err := c.Find(income)
	if err != nil {
		return decimal.Zero, err
	}

	marginal := income.Sub(bracket.MinIncome)
	return money.RoundHalfUp(bracket.BaseTax.Add(marginal.Mul(bracket.TaxRate))), nil
}

// Find locates the bracket with MinIncome <= income < MaxIncome.
func (c *BracketTaxCalculator) Find(income decimal.Decimal) (domain.TaxBracket, error) {
	// first bracket whose floor is above income; the one before it is the candidate
	i := sort.Search(len(c.Brackets), func(i int) bool {
		return c.Brackets[i].MinIncome.GreaterThan(income)
	})
	if i == 0 || !c.Brackets[i-1].Contains(income) {
		return domain.TaxBracket{}, fmt.Errorf("%w: %s", domain.ErrBracketGap, income.StringFixed(2))
	}
	return c.Brackets[i-1], nil
}

// ValidateBrackets checks the schedule invariants: ascending, contiguous,
// starting at zero, a single unbounded top bracket, and base taxes that
// match the integrated marginal rates of the brackets below (to the cent).
func ValidateBrackets(brackets []domain.TaxBracket) error {
	if len(brackets) == 0 {
		return fmt.Errorf("%w: empty bracket schedule", domain.ErrInvalidReferenceData)
	}
	first := brackets[0]
	if !first.MinIncome.IsZero() || !first.BaseTax.IsZero() {
		return fmt.Errorf("%w: first bracket must start at 0 with no base tax, got min %s base %s",
			domain.ErrInvalidReferenceData, first.MinIncome, first.BaseTax)
	}

	tolerance := decimal.New(1, -money.Cents)
	for i, b := range brackets {
		if !isFraction(b.TaxRate) {
			return fmt.Errorf("%w: bracket %d rate %s outside [0, 1]", domain.ErrInvalidReferenceData, i, b.TaxRate)
		}
		last := i == len(brackets)-1
		if b.Unbounded() != last {
			return fmt.Errorf("%w: bracket %d: only the last bracket may be unbounded", domain.ErrInvalidReferenceData, i)
		}
		if !last && b.MaxIncome.LessThanOrEqual(b.MinIncome) {
			return fmt.Errorf("%w: bracket %d max %s not above min %s", domain.ErrInvalidReferenceData, i, b.MaxIncome, b.MinIncome)
		}
		if i == 0 {
			continue
		}

		prev := brackets[i-1]
		if !prev.MaxIncome.Equal(b.MinIncome) {
			return fmt.Errorf("%w: gap between bracket %d (max %s) and bracket %d (min %s)",
				domain.ErrInvalidReferenceData, i-1, prev.MaxIncome, i, b.MinIncome)
		}
		expected := prev.BaseTax.Add(prev.MaxIncome.Sub(prev.MinIncome).Mul(prev.TaxRate))
		if expected.Sub(b.BaseTax).Abs().GreaterThan(tolerance) {
			return fmt.Errorf("%w: bracket %d base tax %s, expected %s",
				domain.ErrInvalidReferenceData, i, b.BaseTax, expected.StringFixed(2))
		}
	}
	return nil
}

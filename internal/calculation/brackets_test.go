package calculation

import (
	"testing"

	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/rpgo/estimated-tax/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// single2025 is Schedule X for 2025.
func single2025() []domain.TaxBracket {
	rows := []struct{ min, max, base, rate string }{
		{"0", "11925", "0", "0.10"},
		{"11925", "48475", "1192.50", "0.12"},
		{"48475", "103350", "5578.50", "0.22"},
		{"103350", "197300", "17651", "0.24"},
		{"197300", "250525", "40199", "0.32"},
		{"250525", "626350", "57231", "0.35"},
		{"626350", "", "188769.75", "0.37"},
	}
	out := make([]domain.TaxBracket, len(rows))
	for i, r := range rows {
		out[i] = domain.TaxBracket{
			TaxYear:      2025,
			FilingStatus: domain.Single,
			MinIncome:    dec(r.min),
			TaxRate:      dec(r.rate),
			BaseTax:      dec(r.base),
		}
		if r.max != "" {
			out[i].MaxIncome = money.Ptr(dec(r.max))
		}
	}
	return out
}

func TestBracketTaxCalculator_Calculate(t *testing.T) {
	calc := NewBracketTaxCalculator(single2025())

	tests := []struct {
		income string
		want   string
	}{
		{"0", "0.00"},
		{"-1500", "0.00"},
		{"10000", "1000.00"},
		{"11925", "1192.50"},
		{"45000", "5161.50"},
		{"48475", "5578.50"},
		{"100000", "16914.50"},
		{"626350", "188769.75"},
		{"1000000", "327020.25"},
		{"33333.33", "3761.50"},
	}

	for _, tt := range tests {
		t.Run(tt.income, func(t *testing.T) {
			got, err := calc.Calculate(dec(tt.income))
			require.NoError(t, err)
			assertMoney(t, tt.want, got)
		})
	}
}

func TestBracketTaxCalculator_BoundaryBelongsToUpperBracket(t *testing.T) {
	calc := NewBracketTaxCalculator(single2025())

	b, err := calc.Find(dec("11925"))
	require.NoError(t, err)
	assert.True(t, b.TaxRate.Equal(dec("0.12")))

	b, err = calc.Find(dec("11924.99"))
	require.NoError(t, err)
	assert.True(t, b.TaxRate.Equal(dec("0.10")))

	b, err = calc.Find(dec("5000000"))
	require.NoError(t, err)
	assert.True(t, b.Unbounded())
}

func TestBracketTaxCalculator_Gap(t *testing.T) {
	brackets := single2025()
	// drop the 22% bracket
	gapped := append(append([]domain.TaxBracket{}, brackets[:2]...), brackets[3:]...)
	calc := NewBracketTaxCalculator(gapped)

	_, err := calc.Calculate(dec("60000"))
	assert.ErrorIs(t, err, domain.ErrBracketGap)

	_, err = NewBracketTaxCalculator(nil).Calculate(dec("100"))
	assert.ErrorIs(t, err, domain.ErrBracketGap)

	// the schedule still works outside the gap
	got, err := calc.Calculate(dec("45000"))
	require.NoError(t, err)
	assertMoney(t, "5161.50", got)
}

func TestBracketTaxCalculator_Monotonic(t *testing.T) {
	calc := NewBracketTaxCalculator(single2025())
	step := dec("997.37")
	prev := decimal.Zero
	for income := decimal.Zero; income.LessThan(dec("900000")); income = income.Add(step) {
		tax, err := calc.Calculate(income)
		require.NoError(t, err)
		require.True(t, tax.GreaterThanOrEqual(prev), "tax dropped at %s", income)
		prev = tax
	}
}

func TestValidateBrackets(t *testing.T) {
	require.NoError(t, ValidateBrackets(single2025()))

	tests := []struct {
		name   string
		mutate func([]domain.TaxBracket) []domain.TaxBracket
	}{
		{"empty", func([]domain.TaxBracket) []domain.TaxBracket { return nil }},
		{"does not start at zero", func(b []domain.TaxBracket) []domain.TaxBracket {
			b[0].MinIncome = dec("1")
			return b
		}},
		{"gap between brackets", func(b []domain.TaxBracket) []domain.TaxBracket {
			b[2].MinIncome = dec("48500")
			return b
		}},
		{"top bracket bounded", func(b []domain.TaxBracket) []domain.TaxBracket {
			b[6].MaxIncome = money.Ptr(dec("10000000"))
			return b
		}},
		{"unbounded bracket in the middle", func(b []domain.TaxBracket) []domain.TaxBracket {
			b[3].MaxIncome = nil
			return b
		}},
		{"inconsistent base tax", func(b []domain.TaxBracket) []domain.TaxBracket {
			b[4].BaseTax = dec("40199.02")
			return b
		}},
		{"rate as percent", func(b []domain.TaxBracket) []domain.TaxBracket {
			b[1].TaxRate = dec("12")
			return b
		}},
		{"empty range", func(b []domain.TaxBracket) []domain.TaxBracket {
			b[1].MaxIncome = money.Ptr(dec("11925"))
			return b
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBrackets(tt.mutate(single2025()))
			assert.ErrorIs(t, err, domain.ErrInvalidReferenceData)
		})
	}
}

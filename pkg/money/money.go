package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Cents is the number of decimal places every worksheet line is rounded to.
const Cents int32 = 2

// RoundHalfUp rounds to whole cents with midpoints rounded away from zero,
// so 123.455 becomes 123.46 and -123.455 becomes -123.46.
func RoundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Round(Cents)
}

// MulRate multiplies an amount by a rate fraction and rounds the product once.
func MulRate(amount, rate decimal.Decimal) decimal.Decimal {
	return RoundHalfUp(amount.Mul(rate))
}

// NonNegative clamps d to a zero floor.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// OrZero dereferences an optional amount, treating nil as zero.
func OrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// Ptr returns a pointer to d, for populating optional input fields.
func Ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// Money represents a monetary amount with proper financial precision
type Money struct {
	decimal.Decimal
}

// NewMoneyFromDecimal creates a new Money instance from a decimal.Decimal
func NewMoneyFromDecimal(d decimal.Decimal) Money {
	return Money{d}
}

// NewMoneyFromString creates a new Money instance from a string
func NewMoneyFromString(value string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, err
	}
	return Money{d}, nil
}

// Round rounds the money amount to cents, half away from zero
func (m Money) Round() Money {
	return Money{RoundHalfUp(m.Decimal)}
}

// Quarterly splits an annual amount into four equal installments
func (m Money) Quarterly() Money {
	return Money{RoundHalfUp(m.Decimal.Div(decimal.NewFromInt(4)))}
}

// Add adds another Money amount
func (m Money) Add(other Money) Money {
	return Money{m.Decimal.Add(other.Decimal)}
}

// Sub subtracts another Money amount
func (m Money) Sub(other Money) Money {
	return Money{m.Decimal.Sub(other.Decimal)}
}

// MulRate multiplies by a rate and rounds to cents
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Money{MulRate(m.Decimal, rate)}
}

// Zero returns a zero Money amount
func Zero() Money {
	return Money{decimal.Zero}
}

// String returns the amount with exactly two decimal places
func (m Money) String() string {
	return m.Decimal.StringFixed(Cents)
}

// Format renders the amount as US currency with thousands separators,
// e.g. -$12,345.60.
func (m Money) Format() string {
	s := m.Round().String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := "$" + b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}

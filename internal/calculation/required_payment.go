package calculation

import (
	"github.com/rpgo/estimated-tax/pkg/money"
	"github.com/shopspring/decimal"
)

// RequiredPayment is the outcome of the minimum-payment rule.
type RequiredPayment struct {
	Basis     decimal.Decimal // total tax - withholding
	Amount    decimal.Decimal
	Required  bool
	Quarterly decimal.Decimal
}

// DecideRequiredPayment applies the current-year rule: when total tax less
// withholding is under the threshold nothing is due, otherwise the whole
// difference is. The prior-year safe harbor is not applied.
func DecideRequiredPayment(totalTax, withholding, threshold decimal.Decimal) RequiredPayment {
	basis := money.RoundHalfUp(totalTax.Sub(withholding))
	if basis.LessThan(threshold) || !basis.IsPositive() {
		return RequiredPayment{Basis: basis, Amount: decimal.Zero, Quarterly: decimal.Zero}
	}
	return RequiredPayment{
		Basis:     basis,
		Amount:    basis,
		Required:  true,
		Quarterly: money.NewMoneyFromDecimal(basis).Quarterly().Decimal,
	}
}

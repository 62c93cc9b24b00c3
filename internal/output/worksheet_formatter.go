package output

import (
	"bytes"
	"fmt"

	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/rpgo/estimated-tax/pkg/money"
)

// WorksheetFormatter prints every worksheet line the way Form 1040-ES numbers them.
type WorksheetFormatter struct{}

func (w WorksheetFormatter) Name() string { return "worksheet" }

func (w WorksheetFormatter) Format(estimates []domain.Estimate) ([]byte, error) {
	var buf bytes.Buffer
	line := func(num, label string, amount string) {
		fmt.Fprintf(&buf, "%-4s %-44s %16s\n", num, label, amount)
	}

	for i, e := range estimates {
		if i > 0 {
			fmt.Fprintln(&buf)
		}
		in, res := e.Input, e.Result
		se := res.SEWorksheet

		fmt.Fprintf(&buf, "TAX YEAR %d  FILING STATUS %s\n", in.TaxYear, in.FilingStatus.Name())
		fmt.Fprintln(&buf)
		fmt.Fprintln(&buf, "SELF-EMPLOYMENT TAX AND DEDUCTION WORKSHEET")
		fmt.Fprintln(&buf, "------------------------------------------")
		if in.SEIncome == nil && in.ExpectedCRPPayments == nil {
			fmt.Fprintln(&buf, "No self-employment income reported.")
		} else {
			line("1a", "Expected SE income", FormatOptional(in.SEIncome))
			line("1b", "Conservation Reserve Program payments", FormatOptional(in.ExpectedCRPPayments))
			line("2", "Combined SE income", FormatCurrency(se.CombinedSEIncome))
			if se.BelowThreshold {
				fmt.Fprintln(&buf, "     Under the SE threshold; no SE tax is due.")
			} else {
				line("3", "Net earnings from self-employment", FormatCurrency(se.NetEarnings))
				line("4", "Medicare tax", FormatCurrency(se.MedicareTax))
				line("6", "Expected wages", FormatOptional(in.ExpectedWages))
				line("7", "Remaining social security wage base", FormatCurrency(se.RemainingSSWageBase))
				line("8", "Earnings subject to social security tax", FormatCurrency(se.SSTaxableEarnings))
				line("9", "Social security tax", FormatCurrency(se.SocialSecurityTax))
				line("10", "Self-employment tax", FormatCurrency(se.SelfEmploymentTax))
				line("11", "Deductible part of SE tax", FormatCurrency(se.SETaxDeduction))
			}
		}

		deductionLabel := "Expected deduction"
		if res.UsedStandardDeduction {
			deductionLabel = "Standard deduction"
		}

		fmt.Fprintln(&buf)
		fmt.Fprintln(&buf, "ESTIMATED TAX WORKSHEET")
		fmt.Fprintln(&buf, "-----------------------")
		line("1", "Adjusted gross income", FormatCurrency(in.ExpectedAGI))
		line("2a", deductionLabel, FormatCurrency(res.DeductionUsed))
		line("2b", "Qualified business income deduction", FormatCurrency(res.QBIDeduction))
		line("3", "Taxable income", FormatCurrency(res.TaxableIncome))
		line("4", "Tax", FormatCurrency(res.OrdinaryIncomeTax))
		line("5", "Alternative minimum tax", FormatCurrency(money.OrZero(in.ExpectedAMT)))
		line("6", "Add lines 4 and 5", FormatCurrency(res.TaxBeforeCredits))
		line("7", "Credits", FormatCurrency(money.OrZero(in.ExpectedCredits)))
		line("8", "Subtract line 7 from line 6", FormatCurrency(res.TaxAfterCredits))
		line("9", "Self-employment tax", FormatCurrency(res.CalculatedSETax))
		line("10", "Other taxes", FormatCurrency(money.OrZero(in.ExpectedOtherTaxes)))
		line("11", "Total estimated tax", FormatCurrency(res.CalculatedTotalTax))
		line("12", "Expected withholding", FormatCurrency(money.OrZero(in.ExpectedWithholding)))
		line("13", "Line 11 less withholding", FormatCurrency(res.RequiredPaymentBasis))
		line("14", "Required annual payment", FormatCurrency(res.CalculatedRequiredPayment))
		line("15", "Quarterly installment", FormatCurrency(res.QuarterlyPayment))
		fmt.Fprintf(&buf, "Payment required: %s\n", yesNo(res.PaymentRequired))
	}
	return buf.Bytes(), nil
}

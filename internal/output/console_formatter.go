package output

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/rpgo/estimated-tax/pkg/money"
)

// ConsoleFormatter provides a concise console style summary via the formatter interface.
type ConsoleFormatter struct{}

func (c ConsoleFormatter) Name() string { return "console" }

func (c ConsoleFormatter) Format(estimates []domain.Estimate) ([]byte, error) {
	var buf bytes.Buffer
	for i, e := range estimates {
		if i > 0 {
			fmt.Fprintln(&buf)
		}
		in, res := e.Input, e.Result

		fmt.Fprintf(&buf, "1040-ES ESTIMATE %d  %s (%s)\n", in.TaxYear, in.FilingStatus.Name(), in.FilingStatus)
		fmt.Fprintln(&buf, "================================")
		if e.ID != uuid.Nil {
			fmt.Fprintf(&buf, "Estimate ID:             %s\n", e.ID)
		}
		fmt.Fprintf(&buf, "Expected AGI:            %s\n", FormatCurrency(in.ExpectedAGI))
		fmt.Fprintf(&buf, "Taxable Income:          %s\n", FormatCurrency(res.TaxableIncome))
		fmt.Fprintf(&buf, "Self-Employment Tax:     %s\n", FormatCurrency(res.CalculatedSETax))
		fmt.Fprintf(&buf, "Total Estimated Tax:     %s\n", FormatCurrency(res.CalculatedTotalTax))
		fmt.Fprintf(&buf, "Expected Withholding:    %s\n", FormatCurrency(money.OrZero(in.ExpectedWithholding)))
		fmt.Fprintf(&buf, "Required Annual Payment: %s\n", FormatCurrency(res.CalculatedRequiredPayment))
		if res.PaymentRequired {
			fmt.Fprintf(&buf, "Quarterly Installment:   %s\n", FormatCurrency(res.QuarterlyPayment))
		} else {
			fmt.Fprintf(&buf, "No estimated payments required (balance under %s)\n", FormatCurrency(res.RequiredThreshold))
		}
	}
	return buf.Bytes(), nil
}

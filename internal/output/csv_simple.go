package output

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/google/uuid"
	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/rpgo/estimated-tax/pkg/money"
)

// CSVSummarizer implements the summary CSV output (one row per estimate, input order).
type CSVSummarizer struct{}

func (c CSVSummarizer) Name() string { return "csv" }

func (c CSVSummarizer) Format(estimates []domain.Estimate) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"id", "tax_year", "filing_status", "expected_agi", "taxable_income", "se_tax", "total_tax", "withholding", "required_payment", "quarterly_payment", "payment_required"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, e := range estimates {
		id := ""
		if e.ID != uuid.Nil {
			id = e.ID.String()
		}
		row := []string{
			id,
			strconv.Itoa(e.Input.TaxYear),
			string(e.Input.FilingStatus),
			e.Input.ExpectedAGI.StringFixed(2),
			e.Result.TaxableIncome.StringFixed(2),
			e.Result.CalculatedSETax.StringFixed(2),
			e.Result.CalculatedTotalTax.StringFixed(2),
			money.OrZero(e.Input.ExpectedWithholding).StringFixed(2),
			e.Result.CalculatedRequiredPayment.StringFixed(2),
			e.Result.QuarterlyPayment.StringFixed(2),
			strconv.FormatBool(e.Result.PaymentRequired),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

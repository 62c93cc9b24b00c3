package refdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/shopspring/decimal"
)

// Rate schedule letters from the Form 1040-ES instructions.
var scheduleStatuses = map[string][]domain.FilingStatusCode{
	"X":   {domain.Single},
	"Y-1": {domain.MarriedFilingJointly, domain.QualifyingSurvivingSpouse},
	"Y-2": {domain.MarriedFilingSeparately},
	"Z":   {domain.HeadOfHousehold},
}

var bracketColumns = []string{"tax_year", "schedule", "min_income", "max_income", "base_tax", "rate"}

// ParseBracketsCSV reads rows of tax_year,schedule,min_income,max_income,base_tax,rate.
// An empty max_income marks the top bracket. Schedule Y-1 expands to both
// MFJ and QSS. Columns are matched by header name, in any order.
func ParseBracketsCSV(r io.Reader) ([]domain.TaxBracket, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range bracketColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var brackets []domain.TaxBracket
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rows, err := parseBracketRecord(record, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		brackets = append(brackets, rows...)
	}
	return brackets, nil
}

func parseBracketRecord(record []string, index map[string]int) ([]domain.TaxBracket, error) {
	field := func(name string) string {
		return strings.TrimSpace(record[index[name]])
	}

	year, err := strconv.Atoi(field("tax_year"))
	if err != nil {
		return nil, fmt.Errorf("invalid tax_year %q", field("tax_year"))
	}
	schedule := strings.ToUpper(field("schedule"))
	statuses, ok := scheduleStatuses[schedule]
	if !ok {
		return nil, fmt.Errorf("unknown schedule %q", schedule)
	}

	minIncome, err := decimal.NewFromString(field("min_income"))
	if err != nil {
		return nil, fmt.Errorf("invalid min_income: %w", err)
	}
	var maxIncome *decimal.Decimal
	if s := field("max_income"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid max_income: %w", err)
		}
		maxIncome = &d
	}
	base, err := decimal.NewFromString(field("base_tax"))
	if err != nil {
		return nil, fmt.Errorf("invalid base_tax: %w", err)
	}
	rate, err := decimal.NewFromString(field("rate"))
	if err != nil {
		return nil, fmt.Errorf("invalid rate: %w", err)
	}

	out := make([]domain.TaxBracket, 0, len(statuses))
	for _, status := range statuses {
		b := domain.TaxBracket{
			TaxYear:      year,
			FilingStatus: status,
			MinIncome:    minIncome,
			TaxRate:      rate,
			BaseTax:      base,
		}
		if maxIncome != nil {
			m := *maxIncome
			b.MaxIncome = &m
		}
		out = append(out, b)
	}
	return out, nil
}

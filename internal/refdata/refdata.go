// Package refdata holds the versioned IRS reference tables shipped with the
// binary and loads them into any repository backend.
//
// Tables live in data/ as three YAML documents and one CSV bracket file:
//
//	tax_years.yaml            rate constants per year
//	filing_statuses.yaml      static status catalog
//	standard_deductions.yaml  amount per (year, status)
//	tax_brackets.csv          rate schedules X, Y-1, Y-2 and Z per year
package refdata

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/rpgo/estimated-tax/internal/calculation"
	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/rpgo/estimated-tax/internal/repository"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml data/*.csv
var embedded embed.FS

const (
	taxYearsFile           = "tax_years.yaml"
	filingStatusesFile     = "filing_statuses.yaml"
	standardDeductionsFile = "standard_deductions.yaml"
	taxBracketsFile        = "tax_brackets.csv"
)

// Dataset is a complete, validated set of reference tables.
type Dataset struct {
	TaxYears           []domain.TaxYearConfig     `yaml:"tax_years"`
	FilingStatuses     []domain.FilingStatus      `yaml:"filing_statuses"`
	StandardDeductions []domain.StandardDeduction `yaml:"standard_deductions"`
	Brackets           []domain.TaxBracket        `yaml:"-"`
}

// Load reads the tables embedded in the binary.
func Load() (*Dataset, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded reference data: %w", err)
	}
	return LoadFS(sub)
}

// LoadFS reads the four table files from the root of fsys, e.g. os.DirFS(dir).
func LoadFS(fsys fs.FS) (*Dataset, error) {
	ds := &Dataset{}
	for _, name := range []string{taxYearsFile, filingStatusesFile, standardDeductionsFile} {
		if err := decodeYAML(fsys, name, ds); err != nil {
			return nil, err
		}
	}

	f, err := fsys.Open(taxBracketsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", taxBracketsFile, err)
	}
	defer f.Close()

	ds.Brackets, err = ParseBracketsCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", taxBracketsFile, err)
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

func decodeYAML(fsys fs.FS, name string, ds *Dataset) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, ds); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// Years returns the seeded tax years in ascending order.
func (ds *Dataset) Years() []int {
	years := make([]int, 0, len(ds.TaxYears))
	for _, y := range ds.TaxYears {
		years = append(years, y.TaxYear)
	}
	sort.Ints(years)
	return years
}

// Schedule returns the brackets for one (year, status) sorted by MinIncome.
func (ds *Dataset) Schedule(year int, status domain.FilingStatusCode) []domain.TaxBracket {
	var out []domain.TaxBracket
	for _, b := range ds.Brackets {
		if b.TaxYear == year && b.FilingStatus == status {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MinIncome.LessThan(out[j].MinIncome) })
	return out
}

// Validate checks that every year has valid constants, and a standard
// deduction plus a well-formed rate schedule for every catalog status.
func (ds *Dataset) Validate() error {
	if len(ds.TaxYears) == 0 {
		return fmt.Errorf("%w: no tax years defined", domain.ErrInvalidReferenceData)
	}
	if len(ds.FilingStatuses) == 0 {
		return fmt.Errorf("%w: no filing statuses defined", domain.ErrInvalidReferenceData)
	}

	ids := make(map[int]bool)
	for _, status := range ds.FilingStatuses {
		if !status.Code.Valid() {
			return fmt.Errorf("%w: unknown filing status code %q", domain.ErrInvalidReferenceData, status.Code)
		}
		if ids[status.ID] {
			return fmt.Errorf("%w: duplicate filing status id %d", domain.ErrInvalidReferenceData, status.ID)
		}
		ids[status.ID] = true
	}

	deductions := make(map[string]bool)
	for _, d := range ds.StandardDeductions {
		if d.Amount.IsNegative() {
			return fmt.Errorf("%w: standard deduction %d/%s is negative", domain.ErrInvalidReferenceData, d.TaxYear, d.FilingStatus)
		}
		deductions[fmt.Sprintf("%d/%s", d.TaxYear, d.FilingStatus)] = true
	}

	seen := make(map[int]bool)
	for _, cfg := range ds.TaxYears {
		if seen[cfg.TaxYear] {
			return fmt.Errorf("%w: duplicate tax year %d", domain.ErrInvalidReferenceData, cfg.TaxYear)
		}
		seen[cfg.TaxYear] = true

		if err := calculation.ValidateTaxYearConfig(cfg); err != nil {
			return err
		}
		for _, status := range ds.FilingStatuses {
			if !deductions[fmt.Sprintf("%d/%s", cfg.TaxYear, status.Code)] {
				return fmt.Errorf("%w: no standard deduction for %d/%s", domain.ErrInvalidReferenceData, cfg.TaxYear, status.Code)
			}
			if err := calculation.ValidateBrackets(ds.Schedule(cfg.TaxYear, status.Code)); err != nil {
				return fmt.Errorf("schedule %d/%s: %w", cfg.TaxYear, status.Code, err)
			}
		}
	}
	return nil
}

// Seed writes the dataset into w. Statuses and years go first so the
// dependent rows always have their parents; rerunning Seed is idempotent.
func Seed(ctx context.Context, w repository.ReferenceWriter, ds *Dataset) error {
	for _, status := range ds.FilingStatuses {
		if err := w.PutFilingStatus(ctx, status); err != nil {
			return fmt.Errorf("failed to seed filing status %s: %w", status.Code, err)
		}
	}
	for _, cfg := range ds.TaxYears {
		if err := w.PutTaxYearConfig(ctx, cfg); err != nil {
			return fmt.Errorf("failed to seed tax year %d: %w", cfg.TaxYear, err)
		}
	}
	for _, d := range ds.StandardDeductions {
		if err := w.PutStandardDeduction(ctx, d); err != nil {
			return fmt.Errorf("failed to seed standard deduction %d/%s: %w", d.TaxYear, d.FilingStatus, err)
		}
	}
	for _, cfg := range ds.TaxYears {
		for _, status := range ds.FilingStatuses {
			if err := w.ReplaceTaxBrackets(ctx, cfg.TaxYear, status.Code, ds.Schedule(cfg.TaxYear, status.Code)); err != nil {
				return fmt.Errorf("failed to seed tax brackets %d/%s: %w", cfg.TaxYear, status.Code, err)
			}
		}
	}
	return nil
}

// SeedDefault loads the embedded tables and writes them into w.
func SeedDefault(ctx context.Context, w repository.ReferenceWriter) (*Dataset, error) {
	ds, err := Load()
	if err != nil {
		return nil, err
	}
	if err := Seed(ctx, w, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

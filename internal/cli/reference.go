package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/rpgo/estimated-tax/internal/output"
	"github.com/rpgo/estimated-tax/internal/refdata"
	"github.com/spf13/cobra"
)

func (a *app) referenceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reference",
		Short: "Inspect the reference tables in the configured backend",
	}

	years := &cobra.Command{
		Use:   "years",
		Short: "List seeded tax years with their rate constants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			list, err := a.repo.ListTaxYears(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "YEAR\tSS WAGE MAX\tSS RATE\tMEDICARE RATE\tSE FACTOR\tREQUIRED THRESHOLD\tMIN SE INCOME")
			for _, year := range list {
				cfg, err := a.repo.GetTaxYearConfig(ctx, year)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					cfg.TaxYear,
					output.FormatCurrency(cfg.SSWageMax),
					output.FormatPercentage(cfg.SSTaxRate),
					output.FormatPercentage(cfg.MedicareTaxRate),
					output.FormatPercentage(cfg.SETaxDeductiblePercentage),
					output.FormatCurrency(cfg.RequiredPaymentThreshold),
					output.FormatCurrency(cfg.MinSEThreshold))
			}
			return tw.Flush()
		},
	}

	statuses := &cobra.Command{
		Use:   "statuses",
		Short: "List the filing status catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := a.repo.ListFilingStatuses(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCODE\tNAME")
			for _, s := range list {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", s.ID, s.Code, s.Name)
			}
			return tw.Flush()
		},
	}

	var (
		year   int
		status string
	)
	brackets := &cobra.Command{
		Use:   "brackets",
		Short: "Print the rate schedule for a year and filing status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			code, err := domain.ParseFilingStatusCode(status)
			if err != nil {
				return err
			}
			schedule, err := a.repo.GetTaxBrackets(cmd.Context(), year, code)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "OVER\tBUT NOT OVER\tBASE TAX\tRATE\t")
			for _, b := range schedule {
				upper := "-"
				if b.MaxIncome != nil {
					upper = output.FormatCurrency(*b.MaxIncome)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
					output.FormatCurrency(b.MinIncome), upper, output.FormatCurrency(b.BaseTax), output.FormatPercentage(b.TaxRate))
			}
			return tw.Flush()
		},
	}
	scheduleFlags(brackets, &year, &status)

	deduction := &cobra.Command{
		Use:   "deduction",
		Short: "Print the standard deduction for a year and filing status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			code, err := domain.ParseFilingStatusCode(status)
			if err != nil {
				return err
			}
			amount, err := a.repo.GetStandardDeduction(cmd.Context(), year, code)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s standard deduction: %s\n", year, code.Name(), output.FormatCurrency(amount))
			return nil
		},
	}
	scheduleFlags(deduction, &year, &status)

	cmd.AddCommand(years, statuses, brackets, deduction)
	return cmd
}

func scheduleFlags(cmd *cobra.Command, year *int, status *string) {
	cmd.Flags().IntVarP(year, "year", "y", 0, "tax year")
	cmd.Flags().StringVarP(status, "status", "s", "", "filing status code (S, MFJ, MFS, HOH, QSS)")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("status")
}

// loadDataset reads the tables from dir, or the built-in copy when dir is empty.
func (a *app) loadDataset(dir string) (*refdata.Dataset, error) {
	if dir == "" {
		return refdata.Load()
	}
	return refdata.LoadFS(os.DirFS(dir))
}

func (a *app) seedCommand() *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the reference tables into the configured backend",
		Long: "seed writes the tax years, filing statuses, standard deductions and rate\n" +
			"schedules shipped with taxest (or read from --data-dir) into the backend.\n" +
			"Reseeding the same tables is a no-op.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := a.loadDataset(dataDir)
			if err != nil {
				return err
			}
			if err := refdata.Seed(cmd.Context(), a.repo, ds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %s backend: %d tax years, %d filing statuses, %d standard deductions, %d brackets\n",
				a.cfg.Backend, len(ds.TaxYears), len(ds.FilingStatuses), len(ds.StandardDeductions), len(ds.Brackets))
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory with tax_years.yaml, filing_statuses.yaml, standard_deductions.yaml and tax_brackets.csv (default: built in)")
	return cmd
}

package cli

import (
	"fmt"

	"github.com/rpgo/estimated-tax/internal/calculation"
	"github.com/rpgo/estimated-tax/internal/config"
	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/rpgo/estimated-tax/internal/output"
	"github.com/rpgo/estimated-tax/pkg/dateutil"
	"github.com/spf13/cobra"
)

func (a *app) calculateCommand() *cobra.Command {
	var (
		inputFile string
		format    string
		save      bool
		reportDir string
	)

	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Compute one estimate from a YAML or JSON input document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			formatter, err := output.LookupFormatter(format)
			if err != nil {
				return err
			}

			input, err := config.NewInputParser().LoadFromFile(inputFile)
			if err != nil {
				return err
			}
			if input.TaxYear < dateutil.CurrentTaxYear() {
				a.logger.Warnf("tax year %d has already ended; estimated payments for it are past due", input.TaxYear)
			}

			result, err := a.engine().ComputeEstimate(cmd.Context(), *input)
			if err != nil {
				return err
			}

			estimate := domain.Estimate{Input: *input, Result: *result}
			if save {
				stored, err := domain.NewEstimate(*input, *result)
				if err != nil {
					return err
				}
				if err := a.repo.SaveEstimate(cmd.Context(), stored); err != nil {
					return fmt.Errorf("failed to save estimate: %w", err)
				}
				estimate = *stored
				a.logger.Infof("saved estimate %s", stored.ID)
			}

			return a.emit(cmd, formatter, []domain.Estimate{estimate}, reportDir)
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "input document (YAML or JSON)")
	cmd.Flags().StringVarP(&format, "format", "f", "console", "output format: console, worksheet, json, csv")
	cmd.Flags().BoolVar(&save, "save", false, "store the estimate in the repository")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "also write a timestamped report file into this directory")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func (a *app) batchCommand() *cobra.Command {
	var (
		inputFile string
		format    string
		save      bool
		keepGoing bool
		workers   int
		reportDir string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Compute estimates for every row of a CSV input file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			formatter, err := output.LookupFormatter(format)
			if err != nil {
				return err
			}

			inputs, err := config.NewInputParser().LoadBatchFile(inputFile)
			if err != nil {
				return err
			}

			var (
				estimates []domain.Estimate
				failed    int
			)
			for _, r := range a.engine().ComputeBatch(cmd.Context(), inputs, workers) {
				if r.Err != nil {
					rowErr := &config.RowError{Row: r.Index + 1, Err: r.Err}
					if !keepGoing {
						return rowErr
					}
					a.logger.Errorf("skipping %v", rowErr)
					failed++
					continue
				}

				estimate := domain.Estimate{Input: r.Input, Result: *r.Result}
				if save {
					stored, err := domain.NewEstimate(r.Input, *r.Result)
					if err != nil {
						return err
					}
					if err := a.repo.SaveEstimate(cmd.Context(), stored); err != nil {
						return fmt.Errorf("failed to save row %d: %w", r.Index+1, err)
					}
					estimate = *stored
				}
				estimates = append(estimates, estimate)
			}

			if err := a.emit(cmd, formatter, estimates, reportDir); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d rows failed", failed, len(inputs))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "CSV file, one estimate per row")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "output format: console, worksheet, json, csv")
	cmd.Flags().BoolVar(&save, "save", false, "store every computed estimate")
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "report failed rows and continue with the rest")
	cmd.Flags().IntVar(&workers, "workers", calculation.DefaultBatchWorkers, "estimates computed concurrently")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "also write a timestamped report file into this directory")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// emit writes the report to stdout and, when dir is set, to a report file.
func (a *app) emit(cmd *cobra.Command, f output.Formatter, estimates []domain.Estimate, dir string) error {
	data, err := f.Format(estimates)
	if err != nil {
		return fmt.Errorf("failed to format %s report: %w", f.Name(), err)
	}
	if _, err := cmd.OutOrStdout().Write(data); err != nil {
		return err
	}
	if dir == "" {
		return nil
	}
	path, err := output.WriteFormatted(f, estimates, dir)
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	a.logger.Infof("report written to %s", path)
	return nil
}

package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rpgo/estimated-tax/internal/config"
	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/rpgo/estimated-tax/internal/output"
	"github.com/rpgo/estimated-tax/pkg/dateutil"
	"github.com/spf13/cobra"
)

func (a *app) estimatesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "estimates",
		Aliases: []string{"estimate"},
		Short:   "Manage saved estimates",
	}

	var (
		taxYear     int
		createdYear int
		listFormat  string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List saved estimates, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			formatter, err := output.LookupFormatter(listFormat)
			if err != nil {
				return err
			}
			var year *int
			if cmd.Flags().Changed("year") {
				year = &taxYear
			}
			estimates, err := a.repo.ListEstimates(cmd.Context(), year)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("created-in") {
				kept := estimates[:0]
				for _, e := range estimates {
					if dateutil.InTaxYear(e.CreatedAt, createdYear) {
						kept = append(kept, e)
					}
				}
				estimates = kept
			}
			return a.emit(cmd, formatter, estimates, "")
		},
	}
	list.Flags().IntVarP(&taxYear, "year", "y", 0, "only estimates for this tax year")
	list.Flags().IntVar(&createdYear, "created-in", 0, "only estimates saved during this calendar year")
	list.Flags().StringVarP(&listFormat, "format", "f", "csv", "output format: console, worksheet, json, csv")

	var showFormat string
	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one saved estimate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := output.LookupFormatter(showFormat)
			if err != nil {
				return err
			}
			id, err := parseEstimateID(args[0])
			if err != nil {
				return err
			}
			estimate, err := a.repo.GetEstimate(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(cmd, formatter, []domain.Estimate{*estimate}, "")
		},
	}
	show.Flags().StringVarP(&showFormat, "format", "f", "worksheet", "output format: console, worksheet, json, csv")

	var (
		recalcFormat string
		replace      bool
	)
	recalc := &cobra.Command{
		Use:   "recalculate <id>",
		Short: "Recompute a saved estimate against the current reference tables",
		Long: "recalculate reruns a saved input. Results are never patched in place: the\n" +
			"new result is stored under a new id and, with --replace, the old estimate\n" +
			"is deleted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := output.LookupFormatter(recalcFormat)
			if err != nil {
				return err
			}
			id, err := parseEstimateID(args[0])
			if err != nil {
				return err
			}
			old, err := a.repo.GetEstimate(cmd.Context(), id)
			if err != nil {
				return err
			}
			result, err := a.engine().ComputeEstimate(cmd.Context(), old.Input)
			if err != nil {
				return err
			}
			fresh, err := domain.NewEstimate(old.Input, *result)
			if err != nil {
				return err
			}
			if err := a.repo.SaveEstimate(cmd.Context(), fresh); err != nil {
				return fmt.Errorf("failed to save estimate: %w", err)
			}
			if replace {
				if err := a.repo.DeleteEstimate(cmd.Context(), old.ID); err != nil {
					return fmt.Errorf("failed to delete estimate %s: %w", old.ID, err)
				}
			}
			a.logger.Infof("recalculated %s as %s", old.ID, fresh.ID)
			return a.emit(cmd, formatter, []domain.Estimate{*fresh}, "")
		},
	}
	recalc.Flags().StringVarP(&recalcFormat, "format", "f", "console", "output format: console, worksheet, json, csv")
	recalc.Flags().BoolVar(&replace, "replace", false, "delete the original estimate after saving the new one")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved estimate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEstimateID(args[0])
			if err != nil {
				return err
			}
			if err := a.repo.DeleteEstimate(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, show, recalc, del)
	return cmd
}

func parseEstimateID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q is not an estimate id", domain.ErrInvalidInput, raw)
	}
	return id, nil
}

func (a *app) exampleCommand() *cobra.Command {
	var (
		year    int
		outFile string
	)

	cmd := &cobra.Command{
		Use:         "example",
		Short:       "Print an example input document",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipRepository: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("year") {
				year = dateutil.CurrentTaxYear()
			}
			parser := config.NewInputParser()
			data, err := parser.MarshalInput(parser.CreateExampleInput(year))
			if err != nil {
				return err
			}
			if outFile == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outFile, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outFile, err)
			}
			a.logger.Infof("example input written to %s", outFile)
			return nil
		},
	}
	cmd.Flags().IntVarP(&year, "year", "y", 0, "tax year (default: current year)")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "write to this file instead of stdout")
	return cmd
}

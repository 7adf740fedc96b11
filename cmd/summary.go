package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/sells-group/affordability-cli/internal/afford"
)

var (
	summaryIncome  float64
	summaryPersona string
	summaryFormat  string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Budget card for an income or persona",
	Long:  "Prints the maximum affordable price (or monthly rent, for rent strategies) and the reference rent budget for an income. Does not load the dataset.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := checkFormat(summaryFormat, listFormats); err != nil {
			return err
		}
		if err := cfg.Validate("query"); err != nil {
			return err
		}
		strategy, _, err := buildStrategy(cfg.Afford)
		if err != nil {
			return err
		}
		_, strategy = loadOptions(cfg.Data, strategy)

		return runSummary(cmd.OutOrStdout(), strategy, summaryIncome, summaryPersona, summaryFormat)
	},
}

func init() {
	summaryCmd.Flags().Float64Var(&summaryIncome, "income", 0, "annual income (default from persona)")
	summaryCmd.Flags().StringVar(&summaryPersona, "persona", afford.DefaultPersona, "income persona")
	summaryCmd.Flags().StringVar(&summaryFormat, "format", formatTable, "output format: table, json, yaml, csv")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(out io.Writer, s afford.Strategy, income float64, persona, format string) error {
	income, persona, err := afford.ResolveIncome(income, persona)
	if err != nil {
		return err
	}
	sum := afford.Summarize(income, persona, s)

	return render(out, format, sum, func(c cells) tableData {
		return tableData{
			Header: []string{"PERSONA", "INCOME", "FRAMING", "MAX_AFFORDABLE", "MAX_MONTHLY_RENT", "THRESHOLD", "BUDGET_PCT"},
			Rows: [][]string{{
				sum.Persona,
				c.amount(sum.Income),
				string(sum.Framing),
				c.amount(sum.MaxAffordablePrice),
				c.amount(sum.MaxMonthlyRent),
				c.ratio(sum.Threshold),
				c.ratio(sum.BudgetPct),
			}},
		}
	})
}

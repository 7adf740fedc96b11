package main

import (
	"io"
	"math"

	"github.com/spf13/cobra"

	"github.com/sells-group/affordability-cli/internal/afford"
)

var tiersFormat string

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "Tier legend with ratio ranges",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := checkFormat(tiersFormat, listFormats); err != nil {
			return err
		}
		_, tiers, err := buildStrategy(cfg.Afford)
		if err != nil {
			return err
		}
		return runTiers(cmd.OutOrStdout(), tiers, tiersFormat)
	},
}

func init() {
	tiersCmd.Flags().StringVar(&tiersFormat, "format", formatTable, "output format: table, json, yaml, csv")
	rootCmd.AddCommand(tiersCmd)
}

// tierRow is one legend entry. Open ends are omitted.
type tierRow struct {
	Tier  afford.Tier `json:"tier" yaml:"tier"`
	Lower *float64    `json:"lower,omitempty" yaml:"lower,omitempty"`
	Upper *float64    `json:"upper,omitempty" yaml:"upper,omitempty"`
}

func tierLegend(tiers afford.Tiers) []tierRow {
	rows := make([]tierRow, 0, len(afford.AllTiers()))
	for _, t := range afford.AllTiers() {
		lo, hi := tiers.Range(t)
		row := tierRow{Tier: t}
		if !math.IsInf(lo, 0) {
			row.Lower = &lo
		}
		if !math.IsInf(hi, 0) {
			row.Upper = &hi
		}
		rows = append(rows, row)
	}
	return rows
}

func runTiers(out io.Writer, tiers afford.Tiers, format string) error {
	rows := tierLegend(tiers)
	return render(out, format, rows, func(c cells) tableData {
		t := tableData{Header: []string{"TIER", "ABOVE", "UP_TO"}}
		for _, r := range rows {
			lower, upper := c.missing(), c.missing()
			if r.Lower != nil {
				lower = c.ratio(*r.Lower)
			}
			if r.Upper != nil {
				upper = c.ratio(*r.Upper)
			}
			t.Rows = append(t.Rows, []string{r.Tier.String(), lower, upper})
		}
		return t
	})
}

package main

import (
	"context"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/affordability-cli/internal/aggregate"
	"github.com/sells-group/affordability-cli/internal/cache"
)

var (
	historyCity   string
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Per-year medians for one metro",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := checkFormat(historyFormat, listFormats); err != nil {
			return err
		}

		ctx := cmd.Context()
		env, err := loadDataset(ctx, "query")
		if err != nil {
			return err
		}
		defer env.Close()

		return runHistory(ctx, cmd.OutOrStdout(), env.Pipeline, historyCity, historyFormat)
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyCity, "city", "", "metro code, e.g. ATL (required)")
	historyCmd.Flags().StringVar(&historyFormat, "format", formatTable, "output format: table, json, yaml, csv")
	_ = historyCmd.MarkFlagRequired("city")
	rootCmd.AddCommand(historyCmd)
}

// historyResult is the json and yaml shape of a city trend.
type historyResult struct {
	City        string                   `json:"city_code" yaml:"city_code"`
	DisplayName string                   `json:"display_name" yaml:"display_name"`
	History     []aggregate.HistoryPoint `json:"history" yaml:"history"`
}

func runHistory(ctx context.Context, out io.Writer, p *cache.Pipeline, city, format string) error {
	city, err := p.ResolveCity(city)
	if err != nil {
		return err
	}
	if city == "" {
		return eris.New("--city is required")
	}

	points, err := p.History(ctx, city)
	if err != nil {
		return err
	}
	if len(points) == 0 && format == formatTable {
		noData(out)
		return nil
	}

	res := historyResult{City: city, DisplayName: aggregate.DisplayName(city), History: points}
	return render(out, format, res, func(c cells) tableData {
		t := tableData{Header: []string{"YEAR", "MEDIAN_PRICE", "MEDIAN_INCOME", "MEDIAN_RATIO", "OBSERVATIONS"}}
		for _, h := range points {
			t.Rows = append(t.Rows, []string{
				strconv.Itoa(h.Year),
				c.amount(h.MedianPrice),
				c.amount(h.MedianIncome),
				c.ratio(h.MedianRatio),
				c.count(h.Observations),
			})
		}
		return t
	})
}

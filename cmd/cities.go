package main

import (
	"context"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sells-group/affordability-cli/internal/aggregate"
	"github.com/sells-group/affordability-cli/internal/cache"
)

var (
	citiesYear   int
	citiesSort   string
	citiesView   string
	citiesFormat string
)

var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "Rank metros by affordability ratio for one year",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := checkFormat(citiesFormat, listFormats); err != nil {
			return err
		}
		key, err := aggregate.ParseSortKey(citiesSort)
		if err != nil {
			return err
		}
		view, err := aggregate.ParseView(citiesView)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		env, err := loadDataset(ctx, "query")
		if err != nil {
			return err
		}
		defer env.Close()

		return runCities(ctx, cmd.OutOrStdout(), env.Pipeline, citiesQuery{Year: citiesYear, Sort: key, View: view}, citiesFormat)
	},
}

func init() {
	citiesCmd.Flags().IntVar(&citiesYear, "year", 0, "year to rank (default latest)")
	citiesCmd.Flags().StringVar(&citiesSort, "sort", "name", "sort by name, ratio, price or income (list view)")
	citiesCmd.Flags().StringVar(&citiesView, "view", string(aggregate.ViewList), "list, or split into affordable and unaffordable")
	citiesCmd.Flags().StringVar(&citiesFormat, "format", formatTable, "output format: table, json, yaml, csv")
	rootCmd.AddCommand(citiesCmd)
}

// citiesQuery selects a ranking. Sort applies to the list view only.
type citiesQuery struct {
	Year int
	Sort aggregate.SortKey
	View aggregate.View
}

func runCities(ctx context.Context, out io.Writer, p *cache.Pipeline, q citiesQuery, format string) error {
	year := q.Year
	if year == 0 {
		latest, err := p.LatestYear()
		if err != nil {
			return err
		}
		year = latest
	}

	rows, err := p.Cities(ctx, year)
	if err != nil {
		return err
	}
	if len(rows) == 0 && format == formatTable {
		noData(out)
		return nil
	}

	if q.View == aggregate.ViewSplit {
		split := aggregate.SplitRanked(rows, p.Strategy())
		return render(out, format, split, func(c cells) tableData {
			t := citiesTable(split.Affordable, c, "affordable")
			t.Rows = append(t.Rows, citiesTable(split.Unaffordable, c, "unaffordable").Rows...)
			return t
		})
	}

	ranked := aggregate.Gap(aggregate.SortCities(rows, q.Sort), p.Strategy())
	return render(out, format, ranked, func(c cells) tableData {
		return citiesTable(ranked, c, "")
	})
}

// citiesTable lays out ranked rows. A non-empty side adds a leading SIDE
// column for the split view.
func citiesTable(rows []aggregate.Ranked, c cells, side string) tableData {
	t := tableData{
		Header: []string{"CITY", "NAME", "YEAR", "MEDIAN_PRICE", "MEDIAN_INCOME", "RATIO", "GAP", "TIER", "AFFORDABLE", "POPULATION"},
	}
	if side != "" {
		t.Header = append([]string{"SIDE"}, t.Header...)
	}
	for _, r := range rows {
		row := []string{
			r.City,
			r.DisplayName,
			strconv.Itoa(r.Year),
			c.amount(r.MedianPrice),
			c.amount(r.MedianIncome),
			c.ratio(r.Ratio),
			c.ratio(r.Gap),
			r.Tier.String(),
			yesNo(r.Affordable),
			c.amount(r.Population),
		}
		if side != "" {
			row = append([]string{side}, row...)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

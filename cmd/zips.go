package main

import (
	"context"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/affordability-cli/internal/afford"
	"github.com/sells-group/affordability-cli/internal/aggregate"
	"github.com/sells-group/affordability-cli/internal/cache"
	"github.com/sells-group/affordability-cli/internal/enrich"
)

var (
	zipsCity    string
	zipsYear    int
	zipsIncome  float64
	zipsPersona string
	zipsFormat  string
)

var zipsFormats = []string{formatTable, formatJSON, formatYAML, formatCSV, formatGeoJSON}

var zipsCmd = &cobra.Command{
	Use:   "zips",
	Short: "Geocoded zip code affordability for one metro",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := checkFormat(zipsFormat, zipsFormats); err != nil {
			return err
		}
		income, persona, err := afford.ResolveIncome(zipsIncome, zipsPersona)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		env, err := loadDataset(ctx, "query")
		if err != nil {
			return err
		}
		defer env.Close()

		enricher, err := env.initEnricher(ctx)
		if err != nil {
			return err
		}

		req := zipsRequest{
			City:    zipsCity,
			Year:    zipsYear,
			Income:  income,
			Persona: persona,
			Policy:  cfg.Color.Policy,
			ClipMax: cfg.Color.ClipMax,
		}
		return runZips(ctx, cmd.OutOrStdout(), env.Pipeline, enricher, req, zipsFormat)
	},
}

func init() {
	zipsCmd.Flags().StringVar(&zipsCity, "city", "", "metro code, e.g. ATL (required)")
	zipsCmd.Flags().IntVar(&zipsYear, "year", 0, "year (default latest)")
	zipsCmd.Flags().Float64Var(&zipsIncome, "income", 0, "annual income (default from persona)")
	zipsCmd.Flags().StringVar(&zipsPersona, "persona", afford.DefaultPersona, "income persona")
	zipsCmd.Flags().StringVar(&zipsFormat, "format", formatTable, "output format: table, json, yaml, csv, geojson")
	_ = zipsCmd.MarkFlagRequired("city")
	rootCmd.AddCommand(zipsCmd)
}

// zipsRequest is one map view selection.
type zipsRequest struct {
	City    string
	Year    int
	Income  float64
	Persona string
	Policy  string
	ClipMax float64
}

// zipsResult is the json and yaml shape of a map view.
type zipsResult struct {
	City        string             `json:"city_code" yaml:"city_code"`
	DisplayName string             `json:"display_name" yaml:"display_name"`
	Year        int                `json:"year" yaml:"year"`
	Policy      string             `json:"policy" yaml:"policy"`
	Summary     afford.Summary     `json:"summary" yaml:"summary"`
	Stats       enrich.Stats       `json:"stats" yaml:"stats"`
	Zips        []enrich.MapRecord `json:"zips" yaml:"zips"`
}

func runZips(ctx context.Context, out io.Writer, p *cache.Pipeline, e *enrich.Enricher, req zipsRequest, format string) error {
	city, err := p.ResolveCity(req.City)
	if err != nil {
		return err
	}
	if city == "" {
		return eris.New("--city is required")
	}

	year := req.Year
	if year == 0 {
		latest, err := p.LatestYear()
		if err != nil {
			return err
		}
		year = latest
	}

	strategy := p.Strategy()
	policy, err := enrich.PolicyFromConfig(req.Policy, req.ClipMax, req.Income, strategy)
	if err != nil {
		return err
	}

	zips, err := p.Zips(ctx, city, year)
	if err != nil {
		return err
	}
	records, stats, err := e.WithPolicy(policy).EnrichWithStats(ctx, zips)
	if err != nil {
		return err
	}
	if stats.Dropped > 0 {
		zap.L().Info("zips without coordinates dropped",
			zap.String("city", city),
			zap.Int("dropped", stats.Dropped),
		)
	}

	if format == formatGeoJSON {
		b, err := enrich.FeatureCollection(records).MarshalJSON()
		if err != nil {
			return eris.Wrap(err, "encode geojson")
		}
		if _, err := out.Write(append(b, '\n')); err != nil {
			return eris.Wrap(err, "write geojson")
		}
		return nil
	}

	if len(records) == 0 && format == formatTable {
		noData(out)
		return nil
	}

	res := zipsResult{
		City:        city,
		DisplayName: aggregate.DisplayName(city),
		Year:        year,
		Policy:      policy.Name(),
		Summary:     afford.Summarize(req.Income, req.Persona, strategy),
		Stats:       stats,
		Zips:        records,
	}
	return render(out, format, res, func(c cells) tableData {
		return zipsTable(records, c)
	})
}

func zipsTable(rows []enrich.MapRecord, c cells) tableData {
	t := tableData{
		Header: []string{"ZIP", "CITY", "YEAR", "LAT", "LON", "PRICE", "INCOME", "RATIO", "COLOR", "TIER", "AFFORDABLE"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.ZipCode,
			r.City,
			strconv.Itoa(r.Year),
			c.coord(r.Latitude),
			c.coord(r.Longitude),
			c.amount(r.Price),
			c.amount(r.Income),
			c.ratio(r.Ratio),
			c.ratio(r.ColorValue),
			r.Tier.String(),
			yesNo(r.Affordable),
		})
	}
	return t
}

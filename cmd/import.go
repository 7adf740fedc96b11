package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/affordability-cli/internal/dataset"
	"github.com/sells-group/affordability-cli/pkg/geocode"
)

var (
	importTable       string
	importSeedGeocode bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy the dataset into Postgres and seed the geocode cache",
	Long:  "Loads data.source, writes the normalized rows to a Postgres table readable later as a pg: source, and seeds the Postgres geocode cache from the configured gazetteers.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := loadDataset(ctx, "import")
		if err != nil {
			return err
		}
		defer env.Close()

		t, err := env.Pipeline.Table()
		if err != nil {
			return err
		}
		n, err := dataset.Export(ctx, env.Pool, importTable, t)
		if err != nil {
			return eris.Wrap(err, "import dataset")
		}
		zap.L().Info("import complete",
			zap.String("table", importTable),
			zap.Int64("rows", n),
			zap.String("version", t.Version),
		)

		if !importSeedGeocode {
			return nil
		}
		seeded, err := seedGeocodeCache(ctx, env)
		if err != nil {
			return err
		}
		zap.L().Info("geocode cache seeded", zap.Int64("zips", seeded))
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importTable, "table", "public.house_ts", "destination table")
	importCmd.Flags().BoolVar(&importSeedGeocode, "seed-geocode", true, "seed the postgres geocode cache from local gazetteers")
	rootCmd.AddCommand(importCmd)
}

// seedGeocodeCache bulk-loads every local gazetteer into the Postgres
// geocode cache so served lookups never reach the remote provider for them.
func seedGeocodeCache(ctx context.Context, env *appEnv) (int64, error) {
	providers, err := env.geocodeProviders(ctx)
	if err != nil {
		return 0, err
	}

	pc := geocode.NewPostgresCache(env.Pool, cfg.Geocode.Cache.Table, cfg.Geocode.Cache.TTLDays)
	if err := pc.Migrate(ctx); err != nil {
		return 0, err
	}

	var total int64
	for _, p := range providers {
		g, ok := p.(*geocode.Gazetteer)
		if !ok {
			continue
		}
		n, err := pc.Seed(ctx, g)
		if err != nil {
			return total, eris.Wrapf(err, "seed from %s", g.Name())
		}
		total += n
	}
	return total, nil
}

package main

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/affordability-cli/internal/afford"
	"github.com/sells-group/affordability-cli/internal/cache"
	"github.com/sells-group/affordability-cli/internal/config"
	"github.com/sells-group/affordability-cli/internal/dataset"
	"github.com/sells-group/affordability-cli/internal/db"
	"github.com/sells-group/affordability-cli/internal/enrich"
	"github.com/sells-group/affordability-cli/internal/fetcher"
	"github.com/sells-group/affordability-cli/internal/resilience"
	"github.com/sells-group/affordability-cli/pkg/geocode"
)

// appEnv holds the pool, the dataset pipeline and, once built, the enricher
// needed by the query, serve and import commands.
type appEnv struct {
	Pool     *pgxpool.Pool // may be nil
	Opener   *fetcher.Opener
	Pipeline *cache.Pipeline
	Enricher *enrich.Enricher // nil until initEnricher

	closers []func() error
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			zap.L().Warn("close resource", zap.Error(err))
		}
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
}

// dbPool returns the pool as a db.Pool, or nil when none is configured.
func (e *appEnv) dbPool() db.Pool {
	if e.Pool == nil {
		return nil
	}
	return e.Pool
}

// initApp validates the config for mode, connects to Postgres when a
// database URL is set, and builds the cached pipeline. The dataset is not
// loaded yet; callers decide when to Reload. Callers should defer env.Close().
func initApp(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &appEnv{Opener: newOpener(cfg.Fetch)}

	if cfg.Store.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL, &db.PoolConfig{MaxConns: cfg.Store.MaxConns})
		if err != nil {
			return nil, eris.Wrap(err, "connect store")
		}
		env.Pool = pool
	}

	strategy, tiers, err := buildStrategy(cfg.Afford)
	if err != nil {
		env.Close()
		return nil, err
	}
	opts, strategy := loadOptions(cfg.Data, strategy)

	pool := env.dbPool()
	opener := env.Opener
	source := cfg.Data.Source

	// Reloads are serialized by the pipeline, so lastETag needs no lock.
	var lastETag string
	load := func(ctx context.Context) (*dataset.Table, error) {
		etag := sourceETag(ctx, opener, source)
		if etag != "" && etag == lastETag {
			if t, err := env.Pipeline.Table(); err == nil {
				return t, nil
			}
		}

		src, err := dataset.NewSource(source, opener, pool)
		if err != nil {
			return nil, err
		}
		t, err := dataset.Load(ctx, src, opts)
		if err != nil {
			return nil, err
		}
		lastETag = etag
		return t, nil
	}

	env.Pipeline = cache.New(load, strategy, tiers, cache.Options{MaxEntries: cfg.Cache.MaxEntries})

	zap.L().Debug("app initialized",
		zap.String("mode", mode),
		zap.String("source", source),
		zap.String("strategy", strategy.Name),
		zap.Float64("threshold", strategy.Threshold),
		zap.Bool("postgres", env.Pool != nil),
	)
	return env, nil
}

// loadDataset initializes the environment and loads the dataset once.
func loadDataset(ctx context.Context, mode string) (*appEnv, error) {
	env, err := initApp(ctx, mode)
	if err != nil {
		return nil, err
	}
	if err := env.Pipeline.Reload(ctx); err != nil {
		env.Close()
		return nil, eris.Wrap(err, "load dataset")
	}
	return env, nil
}

// newOpener builds the HTTP and FTP fetchers from the fetch settings. Zero
// values keep the fetcher defaults.
func newOpener(c config.FetchConfig) *fetcher.Opener {
	retry := resilience.FromRetryConfig(c.MaxAttempts, c.InitialBackoffMs, c.MaxBackoffMs)
	timeout := time.Duration(c.TimeoutSecs) * time.Second
	return fetcher.NewOpener(
		fetcher.HTTPOptions{Timeout: timeout, Retry: retry, RequestsPerSecond: c.RequestsPerSecond},
		fetcher.FTPOptions{Timeout: timeout, Retry: retry},
	)
}

// sourceETag returns the ETag of an http(s) dataset source, or "" when the
// source is not served over HTTP or the server sends none.
func sourceETag(ctx context.Context, opener *fetcher.Opener, source string) string {
	switch fetcher.Scheme(source) {
	case "http", "https":
	default:
		return ""
	}
	hf, ok := opener.HTTP.(*fetcher.HTTPFetcher)
	if !ok {
		return ""
	}
	etag, err := hf.HeadETag(ctx, source)
	if err != nil {
		zap.L().Debug("dataset etag check failed", zap.String("source", source), zap.Error(err))
		return ""
	}
	return etag
}

// buildStrategy resolves the preset named in c and applies the threshold,
// budget and tier overrides.
func buildStrategy(c config.AffordConfig) (afford.Strategy, afford.Tiers, error) {
	s, err := afford.StrategyByName(c.Strategy)
	if err != nil {
		return afford.Strategy{}, afford.Tiers{}, err
	}
	if c.Threshold > 0 {
		s.Threshold = c.Threshold
	}
	if c.BudgetPct > 0 {
		s.BudgetPct = c.BudgetPct
	}
	if err := s.Validate(); err != nil {
		return afford.Strategy{}, afford.Tiers{}, err
	}

	tiers := afford.DefaultTiers
	if len(c.Tiers) > 0 {
		tiers, err = afford.NewTiers(c.Tiers)
		if err != nil {
			return afford.Strategy{}, afford.Tiers{}, eris.Wrap(err, "afford.tiers")
		}
	}
	return s, tiers, nil
}

// loadOptions picks the measures to load. Explicit data fields win over the
// strategy's numerator and denominator, and the strategy follows them.
func loadOptions(c config.DataConfig, s afford.Strategy) (dataset.LoadOptions, afford.Strategy) {
	opts := dataset.LoadOptions{Price: s.Numerator, Income: s.Denominator}
	if c.PriceField != "" {
		opts.Price = dataset.Measure(c.PriceField)
		s.Numerator = opts.Price
	}
	if c.IncomeField != "" {
		opts.Income = dataset.Measure(c.IncomeField)
		s.Denominator = opts.Income
	}
	return opts, s
}

// initEnricher builds the geocode cascade (GeoNames, ZCTA shapefile, Google)
// behind the configured lookup cache.
func (e *appEnv) initEnricher(ctx context.Context) (*enrich.Enricher, error) {
	if e.Enricher != nil {
		return e.Enricher, nil
	}

	providers, err := e.geocodeProviders(ctx)
	if err != nil {
		return nil, err
	}

	lookupCache, err := e.geocodeCache(ctx)
	if err != nil {
		return nil, err
	}

	resolver := geocode.NewCascadeResolver(providers,
		geocode.WithCache(lookupCache),
		geocode.WithBatchConcurrency(cfg.Geocode.BatchConcurrency),
	)
	policy, err := enrich.PolicyFromConfig(enrich.PolicyLinearClip, cfg.Color.ClipMax, 0, e.Pipeline.Strategy())
	if err != nil {
		return nil, err
	}
	e.Enricher = enrich.NewEnricher(resolver, policy)
	return e.Enricher, nil
}

func (e *appEnv) geocodeProviders(ctx context.Context) ([]geocode.Provider, error) {
	var providers []geocode.Provider

	if loc := cfg.Geocode.GazetteerTSV; loc != "" {
		rc, err := e.Opener.Open(ctx, loc)
		if err != nil {
			return nil, eris.Wrapf(err, "open gazetteer %s", loc)
		}
		g, err := geocode.LoadGeoNamesTSV(ctx, rc)
		_ = rc.Close()
		if err != nil {
			return nil, err
		}
		providers = append(providers, g)
	}

	if loc := cfg.Geocode.ZCTAShapefile; loc != "" {
		dir, err := os.MkdirTemp("", "afford-zcta-*")
		if err != nil {
			return nil, eris.Wrap(err, "create zcta temp dir")
		}
		e.closers = append(e.closers, func() error { return os.RemoveAll(dir) })

		path, err := e.Opener.Localize(ctx, loc, dir)
		if err != nil {
			return nil, eris.Wrapf(err, "fetch zcta shapefile %s", loc)
		}
		g, err := geocode.LoadZCTAShapefile(path)
		if err != nil {
			return nil, err
		}
		providers = append(providers, g)
	}

	providers = append(providers, geocode.NewGoogleProvider(cfg.Geocode.GoogleKey,
		geocode.WithRateLimit(cfg.Geocode.RateLimit),
	))

	if len(providers) == 1 && cfg.Geocode.GoogleKey == "" {
		zap.L().Warn("no geocode source configured; every zip will be dropped from map records")
	}
	return providers, nil
}

func (e *appEnv) geocodeCache(ctx context.Context) (geocode.Cache, error) {
	c := cfg.Geocode.Cache
	ttl := time.Duration(c.TTLDays) * 24 * time.Hour

	switch c.Driver {
	case "postgres":
		if e.Pool == nil {
			return nil, eris.New("geocode.cache.driver=postgres requires store.database_url")
		}
		pc := geocode.NewPostgresCache(e.Pool, c.Table, c.TTLDays)
		if err := pc.Migrate(ctx); err != nil {
			return nil, err
		}
		return pc, nil
	case "sqlite":
		sc, err := geocode.NewSQLiteCache(c.DSN, ttl)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, sc.Close)
		return sc, nil
	default:
		return geocode.NewMemoryCache(ttl), nil
	}
}

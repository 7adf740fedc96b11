package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultSource is the published HouseTS extract.
const DefaultSource = "https://github.com/yyy1029/House-Browse/releases/download/v1.0/HouseTS.csv"

// Config holds the full application configuration.
type Config struct {
	Data    DataConfig    `yaml:"data" mapstructure:"data"`
	Afford  AffordConfig  `yaml:"afford" mapstructure:"afford"`
	Color   ColorConfig   `yaml:"color" mapstructure:"color"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
}

// DataConfig selects the raw table and its measures.
type DataConfig struct {
	// Source is a path, http(s):// or ftp:// URL, or pg:<table>.
	Source      string `yaml:"source" mapstructure:"source" validate:"required"`
	PriceField  string `yaml:"price_field" mapstructure:"price_field" validate:"omitempty,oneof=sale_price rent"`
	IncomeField string `yaml:"income_field" mapstructure:"income_field" validate:"omitempty,oneof=per_capita_income household_income"`
}

// AffordConfig selects the affordability strategy. Threshold and BudgetPct
// override the preset when non-zero.
type AffordConfig struct {
	Strategy  string    `yaml:"strategy" mapstructure:"strategy" validate:"required"`
	Threshold float64   `yaml:"threshold" mapstructure:"threshold" validate:"gte=0"`
	BudgetPct float64   `yaml:"budget_pct" mapstructure:"budget_pct" validate:"gte=0,lte=100"`
	Tiers     []float64 `yaml:"tiers" mapstructure:"tiers"`
}

// ColorConfig selects the map color policy.
type ColorConfig struct {
	Policy  string  `yaml:"policy" mapstructure:"policy" validate:"oneof=linear_clip threshold_split"`
	ClipMax float64 `yaml:"clip_max" mapstructure:"clip_max" validate:"gte=0"`
}

// GeocodeConfig configures zip resolution.
type GeocodeConfig struct {
	GazetteerTSV     string             `yaml:"gazetteer_tsv" mapstructure:"gazetteer_tsv"`
	ZCTAShapefile    string             `yaml:"zcta_shapefile" mapstructure:"zcta_shapefile"`
	GoogleKey        string             `yaml:"google_key" mapstructure:"google_key"`
	RateLimit        float64            `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`
	BatchConcurrency int                `yaml:"batch_concurrency" mapstructure:"batch_concurrency" validate:"gte=1,lte=64"`
	Cache            GeocodeCacheConfig `yaml:"cache" mapstructure:"cache"`
}

// GeocodeCacheConfig selects where lookup outcomes are kept.
type GeocodeCacheConfig struct {
	Driver  string `yaml:"driver" mapstructure:"driver" validate:"oneof=memory postgres sqlite"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
	Table   string `yaml:"table" mapstructure:"table"`
	TTLDays int    `yaml:"ttl_days" mapstructure:"ttl_days" validate:"gte=0"`
}

// CacheConfig bounds the aggregate cache.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries" mapstructure:"max_entries" validate:"gte=1"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port          int      `yaml:"port" mapstructure:"port"`
	CORSOrigins   []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ReloadMinutes int      `yaml:"reload_minutes" mapstructure:"reload_minutes" validate:"gte=0"`
}

// FetchConfig tunes remote downloads of the dataset, gazetteer and shapefile.
type FetchConfig struct {
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"gte=0"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=0,lte=10"`
	InitialBackoffMs  int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms" validate:"gte=0"`
	MaxBackoffMs      int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms" validate:"gte=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// StoreConfig configures the Postgres connection used by pg: sources, the
// import command, and the postgres geocode cache.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns" validate:"gte=0"`
}

// Load reads configuration from an optional .env, ./config.yaml, and the
// environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// working directory for config.yaml; a named file must exist.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("AFFORD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.source", DefaultSource)
	v.SetDefault("data.price_field", "")
	v.SetDefault("data.income_field", "")
	v.SetDefault("afford.strategy", "price_to_income")
	v.SetDefault("afford.threshold", 0.0)
	v.SetDefault("afford.budget_pct", 0.0)
	v.SetDefault("afford.tiers", []float64{3.0, 4.0, 5.0, 8.9})
	v.SetDefault("color.policy", "linear_clip")
	v.SetDefault("color.clip_max", 0.0)
	v.SetDefault("geocode.gazetteer_tsv", "")
	v.SetDefault("geocode.zcta_shapefile", "")
	v.SetDefault("geocode.google_key", "")
	v.SetDefault("geocode.rate_limit", 10.0)
	v.SetDefault("geocode.batch_concurrency", 8)
	v.SetDefault("geocode.cache.driver", "memory")
	v.SetDefault("geocode.cache.dsn", "")
	v.SetDefault("geocode.cache.table", "public.zip_geocode_cache")
	v.SetDefault("geocode.cache.ttl_days", 90)
	v.SetDefault("cache.max_entries", 256)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.reload_minutes", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.requests_per_second", 5.0)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.initial_backoff_ms", 500)
	v.SetDefault("fetch.max_backoff_ms", 30000)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

var validate = validator.New()

// Validate checks field constraints plus the requirements of the command
// about to run: "query" (CLI reads), "serve", or "import".
func (c *Config) Validate(mode string) error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return eris.Wrap(err, "config: validate")
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s failed %s", fieldPath(fe.Namespace()), fe.Tag()))
		}
	}

	if c.Geocode.Cache.Driver == "postgres" && c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required for the postgres geocode cache")
	}
	if c.Geocode.Cache.Driver == "sqlite" && c.Geocode.Cache.DSN == "" {
		problems = append(problems, "geocode.cache.dsn is required for the sqlite geocode cache")
	}
	if strings.HasPrefix(c.Data.Source, "pg:") && c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required for pg: sources")
	}

	switch mode {
	case "query":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0 and <= 65535")
		}
	case "import":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// fieldPath turns a validator namespace like Config.Geocode.Cache.Driver into
// the config key geocode.cache.driver.
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

var fieldKeys = map[string]string{
	"PriceField":        "price_field",
	"IncomeField":       "income_field",
	"BudgetPct":         "budget_pct",
	"ClipMax":           "clip_max",
	"RateLimit":         "rate_limit",
	"BatchConcurrency":  "batch_concurrency",
	"TTLDays":           "ttl_days",
	"MaxEntries":        "max_entries",
	"ReloadMinutes":     "reload_minutes",
	"MaxConns":          "max_conns",
	"TimeoutSecs":       "timeout_secs",
	"MaxAttempts":       "max_attempts",
	"InitialBackoffMs":  "initial_backoff_ms",
	"MaxBackoffMs":      "max_backoff_ms",
	"RequestsPerSecond": "requests_per_second",
}

func snake(field string) string {
	if k, ok := fieldKeys[field]; ok {
		return k
	}
	return strings.ToLower(field)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

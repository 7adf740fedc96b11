package geocode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/affordability-cli/internal/db"
)

// PostgresCache stores lookup outcomes in a Postgres table shared across
// processes.
type PostgresCache struct {
	pool    db.Pool
	table   string
	ttlDays int
}

// NewPostgresCache creates a PostgresCache. table may be schema-qualified.
func NewPostgresCache(pool db.Pool, table string, ttlDays int) *PostgresCache {
	if table == "" {
		table = "public.zip_geocode_cache"
	}
	return &PostgresCache{pool: pool, table: table, ttlDays: ttlDays}
}

// Migrate creates the cache table if needed.
func (c *PostgresCache) Migrate(ctx context.Context) error {
	_, err := c.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			zip_code  TEXT PRIMARY KEY,
			latitude  DOUBLE PRECISION NOT NULL DEFAULT 0,
			longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
			found     BOOLEAN NOT NULL,
			source    TEXT,
			cached_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, db.Identifier(c.table).Sanitize()))
	return eris.Wrap(err, "geocode: migrate postgres cache")
}

// Get implements Cache.
func (c *PostgresCache) Get(ctx context.Context, zip string) (Entry, bool, error) {
	query := fmt.Sprintf("SELECT latitude, longitude, found, source, cached_at FROM %s WHERE zip_code = $1",
		db.Identifier(c.table).Sanitize())
	if c.ttlDays > 0 {
		query += fmt.Sprintf(" AND cached_at > now() - interval '%d days'", c.ttlDays)
	}

	var e Entry
	var source *string
	err := c.pool.QueryRow(ctx, query, zip).Scan(&e.Lat, &e.Lon, &e.Found, &source, &e.CachedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, eris.Wrap(err, "geocode: postgres cache get")
	}
	if source != nil {
		e.Source = *source
	}
	return e, true, nil
}

// Set implements Cache.
func (c *PostgresCache) Set(ctx context.Context, zip string, e Entry) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (zip_code, latitude, longitude, found, source, cached_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (zip_code) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			found = EXCLUDED.found,
			source = EXCLUDED.source,
			cached_at = now()`, db.Identifier(c.table).Sanitize())

	if _, err := c.pool.Exec(ctx, query, zip, e.Lat, e.Lon, e.Found, nilIfEmpty(e.Source)); err != nil {
		return eris.Wrap(err, "geocode: postgres cache set")
	}
	return nil
}

// Seed bulk-loads a gazetteer into the cache so other processes can resolve
// without the source files.
func (c *PostgresCache) Seed(ctx context.Context, g *Gazetteer) (int64, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, g.Len())
	for zip, p := range g.points {
		rows = append(rows, []any{zip, p.Lat, p.Lon, true, g.Name(), now})
	}
	n, err := db.BulkUpsert(ctx, c.pool, db.UpsertConfig{
		Table:        c.table,
		Columns:      []string{"zip_code", "latitude", "longitude", "found", "source", "cached_at"},
		ConflictKeys: []string{"zip_code"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "geocode: seed postgres cache")
	}
	return n, nil
}

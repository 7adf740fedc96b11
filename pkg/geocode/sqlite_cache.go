package geocode

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteCache stores lookup outcomes in a local SQLite file.
type SQLiteCache struct {
	db  *sql.DB
	ttl time.Duration
}

const sqliteCacheSchema = `
CREATE TABLE IF NOT EXISTS zip_geocode_cache (
	zip_code  TEXT PRIMARY KEY,
	latitude  REAL NOT NULL DEFAULT 0,
	longitude REAL NOT NULL DEFAULT 0,
	found     INTEGER NOT NULL,
	source    TEXT,
	cached_at INTEGER NOT NULL
);`

// NewSQLiteCache opens (and migrates) a SQLite cache at dsn in WAL mode.
func NewSQLiteCache(dsn string, ttl time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		sqliteCacheSchema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", stmt)
		}
	}
	return &SQLiteCache{db: db, ttl: ttl}, nil
}

// Get implements Cache.
func (c *SQLiteCache) Get(ctx context.Context, zip string) (Entry, bool, error) {
	var e Entry
	var found int
	var source sql.NullString
	var cachedAt int64
	err := c.db.QueryRowContext(ctx,
		"SELECT latitude, longitude, found, source, cached_at FROM zip_geocode_cache WHERE zip_code = ?", zip,
	).Scan(&e.Lat, &e.Lon, &found, &source, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, eris.Wrap(err, "sqlite: cache get")
	}

	e.Found = found == 1
	e.Source = source.String
	e.CachedAt = time.Unix(cachedAt, 0).UTC()
	if expired(e, c.ttl, time.Now()) {
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Set implements Cache.
func (c *SQLiteCache) Set(ctx context.Context, zip string, e Entry) error {
	if e.CachedAt.IsZero() {
		e.CachedAt = time.Now()
	}
	found := 0
	if e.Found {
		found = 1
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO zip_geocode_cache (zip_code, latitude, longitude, found, source, cached_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (zip_code) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			found = excluded.found,
			source = excluded.source,
			cached_at = excluded.cached_at`,
		zip, e.Lat, e.Lon, found, nilIfEmpty(e.Source), e.CachedAt.Unix(),
	)
	return eris.Wrap(err, "sqlite: cache set")
}

// Close closes the database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

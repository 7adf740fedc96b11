// Package geocode resolves US zip codes to representative coordinates using
// local gazetteers (GeoNames postal dump, Census ZCTA shapefile) and the
// Google Geocoding API, with a cascade that caches hits and misses.
package geocode

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ZipResolver maps zip codes to coordinates. A miss is (Point{}, false, nil),
// never an error.
type ZipResolver interface {
	Resolve(ctx context.Context, zip string) (Point, bool, error)
	// ResolveBatch returns the resolved subset keyed by normalized zip.
	ResolveBatch(ctx context.Context, zips []string) (map[string]Point, error)
}

// Provider is a single lookup backend tried by the cascade.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, zip string) (Point, bool, error)
	Available() bool
}

// NormalizeZip zero-pads numeric zips to five characters and strips a ZIP+4
// suffix. It returns "" for input that cannot be a zip code.
func NormalizeZip(zip string) string {
	zip = strings.TrimSpace(zip)
	if i := strings.IndexByte(zip, '-'); i > 0 {
		zip = zip[:i]
	}
	zip = strings.TrimSuffix(zip, ".0")
	n, err := strconv.Atoi(zip)
	if err != nil || n < 0 || n > 99999 {
		return ""
	}
	return fmt.Sprintf("%05d", n)
}

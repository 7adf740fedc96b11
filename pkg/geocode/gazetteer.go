package geocode

import (
	"context"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/affordability-cli/internal/fetcher"
)

// Gazetteer is an in-memory zip → coordinate table. It is immutable once
// loaded and safe for concurrent use.
type Gazetteer struct {
	name   string
	points map[string]Point
}

// NewGazetteer builds a gazetteer from a prepared map. Keys are normalized.
func NewGazetteer(name string, points map[string]Point) *Gazetteer {
	g := &Gazetteer{name: name, points: make(map[string]Point, len(points))}
	for zip, p := range points {
		if z := NormalizeZip(zip); z != "" {
			g.points[z] = p
		}
	}
	return g
}

// Name implements Provider.
func (g *Gazetteer) Name() string { return g.name }

// Available implements Provider.
func (g *Gazetteer) Available() bool { return len(g.points) > 0 }

// Len returns the number of zips known.
func (g *Gazetteer) Len() int { return len(g.points) }

// Lookup implements Provider.
func (g *Gazetteer) Lookup(_ context.Context, zip string) (Point, bool, error) {
	p, ok := g.points[NormalizeZip(zip)]
	return p, ok, nil
}

// Resolve implements ZipResolver.
func (g *Gazetteer) Resolve(ctx context.Context, zip string) (Point, bool, error) {
	return g.Lookup(ctx, zip)
}

// ResolveBatch implements ZipResolver.
func (g *Gazetteer) ResolveBatch(ctx context.Context, zips []string) (map[string]Point, error) {
	out := make(map[string]Point, len(zips))
	for _, z := range zips {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "geocode: gazetteer batch")
		}
		if p, ok := g.points[NormalizeZip(z)]; ok {
			out[NormalizeZip(z)] = p
		}
	}
	return out, nil
}

// GeoNames postal dump columns (US.txt, tab separated, no header).
const (
	geoNamesCountry = 0
	geoNamesPostal  = 1
	geoNamesLat     = 9
	geoNamesLon     = 10
)

// LoadGeoNamesTSV reads a GeoNames postal code dump. Rows for other
// countries or with unparsable coordinates are skipped.
func LoadGeoNamesTSV(ctx context.Context, r io.Reader) (*Gazetteer, error) {
	points := make(map[string]Point)
	var skipped int
	opts := fetcher.CSVOptions{Delimiter: '\t', LazyQuotes: true, TrimSpace: true}
	err := fetcher.ReadCSV(ctx, r, opts, func(_ int, row []string) error {
		if len(row) <= geoNamesLon || row[geoNamesCountry] != "US" {
			skipped++
			return nil
		}
		zip := NormalizeZip(row[geoNamesPostal])
		lat, latErr := strconv.ParseFloat(row[geoNamesLat], 64)
		lon, lonErr := strconv.ParseFloat(row[geoNamesLon], 64)
		if zip == "" || latErr != nil || lonErr != nil {
			skipped++
			return nil
		}
		points[zip] = Point{Lat: lat, Lon: lon}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read geonames")
	}

	zap.L().Info("geocode: loaded geonames gazetteer",
		zap.Int("zips", len(points)),
		zap.Int("skipped", skipped),
	)
	return &Gazetteer{name: "geonames", points: points}, nil
}

package geocode

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/affordability-cli/internal/fetcher"
)

// zctaKeyFields are the attribute names carrying the zip in Census ZCTA
// shapefiles, newest vintage last.
var zctaKeyFields = []string{"zcta5ce10", "geoid10", "zcta5ce20", "geoid20"}

// LoadZCTAShapefile builds a gazetteer from the centroids of a Census ZCTA
// boundary shapefile. path may be the .shp itself or the distributed .zip.
func LoadZCTAShapefile(path string) (*Gazetteer, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		dir, err := os.MkdirTemp("", "afford-zcta-*")
		if err != nil {
			return nil, eris.Wrap(err, "geocode: temp dir")
		}
		defer os.RemoveAll(dir) //nolint:errcheck

		shpPath, err := fetcher.ExtractShapefile(path, dir)
		if err != nil {
			return nil, eris.Wrap(err, "geocode: extract zcta archive")
		}
		path = shpPath
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	keyIdx := -1
	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		fieldIdx[strings.ToLower(strings.TrimRight(f.String(), "\x00"))] = i
	}
	for _, name := range zctaKeyFields {
		if i, ok := fieldIdx[name]; ok {
			keyIdx = i
			break
		}
	}
	if keyIdx < 0 {
		return nil, eris.Errorf("geocode: %s has no ZCTA5CE10 attribute", path)
	}

	points := make(map[string]Point)
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		zip := NormalizeZip(strings.TrimRight(reader.Attribute(keyIdx), "\x00"))
		if zip == "" {
			skipped++
			continue
		}
		c, ok := shapeCentroid(shape)
		if !ok {
			skipped++
			continue
		}
		points[zip] = Point{Lat: c[1], Lon: c[0]}
	}

	zap.L().Info("geocode: loaded zcta gazetteer",
		zap.String("path", path),
		zap.Int("zips", len(points)),
		zap.Int("skipped", skipped),
	)
	return &Gazetteer{name: "zcta", points: points}, nil
}

// shapeCentroid returns the (lon, lat) centroid of a point or polygon shape.
func shapeCentroid(shape shp.Shape) (geom.Coord, bool) {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.Coord{s.X, s.Y}, true
	case *shp.Polygon:
		mp := polygonToMultiPolygon(s)
		if mp == nil {
			return nil, false
		}
		c, err := xy.Centroid(mp)
		if err != nil || len(c) < 2 {
			return nil, false
		}
		return c, true
	default:
		return nil, false
	}
}

// polygonToMultiPolygon converts a shapefile polygon, one ring per part.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("geocode: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("geocode: skipping malformed polygon", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

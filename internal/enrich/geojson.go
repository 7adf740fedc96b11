package enrich

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/affordability-cli/internal/aggregate"
)

// ZCTAProperty is the boundary-file attribute map features join on.
const ZCTAProperty = "ZCTA5CE10"

// FeatureCollection renders records as GeoJSON points. Undefined figures
// become null properties.
func FeatureCollection(records []MapRecord) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(records))}
	for _, r := range records {
		pt := geom.NewPointFlat(geom.XY, []float64{r.Longitude, r.Latitude})
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       r.ZipCode,
			Geometry: pt,
			Properties: map[string]interface{}{
				"zip_code":      r.ZipCode,
				"city_code":     r.City,
				"year":          r.Year,
				"price":         aggregate.Finite(r.Price),
				"income":        aggregate.Finite(r.Income),
				"ratio":         aggregate.Finite(r.Ratio),
				"tier":          r.Tier.String(),
				"is_affordable": r.Affordable,
				"color_value":   aggregate.Finite(r.ColorValue),
				ZCTAProperty:    r.ZipCode,
			},
		})
	}
	return fc
}

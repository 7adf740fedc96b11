// Package enrich joins zip aggregates to coordinates and derives the
// normalized color value the map renderer shades by.
package enrich

import (
	"encoding/json"
	"math"

	"github.com/sells-group/affordability-cli/internal/afford"
	"github.com/sells-group/affordability-cli/internal/aggregate"
)

// MapRecord is one geocoded zip ready for the map. The raw figures are kept
// next to the derived color value for hover labels.
type MapRecord struct {
	ZipCode    string      `json:"zip_code" yaml:"zip_code"`
	ZipInt     int         `json:"zip_int" yaml:"zip_int"`
	City       string      `json:"city_code" yaml:"city_code"`
	Year       int         `json:"year" yaml:"year"`
	Latitude   float64     `json:"latitude" yaml:"latitude"`
	Longitude  float64     `json:"longitude" yaml:"longitude"`
	Price      float64     `json:"price" yaml:"price"`
	Income     float64     `json:"income" yaml:"income"`
	Ratio      float64     `json:"ratio" yaml:"ratio"`
	ColorValue float64     `json:"color_value" yaml:"color_value"`
	Tier       afford.Tier `json:"tier" yaml:"tier"`
	Affordable bool        `json:"is_affordable" yaml:"is_affordable"`
}

// MarshalJSON implements json.Marshaler, encoding NaN figures as null.
func (r MapRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ZipCode    string      `json:"zip_code"`
		ZipInt     int         `json:"zip_int"`
		City       string      `json:"city_code"`
		Year       int         `json:"year"`
		Latitude   float64     `json:"latitude"`
		Longitude  float64     `json:"longitude"`
		Price      *float64    `json:"price"`
		Income     *float64    `json:"income"`
		Ratio      *float64    `json:"ratio"`
		ColorValue *float64    `json:"color_value"`
		Tier       afford.Tier `json:"tier"`
		Affordable bool        `json:"is_affordable"`
	}{
		ZipCode:    r.ZipCode,
		ZipInt:     r.ZipInt,
		City:       r.City,
		Year:       r.Year,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		Price:      aggregate.Finite(r.Price),
		Income:     aggregate.Finite(r.Income),
		Ratio:      aggregate.Finite(r.Ratio),
		ColorValue: aggregate.Finite(r.ColorValue),
		Tier:       r.Tier,
		Affordable: r.Affordable,
	})
}

// Center returns the mean coordinate of records, used to center the map.
func Center(records []MapRecord) (lat, lon float64, ok bool) {
	if len(records) == 0 {
		return 0, 0, false
	}
	for _, r := range records {
		lat += r.Latitude
		lon += r.Longitude
	}
	n := float64(len(records))
	return lat / n, lon / n, true
}

// finite reports whether v is a usable number.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

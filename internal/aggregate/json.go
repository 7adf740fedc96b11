package aggregate

import (
	"encoding/json"
	"math"

	"github.com/sells-group/affordability-cli/internal/afford"
)

// metricsJSON renders undefined figures as null; encoding/json rejects NaN.
type metricsJSON struct {
	MedianPrice  *float64    `json:"median_price"`
	MedianIncome *float64    `json:"median_income"`
	Ratio        *float64    `json:"ratio"`
	Tier         afford.Tier `json:"tier"`
	Affordable   bool        `json:"is_affordable"`
	Population   *float64    `json:"population,omitempty"`
	Observations int         `json:"observations"`
}

// Finite returns nil for NaN and ±Inf, else a pointer to v.
func Finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func (m Metrics) toJSON() metricsJSON {
	return metricsJSON{
		MedianPrice:  Finite(m.MedianPrice),
		MedianIncome: Finite(m.MedianIncome),
		Ratio:        Finite(m.Ratio),
		Tier:         m.Tier,
		Affordable:   m.Affordable,
		Population:   Finite(m.Population),
		Observations: m.Observations,
	}
}

// MarshalJSON implements json.Marshaler.
func (c CityAggregate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		City        string `json:"city_code"`
		DisplayName string `json:"display_name"`
		Year        int    `json:"year"`
		metricsJSON
	}{c.City, c.DisplayName, c.Year, c.Metrics.toJSON()})
}

// MarshalJSON implements json.Marshaler.
func (z ZipAggregate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ZipCode string `json:"zip_code"`
		City    string `json:"city_code"`
		Year    int    `json:"year"`
		metricsJSON
	}{z.ZipCode, z.City, z.Year, z.Metrics.toJSON()})
}

// MarshalJSON implements json.Marshaler.
func (h HistoryPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Year         int      `json:"year"`
		MedianPrice  *float64 `json:"median_price"`
		MedianIncome *float64 `json:"median_income"`
		MedianRatio  *float64 `json:"median_ratio"`
		Observations int      `json:"observations"`
	}{h.Year, Finite(h.MedianPrice), Finite(h.MedianIncome), Finite(h.MedianRatio), h.Observations})
}

// MarshalJSON implements json.Marshaler.
func (r Ranked) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		City        string `json:"city_code"`
		DisplayName string `json:"display_name"`
		Year        int    `json:"year"`
		metricsJSON
		Gap *float64 `json:"gap"`
	}{r.City, r.DisplayName, r.Year, r.Metrics.toJSON(), Finite(r.Gap)})
}

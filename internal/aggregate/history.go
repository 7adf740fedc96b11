package aggregate

import (
	"slices"

	"github.com/sells-group/affordability-cli/internal/afford"
	"github.com/sells-group/affordability-cli/internal/dataset"
)

// HistoryPoint is one year of a city's trend line.
type HistoryPoint struct {
	Year         int     `json:"year" yaml:"year"`
	MedianPrice  float64 `json:"median_price" yaml:"median_price"`
	MedianIncome float64 `json:"median_income" yaml:"median_income"`
	// MedianRatio is the median of per-observation ratios, not the ratio of
	// the medians used by Cities.
	MedianRatio  float64 `json:"median_ratio" yaml:"median_ratio"`
	Observations int     `json:"observations" yaml:"observations"`
}

// History returns per-year medians for one city, ascending by year. An
// unknown city yields an empty slice.
func History(t *dataset.Table, city string, s afford.Strategy) []HistoryPoint {
	type bucket struct{ prices, incomes, ratios []float64 }
	buckets := make(map[int]*bucket)
	for _, r := range t.Rows {
		if r.City != city {
			continue
		}
		b, ok := buckets[r.Year]
		if !ok {
			b = &bucket{}
			buckets[r.Year] = b
		}
		b.prices = append(b.prices, r.Price)
		b.incomes = append(b.incomes, r.Income)
		b.ratios = append(b.ratios, s.Ratio(r.Price, r.Income))
	}

	out := make([]HistoryPoint, 0, len(buckets))
	for year, b := range buckets {
		out = append(out, HistoryPoint{
			Year:         year,
			MedianPrice:  Median(b.prices),
			MedianIncome: Median(b.incomes),
			MedianRatio:  Median(b.ratios),
			Observations: len(b.prices),
		})
	}
	slices.SortFunc(out, func(a, b HistoryPoint) int { return a.Year - b.Year })
	return out
}

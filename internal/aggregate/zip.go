package aggregate

import (
	"cmp"
	"slices"

	"github.com/sells-group/affordability-cli/internal/afford"
	"github.com/sells-group/affordability-cli/internal/dataset"
)

// ZipAggregate is one (zip, city, year) row feeding geo enrichment.
type ZipAggregate struct {
	ZipCode string `json:"zip_code" yaml:"zip_code"`
	City    string `json:"city_code" yaml:"city_code"`
	Year    int    `json:"year" yaml:"year"`
	Metrics `yaml:",inline"`
}

// Zips aggregates the zip codes of one city in one year, ordered by
// ascending median price. No matching rows is an empty, non-nil slice. A
// table loaded without a zip column fails with dataset.ErrNoZipColumn.
func Zips(t *dataset.Table, city string, year int, s afford.Strategy, tiers afford.Tiers) ([]ZipAggregate, error) {
	if err := t.RequireZip(); err != nil {
		return nil, err
	}

	groups := make(map[string]*group)
	for _, r := range t.Rows {
		if r.City != city || r.Year != year || r.ZipCode == "" {
			continue
		}
		g, ok := groups[r.ZipCode]
		if !ok {
			g = &group{}
			groups[r.ZipCode] = g
		}
		g.add(r.Price, r.Income, r.Population)
	}

	out := make([]ZipAggregate, 0, len(groups))
	for zip, g := range groups {
		out = append(out, ZipAggregate{
			ZipCode: zip,
			City:    city,
			Year:    year,
			Metrics: g.metrics(s, tiers),
		})
	}
	slices.SortFunc(out, func(a, b ZipAggregate) int {
		if c := compareNaNLast(a.MedianPrice, b.MedianPrice, false); c != 0 {
			return c
		}
		return cmp.Compare(a.ZipCode, b.ZipCode)
	})
	return out, nil
}

package aggregate

import (
	"cmp"
	"slices"

	"github.com/sells-group/affordability-cli/internal/afford"
	"github.com/sells-group/affordability-cli/internal/dataset"
)

// CityAggregate is one (city, year) row of the ranking view.
type CityAggregate struct {
	City        string `json:"city_code" yaml:"city_code"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	Year        int    `json:"year" yaml:"year"`
	Metrics     `yaml:",inline"`
}

// Cities aggregates every city observed in year. The result is ordered by
// city code; an unknown year yields an empty slice.
func Cities(t *dataset.Table, year int, s afford.Strategy, tiers afford.Tiers) []CityAggregate {
	groups := make(map[string]*group)
	for _, r := range t.Rows {
		if r.Year != year {
			continue
		}
		g, ok := groups[r.City]
		if !ok {
			g = &group{}
			groups[r.City] = g
		}
		g.add(r.Price, r.Income, r.Population)
	}

	out := make([]CityAggregate, 0, len(groups))
	for city, g := range groups {
		out = append(out, CityAggregate{
			City:        city,
			DisplayName: DisplayName(city),
			Year:        year,
			Metrics:     g.metrics(s, tiers),
		})
	}
	slices.SortFunc(out, func(a, b CityAggregate) int { return cmp.Compare(a.City, b.City) })
	return out
}

// LatestYear returns the most recent year in t, the default selection.
func LatestYear(t *dataset.Table) (int, bool) {
	years := t.Years()
	if len(years) == 0 {
		return 0, false
	}
	return years[len(years)-1], true
}

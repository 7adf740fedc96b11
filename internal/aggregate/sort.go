package aggregate

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/affordability-cli/internal/afford"
)

// SortKey selects the ranking order of city rows.
type SortKey string

// Sort keys. Name and ratio ascend; price and income descend.
const (
	SortByName   SortKey = "name"
	SortByRatio  SortKey = "ratio"
	SortByPrice  SortKey = "price"
	SortByIncome SortKey = "income"
)

// sortLabels accepts the dashboard's selector labels as well as the keys.
var sortLabels = map[string]SortKey{
	"name":                  SortByName,
	"city":                  SortByName,
	"city name":             SortByName,
	"ratio":                 SortByRatio,
	"price-to-income ratio": SortByRatio,
	"price":                 SortByPrice,
	"median sale price":     SortByPrice,
	"income":                SortByIncome,
	"per capita income":     SortByIncome,
}

// ParseSortKey resolves a key or label, case-insensitively. Empty means name.
func ParseSortKey(s string) (SortKey, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SortByName, nil
	}
	if k, ok := sortLabels[s]; ok {
		return k, nil
	}
	return "", eris.Errorf("aggregate: unknown sort key %q (want name, ratio, price or income)", s)
}

// SortCities returns a sorted copy of rows. NaN figures sort last in either
// direction; ties fall back to city code.
func SortCities(rows []CityAggregate, key SortKey) []CityAggregate {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b CityAggregate) int {
		var c int
		switch key {
		case SortByRatio:
			c = compareNaNLast(a.Ratio, b.Ratio, false)
		case SortByPrice:
			c = compareNaNLast(a.MedianPrice, b.MedianPrice, true)
		case SortByIncome:
			c = compareNaNLast(a.MedianIncome, b.MedianIncome, true)
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.City, b.City)
	})
	return out
}

// compareNaNLast orders finite values ascending (or descending) with NaN after
// every finite value.
func compareNaNLast(a, b float64, desc bool) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case desc:
		return cmp.Compare(b, a)
	default:
		return cmp.Compare(a, b)
	}
}

// Ranked is a city row annotated with its signed distance to the threshold.
type Ranked struct {
	CityAggregate `yaml:",inline"`
	Gap           float64 `json:"gap" yaml:"gap"`
}

// Gap annotates rows with the signed distance of their ratio from the
// strategy threshold, positive when affordable.
func Gap(rows []CityAggregate, s afford.Strategy) []Ranked {
	out := make([]Ranked, len(rows))
	for i, r := range rows {
		out[i] = Ranked{CityAggregate: r, Gap: s.Gap(r.Ratio)}
	}
	return out
}

// Split partitions rows for the split ranking chart: affordable cities by
// ascending ratio, unaffordable by descending ratio. Rows with an undefined
// ratio are unaffordable and sort last.
func Split(rows []CityAggregate) (affordable, unaffordable []CityAggregate) {
	affordable = make([]CityAggregate, 0, len(rows))
	unaffordable = make([]CityAggregate, 0, len(rows))
	for _, r := range rows {
		if r.Affordable {
			affordable = append(affordable, r)
		} else {
			unaffordable = append(unaffordable, r)
		}
	}
	slices.SortStableFunc(affordable, func(a, b CityAggregate) int {
		return compareNaNLast(a.Ratio, b.Ratio, false)
	})
	slices.SortStableFunc(unaffordable, func(a, b CityAggregate) int {
		return compareNaNLast(a.Ratio, b.Ratio, true)
	})
	return affordable, unaffordable
}

// View selects the layout of a city ranking.
type View string

// Ranking views. List is one sorted list; split is the two-sided chart.
const (
	ViewList  View = "list"
	ViewSplit View = "split"
)

// ParseView resolves a view name, case-insensitively. Empty means list.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ViewList, nil
	case ViewList, ViewSplit:
		return v, nil
	default:
		return "", eris.Errorf("aggregate: unknown view %q (want list or split)", s)
	}
}

// SplitRanking is the split view with each side annotated with its gap.
type SplitRanking struct {
	Affordable   []Ranked `json:"affordable" yaml:"affordable"`
	Unaffordable []Ranked `json:"unaffordable" yaml:"unaffordable"`
}

// SplitRanked applies Split and Gap.
func SplitRanked(rows []CityAggregate, s afford.Strategy) SplitRanking {
	affordable, unaffordable := Split(rows)
	return SplitRanking{
		Affordable:   Gap(affordable, s),
		Unaffordable: Gap(unaffordable, s),
	}
}

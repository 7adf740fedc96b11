// Package aggregate rolls normalized observations up to city and zip level:
// median price, median income, the affordability ratio and its tier.
package aggregate

import (
	"math"
	"slices"

	"github.com/sells-group/affordability-cli/internal/afford"
)

// Median returns the median of values, ignoring NaN. Zero is a valid value.
// An empty or all-NaN input yields NaN.
func Median(values []float64) float64 {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	n := len(clean)
	if n == 0 {
		return math.NaN()
	}
	slices.Sort(clean)
	if n%2 == 1 {
		return clean[n/2]
	}
	return (clean[n/2-1] + clean[n/2]) / 2
}

// Metrics are the derived figures shared by city and zip aggregates.
type Metrics struct {
	MedianPrice  float64     `json:"median_price" yaml:"median_price"`
	MedianIncome float64     `json:"median_income" yaml:"median_income"`
	Ratio        float64     `json:"ratio" yaml:"ratio"`
	Tier         afford.Tier `json:"tier" yaml:"tier"`
	Affordable   bool        `json:"is_affordable" yaml:"is_affordable"`
	// Population is the summed population of the group, NaN when unknown.
	Population   float64 `json:"population" yaml:"population"`
	Observations int     `json:"observations" yaml:"observations"`
}

// group accumulates one (key, year) bucket.
type group struct {
	prices     []float64
	incomes    []float64
	population float64
	hasPop     bool
}

func (g *group) add(price, income, population float64) {
	g.prices = append(g.prices, price)
	g.incomes = append(g.incomes, income)
	if !math.IsNaN(population) {
		g.population += population
		g.hasPop = true
	}
}

// metrics computes medians first and the ratio of medians second. A zero or
// missing median income gives a NaN ratio and the NotAvailable tier.
func (g *group) metrics(s afford.Strategy, tiers afford.Tiers) Metrics {
	m := Metrics{
		MedianPrice:  Median(g.prices),
		MedianIncome: Median(g.incomes),
		Population:   math.NaN(),
		Observations: len(g.prices),
	}
	if g.hasPop {
		m.Population = g.population
	}
	m.Ratio = s.Ratio(m.MedianPrice, m.MedianIncome)
	m.Tier = tiers.Classify(m.Ratio)
	m.Affordable = s.Affordable(m.Ratio)
	return m
}

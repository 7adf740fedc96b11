package dataset

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Observation is one normalized source record.
type Observation struct {
	City    string  `json:"city"`
	ZipCode string  `json:"zip_code"` // zero-padded 5 characters, empty when absent
	Year    int     `json:"year"`
	Price   float64 `json:"price"`
	Income  float64 `json:"income"` // NaN when missing
	// Population is NaN when the source has no population column.
	Population float64 `json:"population"`
}

// ZipInt returns the integer join form of a zip code, or 0 when it is not
// numeric.
func ZipInt(zip string) int {
	n, err := strconv.Atoi(zip)
	if err != nil {
		return 0
	}
	return n
}

// Table is the immutable normalized dataset shared read-only by every
// aggregation. Version changes on every load.
type Table struct {
	Version  string    `json:"version"`
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loaded_at"`

	Price        Measure `json:"price"`
	Income       Measure `json:"income"`
	PriceColumn  string  `json:"price_column"`
	IncomeColumn string  `json:"income_column"`

	HasZip        bool `json:"has_zip"`
	HasPopulation bool `json:"has_population"`

	Rows    []Observation `json:"-"`
	Skipped int           `json:"skipped"`
}

// Years returns the distinct years present, ascending.
func (t *Table) Years() []int {
	seen := make(map[int]struct{})
	var years []int
	for _, r := range t.Rows {
		if _, ok := seen[r.Year]; !ok {
			seen[r.Year] = struct{}{}
			years = append(years, r.Year)
		}
	}
	slices.Sort(years)
	return years
}

// Cities returns the distinct city codes present, ascending.
func (t *Table) Cities() []string {
	seen := make(map[string]struct{})
	var cities []string
	for _, r := range t.Rows {
		if _, ok := seen[r.City]; !ok {
			seen[r.City] = struct{}{}
			cities = append(cities, r.City)
		}
	}
	slices.Sort(cities)
	return cities
}

// ResolveCity maps a user-supplied city to the code stored in the table.
// An exact match wins, then a case-insensitive one. An unknown city comes
// back trimmed so it selects nothing.
func (t *Table) ResolveCity(city string) string {
	city = strings.TrimSpace(city)
	folded := ""
	for _, r := range t.Rows {
		if r.City == city {
			return city
		}
		if folded == "" && strings.EqualFold(r.City, city) {
			folded = r.City
		}
	}
	if folded != "" {
		return folded
	}
	return city
}

// RequireZip returns a SchemaError matching ErrNoZipColumn when the table was
// loaded without a zip code column.
func (t *Table) RequireZip() error {
	if t.HasZip {
		return nil
	}
	return &SchemaError{Source: t.Source, Missing: []string{ColZip}}
}

// HasIncome reports whether o carries a usable (non-NaN) income.
func (o Observation) HasIncome() bool { return !math.IsNaN(o.Income) }

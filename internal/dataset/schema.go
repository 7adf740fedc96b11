package dataset

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Canonical non-measure columns.
const (
	ColCity       = "city"
	ColZip        = "zip_code"
	ColYear       = "year"
	ColDate       = "date"
	ColPopulation = "population"
)

// Header aliases, in the normalized form produced by normalizeHeader.
var (
	cityAliases       = []string{"city", "city_code"}
	zipAliases        = []string{"zip_code", "zipcode", "zip"}
	yearAliases       = []string{"year"}
	dateAliases       = []string{"date"}
	populationAliases = []string{"total_population", "population"}

	measureAliases = map[Measure][]string{
		SalePrice:       {"median_sale_price", "sale_price"},
		Rent:            {"median_rent", "rent"},
		PerCapitaIncome: {"per_capita_income"},
		HouseholdIncome: {"household_income", "median_household_income"},
	}

	priceOrder  = []Measure{SalePrice, Rent}
	incomeOrder = []Measure{PerCapitaIncome, HouseholdIncome}
)

// ErrNoZipColumn is matched (errors.Is) by a SchemaError reporting a missing
// zip code column. ZIP views require it; city views do not.
var ErrNoZipColumn = errors.New("dataset: no zip code column")

// SchemaError reports required columns that could not be resolved from the
// source header. It is fatal and raised once, at load time.
type SchemaError struct {
	Source  string
	Missing []string
	Header  []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset: schema error in %s: missing %s (header: %s)",
		e.Source, strings.Join(e.Missing, ", "), strings.Join(e.Header, ", "))
}

// Is lets errors.Is(err, ErrNoZipColumn) match a missing zip column.
func (e *SchemaError) Is(target error) bool {
	return target == ErrNoZipColumn && slices.Contains(e.Missing, ColZip)
}

// layout maps canonical fields to column indexes; -1 means absent.
type layout struct {
	city, zip, year, date, price, income, population int

	priceMeasure, incomeMeasure Measure
	priceColumn, incomeColumn   string
}

// normalizeHeader folds "Median Sale Price" and "median-sale-price" to
// "median_sale_price".
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.Trim(h, "\ufeff\"")
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

func indexOf(normalized []string, aliases []string) int {
	for _, a := range aliases {
		if i := slices.Index(normalized, a); i >= 0 {
			return i
		}
	}
	return -1
}

// resolveLayout applies the alias tables to header. A preferred measure, when
// set, must be present; otherwise the first measure found in alias order wins.
func resolveLayout(source string, header []string, price, income Measure) (layout, error) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeHeader(h)
	}

	l := layout{
		city:       indexOf(normalized, cityAliases),
		zip:        indexOf(normalized, zipAliases),
		year:       indexOf(normalized, yearAliases),
		date:       indexOf(normalized, dateAliases),
		population: indexOf(normalized, populationAliases),
		price:      -1,
		income:     -1,
	}

	pick := func(preferred Measure, order []Measure) (Measure, int) {
		if preferred != "" {
			return preferred, indexOf(normalized, measureAliases[preferred])
		}
		for _, m := range order {
			if i := indexOf(normalized, measureAliases[m]); i >= 0 {
				return m, i
			}
		}
		return "", -1
	}
	l.priceMeasure, l.price = pick(price, priceOrder)
	l.incomeMeasure, l.income = pick(income, incomeOrder)

	var missing []string
	if l.city < 0 {
		missing = append(missing, ColCity)
	}
	if l.year < 0 && l.date < 0 {
		missing = append(missing, "year or date")
	}
	if l.price < 0 {
		missing = append(missing, describeMeasure(price, priceOrder))
	}
	if l.income < 0 {
		missing = append(missing, describeMeasure(income, incomeOrder))
	}
	if len(missing) > 0 {
		return layout{}, &SchemaError{Source: source, Missing: missing, Header: header}
	}

	l.priceColumn = header[l.price]
	l.incomeColumn = header[l.income]
	return l, nil
}

func describeMeasure(preferred Measure, order []Measure) string {
	if preferred != "" {
		return string(preferred)
	}
	names := make([]string, len(order))
	for i, m := range order {
		names[i] = string(m)
	}
	return "one of " + strings.Join(names, "|")
}

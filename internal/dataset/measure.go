package dataset

// Measure names a canonical numeric field of an observation.
type Measure string

// Canonical price and income measures. A deployment uses exactly one of each.
const (
	SalePrice       Measure = "sale_price"
	Rent            Measure = "rent"
	PerCapitaIncome Measure = "per_capita_income"
	HouseholdIncome Measure = "household_income"
)

// IsPrice reports whether m is a price (numerator) measure.
func (m Measure) IsPrice() bool { return m == SalePrice || m == Rent }

// IsIncome reports whether m is an income (denominator) measure.
func (m Measure) IsIncome() bool { return m == PerCapitaIncome || m == HouseholdIncome }

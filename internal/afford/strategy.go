package afford

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/affordability-cli/internal/dataset"
)

// Period is the time basis of the income denominator.
type Period string

// Denominator periods.
const (
	Annual  Period = "annual"
	Monthly Period = "monthly"
)

// Strategy selects which fields form the affordability ratio and where the
// binary affordable/unaffordable cut sits. It is chosen once per deployment.
type Strategy struct {
	Name        string          `json:"name" yaml:"name"`
	Numerator   dataset.Measure `json:"numerator" yaml:"numerator"`
	Denominator dataset.Measure `json:"denominator" yaml:"denominator"`
	Period      Period          `json:"period" yaml:"period"`
	Threshold   float64         `json:"threshold" yaml:"threshold"`
	// BudgetPct is the share of income (in percent) a household may spend on
	// rent. Used by the monthly rent framing and the reference rent figure.
	BudgetPct float64 `json:"budget_pct" yaml:"budget_pct"`
}

// Named strategies observed across dashboard deployments. The thresholds are
// not interchangeable.
const (
	PriceToIncome       = "price_to_income"
	PriceToIncomeStrict = "price_to_income_strict"
	RentToIncome        = "rent_to_income"
)

var presets = map[string]Strategy{
	PriceToIncome: {
		Name: PriceToIncome, Numerator: dataset.SalePrice, Denominator: dataset.PerCapitaIncome,
		Period: Annual, Threshold: 5.0, BudgetPct: 30,
	},
	PriceToIncomeStrict: {
		Name: PriceToIncomeStrict, Numerator: dataset.SalePrice, Denominator: dataset.PerCapitaIncome,
		Period: Annual, Threshold: 3.0, BudgetPct: 30,
	},
	RentToIncome: {
		Name: RentToIncome, Numerator: dataset.Rent, Denominator: dataset.PerCapitaIncome,
		Period: Monthly, Threshold: 0.30, BudgetPct: 30,
	},
}

// StrategyByName returns a preset strategy.
func StrategyByName(name string) (Strategy, error) {
	s, ok := presets[name]
	if !ok {
		return Strategy{}, eris.Errorf("afford: unknown strategy %q (known: %v)", name, StrategyNames())
	}
	return s, nil
}

// StrategyNames lists preset names in sorted order.
func StrategyNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate checks the strategy fields.
func (s Strategy) Validate() error {
	if !s.Numerator.IsPrice() {
		return eris.Errorf("afford: strategy %q numerator %q is not a price measure", s.Name, s.Numerator)
	}
	if !s.Denominator.IsIncome() {
		return eris.Errorf("afford: strategy %q denominator %q is not an income measure", s.Name, s.Denominator)
	}
	if s.Period != Annual && s.Period != Monthly {
		return eris.Errorf("afford: strategy %q has unknown period %q", s.Name, s.Period)
	}
	if s.Threshold <= 0 || math.IsNaN(s.Threshold) {
		return eris.Errorf("afford: strategy %q threshold must be positive", s.Name)
	}
	return nil
}

// Ratio divides price by the period-adjusted income. A zero or NaN
// denominator yields NaN, never ±Inf.
func (s Strategy) Ratio(price, income float64) float64 {
	denom := income
	if s.Period == Monthly {
		denom = income / 12.0
	}
	if denom == 0 || math.IsNaN(denom) || math.IsNaN(price) {
		return math.NaN()
	}
	return price / denom
}

// Affordable applies the strategy's binary threshold.
func (s Strategy) Affordable(ratio float64) bool {
	return IsAffordable(ratio, s.Threshold)
}

// Gap is the signed distance of ratio from the threshold: positive when
// affordable, negative when not, NaN when ratio is NaN.
func (s Strategy) Gap(ratio float64) float64 {
	d := math.Abs(ratio - s.Threshold)
	if s.Affordable(ratio) {
		return d
	}
	return -d
}

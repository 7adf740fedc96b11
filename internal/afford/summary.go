package afford

// Framing names which budget question a summary answers.
type Framing string

// Budget framings. They are distinct formulas and are never substituted for
// one another.
const (
	// FramingPrice: the purchase price affordable at threshold x annual income.
	FramingPrice Framing = "price"
	// FramingRent: the monthly rent affordable at budget_pct of monthly income.
	FramingRent Framing = "monthly_rent"
)

// Summary is the income-driven budget card shown next to the ranking.
type Summary struct {
	Persona string  `json:"persona" yaml:"persona"`
	Income  float64 `json:"income" yaml:"income"`
	Framing Framing `json:"framing" yaml:"framing"`
	// MaxAffordablePrice answers the strategy's framing: a purchase price for
	// annual strategies, a monthly rent for monthly ones.
	MaxAffordablePrice float64 `json:"max_affordable_price" yaml:"max_affordable_price"`
	// MaxMonthlyRent is always the budget_pct reference rent.
	MaxMonthlyRent float64 `json:"max_monthly_rent" yaml:"max_monthly_rent"`
	BudgetPct      float64 `json:"budget_pct" yaml:"budget_pct"`
	Threshold      float64 `json:"threshold" yaml:"threshold"`
}

// MaxAffordablePrice is threshold x annual income.
func MaxAffordablePrice(annualIncome, threshold float64) float64 {
	return threshold * annualIncome
}

// MaxMonthlyRent is annual income x budgetPct% / 12.
func MaxMonthlyRent(annualIncome, budgetPct float64) float64 {
	return annualIncome * (budgetPct / 100.0) / 12.0
}

// Summarize computes the budget card for an income under strategy s.
func Summarize(annualIncome float64, persona string, s Strategy) Summary {
	sum := Summary{
		Persona:        persona,
		Income:         annualIncome,
		MaxMonthlyRent: MaxMonthlyRent(annualIncome, s.BudgetPct),
		BudgetPct:      s.BudgetPct,
		Threshold:      s.Threshold,
	}
	if s.Period == Monthly {
		sum.Framing = FramingRent
		sum.MaxAffordablePrice = sum.MaxMonthlyRent
	} else {
		sum.Framing = FramingPrice
		sum.MaxAffordablePrice = MaxAffordablePrice(annualIncome, s.Threshold)
	}
	return sum
}

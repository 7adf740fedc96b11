package afford

import "github.com/rotisserie/eris"

// Income slider range.
const (
	MinIncome = 20000
	MaxIncome = 200000
)

// Persona is a preset profile with a starting income.
type Persona struct {
	Name   string  `json:"name" yaml:"name"`
	Income float64 `json:"income" yaml:"income"`
}

// DefaultPersona is preselected when none is chosen.
const DefaultPersona = "Young professional"

// Personas in display order.
var Personas = []Persona{
	{Name: "Student", Income: 30000},
	{Name: "Young professional", Income: 60000},
	{Name: "Family", Income: 90000},
}

// PersonaIncome returns the starting income for a persona name.
func PersonaIncome(name string) (float64, error) {
	for _, p := range Personas {
		if p.Name == name {
			return p.Income, nil
		}
	}
	return 0, eris.Errorf("afford: unknown persona %q", name)
}

// ClampIncome bounds an income to the slider range.
func ClampIncome(income float64) float64 {
	switch {
	case income < MinIncome:
		return MinIncome
	case income > MaxIncome:
		return MaxIncome
	default:
		return income
	}
}

// ResolveIncome picks the effective income: an explicit positive income wins
// over the persona default; the result is clamped to the slider range.
func ResolveIncome(income float64, persona string) (float64, string, error) {
	if persona == "" {
		persona = DefaultPersona
	}
	if income > 0 {
		return ClampIncome(income), persona, nil
	}
	base, err := PersonaIncome(persona)
	if err != nil {
		return 0, "", err
	}
	return ClampIncome(base), persona, nil
}

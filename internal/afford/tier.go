// Package afford classifies price-to-income ratios into affordability tiers
// and computes income-driven budget figures.
package afford

import (
	"math"

	"github.com/rotisserie/eris"
)

// Tier is an ordered affordability bucket. NotAvailable sorts before every
// real tier and is returned for ratios that are not finite.
type Tier int

// Affordability tiers in ascending order of ratio.
const (
	NotAvailable Tier = iota - 1
	Affordable
	ModeratelyUnaffordable
	SeriouslyUnaffordable
	SeverelyUnaffordable
	ImpossiblyUnaffordable
)

var tierLabels = map[Tier]string{
	NotAvailable:           "N/A",
	Affordable:             "Affordable",
	ModeratelyUnaffordable: "Moderately Unaffordable",
	SeriouslyUnaffordable:  "Seriously Unaffordable",
	SeverelyUnaffordable:   "Severely Unaffordable",
	ImpossiblyUnaffordable: "Impossibly Unaffordable",
}

// String returns the display label.
func (t Tier) String() string {
	if l, ok := tierLabels[t]; ok {
		return l
	}
	return tierLabels[NotAvailable]
}

// MarshalText encodes the tier as its label.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a tier label.
func (t *Tier) UnmarshalText(b []byte) error {
	for tier, label := range tierLabels {
		if label == string(b) {
			*t = tier
			return nil
		}
	}
	return eris.Errorf("afford: unknown tier %q", string(b))
}

// AllTiers lists the real tiers in ascending order.
func AllTiers() []Tier {
	return []Tier{Affordable, ModeratelyUnaffordable, SeriouslyUnaffordable, SeverelyUnaffordable, ImpossiblyUnaffordable}
}

// Tiers holds the ascending upper bounds separating the five real tiers.
// Bounds[i] is the inclusive upper bound of Tier(i); the last tier is open.
type Tiers struct {
	Bounds []float64 `json:"bounds" yaml:"bounds"`
}

// DefaultTiers uses the Demographia-style breakpoints 3.0 / 4.0 / 5.0 / 8.9.
var DefaultTiers = Tiers{Bounds: []float64{3.0, 4.0, 5.0, 8.9}}

// NewTiers validates bounds and returns a Tiers.
func NewTiers(bounds []float64) (Tiers, error) {
	t := Tiers{Bounds: append([]float64(nil), bounds...)}
	if err := t.Validate(); err != nil {
		return Tiers{}, err
	}
	return t, nil
}

// Validate checks that there is one bound per tier boundary and that bounds
// are finite and strictly increasing.
func (t Tiers) Validate() error {
	want := len(AllTiers()) - 1
	if len(t.Bounds) != want {
		return eris.Errorf("afford: expected %d tier bounds, got %d", want, len(t.Bounds))
	}
	for i, b := range t.Bounds {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return eris.Errorf("afford: tier bound %d is not finite", i)
		}
		if i > 0 && b <= t.Bounds[i-1] {
			return eris.Errorf("afford: tier bounds must increase (%g <= %g)", b, t.Bounds[i-1])
		}
	}
	return nil
}

// Classify maps a ratio to its tier using half-open intervals
// (-inf, b1], (b1, b2], ..., (bn, +inf). Non-finite ratios are NotAvailable.
func (t Tiers) Classify(ratio float64) Tier {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return NotAvailable
	}
	for i, b := range t.Bounds {
		if ratio <= b {
			return Tier(i)
		}
	}
	return Tier(len(t.Bounds))
}

// Range returns the (lower, upper] interval of a tier. The lowest tier has
// lower = -Inf and the highest upper = +Inf. NotAvailable yields (NaN, NaN).
func (t Tiers) Range(tier Tier) (lower, upper float64) {
	n := len(t.Bounds)
	if tier < Affordable || int(tier) > n {
		return math.NaN(), math.NaN()
	}
	lower, upper = math.Inf(-1), math.Inf(1)
	if tier > Affordable {
		lower = t.Bounds[tier-1]
	}
	if int(tier) < n {
		upper = t.Bounds[tier]
	}
	return lower, upper
}

// Classify uses DefaultTiers.
func Classify(ratio float64) Tier {
	return DefaultTiers.Classify(ratio)
}

// IsAffordable is the binary classifier: ratio <= threshold. It is configured
// independently of the tier bounds. NaN ratios are never affordable.
func IsAffordable(ratio, threshold float64) bool {
	if math.IsNaN(ratio) {
		return false
	}
	return ratio <= threshold
}

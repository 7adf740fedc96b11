package enrich

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/affordability-cli/internal/afford"
)

// Color policy names accepted in configuration.
const (
	PolicyLinearClip     = "linear_clip"
	PolicyThresholdSplit = "threshold_split"
)

// Default clip maxima: price-to-income ratios shade up to 15, rent-to-income
// ratios up to 2.
const (
	DefaultClipMax     = 15.0
	DefaultRentClipMax = 2.0
)

// ColorPolicy fills ColorValue in [0, 1] for a set of records. Policies may
// look at the whole set, so they run after geocoding attrition.
type ColorPolicy interface {
	Name() string
	Normalize(rows []MapRecord)
}

// LinearClip maps clip(ratio, 0, Max) / Max. An undefined ratio gets a NaN
// color, rendered as no data.
type LinearClip struct {
	Max float64
}

// Name implements ColorPolicy.
func (LinearClip) Name() string { return PolicyLinearClip }

// Normalize implements ColorPolicy.
func (p LinearClip) Normalize(rows []MapRecord) {
	clipMax := p.Max
	if clipMax <= 0 || !finite(clipMax) {
		clipMax = DefaultClipMax
	}
	for i := range rows {
		rows[i].ColorValue = linearClip(rows[i].Ratio, clipMax)
	}
}

func linearClip(ratio, clipMax float64) float64 {
	if math.IsNaN(ratio) {
		return math.NaN()
	}
	return math.Min(math.Max(ratio, 0), clipMax) / clipMax
}

// ThresholdSplit shades by price around the affordable price T: prices in
// [min, T] map onto [0, 0.5] and prices in [T, max] onto [0.5, 1]. The row
// range is widened to include T, so T itself is always 0.5 and one-sided
// sets still use their half of the scale.
type ThresholdSplit struct {
	MaxAffordablePrice float64
}

// Name implements ColorPolicy.
func (ThresholdSplit) Name() string { return PolicyThresholdSplit }

// Normalize implements ColorPolicy.
func (p ThresholdSplit) Normalize(rows []MapRecord) {
	t := p.MaxAffordablePrice
	lo, hi := t, t
	for _, r := range rows {
		if !finite(r.Price) {
			continue
		}
		lo = math.Min(lo, r.Price)
		hi = math.Max(hi, r.Price)
	}
	for i := range rows {
		rows[i].ColorValue = splitColor(rows[i].Price, lo, t, hi)
	}
}

func splitColor(price, lo, t, hi float64) float64 {
	switch {
	case !finite(price) || !finite(t):
		return math.NaN()
	case price == t:
		return 0.5
	case price < t:
		span := t - lo
		if span <= 0 {
			return 0.25
		}
		return 0.5 * (price - lo) / span
	default:
		span := hi - t
		if span <= 0 {
			return 0.75
		}
		return 0.5 + 0.5*(price-t)/span
	}
}

// PolicyFromConfig builds the configured policy. The threshold split derives
// T from the budget summary for income under strategy s, so it must be
// rebuilt whenever the income changes.
func PolicyFromConfig(name string, clipMax, income float64, s afford.Strategy) (ColorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyLinearClip:
		if clipMax <= 0 {
			clipMax = DefaultClipMax
			if s.Period == afford.Monthly {
				clipMax = DefaultRentClipMax
			}
		}
		return LinearClip{Max: clipMax}, nil
	case PolicyThresholdSplit:
		if income <= 0 || !finite(income) {
			return nil, eris.Errorf("enrich: threshold_split needs a positive income, got %v", income)
		}
		sum := afford.Summarize(income, "", s)
		return ThresholdSplit{MaxAffordablePrice: sum.MaxAffordablePrice}, nil
	default:
		return nil, eris.Errorf("enrich: unknown color policy %q", name)
	}
}

package enrich

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/affordability-cli/internal/afford"
)

func pricedRows(prices ...float64) []MapRecord {
	rows := make([]MapRecord, len(prices))
	for i, p := range prices {
		rows[i] = MapRecord{Price: p}
	}
	return rows
}

func TestThresholdSplit_Scenario(t *testing.T) {
	rows := pricedRows(200000, 350000, 900000, 275000, 625000)
	ThresholdSplit{MaxAffordablePrice: 350000}.Normalize(rows)

	assert.Equal(t, 0.0, rows[0].ColorValue)
	assert.Equal(t, 0.5, rows[1].ColorValue)
	assert.Equal(t, 1.0, rows[2].ColorValue)
	assert.InDelta(t, 0.25, rows[3].ColorValue, 1e-12)
	assert.InDelta(t, 0.75, rows[4].ColorValue, 1e-12)
}

func TestThresholdSplit_OneSided(t *testing.T) {
	// All above T: T anchors the low end of the upper half.
	above := pricedRows(400000, 500000)
	ThresholdSplit{MaxAffordablePrice: 300000}.Normalize(above)
	assert.InDelta(t, 0.75, above[0].ColorValue, 1e-12)
	assert.Equal(t, 1.0, above[1].ColorValue)

	// All below T.
	below := pricedRows(100000, 200000)
	ThresholdSplit{MaxAffordablePrice: 300000}.Normalize(below)
	assert.Equal(t, 0.0, below[0].ColorValue)
	assert.InDelta(t, 0.25, below[1].ColorValue, 1e-12)
}

func TestThresholdSplit_Monotonic(t *testing.T) {
	rows := pricedRows(150000, 180000, 240000, 299999, 300000, 300001, 450000, 800000)
	ThresholdSplit{MaxAffordablePrice: 300000}.Normalize(rows)
	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i].ColorValue, rows[i-1].ColorValue, "price %v", rows[i].Price)
	}
	for _, r := range rows {
		assert.GreaterOrEqual(t, r.ColorValue, 0.0)
		assert.LessOrEqual(t, r.ColorValue, 1.0)
	}
}

func TestSplitColor_ZeroWidth(t *testing.T) {
	assert.Equal(t, 0.25, splitColor(100, 200, 200, 300))
	assert.Equal(t, 0.75, splitColor(300, 100, 200, 200))
	assert.True(t, math.IsNaN(splitColor(math.NaN(), 0, 200, 300)))
	assert.True(t, math.IsNaN(splitColor(100, 0, math.NaN(), 300)))
}

func TestLinearClip(t *testing.T) {
	rows := []MapRecord{{Ratio: -1}, {Ratio: 0}, {Ratio: 3}, {Ratio: 15}, {Ratio: 40}, {Ratio: math.NaN()}}
	LinearClip{Max: 15}.Normalize(rows)

	assert.Equal(t, 0.0, rows[0].ColorValue)
	assert.Equal(t, 0.0, rows[1].ColorValue)
	assert.InDelta(t, 0.2, rows[2].ColorValue, 1e-12)
	assert.Equal(t, 1.0, rows[3].ColorValue)
	assert.Equal(t, 1.0, rows[4].ColorValue)
	assert.True(t, math.IsNaN(rows[5].ColorValue))
}

func TestLinearClip_DefaultMax(t *testing.T) {
	rows := []MapRecord{{Ratio: 7.5}}
	LinearClip{}.Normalize(rows)
	assert.InDelta(t, 0.5, rows[0].ColorValue, 1e-12)
}

func TestPolicyFromConfig(t *testing.T) {
	pti, err := afford.StrategyByName("price_to_income")
	require.NoError(t, err)
	rti, err := afford.StrategyByName("rent_to_income")
	require.NoError(t, err)

	p, err := PolicyFromConfig("", 0, 0, pti)
	require.NoError(t, err)
	assert.Equal(t, LinearClip{Max: DefaultClipMax}, p)

	p, err = PolicyFromConfig("linear_clip", 0, 0, rti)
	require.NoError(t, err)
	assert.Equal(t, LinearClip{Max: DefaultRentClipMax}, p)

	p, err = PolicyFromConfig("Threshold_Split", 0, 70000, pti)
	require.NoError(t, err)
	assert.Equal(t, ThresholdSplit{MaxAffordablePrice: 350000}, p)
	assert.Equal(t, PolicyThresholdSplit, p.Name())

	_, err = PolicyFromConfig("threshold_split", 0, 0, pti)
	assert.Error(t, err)

	_, err = PolicyFromConfig("rainbow", 0, 0, pti)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown color policy")
}

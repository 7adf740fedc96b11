package afford

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/affordability-cli/internal/dataset"
)

func TestStrategyByName(t *testing.T) {
	s, err := StrategyByName(PriceToIncome)
	require.NoError(t, err)
	assert.Equal(t, dataset.SalePrice, s.Numerator)
	assert.Equal(t, 5.0, s.Threshold)
	require.NoError(t, s.Validate())

	r, err := StrategyByName(RentToIncome)
	require.NoError(t, err)
	assert.Equal(t, Monthly, r.Period)
	assert.Equal(t, 0.30, r.Threshold)

	_, err = StrategyByName("nope")
	assert.Error(t, err)
	assert.Equal(t, []string{PriceToIncome, PriceToIncomeStrict, RentToIncome}, StrategyNames())
}

func TestStrategy_Validate(t *testing.T) {
	s, _ := StrategyByName(PriceToIncome)

	bad := s
	bad.Numerator = dataset.PerCapitaIncome
	assert.Error(t, bad.Validate())

	bad = s
	bad.Denominator = dataset.Rent
	assert.Error(t, bad.Validate())

	bad = s
	bad.Period = "weekly"
	assert.Error(t, bad.Validate())

	bad = s
	bad.Threshold = 0
	assert.Error(t, bad.Validate())
}

func TestStrategy_Ratio(t *testing.T) {
	s, _ := StrategyByName(PriceToIncome)
	assert.InDelta(t, 5.1667, s.Ratio(310000, 60000), 1e-4)
	assert.True(t, math.IsNaN(s.Ratio(310000, 0)))
	assert.True(t, math.IsNaN(s.Ratio(310000, math.NaN())))
	assert.True(t, math.IsNaN(s.Ratio(math.NaN(), 60000)))

	r, _ := StrategyByName(RentToIncome)
	// 1500 / (60000 / 12) = 0.3
	assert.InDelta(t, 0.30, r.Ratio(1500, 60000), 1e-9)
	assert.True(t, r.Affordable(r.Ratio(1500, 60000)))
	assert.False(t, r.Affordable(r.Ratio(1600, 60000)))
}

func TestStrategy_Gap(t *testing.T) {
	s, _ := StrategyByName(PriceToIncome)
	assert.InDelta(t, 1.0, s.Gap(4.0), 1e-9)
	assert.InDelta(t, -2.0, s.Gap(7.0), 1e-9)
	assert.Equal(t, 0.0, s.Gap(5.0))
	assert.True(t, math.IsNaN(s.Gap(math.NaN())))
}

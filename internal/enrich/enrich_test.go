package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/affordability-cli/internal/afford"
	"github.com/sells-group/affordability-cli/internal/aggregate"
	"github.com/sells-group/affordability-cli/pkg/geocode"
)

type failingResolver struct{ err error }

func (f failingResolver) Resolve(context.Context, string) (geocode.Point, bool, error) {
	return geocode.Point{}, false, f.err
}

func (f failingResolver) ResolveBatch(context.Context, []string) (map[string]geocode.Point, error) {
	return nil, f.err
}

func zipAgg(zip string, price, income float64) aggregate.ZipAggregate {
	s, _ := afford.StrategyByName("price_to_income")
	ratio := s.Ratio(price, income)
	return aggregate.ZipAggregate{
		ZipCode: zip,
		City:    "ATL",
		Year:    2023,
		Metrics: aggregate.Metrics{
			MedianPrice:  price,
			MedianIncome: income,
			Ratio:        ratio,
			Tier:         afford.DefaultTiers.Classify(ratio),
			Affordable:   s.Affordable(ratio),
			Observations: 1,
		},
	}
}

func testGazetteer() *geocode.Gazetteer {
	return geocode.NewGazetteer("test", map[string]geocode.Point{
		"30301": {Lat: 33.84, Lon: -84.47},
		"30303": {Lat: 33.75, Lon: -84.39},
	})
}

func TestEnrich_DropsUnresolved(t *testing.T) {
	e := NewEnricher(testGazetteer(), nil)
	zips := []aggregate.ZipAggregate{
		zipAgg("30301", 300000, 60000),
		zipAgg("30399", 250000, 50000),
		zipAgg("30303", 450000, 0),
	}

	out, stats, err := e.EnrichWithStats(context.Background(), zips)
	require.NoError(t, err)
	assert.Equal(t, Stats{Input: 3, Resolved: 2, Dropped: 1}, stats)
	require.Len(t, out, 2)

	assert.Equal(t, "30301", out[0].ZipCode)
	assert.Equal(t, 30301, out[0].ZipInt)
	assert.Equal(t, 33.84, out[0].Latitude)
	assert.Equal(t, 300000.0, out[0].Price)
	assert.InDelta(t, 5.0/15.0, out[0].ColorValue, 1e-12)

	assert.True(t, math.IsNaN(out[1].Ratio))
	assert.True(t, math.IsNaN(out[1].ColorValue))
	assert.Equal(t, afford.NotAvailable, out[1].Tier)
}

func TestEnrich_AllMiss(t *testing.T) {
	e := NewEnricher(geocode.NewGazetteer("empty", nil), LinearClip{Max: 15})
	out, err := e.Enrich(context.Background(), []aggregate.ZipAggregate{zipAgg("99999", 1, 1)})
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)

	out, err = e.Enrich(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestEnrich_ResolverError(t *testing.T) {
	e := NewEnricher(failingResolver{err: errors.New("context canceled")}, nil)
	_, err := e.Enrich(context.Background(), []aggregate.ZipAggregate{zipAgg("30301", 1, 1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enrich: resolve zips")
}

func TestEnrich_WithPolicy(t *testing.T) {
	base := NewEnricher(testGazetteer(), nil)
	split := base.WithPolicy(ThresholdSplit{MaxAffordablePrice: 300000})
	assert.Equal(t, PolicyLinearClip, base.Policy().Name())

	out, err := split.Enrich(context.Background(), []aggregate.ZipAggregate{
		zipAgg("30301", 300000, 60000),
		zipAgg("30303", 600000, 60000),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 0.5, out[0].ColorValue)
	assert.Equal(t, 1.0, out[1].ColorValue)
}

func TestCenter(t *testing.T) {
	_, _, ok := Center(nil)
	assert.False(t, ok)

	lat, lon, ok := Center([]MapRecord{{Latitude: 33, Longitude: -84}, {Latitude: 35, Longitude: -86}})
	require.True(t, ok)
	assert.Equal(t, 34.0, lat)
	assert.Equal(t, -85.0, lon)
}

func TestMapRecord_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(MapRecord{ZipCode: "30303", ZipInt: 30303, Price: 450000, Income: 0, Ratio: math.NaN(), ColorValue: math.NaN(), Tier: afford.NotAvailable})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Nil(t, got["ratio"])
	assert.Nil(t, got["color_value"])
	assert.Equal(t, "N/A", got["tier"])
	assert.Equal(t, 450000.0, got["price"])
}

func TestFeatureCollection(t *testing.T) {
	fc := FeatureCollection([]MapRecord{
		{ZipCode: "30301", Latitude: 33.84, Longitude: -84.47, Price: 300000, Income: 60000, Ratio: 5, ColorValue: 1.0 / 3, Tier: afford.SeverelyUnaffordable},
		{ZipCode: "30303", Latitude: 33.75, Longitude: -84.39, Ratio: math.NaN(), ColorValue: math.NaN()},
	})
	require.Len(t, fc.Features, 2)

	b, err := json.Marshal(fc)
	require.NoError(t, err)

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			ID       string `json:"id"`
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	assert.Equal(t, "Point", doc.Features[0].Geometry.Type)
	assert.Equal(t, []float64{-84.47, 33.84}, doc.Features[0].Geometry.Coordinates)
	assert.Equal(t, "30301", doc.Features[0].Properties[ZCTAProperty])
	assert.Equal(t, "Severely Unaffordable", doc.Features[0].Properties["tier"])
	assert.Nil(t, doc.Features[1].Properties["ratio"])

	empty, err := json.Marshal(FeatureCollection(nil))
	require.NoError(t, err)
	assert.Contains(t, string(empty), `"features":[]`)
}

package cache

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/affordability-cli/internal/afford"
	"github.com/sells-group/affordability-cli/internal/dataset"
)

func testTable(hasZip bool, rows ...dataset.Observation) *dataset.Table {
	return &dataset.Table{
		Version: uuid.NewString(),
		Price:   dataset.SalePrice,
		Income:  dataset.PerCapitaIncome,
		HasZip:  hasZip,
		Rows:    rows,
	}
}

func row(city, zip string, year int, price, income float64) dataset.Observation {
	return dataset.Observation{City: city, ZipCode: zip, Year: year, Price: price, Income: income, Population: math.NaN()}
}

func sampleTable() *dataset.Table {
	return testTable(true,
		row("ATL", "30301", 2023, 300000, 60000),
		row("ATL", "30303", 2023, 310000, 60000),
		row("ATL", "30301", 2023, 9000000, 60000),
		row("BOS", "02134", 2023, 612000, 60000),
		row("ATL", "30301", 2022, 280000, 58000),
	)
}

func newTestPipeline(t *testing.T, load LoadFunc) *Pipeline {
	t.Helper()
	s, err := afford.StrategyByName(afford.PriceToIncome)
	require.NoError(t, err)
	return New(load, s, afford.DefaultTiers, Options{MaxEntries: 8})
}

func TestPipeline_NotLoaded(t *testing.T) {
	p := newTestPipeline(t, nil)

	_, err := p.Cities(context.Background(), 2023)
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = p.Years()
	assert.ErrorIs(t, err, ErrNotLoaded)

	err = p.Reload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no loader")
}

func TestPipeline_CitiesCached(t *testing.T) {
	var loads atomic.Int32
	p := newTestPipeline(t, func(context.Context) (*dataset.Table, error) {
		loads.Add(1)
		return sampleTable(), nil
	})
	require.NoError(t, p.Reload(context.Background()))

	first, err := p.Cities(context.Background(), 2023)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "ATL", first[0].City)
	assert.Equal(t, 310000.0, first[0].MedianPrice)
	assert.Equal(t, afford.SeverelyUnaffordable, first[0].Tier)

	second, err := p.Cities(context.Background(), 2023)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	st := p.Stats()
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, 1, st.Entries)
	assert.Equal(t, int32(1), loads.Load())
}

func TestPipeline_EmptySelection(t *testing.T) {
	p := NewWithTable(sampleTable(), nil, mustStrategy(t), afford.DefaultTiers, Options{})

	cities, err := p.Cities(context.Background(), 1999)
	require.NoError(t, err)
	assert.NotNil(t, cities)
	assert.Empty(t, cities)

	zips, err := p.Zips(context.Background(), "NYC", 2023)
	require.NoError(t, err)
	assert.Empty(t, zips)
}

func TestPipeline_ReloadInvalidates(t *testing.T) {
	tables := []*dataset.Table{
		sampleTable(),
		testTable(true, row("ATL", "30301", 2023, 120000, 60000)),
	}
	var n atomic.Int32
	p := newTestPipeline(t, func(context.Context) (*dataset.Table, error) {
		i := n.Add(1) - 1
		return tables[i], nil
	})
	require.NoError(t, p.Reload(context.Background()))

	before, err := p.Cities(context.Background(), 2023)
	require.NoError(t, err)
	require.Len(t, before, 2)

	require.NoError(t, p.Reload(context.Background()))
	assert.Zero(t, p.Stats().Entries)

	after, err := p.Cities(context.Background(), 2023)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, afford.Affordable, after[0].Tier)
}

func TestPipeline_ReloadDuringComputeNotCached(t *testing.T) {
	old, next := sampleTable(), sampleTable()
	s, err := afford.StrategyByName(afford.PriceToIncome)
	require.NoError(t, err)
	p := NewWithTable(old, func(context.Context) (*dataset.Table, error) {
		return next, nil
	}, s, afford.DefaultTiers, Options{MaxEntries: 8})

	got, err := memo(context.Background(), p, old, "cities/"+old.Version+"/2023", func() (int, error) {
		return 7, p.Reload(context.Background())
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Zero(t, p.Stats().Entries)

	_, err = p.Cities(context.Background(), 2023)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stats().Entries)
}

func TestPipeline_ReloadUnchangedKeepsCache(t *testing.T) {
	tbl := sampleTable()
	p := newTestPipeline(t, func(context.Context) (*dataset.Table, error) {
		return tbl, nil
	})
	require.NoError(t, p.Reload(context.Background()))

	_, err := p.Cities(context.Background(), 2023)
	require.NoError(t, err)
	require.Equal(t, 1, p.Stats().Entries)

	require.NoError(t, p.Reload(context.Background()))
	assert.Equal(t, 1, p.Stats().Entries)
}

func TestPipeline_ReloadErrorKeepsTable(t *testing.T) {
	fail := false
	p := newTestPipeline(t, func(context.Context) (*dataset.Table, error) {
		if fail {
			return nil, errors.New("source unavailable")
		}
		return sampleTable(), nil
	})
	require.NoError(t, p.Reload(context.Background()))
	old, _ := p.Table()

	fail = true
	err := p.Reload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source unavailable")

	cur, err := p.Table()
	require.NoError(t, err)
	assert.Same(t, old, cur)
}

func TestPipeline_ZipsAndHistory(t *testing.T) {
	p := NewWithTable(sampleTable(), nil, mustStrategy(t), afford.DefaultTiers, Options{})

	zips, err := p.Zips(context.Background(), "ATL", 2023)
	require.NoError(t, err)
	require.Len(t, zips, 2)
	assert.Equal(t, "30303", zips[0].ZipCode)

	hist, err := p.History(context.Background(), "ATL")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, 2022, hist[0].Year)

	years, err := p.Years()
	require.NoError(t, err)
	assert.Equal(t, []int{2022, 2023}, years)

	latest, err := p.LatestYear()
	require.NoError(t, err)
	assert.Equal(t, 2023, latest)

	codes, err := p.CityCodes()
	require.NoError(t, err)
	assert.Equal(t, []string{"ATL", "BOS"}, codes)
}

func TestPipeline_ZipsWithoutZipColumn(t *testing.T) {
	p := NewWithTable(testTable(false, row("ATL", "", 2023, 1, 1)), nil, mustStrategy(t), afford.DefaultTiers, Options{})

	_, err := p.Zips(context.Background(), "ATL", 2023)
	require.Error(t, err)
	assert.ErrorIs(t, err, dataset.ErrNoZipColumn)
	assert.Zero(t, p.Stats().Entries)
}

func TestPipeline_ConcurrentCallers(t *testing.T) {
	p := NewWithTable(sampleTable(), nil, mustStrategy(t), afford.DefaultTiers, Options{})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := p.Cities(context.Background(), 2023)
			assert.NoError(t, err)
			assert.Len(t, rows, 2)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, p.Stats().Entries)
}

func TestPipeline_Canceled(t *testing.T) {
	p := NewWithTable(sampleTable(), nil, mustStrategy(t), afford.DefaultTiers, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A canceled caller may still win the race against a fast computation;
	// either way it must not panic and the entry stays usable.
	_, _ = p.Cities(ctx, 2023)
	rows, err := p.Cities(context.Background(), 2023)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func mustStrategy(t *testing.T) afford.Strategy {
	t.Helper()
	s, err := afford.StrategyByName(afford.PriceToIncome)
	require.NoError(t, err)
	return s
}

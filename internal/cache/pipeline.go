// Package cache memoizes aggregate computations over the loaded table. Keys
// carry the table version, and a reload swaps the table and drops every
// entry computed from the old one.
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/affordability-cli/internal/afford"
	"github.com/sells-group/affordability-cli/internal/aggregate"
	"github.com/sells-group/affordability-cli/internal/dataset"
)

// ErrNotLoaded is returned before the first successful load.
var ErrNotLoaded = eris.New("cache: dataset not loaded")

// LoadFunc produces a fresh table, e.g. dataset.Load over the configured
// source.
type LoadFunc func(ctx context.Context) (*dataset.Table, error)

// Options configures a Pipeline.
type Options struct {
	MaxEntries int
}

// Pipeline is the read-through cache in front of the aggregators. The table
// it holds is immutable and shared by all readers.
type Pipeline struct {
	load     LoadFunc
	strategy afford.Strategy
	tiers    afford.Tiers

	table    atomic.Pointer[dataset.Table]
	lru      *LRU
	group    singleflight.Group
	reloadMu sync.Mutex
}

// New creates a Pipeline. Call Reload (or use NewWithTable) before querying.
func New(load LoadFunc, s afford.Strategy, tiers afford.Tiers, opts Options) *Pipeline {
	return &Pipeline{
		load:     load,
		strategy: s,
		tiers:    tiers,
		lru:      NewLRU(opts.MaxEntries),
	}
}

// NewWithTable creates a Pipeline over an already loaded table. Reload will
// fail unless load is non-nil.
func NewWithTable(t *dataset.Table, load LoadFunc, s afford.Strategy, tiers afford.Tiers, opts Options) *Pipeline {
	p := New(load, s, tiers, opts)
	p.table.Store(t)
	return p
}

// Strategy returns the affordability strategy aggregates are computed with.
func (p *Pipeline) Strategy() afford.Strategy { return p.strategy }

// Tiers returns the tier bounds in use.
func (p *Pipeline) Tiers() afford.Tiers { return p.tiers }

// Table returns the current table.
func (p *Pipeline) Table() (*dataset.Table, error) {
	t := p.table.Load()
	if t == nil {
		return nil, ErrNotLoaded
	}
	return t, nil
}

// Reload loads a new table, swaps it in, and invalidates all entries.
// Concurrent reloads are serialized; readers keep the old table until the
// swap. A loader returning the current table leaves the cache intact.
func (p *Pipeline) Reload(ctx context.Context) error {
	if p.load == nil {
		return eris.New("cache: no loader configured")
	}

	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()

	t, err := p.load(ctx)
	if err != nil {
		return eris.Wrap(err, "cache: reload")
	}

	if t == p.table.Load() {
		zap.L().Info("cache: dataset unchanged", zap.String("version", t.Version))
		return nil
	}

	prev := p.table.Swap(t)
	p.Invalidate()

	fields := []zap.Field{
		zap.String("version", t.Version),
		zap.Int("rows", len(t.Rows)),
	}
	if prev != nil {
		fields = append(fields, zap.String("previous_version", prev.Version))
	}
	zap.L().Info("cache: dataset reloaded", fields...)
	return nil
}

// Invalidate drops every cached aggregate.
func (p *Pipeline) Invalidate() {
	p.lru.Purge()
}

// Stats returns cache statistics.
func (p *Pipeline) Stats() Stats {
	return p.lru.Stats()
}

// Years lists the years present in the table.
func (p *Pipeline) Years() ([]int, error) {
	t, err := p.Table()
	if err != nil {
		return nil, err
	}
	return t.Years(), nil
}

// LatestYear is the default year selection.
func (p *Pipeline) LatestYear() (int, error) {
	t, err := p.Table()
	if err != nil {
		return 0, err
	}
	y, ok := aggregate.LatestYear(t)
	if !ok {
		return 0, eris.New("cache: dataset has no years")
	}
	return y, nil
}

// CityCodes lists the city codes present in the table.
func (p *Pipeline) CityCodes() ([]string, error) {
	t, err := p.Table()
	if err != nil {
		return nil, err
	}
	return t.Cities(), nil
}

// ResolveCity maps a user-supplied city onto the code stored in the current
// table. See dataset.Table.ResolveCity.
func (p *Pipeline) ResolveCity(city string) (string, error) {
	t, err := p.Table()
	if err != nil {
		return "", err
	}
	return t.ResolveCity(city), nil
}

// Cities returns the city aggregates for year. The slice is shared; sort a
// copy.
func (p *Pipeline) Cities(ctx context.Context, year int) ([]aggregate.CityAggregate, error) {
	t, err := p.Table()
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("cities/%s/%d", t.Version, year)
	return memo(ctx, p, t, key, func() ([]aggregate.CityAggregate, error) {
		return aggregate.Cities(t, year, p.strategy, p.tiers), nil
	})
}

// Zips returns the zip aggregates of city in year. The slice is shared.
func (p *Pipeline) Zips(ctx context.Context, city string, year int) ([]aggregate.ZipAggregate, error) {
	t, err := p.Table()
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("zips/%s/%d/%s", t.Version, year, city)
	return memo(ctx, p, t, key, func() ([]aggregate.ZipAggregate, error) {
		return aggregate.Zips(t, city, year, p.strategy, p.tiers)
	})
}

// History returns the per-year history of city. The slice is shared.
func (p *Pipeline) History(ctx context.Context, city string) ([]aggregate.HistoryPoint, error) {
	t, err := p.Table()
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("history/%s/%s", t.Version, city)
	return memo(ctx, p, t, key, func() ([]aggregate.HistoryPoint, error) {
		return aggregate.History(t, city, p.strategy), nil
	})
}

// memo serves key from the LRU or computes it once, however many callers
// ask concurrently. Errors are not cached, and neither is a result computed
// from a table that a reload replaced mid-flight.
func memo[T any](ctx context.Context, p *Pipeline, t *dataset.Table, key string, compute func() (T, error)) (T, error) {
	var zero T
	if v, ok := p.lru.Get(key); ok {
		return v.(T), nil
	}

	ch := p.group.DoChan(key, func() (interface{}, error) {
		if v, ok := p.lru.Peek(key); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		if p.table.Load() == t {
			p.lru.Put(key, v)
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, eris.Wrap(ctx.Err(), "cache: "+key)
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

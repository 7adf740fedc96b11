package geocode

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CascadeResolver tries providers in order until one resolves the zip, and
// caches both hits and misses.
type CascadeResolver struct {
	providers        []Provider
	cache            Cache
	batchConcurrency int
}

// CascadeOption configures the CascadeResolver.
type CascadeOption func(*CascadeResolver)

// WithCache sets the lookup cache. Without one every call hits providers.
func WithCache(c Cache) CascadeOption {
	return func(r *CascadeResolver) {
		r.cache = c
	}
}

// WithBatchConcurrency sets the max parallel lookups for ResolveBatch.
func WithBatchConcurrency(n int) CascadeOption {
	return func(r *CascadeResolver) {
		if n > 0 {
			r.batchConcurrency = n
		}
	}
}

// NewCascadeResolver creates a CascadeResolver over providers.
func NewCascadeResolver(providers []Provider, opts ...CascadeOption) *CascadeResolver {
	r := &CascadeResolver{
		providers:        providers,
		batchConcurrency: 8,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve implements ZipResolver. Provider and cache failures are logged and
// skipped; only context cancellation is returned.
func (r *CascadeResolver) Resolve(ctx context.Context, zip string) (Point, bool, error) {
	key := NormalizeZip(zip)
	if key == "" {
		return Point{}, false, nil
	}

	if r.cache != nil {
		e, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			zap.L().Debug("cascade: cache get failed", zap.String("zip", key), zap.Error(err))
		} else if ok {
			return e.Point, e.Found, nil
		}
	}

	var remoteFailed bool
	for _, p := range r.providers {
		if !p.Available() {
			continue
		}
		pt, found, err := p.Lookup(ctx, key)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Point{}, false, eris.Wrap(ctxErr, "geocode: resolve")
		}
		if err != nil {
			remoteFailed = true
			zap.L().Debug("cascade: provider error, trying next",
				zap.String("provider", p.Name()),
				zap.String("zip", key),
				zap.Error(err),
			)
			continue
		}
		if found {
			r.store(ctx, key, Entry{Point: pt, Found: true, Source: p.Name()})
			return pt, true, nil
		}
	}

	// A miss caused by a failing provider may succeed later; don't pin it.
	if !remoteFailed {
		r.store(ctx, key, Entry{Found: false, Source: "cascade"})
	}
	return Point{}, false, nil
}

func (r *CascadeResolver) store(ctx context.Context, key string, e Entry) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, key, e); err != nil {
		zap.L().Debug("cascade: cache set failed", zap.String("zip", key), zap.Error(err))
	}
}

// ResolveBatch implements ZipResolver. Distinct zips are resolved in parallel;
// individual misses and provider failures never fail the batch.
func (r *CascadeResolver) ResolveBatch(ctx context.Context, zips []string) (map[string]Point, error) {
	seen := make(map[string]struct{}, len(zips))
	keys := make([]string, 0, len(zips))
	for _, z := range zips {
		k := NormalizeZip(z)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}

	var mu sync.Mutex
	out := make(map[string]Point, len(keys))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.batchConcurrency)
	for _, k := range keys {
		eg.Go(func() error {
			pt, found, err := r.Resolve(gCtx, k)
			if err != nil {
				return err
			}
			if found {
				mu.Lock()
				out[k] = pt
				mu.Unlock()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

package enrich

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/affordability-cli/internal/aggregate"
	"github.com/sells-group/affordability-cli/internal/dataset"
	"github.com/sells-group/affordability-cli/pkg/geocode"
)

// Stats reports geocoding attrition for one enrichment.
type Stats struct {
	Input    int `json:"input"`
	Resolved int `json:"resolved"`
	Dropped  int `json:"dropped"`
}

// Enricher geocodes zip aggregates and colors them.
type Enricher struct {
	resolver geocode.ZipResolver
	policy   ColorPolicy
}

// NewEnricher creates an Enricher. A nil policy means LinearClip at the
// default maximum.
func NewEnricher(resolver geocode.ZipResolver, policy ColorPolicy) *Enricher {
	if policy == nil {
		policy = LinearClip{Max: DefaultClipMax}
	}
	return &Enricher{resolver: resolver, policy: policy}
}

// WithPolicy returns a copy of e using policy. The threshold split policy is
// income-dependent, so request handlers swap it per call.
func (e *Enricher) WithPolicy(policy ColorPolicy) *Enricher {
	return NewEnricher(e.resolver, policy)
}

// Policy returns the configured color policy.
func (e *Enricher) Policy() ColorPolicy { return e.policy }

// Enrich resolves every zip in one batch, drops the ones that cannot be
// located, and colors the rest. An all-miss batch is an empty slice.
func (e *Enricher) Enrich(ctx context.Context, zips []aggregate.ZipAggregate) ([]MapRecord, error) {
	out, _, err := e.EnrichWithStats(ctx, zips)
	return out, err
}

// EnrichWithStats is Enrich that also reports attrition.
func (e *Enricher) EnrichWithStats(ctx context.Context, zips []aggregate.ZipAggregate) ([]MapRecord, Stats, error) {
	stats := Stats{Input: len(zips)}
	out := make([]MapRecord, 0, len(zips))
	if len(zips) == 0 {
		return out, stats, nil
	}

	codes := make([]string, 0, len(zips))
	for _, z := range zips {
		codes = append(codes, z.ZipCode)
	}

	points, err := e.resolver.ResolveBatch(ctx, codes)
	if err != nil {
		return nil, stats, eris.Wrap(err, "enrich: resolve zips")
	}

	for _, z := range zips {
		key := geocode.NormalizeZip(z.ZipCode)
		pt, ok := points[key]
		if !ok {
			stats.Dropped++
			continue
		}
		out = append(out, MapRecord{
			ZipCode:    key,
			ZipInt:     dataset.ZipInt(key),
			City:       z.City,
			Year:       z.Year,
			Latitude:   pt.Lat,
			Longitude:  pt.Lon,
			Price:      z.MedianPrice,
			Income:     z.MedianIncome,
			Ratio:      z.Ratio,
			Tier:       z.Tier,
			Affordable: z.Affordable,
		})
	}
	stats.Resolved = len(out)

	e.policy.Normalize(out)

	zap.L().Debug("enrich: geocoded zips",
		zap.Int("input", stats.Input),
		zap.Int("resolved", stats.Resolved),
		zap.Int("dropped", stats.Dropped),
		zap.String("policy", e.policy.Name()),
	)
	return out, stats, nil
}

package dataset

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// LoadOptions selects the measures a deployment uses when a source carries
// several. Empty fields fall back to the first measure present.
type LoadOptions struct {
	Price  Measure
	Income Measure
}

// Validate checks that preferred measures are of the right kind.
func (o LoadOptions) Validate() error {
	if o.Price != "" && !o.Price.IsPrice() {
		return eris.Errorf("dataset: %q is not a price measure", o.Price)
	}
	if o.Income != "" && !o.Income.IsIncome() {
		return eris.Errorf("dataset: %q is not an income measure", o.Income)
	}
	return nil
}

// Load reads src into a normalized Table. Header problems fail with a
// *SchemaError; per-row anomalies are absorbed (NaN income) or the row is
// skipped and counted.
func Load(ctx context.Context, src Source, opts LoadOptions) (*Table, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("source", src.Name()))
	start := time.Now()

	b := &builder{source: src.Name(), opts: opts, log: log}
	if err := src.Records(ctx, b.add); err != nil {
		return nil, err
	}
	if b.table == nil {
		return nil, &SchemaError{Source: src.Name(), Missing: []string{"header"}}
	}

	log.Info("dataset: loaded",
		zap.String("version", b.table.Version),
		zap.Int("rows", len(b.table.Rows)),
		zap.Int("skipped", b.table.Skipped),
		zap.String("price", string(b.table.Price)),
		zap.String("income", string(b.table.Income)),
		zap.Bool("has_zip", b.table.HasZip),
		zap.Duration("elapsed", time.Since(start)),
	)
	return b.table, nil
}

// builder consumes records one at a time; the first record is the header.
type builder struct {
	source string
	opts   LoadOptions
	log    *zap.Logger

	layout layout
	table  *Table
	line   int
}

func (b *builder) add(record []string) error {
	b.line++
	if b.table == nil {
		l, err := resolveLayout(b.source, record, b.opts.Price, b.opts.Income)
		if err != nil {
			return err
		}
		b.layout = l
		b.table = &Table{
			Version:       uuid.NewString(),
			Source:        b.source,
			LoadedAt:      time.Now().UTC(),
			Price:         l.priceMeasure,
			Income:        l.incomeMeasure,
			PriceColumn:   l.priceColumn,
			IncomeColumn:  l.incomeColumn,
			HasZip:        l.zip >= 0,
			HasPopulation: l.population >= 0,
		}
		return nil
	}

	obs, reason := b.parse(record)
	if reason != "" {
		b.table.Skipped++
		b.log.Debug("dataset: skipped row", zap.Int("line", b.line), zap.String("reason", reason))
		return nil
	}
	b.table.Rows = append(b.table.Rows, obs)
	return nil
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

// parse converts one record. A non-empty reason means the row is dropped.
func (b *builder) parse(record []string) (Observation, string) {
	l := b.layout
	obs := Observation{Population: math.NaN()}

	obs.City = strings.TrimSpace(cell(record, l.city))
	if obs.City == "" {
		return obs, "blank city"
	}

	var ok bool
	if l.year >= 0 {
		obs.Year, ok = parseYear(cell(record, l.year))
	}
	if !ok && l.date >= 0 {
		obs.Year, ok = yearFromDate(cell(record, l.date))
	}
	if !ok {
		return obs, "unparsable year"
	}

	obs.Price, ok = parseNumber(cell(record, l.price))
	if !ok || math.IsNaN(obs.Price) {
		return obs, "unparsable price"
	}
	if obs.Price < 0 {
		return obs, "negative price"
	}

	// Missing, garbage and negative incomes are all an undefined denominator.
	obs.Income, ok = parseNumber(cell(record, l.income))
	if !ok || obs.Income < 0 {
		obs.Income = math.NaN()
	}

	if l.zip >= 0 {
		obs.ZipCode, _ = padZip(cell(record, l.zip))
	}
	if l.population >= 0 {
		if p, ok := parseNumber(cell(record, l.population)); ok {
			obs.Population = p
		}
	}
	return obs, ""
}

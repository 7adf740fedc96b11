package dataset

import (
	"context"
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/affordability-cli/internal/db"
)

// ExportColumns are the columns written by Export, in canonical names that
// the loader resolves on the way back in.
func (t *Table) ExportColumns() []string {
	return []string{ColCity, ColZip, ColYear, "median_" + string(t.Price), string(t.Income), "total_population"}
}

// CreateTableSQL returns DDL for a table Export can write into.
func (t *Table) CreateTableSQL(table string) string {
	cols := t.ExportColumns()
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s TEXT NOT NULL,
	%s TEXT,
	%s INTEGER NOT NULL,
	%s DOUBLE PRECISION NOT NULL,
	%s DOUBLE PRECISION,
	%s DOUBLE PRECISION
)`, db.Identifier(table).Sanitize(),
		quote(cols[0]), quote(cols[1]), quote(cols[2]), quote(cols[3]), quote(cols[4]), quote(cols[5]))
}

func quote(col string) string { return db.QuoteAndJoin([]string{col}) }

// Export copies the normalized rows into a Postgres table so later loads can
// use a "pg:" source. NaN incomes and populations are written as NULL.
func Export(ctx context.Context, pool db.Pool, table string, t *Table) (int64, error) {
	if _, err := pool.Exec(ctx, t.CreateTableSQL(table)); err != nil {
		return 0, eris.Wrapf(err, "dataset: create %s", table)
	}

	n, err := db.CopyFrom(ctx, pool, table, t.ExportColumns(), len(t.Rows), func(i int) ([]any, error) {
		r := t.Rows[i]
		var zip any
		if r.ZipCode != "" {
			zip = r.ZipCode
		}
		return []any{r.City, zip, r.Year, r.Price, nullable(r.Income), nullable(r.Population)}, nil
	})
	if err != nil {
		return 0, eris.Wrap(err, "dataset: export")
	}
	zap.L().Info("dataset: exported", zap.String("table", table), zap.Int64("rows", n))
	return n, nil
}

func nullable(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom streams n rows into table ("public.house_ts" or "house_ts") over
// the COPY protocol. row builds the values for index i on demand, so callers
// never hold a second copy of the data.
func CopyFrom(ctx context.Context, pool Pool, table string, columns []string, n int, row func(i int) ([]any, error)) (int64, error) {
	if n == 0 {
		return 0, nil
	}
	copied, err := pool.CopyFrom(ctx, Identifier(table), columns, pgx.CopyFromSlice(n, row))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	return copied, nil
}

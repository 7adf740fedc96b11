package dataset

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rotisserie/eris"

	"github.com/sells-group/affordability-cli/internal/db"
	"github.com/sells-group/affordability-cli/internal/fetcher"
)

// Source yields the raw records of a tabular dataset. The first record passed
// to fn is the header. The slice may be reused after fn returns.
type Source interface {
	Name() string
	Records(ctx context.Context, fn func(record []string) error) error
}

// PostgresScheme prefixes table locations: "pg:public.house_ts".
const PostgresScheme = "pg:"

// NewSource picks a Source for location: "pg:<table>" reads a Postgres table
// through pool, http(s)/ftp URLs are downloaded, anything else is a local path.
func NewSource(location string, opener *fetcher.Opener, pool db.Pool) (Source, error) {
	if table, ok := strings.CutPrefix(location, PostgresScheme); ok {
		if pool == nil {
			return nil, eris.Errorf("dataset: %s needs store.database_url", location)
		}
		return &PostgresSource{Pool: pool, Table: table}, nil
	}
	if opener == nil {
		opener = fetcher.NewOpener(fetcher.HTTPOptions{}, fetcher.FTPOptions{})
	}
	if fetcher.IsRemote(location) {
		return &URLSource{URL: location, Opener: opener}, nil
	}
	return &FileSource{Path: strings.TrimPrefix(location, "file://"), Opener: opener}, nil
}

// FileSource reads a local .csv, .tsv/.txt or .xlsx file.
type FileSource struct {
	Path   string
	Opener *fetcher.Opener
	XLSX   fetcher.XLSXOptions
}

// Name implements Source.
func (s *FileSource) Name() string { return s.Path }

// Records implements Source.
func (s *FileSource) Records(ctx context.Context, fn func([]string) error) error {
	if isXLSX(s.Path) {
		return readXLSX(s.Path, s.XLSX, fn)
	}
	opener := s.Opener
	if opener == nil {
		opener = &fetcher.Opener{}
	}
	rc, err := opener.Open(ctx, s.Path)
	if err != nil {
		return eris.Wrap(err, "dataset: open source")
	}
	defer rc.Close() //nolint:errcheck
	return streamDelimited(ctx, rc, s.Path, fn)
}

// URLSource reads a CSV/TSV over HTTP(S) or FTP. XLSX workbooks are
// downloaded to a temp dir first.
type URLSource struct {
	URL    string
	Opener *fetcher.Opener
	XLSX   fetcher.XLSXOptions
}

// Name implements Source.
func (s *URLSource) Name() string { return s.URL }

// Records implements Source.
func (s *URLSource) Records(ctx context.Context, fn func([]string) error) error {
	if isXLSX(s.URL) {
		dir, err := os.MkdirTemp("", "afford-xlsx-*")
		if err != nil {
			return eris.Wrap(err, "dataset: temp dir")
		}
		defer os.RemoveAll(dir) //nolint:errcheck

		path, err := s.Opener.Localize(ctx, s.URL, dir)
		if err != nil {
			return eris.Wrap(err, "dataset: download workbook")
		}
		return readXLSX(path, s.XLSX, fn)
	}

	rc, err := s.Opener.Open(ctx, s.URL)
	if err != nil {
		return eris.Wrap(err, "dataset: open source")
	}
	defer rc.Close() //nolint:errcheck
	return streamDelimited(ctx, rc, s.URL, fn)
}

func isXLSX(location string) bool {
	return strings.EqualFold(filepath.Ext(location), ".xlsx")
}

func readXLSX(path string, opts fetcher.XLSXOptions, fn func([]string) error) error {
	rows, err := fetcher.ReadXLSX(path, opts)
	if err != nil {
		return eris.Wrap(err, "dataset: read workbook")
	}
	for _, row := range rows {
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func streamDelimited(ctx context.Context, r io.Reader, name string, fn func([]string) error) error {
	opts := fetcher.CSVOptions{Delimiter: fetcher.DelimiterFor(name), LazyQuotes: true, TrimSpace: true}
	var fnErr error
	err := fetcher.ReadCSV(ctx, r, opts, func(_ int, rec []string) error {
		fnErr = fn(rec)
		return fnErr
	})
	if err != nil && fnErr == nil {
		return eris.Wrapf(err, "dataset: read %s", name)
	}
	return err
}

// PostgresSource reads every row of a table or view.
type PostgresSource struct {
	Pool  db.Pool
	Table string
}

// Name implements Source.
func (s *PostgresSource) Name() string { return PostgresScheme + s.Table }

// Records implements Source.
func (s *PostgresSource) Records(ctx context.Context, fn func([]string) error) error {
	query := "SELECT * FROM " + db.Identifier(s.Table).Sanitize()
	rows, err := s.Pool.Query(ctx, query)
	if err != nil {
		return eris.Wrapf(err, "dataset: query %s", s.Table)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Name
	}
	if err := fn(header); err != nil {
		return err
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return eris.Wrapf(err, "dataset: scan %s", s.Table)
		}
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = formatValue(v)
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	return eris.Wrapf(rows.Err(), "dataset: iterate %s", s.Table)
}

// formatValue renders a decoded column value in the text form the loader
// parses.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case time.Time:
		return x.Format("2006-01-02")
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return ""
		}
		return strconv.FormatFloat(f.Float64, 'f', -1, 64)
	case interface{ String() string }:
		return x.String()
	default:
		return ""
	}
}

package fetcher

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVOptions configures ReadCSV.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // 0 disables comment lines
	LazyQuotes bool
	TrimSpace  bool
}

// ErrStop ends ReadCSV early without an error when returned by the callback.
var ErrStop = errors.New("csv: stop")

// ReadCSV calls fn for each record of delimited text, passing the 1-based
// input line the record starts on. A UTF-8 or UTF-16 byte-order mark is
// consumed so it never reaches the first header name. Records may have
// differing field counts. fn must not retain rec.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions, fn func(line int, rec []string) error) error {
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.Comment = opts.Comment
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	for n := 0; ; n++ {
		if n%1024 == 0 && ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "csv: context cancelled")
		}

		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "csv: read row")
		}

		if opts.TrimSpace {
			for i := range rec {
				rec[i] = strings.TrimSpace(rec[i])
			}
		}
		line, _ := reader.FieldPos(0)
		if err := fn(line, rec); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
}

// DelimiterFor picks the delimiter for a file name: tab for .tsv and .txt,
// comma otherwise.
func DelimiterFor(name string) rune {
	switch strings.ToLower(name[strings.LastIndexByte(name, '.')+1:]) {
	case "tsv", "txt":
		return '\t'
	}
	return ','
}

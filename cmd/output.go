package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --format.
const (
	formatTable   = "table"
	formatJSON    = "json"
	formatYAML    = "yaml"
	formatCSV     = "csv"
	formatGeoJSON = "geojson"
)

var listFormats = []string{formatTable, formatJSON, formatYAML, formatCSV}

// checkFormat rejects formats a command does not support.
func checkFormat(format string, allowed []string) error {
	if slices.Contains(allowed, format) {
		return nil
	}
	return eris.Errorf("unsupported --format %q (want one of %s)", format, strings.Join(allowed, ", "))
}

// tableData is the row form of a result, shared by the csv and table formats.
type tableData struct {
	Header []string
	Rows   [][]string
}

// cells formats numbers for one output format: raw for csv, grouped for the
// human table.
type cells struct {
	p *message.Printer // nil for raw output
}

var (
	rawCells   = cells{}
	humanCells = cells{p: message.NewPrinter(language.English)}
)

func (c cells) amount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return c.missing()
	}
	if c.p == nil {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return c.p.Sprintf("%d", int64(math.Round(v)))
}

func (c cells) ratio(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return c.missing()
	}
	if c.p == nil {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func (c cells) coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 5, 64)
}

func (c cells) count(n int) string {
	if c.p == nil {
		return strconv.Itoa(n)
	}
	return c.p.Sprintf("%d", n)
}

func (c cells) missing() string {
	if c.p == nil {
		return ""
	}
	return "n/a"
}

// render writes v to out in format. tbl builds the row form for csv and
// table output.
func render(out io.Writer, format string, v any, tbl func(cells) tableData) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode json")
		}
		return nil
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		if err := enc.Close(); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return nil
	case formatCSV:
		return writeCSV(out, tbl(rawCells))
	case formatTable:
		writeTable(out, tbl(humanCells))
		return nil
	default:
		return eris.Errorf("unsupported --format %q", format)
	}
}

func writeCSV(out io.Writer, t tableData) error {
	w := csv.NewWriter(out)
	if err := w.Write(t.Header); err != nil {
		return eris.Wrap(err, "write csv header")
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return eris.Wrap(err, "write csv rows")
	}
	return nil
}

func writeTable(out io.Writer, t tableData) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(t.Header, "\t"))

	rules := make([]string, len(t.Header))
	for i, h := range t.Header {
		rules[i] = strings.Repeat("-", len(h))
	}
	_, _ = fmt.Fprintln(w, strings.Join(rules, "\t"))

	for _, row := range t.Rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

// noData writes the empty-selection notice for table output.
func noData(out io.Writer) {
	_, _ = fmt.Fprintln(out, "No data available for this selection.")
}

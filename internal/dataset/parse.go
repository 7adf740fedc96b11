package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order when deriving year from a date column.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"1/2/2006",
	"01/02/2006",
	"2006-01",
	"2006/01/02",
}

var missingTokens = map[string]bool{
	"": true, "na": true, "n/a": true, "nan": true, "null": true, "none": true, "-": true,
}

// parseNumber parses a numeric cell. "$1,250,000" and "1.25e6" are accepted;
// blank and NA-style cells are NaN with ok=true; garbage is ok=false.
func parseNumber(s string) (v float64, ok bool) {
	s = strings.TrimSpace(s)
	if missingTokens[strings.ToLower(s)] {
		return math.NaN(), true
	}
	s = strings.NewReplacer("$", "", ",", "", "_", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN(), false
	}
	return v, true
}

// parseYear reads a year cell ("2023" or "2023.0").
func parseYear(s string) (int, bool) {
	v, ok := parseNumber(s)
	if !ok || math.IsNaN(v) || v != math.Trunc(v) || v < 1000 || v > 9999 {
		return 0, false
	}
	return int(v), true
}

// yearFromDate derives the year from a date cell.
func yearFromDate(s string) (int, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Year(), true
		}
	}
	return 0, false
}

// padZip normalizes a zip cell to its 5-character zero-padded form.
// Float renderings ("2134.0") and ZIP+4 ("02134-1234") are accepted.
func padZip(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if i := strings.IndexByte(s, '-'); i > 0 {
		s = s[:i]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v != math.Trunc(v) || v > 99999 {
		return "", false
	}
	return fmt.Sprintf("%05d", int(v)), true
}

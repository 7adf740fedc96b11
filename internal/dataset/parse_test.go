package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"300000", 300000, true},
		{" 1.25e6 ", 1250000, true},
		{"$1,250,000", 1250000, true},
		{"0", 0, true},
		{"", math.NaN(), true},
		{"NaN", math.NaN(), true},
		{"NA", math.NaN(), true},
		{"abc", math.NaN(), false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			if math.IsNaN(tt.want) {
				assert.True(t, math.IsNaN(got))
			} else {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseYear(t *testing.T) {
	y, ok := parseYear("2023")
	assert.True(t, ok)
	assert.Equal(t, 2023, y)

	y, ok = parseYear("2023.0")
	assert.True(t, ok)
	assert.Equal(t, 2023, y)

	for _, bad := range []string{"", "2023.5", "23", "year"} {
		_, ok := parseYear(bad)
		assert.False(t, ok, bad)
	}
}

func TestYearFromDate(t *testing.T) {
	for in, want := range map[string]int{
		"2021-06-30":           2021,
		"2019-01-31 00:00:00":  2019,
		"2020-03-01T00:00:00Z": 2020,
		"7/1/2022":             2022,
		"2018-05":              2018,
	} {
		got, ok := yearFromDate(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := yearFromDate("June 2020")
	assert.False(t, ok)
}

func TestPadZip(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"30301", "30301", true},
		{"2134", "02134", true},
		{"2134.0", "02134", true},
		{"501", "00501", true},
		{"02134-1234", "02134", true},
		{"", "", false},
		{"abcde", "", false},
		{"123456", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := padZip(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "median_sale_price", normalizeHeader(" Median Sale Price "))
	assert.Equal(t, "per_capita_income", normalizeHeader("Per-Capita-Income"))
	assert.Equal(t, "city", normalizeHeader("\ufeffcity"))
}

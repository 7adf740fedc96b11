package dataset

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func loadCSV(t *testing.T, content string, opts LoadOptions) (*Table, error) {
	t.Helper()
	path := writeFile(t, "HouseTS.csv", content)
	return Load(context.Background(), &FileSource{Path: path}, opts)
}

func TestLoad_CanonicalHeader(t *testing.T) {
	tbl, err := loadCSV(t, "city,zipcode,year,median_sale_price,per_capita_income,total_population\n"+
		"ATL,30301,2023,300000,60000,1200\n"+
		"ATL,2134.0,2023,310000,,\n", LoadOptions{})
	require.NoError(t, err)

	assert.NotEmpty(t, tbl.Version)
	assert.Equal(t, SalePrice, tbl.Price)
	assert.Equal(t, PerCapitaIncome, tbl.Income)
	assert.Equal(t, "median_sale_price", tbl.PriceColumn)
	assert.True(t, tbl.HasZip)
	assert.True(t, tbl.HasPopulation)
	require.Len(t, tbl.Rows, 2)

	assert.Equal(t, Observation{City: "ATL", ZipCode: "30301", Year: 2023, Price: 300000, Income: 60000, Population: 1200}, tbl.Rows[0])
	assert.Equal(t, "02134", tbl.Rows[1].ZipCode)
	assert.Equal(t, 2134, ZipInt(tbl.Rows[1].ZipCode))
	assert.True(t, math.IsNaN(tbl.Rows[1].Income))
	assert.False(t, tbl.Rows[1].HasIncome())
	assert.True(t, math.IsNaN(tbl.Rows[1].Population))
}

func TestLoad_DisplayAliasesAndDate(t *testing.T) {
	tbl, err := loadCSV(t, "\ufeffCity Code,Zip Code,Date,Median Rent,Household Income\n"+
		"BOS,02134,2021-06-30,2400,\"$85,000\"\n"+
		"BOS,02135,7/1/2022,2500,90000\n", LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, Rent, tbl.Price)
	assert.Equal(t, HouseholdIncome, tbl.Income)
	assert.False(t, tbl.HasPopulation)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, 2021, tbl.Rows[0].Year)
	assert.Equal(t, 85000.0, tbl.Rows[0].Income)
	assert.Equal(t, 2022, tbl.Rows[1].Year)
}

func TestLoad_PreferredMeasure(t *testing.T) {
	content := "city,year,median_sale_price,median_rent,per_capita_income,household_income\n" +
		"ATL,2023,300000,1800,40000,70000\n"

	tbl, err := loadCSV(t, content, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, SalePrice, tbl.Price)
	assert.Equal(t, PerCapitaIncome, tbl.Income)

	tbl, err = loadCSV(t, content, LoadOptions{Price: Rent, Income: HouseholdIncome})
	require.NoError(t, err)
	assert.Equal(t, 1800.0, tbl.Rows[0].Price)
	assert.Equal(t, 70000.0, tbl.Rows[0].Income)
	assert.False(t, tbl.HasZip)
}

func TestLoad_SchemaErrors(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		opts    LoadOptions
		missing []string
	}{
		{"no price", "city,year,per_capita_income", LoadOptions{}, []string{"one of sale_price|rent"}},
		{"no income", "city,year,median_sale_price", LoadOptions{}, []string{"one of per_capita_income|household_income"}},
		{"no city or year", "zip,median_sale_price,per_capita_income", LoadOptions{}, []string{"city", "year or date"}},
		{"preferred absent", "city,year,median_sale_price,per_capita_income", LoadOptions{Price: Rent}, []string{"rent"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadCSV(t, tt.header+"\n", tt.opts)
			require.Error(t, err)
			var se *SchemaError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.missing, se.Missing)
			assert.False(t, errors.Is(err, ErrNoZipColumn))
		})
	}
}

func TestLoad_EmptySource(t *testing.T) {
	_, err := loadCSV(t, "", LoadOptions{})
	var se *SchemaError
	require.ErrorAs(t, err, &se)
}

func TestLoad_InvalidOptions(t *testing.T) {
	_, err := loadCSV(t, "city\n", LoadOptions{Price: PerCapitaIncome})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a price measure")
}

func TestLoad_RowAnomalies(t *testing.T) {
	tbl, err := loadCSV(t, "city,zip_code,year,median_sale_price,per_capita_income\n"+
		"ATL,30301,2023,300000,60000\n"+
		",30302,2023,300000,60000\n"+ // blank city
		"ATL,30303,20x3,300000,60000\n"+ // bad year
		"ATL,30304,2023,,60000\n"+ // blank price
		"ATL,30305,2023,abc,60000\n"+ // bad price
		"ATL,30306,2023,-5,60000\n"+ // negative price
		"ATL,30307,2023,0,0\n"+ // zero price and income are valid
		"ATL,30308,2023,250000,n/a\n"+ // missing income
		"ATL,30309,2023,250000,-100\n"+ // negative income
		"ATL,bad,2023,250000,50000\n", // unparsable zip keeps the row
		LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, 5, tbl.Skipped)
	require.Len(t, tbl.Rows, 5)
	assert.Equal(t, 0.0, tbl.Rows[1].Price)
	assert.Equal(t, 0.0, tbl.Rows[1].Income)
	assert.True(t, math.IsNaN(tbl.Rows[2].Income))
	assert.True(t, math.IsNaN(tbl.Rows[3].Income))
	assert.Equal(t, "", tbl.Rows[4].ZipCode)
}

func TestTable_YearsAndCities(t *testing.T) {
	tbl := &Table{Rows: []Observation{
		{City: "SEA", Year: 2022},
		{City: "ATL", Year: 2023},
		{City: "SEA", Year: 2021},
		{City: "ATL", Year: 2022},
	}}
	assert.Equal(t, []int{2021, 2022, 2023}, tbl.Years())
	assert.Equal(t, []string{"ATL", "SEA"}, tbl.Cities())
	assert.Empty(t, (&Table{}).Years())
}

func TestTable_RequireZip(t *testing.T) {
	assert.NoError(t, (&Table{HasZip: true}).RequireZip())

	err := (&Table{Source: "HouseTS.csv"}).RequireZip()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoZipColumn))
	assert.Contains(t, err.Error(), "zip_code")
}

func TestTable_ResolveCity(t *testing.T) {
	tbl := &Table{Rows: []Observation{
		{City: "Atlanta"},
		{City: "atl"},
		{City: "ATL"},
	}}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "exact", in: "Atlanta", want: "Atlanta"},
		{name: "exact beats folded", in: "atl", want: "atl"},
		{name: "folded", in: " ATLANTA ", want: "Atlanta"},
		{name: "unknown", in: " Boise ", want: "Boise"},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tbl.ResolveCity(tt.in))
		})
	}
}

func TestZipInt(t *testing.T) {
	assert.Equal(t, 2134, ZipInt("02134"))
	assert.Zero(t, ZipInt(""))
	assert.Zero(t, ZipInt("ABCDE"))
}

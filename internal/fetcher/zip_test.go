package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeZIP writes entries in the given order; names ending in "/" become
// directories.
func writeZIP(t *testing.T, entries [][2]string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "archive.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for _, e := range entries {
		fw, err := w.Create(e[0])
		require.NoError(t, err)
		_, err = fw.Write([]byte(e[1]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipPath
}

func TestExtractShapefile(t *testing.T) {
	zipPath := writeZIP(t, [][2]string{
		{"cb_2018_us_zcta510_500k/", ""},
		{"cb_2018_us_zcta510_500k/cb_2018_us_zcta510_500k.SHP", "shp"},
		{"cb_2018_us_zcta510_500k/cb_2018_us_zcta510_500k.shx", "shx"},
		{"cb_2018_us_zcta510_500k/cb_2018_us_zcta510_500k.dbf", "dbf"},
		{"cb_2018_us_zcta510_500k/cb_2018_us_zcta510_500k.shp.ea.iso.xml", "<xml/>"},
	})

	dest := t.TempDir()
	shp, err := ExtractShapefile(zipPath, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "cb_2018_us_zcta510_500k.SHP"), shp)

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"cb_2018_us_zcta510_500k.SHP",
		"cb_2018_us_zcta510_500k.shx",
		"cb_2018_us_zcta510_500k.dbf",
	}, names)

	b, err := os.ReadFile(filepath.Join(dest, "cb_2018_us_zcta510_500k.dbf"))
	require.NoError(t, err)
	assert.Equal(t, "dbf", string(b))
}

func TestExtractShapefile_NoShp(t *testing.T) {
	zipPath := writeZIP(t, [][2]string{{"README.txt", "nothing here"}})

	_, err := ExtractShapefile(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .shp in archive.zip")
}

func TestExtractShapefile_ZipSlip(t *testing.T) {
	zipPath := writeZIP(t, [][2]string{{"../../../etc/zcta.shp", "malicious"}})

	_, err := ExtractShapefile(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip slip")
}

func TestExtractShapefile_InvalidArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := ExtractShapefile(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip: open archive")
}

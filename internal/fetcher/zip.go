package fetcher

import (
	"archive/zip"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// shapefileParts are the sidecar extensions go-shp reads next to the .shp.
var shapefileParts = map[string]bool{
	".shp": true,
	".shx": true,
	".dbf": true,
	".prj": true,
	".cpg": true,
}

// ExtractShapefile unpacks the shapefile members of a ZIP archive into
// destDir, flattening any folders, and returns the path of the .shp. Other
// members (metadata XML, readmes) are skipped. Archives holding more than one
// .shp use the first in archive order.
func ExtractShapefile(zipPath, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	var shpPath string
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if slices.Contains(strings.Split(f.Name, "/"), "..") {
			return "", eris.Errorf("zip: illegal path %q (zip slip attempt)", f.Name)
		}
		base := path.Base(f.Name)
		ext := strings.ToLower(path.Ext(base))
		if !shapefileParts[ext] {
			continue
		}

		dest := filepath.Join(destDir, base)
		if err := extractEntry(f, dest); err != nil {
			return "", err
		}
		if ext == ".shp" && shpPath == "" {
			shpPath = dest
		}
	}
	if shpPath == "" {
		return "", eris.Errorf("zip: no .shp in %s", filepath.Base(zipPath))
	}
	return shpPath, nil
}

func extractEntry(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return eris.Wrapf(err, "zip: open %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	if _, err := writeFile(dest, rc); err != nil {
		return eris.Wrapf(err, "zip: extract %s", f.Name)
	}
	return nil
}

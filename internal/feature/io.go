package feature

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/zonemap/internal/crs"
)

// Read loads a collection by file extension: .geojson/.json or .shp. A
// non-zero override replaces whatever CRS the file declares.
func Read(path string, override crs.CRS) (*Collection, error) {
	var (
		c   *Collection
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, eris.Wrapf(openErr, "feature: open %s", path)
		}
		defer func() { _ = f.Close() }()
		c, err = ReadGeoJSON(f)
	case ".shp":
		c, err = ReadShapefile(path)
	default:
		return nil, eris.Errorf("feature: unsupported input format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, eris.Wrapf(err, "feature: read %s", path)
	}

	if !override.IsZero() {
		c.CRS = override
	}
	return c, nil
}

// Write stores a collection by file extension: .geojson/.json, .csv or .xlsx.
func Write(path string, c *Collection) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".xlsx" {
		return WriteXLSX(path, c)
	}

	var write func(*os.File) error
	switch ext {
	case ".geojson", ".json":
		write = func(f *os.File) error { return WriteGeoJSON(f, c) }
	case ".csv":
		write = func(f *os.File) error { return WriteCSV(f, c) }
	default:
		return eris.Errorf("feature: unsupported output format %q", ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "feature: create %s", path)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "feature: close %s", path)
}

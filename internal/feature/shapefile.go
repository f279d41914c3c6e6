package feature

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/zonemap/internal/crs"
)

// ReadShapefile reads a shapefile with its .prj and .cpg sidecars. Attribute
// values are kept as trimmed UTF-8 strings. A missing .prj leaves the CRS
// undefined. A short or corrupt .shp is an error, never a partial collection.
func ReadShapefile(shpPath string) (*Collection, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	c, err := readPrj(shpPath)
	if err != nil {
		return nil, err
	}
	decode, err := attributeDecoder(shpPath)
	if err != nil {
		return nil, err
	}

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	out := &Collection{CRS: c}
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()

		props := make(map[string]any, len(names))
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			props[name] = decode(val)
		}

		g := shapeToGeom(shape)
		if g == nil {
			skipped++
		}
		out.Features = append(out.Features, Feature{
			ID:         strconv.Itoa(n),
			Geometry:   g,
			Properties: props,
		})
	}

	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "shapefile: read %s", shpPath)
	}
	if records := reader.AttributeCount(); len(out.Features) < records {
		return nil, eris.Errorf("shapefile: read %s: %d of %d records", shpPath, len(out.Features), records)
	}

	if skipped > 0 {
		zap.L().Debug("shapefile: records without usable geometry",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}
	return out, nil
}

func readPrj(shpPath string) (crs.CRS, error) {
	prjPath := strings.TrimSuffix(shpPath, ".shp") + ".prj"
	data, err := os.ReadFile(prjPath)
	if errors.Is(err, fs.ErrNotExist) {
		return crs.CRS{}, nil
	}
	if err != nil {
		return crs.CRS{}, eris.Wrapf(err, "shapefile: read %s", prjPath)
	}
	c, err := crs.Parse(string(data))
	if err != nil {
		return crs.CRS{}, eris.Wrapf(err, "shapefile: parse %s", prjPath)
	}
	return c, nil
}

// attributeDecoder returns the DBF text decoder named by the .cpg sidecar.
// Without one, values that are not valid UTF-8 are read as Windows-1252.
func attributeDecoder(shpPath string) (func(string) string, error) {
	cpgPath := strings.TrimSuffix(shpPath, ".shp") + ".cpg"
	data, err := os.ReadFile(cpgPath)
	if errors.Is(err, fs.ErrNotExist) {
		dec := charmap.Windows1252.NewDecoder()
		return func(s string) string {
			if utf8.ValidString(s) {
				return s
			}
			if out, err := dec.String(s); err == nil {
				return out
			}
			return s
		}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: read %s", cpgPath)
	}

	label := codePageLabel(string(data))
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: unsupported code page %q in %s", label, cpgPath)
	}
	dec := enc.NewDecoder()
	return func(s string) string {
		if out, err := dec.String(s); err == nil {
			return out
		}
		return s
	}, nil
}

// codePageLabel maps ESRI .cpg contents ("1252", "ANSI 1252", "88591",
// "UTF-8") to WHATWG encoding labels.
func codePageLabel(raw string) string {
	label := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "ansi ")
	n, err := strconv.Atoi(label)
	if err != nil {
		return label
	}
	switch {
	case n >= 1250 && n <= 1258:
		return "windows-" + label
	case n == 65001:
		return "utf-8"
	case n >= 88591 && n <= 88599:
		return "iso-8859-" + label[4:]
	}
	return label
}

// shapeToGeom converts a go-shp shape to a go-geom geometry. Unsupported or
// empty shapes yield nil.
func shapeToGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.MultiPoint:
		if len(s.Points) == 0 {
			return nil
		}
		return geom.NewMultiPointFlat(geom.XY, pointsFlat(s.Points))
	case *shp.PolyLine:
		return polyLineToMultiLineString(s.Parts, s.Points)
	case *shp.Polygon:
		return polygonToMultiPolygon(s.Parts, s.Points)
	}
	return nil
}

func polyLineToMultiLineString(parts []int32, points []shp.Point) geom.T {
	if len(parts) == 0 || len(points) == 0 {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY)
	for i, part := range splitParts(parts, points) {
		if len(part) < 2 {
			continue
		}
		if err := mls.Push(geom.NewLineStringFlat(geom.XY, pointsFlat(part))); err != nil {
			zap.L().Debug("shapefile: skipping malformed linestring part", zap.Int("part", i), zap.Error(err))
		}
	}
	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

// polygonToMultiPolygon groups rings into polygons. Shapefile outer rings are
// clockwise and holes counter-clockwise; a hole belongs to the preceding
// outer ring.
func polygonToMultiPolygon(parts []int32, points []shp.Point) geom.T {
	if len(parts) == 0 || len(points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	var current *geom.Polygon
	flush := func() {
		if current == nil {
			return
		}
		if err := mp.Push(current); err != nil {
			zap.L().Debug("shapefile: skipping malformed polygon", zap.Error(err))
		}
		current = nil
	}

	for i, part := range splitParts(parts, points) {
		if len(part) < 4 {
			continue
		}
		ring := geom.NewLinearRingFlat(geom.XY, pointsFlat(part))
		if signedArea(part) < 0 || current == nil {
			flush()
			current = geom.NewPolygon(geom.XY)
		}
		if err := current.Push(ring); err != nil {
			zap.L().Debug("shapefile: skipping malformed ring", zap.Int("part", i), zap.Error(err))
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

func splitParts(parts []int32, points []shp.Point) [][]shp.Point {
	out := make([][]shp.Point, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(points) {
			continue
		}
		out = append(out, points[start:end])
	}
	return out
}

func pointsFlat(points []shp.Point) []float64 {
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	return flat
}

// signedArea is the shoelace area; negative for clockwise rings.
func signedArea(ring []shp.Point) float64 {
	var sum float64
	for i := range ring {
		j := (i + 1) % len(ring)
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return sum / 2
}

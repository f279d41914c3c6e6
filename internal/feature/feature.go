// Package feature holds geometry collections with attributes and a coordinate
// reference system, and reads and writes them in common GIS formats.
package feature

import (
	"encoding/json"
	"maps"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/zonemap/internal/crs"
)

// Sentinel errors for attribute access.
var (
	ErrMissingColumn = eris.New("feature: missing column")
	ErrNonNumeric    = eris.New("feature: non-numeric value")
)

// Feature is a geometry with attributes.
type Feature struct {
	ID         string
	Geometry   geom.T
	Properties map[string]any
}

// Collection is an ordered set of features sharing one CRS. A feature is
// identified by its index within the collection.
type Collection struct {
	CRS      crs.CRS
	Features []Feature
}

// NewCollection returns a collection in the given CRS.
func NewCollection(c crs.CRS, features ...Feature) *Collection {
	return &Collection{CRS: c, Features: features}
}

// Len returns the number of features.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Features)
}

// Clone returns a deep copy of the collection. Geometries and property maps
// are copied; property values are shared.
func (c *Collection) Clone() *Collection {
	if c == nil {
		return nil
	}
	out := &Collection{CRS: c.CRS, Features: make([]Feature, len(c.Features))}
	for i, f := range c.Features {
		out.Features[i] = Feature{
			ID:         f.ID,
			Geometry:   crs.CopyGeometry(f.Geometry),
			Properties: maps.Clone(f.Properties),
		}
	}
	return out
}

// Reproject returns a copy of the collection in the target CRS. The receiver
// is left untouched.
func (c *Collection) Reproject(target crs.CRS) (*Collection, error) {
	if c.CRS.IsZero() {
		return nil, eris.Wrap(crs.ErrUndefinedCRS, "feature: reproject collection")
	}
	tr, err := crs.NewTransformer(c.CRS, target)
	if err != nil {
		return nil, err
	}
	if tr.Identity() {
		out := c.Clone()
		out.CRS = target
		return out, nil
	}

	out := &Collection{CRS: target, Features: make([]Feature, len(c.Features))}
	for i, f := range c.Features {
		g, err := tr.Geometry(f.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "feature: reproject feature %d", i)
		}
		out.Features[i] = Feature{ID: f.ID, Geometry: g, Properties: maps.Clone(f.Properties)}
	}

	zap.L().Debug("feature: reprojected collection",
		zap.String("from", c.CRS.String()),
		zap.String("to", target.String()),
		zap.Int("features", len(c.Features)),
	)
	return out, nil
}

// HasColumn reports whether every feature carries the named property.
func (c *Collection) HasColumn(name string) bool {
	for _, f := range c.Features {
		if _, ok := f.Properties[name]; !ok {
			return false
		}
	}
	return true
}

// Columns returns the sorted union of property names across features.
func (c *Collection) Columns() []string {
	seen := make(map[string]any)
	for _, f := range c.Features {
		for k := range f.Properties {
			seen[k] = nil
		}
	}
	return sortedKeys(seen)
}

// Float64s returns the named column as numbers. Every feature must carry the
// column and every value must be numeric or a numeric string.
func (c *Collection) Float64s(name string) ([]float64, error) {
	out := make([]float64, len(c.Features))
	for i, f := range c.Features {
		v, ok := f.Properties[name]
		if !ok {
			return nil, eris.Wrapf(ErrMissingColumn, "feature: column %q absent on feature %d", name, i)
		}
		n, ok := toFloat(v)
		if !ok {
			return nil, eris.Wrapf(ErrNonNumeric, "feature: column %q feature %d value %v", name, i, v)
		}
		out[i] = n
	}
	return out, nil
}

// Bounds returns the combined bounding box of all geometries, or nil when the
// collection has none.
func (c *Collection) Bounds() *geom.Bounds {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	found := false
	for _, f := range c.Features {
		if IsEmpty(f.Geometry) {
			continue
		}
		fb := f.Geometry.Bounds()
		minX, minY = math.Min(minX, fb.Min(0)), math.Min(minY, fb.Min(1))
		maxX, maxY = math.Max(maxX, fb.Max(0)), math.Max(maxY, fb.Max(1))
		found = true
	}
	if !found {
		return nil
	}
	return geom.NewBounds(geom.XY).Set(minX, minY, maxX, maxY)
}

// IsEmpty reports whether g is nil or has no coordinates.
func IsEmpty(g geom.T) bool {
	if g == nil {
		return true
	}
	if gc, ok := g.(*geom.GeometryCollection); ok {
		return gc.NumGeoms() == 0
	}
	return len(g.FlatCoords()) == 0
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

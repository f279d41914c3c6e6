package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geos"
)

// ErrGeometry wraps failures raised by the geometry engine, such as GEOS
// topology exceptions on invalid polygons.
var ErrGeometry = eris.New("geo: geometry engine error")

// Engine evaluates the two predicates the assigner needs.
type Engine interface {
	// Intersects is boundary-inclusive: touching geometries intersect.
	Intersects(a, b geom.T) (bool, error)
	// IntersectionArea returns the area of a ∩ b, zero when disjoint.
	IntersectionArea(a, b geom.T) (float64, error)
}

// GEOSEngine implements Engine on libgeos via go-geos. Each go-geom geometry
// is converted once and cached by identity, so an engine must not outlive
// one pass over unchanged collections. Assigner builds one per call.
type GEOSEngine struct {
	cache map[geom.T]*geos.Geom
}

// NewGEOSEngine creates a GEOSEngine with an empty conversion cache.
func NewGEOSEngine() *GEOSEngine {
	return &GEOSEngine{cache: make(map[geom.T]*geos.Geom)}
}

// Intersects implements Engine.
func (e *GEOSEngine) Intersects(a, b geom.T) (bool, error) {
	ga, gb, err := e.pair(a, b)
	if err != nil {
		return false, err
	}
	var hit bool
	err = guard("intersects", func() {
		hit = ga.Intersects(gb)
	})
	return hit, err
}

// IntersectionArea implements Engine.
func (e *GEOSEngine) IntersectionArea(a, b geom.T) (float64, error) {
	ga, gb, err := e.pair(a, b)
	if err != nil {
		return 0, err
	}
	var area float64
	err = guard("intersection", func() {
		inter := ga.Intersection(gb)
		if inter == nil {
			panic("empty result from GEOSIntersection")
		}
		area = inter.Area()
	})
	return area, err
}

func (e *GEOSEngine) pair(a, b geom.T) (*geos.Geom, *geos.Geom, error) {
	ga, err := e.convert(a)
	if err != nil {
		return nil, nil, err
	}
	gb, err := e.convert(b)
	if err != nil {
		return nil, nil, err
	}
	return ga, gb, nil
}

func (e *GEOSEngine) convert(g geom.T) (*geos.Geom, error) {
	if cached, ok := e.cache[g]; ok {
		return cached, nil
	}
	data, err := wkb.Marshal(g, wkb.NDR)
	if err != nil {
		return nil, eris.Wrapf(ErrGeometry, "geo: encode %T: %v", g, err)
	}
	gg, err := geos.NewGeomFromWKB(data)
	if err != nil {
		return nil, eris.Wrapf(ErrGeometry, "geo: decode WKB: %v", err)
	}
	e.cache[g] = gg
	return gg, nil
}

// guard converts go-geos panics into ErrGeometry.
func guard(op string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Wrapf(ErrGeometry, "geo: %s: %v", op, r)
		}
	}()
	fn()
	return nil
}

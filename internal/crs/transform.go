package crs

import (
	"github.com/ctessum/geom/proj"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Transformer reprojects geometries from one CRS to another.
type Transformer struct {
	src, dst CRS
	fn       proj.Transformer
}

// NewTransformer builds a transformer between two defined systems. When the
// systems are equal the transformer only copies geometries.
func NewTransformer(src, dst CRS) (*Transformer, error) {
	if src.IsZero() {
		return nil, eris.Wrap(ErrUndefinedCRS, "crs: source")
	}
	if dst.IsZero() {
		return nil, eris.Wrap(ErrUndefinedCRS, "crs: target")
	}

	t := &Transformer{src: src, dst: dst}
	if src.Equal(dst) {
		return t, nil
	}

	srcSR, err := proj.Parse(src.Def)
	if err != nil {
		return nil, eris.Wrapf(err, "crs: parse %s", src)
	}
	dstSR, err := proj.Parse(dst.Def)
	if err != nil {
		return nil, eris.Wrapf(err, "crs: parse %s", dst)
	}
	fn, err := srcSR.NewTransform(dstSR)
	if err != nil {
		return nil, eris.Wrapf(err, "crs: transform %s -> %s", src, dst)
	}
	t.fn = fn
	return t, nil
}

// Identity reports whether the transformer leaves coordinates unchanged.
func (t *Transformer) Identity() bool {
	return t.fn == nil
}

// Geometry returns a reprojected copy of g. The input is never modified.
func (t *Transformer) Geometry(g geom.T) (geom.T, error) {
	out, err := mapCoords(g, t.fn)
	if err != nil {
		return nil, eris.Wrapf(err, "crs: reproject %s -> %s", t.src, t.dst)
	}
	if out != nil && t.dst.Code != 0 {
		out = withSRID(out, t.dst.Code)
	}
	return out, nil
}

// CopyGeometry returns a deep copy of g.
func CopyGeometry(g geom.T) geom.T {
	out, _ := mapCoords(g, nil)
	return out
}

// mapCoords rebuilds g over a fresh coordinate buffer, passing every XY pair
// through fn when fn is non-nil.
func mapCoords(g geom.T, fn proj.Transformer) (geom.T, error) {
	if g == nil {
		return nil, nil
	}

	if gc, ok := g.(*geom.GeometryCollection); ok {
		out := geom.NewGeometryCollection().SetSRID(gc.SRID())
		for _, child := range gc.Geoms() {
			c, err := mapCoords(child, fn)
			if err != nil {
				return nil, err
			}
			if err := out.Push(c); err != nil {
				return nil, eris.Wrap(err, "crs: rebuild geometry collection")
			}
		}
		return out, nil
	}

	src := g.FlatCoords()
	flat := make([]float64, len(src))
	copy(flat, src)

	if fn != nil {
		stride := g.Stride()
		for i := 0; i+1 < len(flat); i += stride {
			x, y, err := fn(flat[i], flat[i+1])
			if err != nil {
				return nil, err
			}
			flat[i], flat[i+1] = x, y
		}
	}

	layout := g.Layout()
	switch g := g.(type) {
	case *geom.Point:
		return geom.NewPointFlat(layout, flat).SetSRID(g.SRID()), nil
	case *geom.MultiPoint:
		return geom.NewMultiPointFlat(layout, flat).SetSRID(g.SRID()), nil
	case *geom.LineString:
		return geom.NewLineStringFlat(layout, flat).SetSRID(g.SRID()), nil
	case *geom.MultiLineString:
		return geom.NewMultiLineStringFlat(layout, flat, copyInts(g.Ends())).SetSRID(g.SRID()), nil
	case *geom.Polygon:
		return geom.NewPolygonFlat(layout, flat, copyInts(g.Ends())).SetSRID(g.SRID()), nil
	case *geom.MultiPolygon:
		endss := make([][]int, len(g.Endss()))
		for i, ends := range g.Endss() {
			endss[i] = copyInts(ends)
		}
		return geom.NewMultiPolygonFlat(layout, flat, endss).SetSRID(g.SRID()), nil
	}
	return nil, eris.Errorf("crs: unsupported geometry type %T", g)
}

func withSRID(g geom.T, srid int) geom.T {
	switch g := g.(type) {
	case *geom.Point:
		return g.SetSRID(srid)
	case *geom.MultiPoint:
		return g.SetSRID(srid)
	case *geom.LineString:
		return g.SetSRID(srid)
	case *geom.MultiLineString:
		return g.SetSRID(srid)
	case *geom.Polygon:
		return g.SetSRID(srid)
	case *geom.MultiPolygon:
		return g.SetSRID(srid)
	case *geom.GeometryCollection:
		return g.SetSRID(srid)
	}
	return g
}

func copyInts(in []int) []int {
	out := make([]int, len(in))
	copy(out, in)
	return out
}

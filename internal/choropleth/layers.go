package choropleth

import (
	"github.com/twpayne/go-geom"
	"gonum.org/v1/plot/plotter"
)

// polygons returns the rings of every polygon in g, outer ring first.
func polygons(g geom.T) [][]plotter.XYs {
	switch t := g.(type) {
	case *geom.Polygon:
		if t.NumLinearRings() == 0 {
			return nil
		}
		rings := make([]plotter.XYs, 0, t.NumLinearRings())
		for i := 0; i < t.NumLinearRings(); i++ {
			rings = append(rings, toXYs(t.LinearRing(i).Coords()))
		}
		return [][]plotter.XYs{rings}
	case *geom.MultiPolygon:
		var out [][]plotter.XYs
		for i := 0; i < t.NumPolygons(); i++ {
			out = append(out, polygons(t.Polygon(i))...)
		}
		return out
	case *geom.GeometryCollection:
		var out [][]plotter.XYs
		for _, sub := range t.Geoms() {
			out = append(out, polygons(sub)...)
		}
		return out
	}
	return nil
}

// outlines returns the boundary paths of g: polygon rings and line strings.
func outlines(g geom.T) []plotter.XYs {
	switch t := g.(type) {
	case *geom.LineString:
		return []plotter.XYs{toXYs(t.Coords())}
	case *geom.MultiLineString:
		out := make([]plotter.XYs, 0, t.NumLineStrings())
		for i := 0; i < t.NumLineStrings(); i++ {
			out = append(out, toXYs(t.LineString(i).Coords()))
		}
		return out
	case *geom.Polygon, *geom.MultiPolygon:
		var out []plotter.XYs
		for _, rings := range polygons(t) {
			out = append(out, rings...)
		}
		return out
	case *geom.GeometryCollection:
		var out []plotter.XYs
		for _, sub := range t.Geoms() {
			out = append(out, outlines(sub)...)
		}
		return out
	}
	return nil
}

// points returns the point coordinates of g.
func points(g geom.T) plotter.XYs {
	switch t := g.(type) {
	case *geom.Point:
		if t.Empty() {
			return nil
		}
		return plotter.XYs{{X: t.X(), Y: t.Y()}}
	case *geom.MultiPoint:
		return toXYs(t.Coords())
	case *geom.GeometryCollection:
		var out plotter.XYs
		for _, sub := range t.Geoms() {
			out = append(out, points(sub)...)
		}
		return out
	}
	return nil
}

func toXYs(coords []geom.Coord) plotter.XYs {
	xys := make(plotter.XYs, len(coords))
	for i, c := range coords {
		xys[i].X, xys[i].Y = c.X(), c.Y()
	}
	return xys
}

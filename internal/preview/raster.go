package preview

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/zonemap/internal/choropleth"
)

// Glyphs used on the character grid.
const (
	fillGlyph    = '█'
	bufferGlyph  = '•'
	stationGlyph = '●'
	blankGlyph   = ' '
)

const (
	bufferHex  = "#3b82f6"
	stationHex = "#f97316"
)

type cell struct {
	glyph rune
	hex   string
}

// canvas is a character grid over a map extent. Terminal cells are about
// twice as tall as wide, so each row covers twice the ground distance of a
// column.
type canvas struct {
	w, h  int
	cells []cell

	minX, minY float64
	colSize    float64
	rowSize    float64
}

func newCanvas(b *geom.Bounds, w, h int) *canvas {
	c := &canvas{w: w, h: h, cells: make([]cell, w*h)}
	for i := range c.cells {
		c.cells[i].glyph = blankGlyph
	}
	if b == nil {
		return c
	}

	dx := b.Max(0) - b.Min(0)
	dy := b.Max(1) - b.Min(1)
	c.colSize = math.Max(dx/float64(w), dy/float64(2*h))
	if c.colSize == 0 {
		c.colSize = 1
	}
	c.rowSize = 2 * c.colSize

	// Centre the extent in the grid.
	c.minX = b.Min(0) - (float64(w)*c.colSize-dx)/2
	c.minY = b.Min(1) - (float64(h)*c.rowSize-dy)/2
	return c
}

// at returns the cell at column x, row y (row 0 is the top).
func (c *canvas) at(x, y int) *cell {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return nil
	}
	return &c.cells[y*c.w+x]
}

func (c *canvas) set(x, y int, glyph rune, hex string) {
	if p := c.at(x, y); p != nil {
		p.glyph, p.hex = glyph, hex
	}
}

// toCell maps a coordinate to its grid cell.
func (c *canvas) toCell(x, y float64) (int, int) {
	col := int(math.Floor((x - c.minX) / c.colSize))
	row := c.h - 1 - int(math.Floor((y-c.minY)/c.rowSize))
	return col, row
}

// centre returns the coordinate at the middle of a cell.
func (c *canvas) centre(col, row int) (float64, float64) {
	x := c.minX + (float64(col)+0.5)*c.colSize
	y := c.minY + (float64(c.h-1-row)+0.5)*c.rowSize
	return x, y
}

// fillPolygon paints every cell whose centre lies inside p. Holes are
// respected through the even-odd rule.
func (c *canvas) fillPolygon(p *geom.Polygon, hex string) {
	if p.Empty() {
		return
	}
	b := p.Bounds()
	x0, y1 := c.toCell(b.Min(0), b.Min(1))
	x1, y0 := c.toCell(b.Max(0), b.Max(1))
	for row := max(0, y0); row <= min(c.h-1, y1); row++ {
		for col := max(0, x0); col <= min(c.w-1, x1); col++ {
			x, y := c.centre(col, row)
			if evenOdd(p.FlatCoords(), p.Ends(), p.Stride(), x, y) {
				c.set(col, row, fillGlyph, hex)
			}
		}
	}
}

// strokePath draws straight segments between consecutive vertices.
func (c *canvas) strokePath(flat []float64, stride int, glyph rune, hex string) {
	for i := stride; i < len(flat); i += stride {
		ax, ay := c.toCell(flat[i-stride], flat[i-stride+1])
		bx, by := c.toCell(flat[i], flat[i+1])
		c.line(ax, ay, bx, by, glyph, hex)
	}
}

// line is Bresenham's algorithm over grid cells.
func (c *canvas) line(x0, y0, x1, y1 int, glyph rune, hex string) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		c.set(x0, y0, glyph, hex)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// rasterize draws the figure's layers in figure order.
func rasterize(fig *choropleth.Figure, w, h int) *canvas {
	c := newCanvas(fig.Extent, w, h)
	for _, layer := range fig.Layers {
		switch layer {
		case choropleth.LayerChoropleth:
			for i, f := range fig.Features.Features {
				hex := toHex(fig.ClassColor(i))
				eachPolygon(f.Geometry, func(p *geom.Polygon) {
					c.fillPolygon(p, hex)
				})
			}
		case choropleth.LayerStations:
			for _, f := range fig.Stations.Features {
				eachPoint(f.Geometry, func(x, y float64) {
					col, row := c.toCell(x, y)
					c.set(col, row, stationGlyph, stationHex)
				})
			}
		case choropleth.LayerBuffers:
			for _, f := range fig.Buffers.Features {
				eachPath(f.Geometry, func(flat []float64, stride int) {
					c.strokePath(flat, stride, bufferGlyph, bufferHex)
				})
			}
		}
	}
	return c
}

func evenOdd(flat []float64, ends []int, stride int, x, y float64) bool {
	inside := false
	start := 0
	for _, end := range ends {
		n := (end - start) / stride
		for i, j := 0, n-1; i < n; j, i = i, i+1 {
			xi, yi := flat[start+i*stride], flat[start+i*stride+1]
			xj, yj := flat[start+j*stride], flat[start+j*stride+1]
			if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
				inside = !inside
			}
		}
		start = end
	}
	return inside
}

func eachPolygon(g geom.T, fn func(*geom.Polygon)) {
	switch t := g.(type) {
	case *geom.Polygon:
		fn(t)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			fn(t.Polygon(i))
		}
	case *geom.GeometryCollection:
		for _, sub := range t.Geoms() {
			eachPolygon(sub, fn)
		}
	}
}

func eachPath(g geom.T, fn func(flat []float64, stride int)) {
	switch t := g.(type) {
	case *geom.LineString:
		fn(t.FlatCoords(), t.Stride())
	case *geom.MultiLineString:
		for i := 0; i < t.NumLineStrings(); i++ {
			eachPath(t.LineString(i), fn)
		}
	case *geom.Polygon:
		for i := 0; i < t.NumLinearRings(); i++ {
			r := t.LinearRing(i)
			fn(r.FlatCoords(), r.Stride())
		}
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			eachPath(t.Polygon(i), fn)
		}
	case *geom.GeometryCollection:
		for _, sub := range t.Geoms() {
			eachPath(sub, fn)
		}
	}
}

func eachPoint(g geom.T, fn func(x, y float64)) {
	switch t := g.(type) {
	case *geom.Point:
		if !t.Empty() {
			fn(t.X(), t.Y())
		}
	case *geom.MultiPoint:
		for i := 0; i < t.NumPoints(); i++ {
			eachPoint(t.Point(i), fn)
		}
	case *geom.GeometryCollection:
		for _, sub := range t.Geoms() {
			eachPoint(sub, fn)
		}
	}
}

func toHex(c color.Color) string {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return ""
	}
	return cf.Hex()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

package choropleth

import (
	"image/color"
	"io"
	"math"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"

	"github.com/sells-group/zonemap/internal/classify"
	"github.com/sells-group/zonemap/internal/feature"
)

// Layer identifies a drawn layer. Layers are drawn in the order they appear
// in Figure.Layers.
type Layer string

// Drawn layers.
const (
	LayerChoropleth Layer = "choropleth"
	LayerStations   Layer = "stations"
	LayerBuffers    Layer = "buffers"
)

const (
	titleSize    = 14
	notesSize    = 10
	edgeWidth    = 0.5
	bufferWidth  = 2
	stationSize  = 5
	extentMargin = 0.02
)

var (
	edgeColor    = color.Black
	stationColor = color.Black
	bufferColor  = color.RGBA{B: 255, A: 255}
	bufferDashes = []vg.Length{vg.Points(6), vg.Points(3)}
)

// Figure is a rendered map. Geometries are in the renderer's coordinate
// system.
type Figure struct {
	Title    string
	Column   string
	Notes    string
	Classes  *classify.Classification
	Palette  []color.Color
	Features *feature.Collection
	Stations *feature.Collection
	Buffers  *feature.Collection
	Layers   []Layer
	// Extent is the data bounding box including overlays.
	Extent *geom.Bounds
	Width  vg.Length
	Height vg.Length
	// Path is where the figure was last saved, if anywhere.
	Path string

	plot *plot.Plot
}

// ClassColor returns the fill colour of feature i.
func (f *Figure) ClassColor(i int) color.Color {
	return f.Palette[f.Classes.Bins[i]]
}

// Plot returns the underlying plot.
func (f *Figure) Plot() *plot.Plot {
	return f.plot
}

func (f *Figure) layerNames() []string {
	names := make([]string, len(f.Layers))
	for i, l := range f.Layers {
		names[i] = string(l)
	}
	return names
}

func (f *Figure) build(width vg.Length) error {
	p := plot.New()
	p.HideAxes()
	p.Title.Text = f.Title
	p.Title.TextStyle.Font.Size = vg.Points(titleSize)
	p.Legend.Top = true

	for i, feat := range f.Features.Features {
		fill := f.ClassColor(i)
		for _, rings := range polygons(feat.Geometry) {
			poly, err := plotter.NewPolygon(xyers(rings)...)
			if err != nil {
				return eris.Wrapf(err, "choropleth: feature %d polygon", i)
			}
			poly.Color = fill
			poly.LineStyle = draw.LineStyle{Color: edgeColor, Width: vg.Points(edgeWidth)}
			p.Add(poly)
		}
	}
	for i, label := range f.Classes.Labels() {
		p.Legend.Add(label, swatch{fill: f.Palette[i]})
	}
	f.Layers = append(f.Layers, LayerChoropleth)

	if f.Stations.Len() > 0 {
		var xys plotter.XYs
		for _, feat := range f.Stations.Features {
			xys = append(xys, points(feat.Geometry)...)
		}
		if len(xys) > 0 {
			s, err := plotter.NewScatter(xys)
			if err != nil {
				return eris.Wrap(err, "choropleth: station layer")
			}
			s.GlyphStyle = draw.GlyphStyle{
				Color:  stationColor,
				Radius: vg.Points(stationSize),
				Shape:  draw.CircleGlyph{},
			}
			p.Add(s)
			p.Legend.Add("Stations", s)
			f.Layers = append(f.Layers, LayerStations)
		}
	}

	if f.Buffers.Len() > 0 {
		var first *plotter.Line
		for i, feat := range f.Buffers.Features {
			for _, path := range outlines(feat.Geometry) {
				l, err := plotter.NewLine(path)
				if err != nil {
					return eris.Wrapf(err, "choropleth: buffer %d outline", i)
				}
				l.LineStyle = draw.LineStyle{
					Color:  bufferColor,
					Width:  vg.Points(bufferWidth),
					Dashes: bufferDashes,
				}
				p.Add(l)
				if first == nil {
					first = l
				}
			}
		}
		if first != nil {
			p.Legend.Add("Buffers", first)
			f.Layers = append(f.Layers, LayerBuffers)
		}
	}

	f.Extent = extent(f.Features, f.Stations, f.Buffers)
	if f.Extent != nil {
		dx := f.Extent.Max(0) - f.Extent.Min(0)
		dy := f.Extent.Max(1) - f.Extent.Min(1)
		pad := math.Max(dx, dy) * extentMargin
		if pad == 0 {
			pad = 1
		}
		p.X.Min, p.X.Max = f.Extent.Min(0)-pad, f.Extent.Max(0)+pad
		p.Y.Min, p.Y.Max = f.Extent.Min(1)-pad, f.Extent.Max(1)+pad
	}

	f.plot = p
	f.Width, f.Height = f.size(width)
	return nil
}

// size fits the figure height to the data aspect ratio, plus room for the
// title and footnote.
func (f *Figure) size(width vg.Length) (vg.Length, vg.Length) {
	aspect := 1.0
	if f.Extent != nil {
		dx := f.Extent.Max(0) - f.Extent.Min(0)
		dy := f.Extent.Max(1) - f.Extent.Min(1)
		if dx > 0 && dy > 0 {
			aspect = math.Min(math.Max(dy/dx, 0.25), 2)
		}
	}
	height := vg.Length(float64(width) * aspect)
	if f.Title != "" {
		height += vg.Points(titleSize * 2)
	}
	return width, height + f.notesHeight()
}

func (f *Figure) notesHeight() vg.Length {
	if f.Notes == "" {
		return 0
	}
	lines := strings.Count(f.Notes, "\n") + 1
	return vg.Length(lines)*vg.Points(notesSize*1.2) + vg.Points(notesSize)
}

// WriteTo writes the figure as PDF.
func (f *Figure) WriteTo(w io.Writer) (int64, error) {
	if f.plot == nil {
		return 0, eris.New("choropleth: figure not built")
	}
	c := vgpdf.New(f.Width, f.Height)
	dc := draw.New(c)

	area := dc
	if f.Notes != "" {
		area = draw.Crop(dc, 0, 0, f.notesHeight(), 0)
		sty := text.Style{
			Color:   color.Black,
			Font:    font.From(plot.DefaultFont, vg.Points(notesSize)),
			XAlign:  text.XLeft,
			YAlign:  text.YBottom,
			Handler: f.plot.TextHandler,
		}
		at := vg.Point{
			X: dc.Min.X + 0.1*f.Width,
			Y: dc.Min.Y + 0.01*f.Height,
		}
		dc.FillText(sty, at, f.Notes)
	}
	f.plot.Draw(area)

	n, err := c.WriteTo(w)
	if err != nil {
		return n, eris.Wrap(err, "choropleth: write pdf")
	}
	return n, nil
}

// Save writes the figure as PDF to path and records it in f.Path. The parent
// directory is not created.
func (f *Figure) Save(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "choropleth: create %s", path)
	}
	if _, err := f.WriteTo(out); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return eris.Wrapf(err, "choropleth: close %s", path)
	}
	f.Path = path
	return nil
}

// swatch is a filled legend box for one class.
type swatch struct {
	fill color.Color
}

func (s swatch) Thumbnail(c *draw.Canvas) {
	box := []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	}
	c.FillPolygon(s.fill, box)
	c.StrokeLines(draw.LineStyle{Color: edgeColor, Width: vg.Points(edgeWidth)}, append(box, box[0]))
}

func extent(layers ...*feature.Collection) *geom.Bounds {
	var out *geom.Bounds
	for _, c := range layers {
		if c.Len() == 0 {
			continue
		}
		b := c.Bounds()
		if b == nil {
			continue
		}
		if out == nil {
			out = b
			continue
		}
		out.Set(
			math.Min(out.Min(0), b.Min(0)), math.Min(out.Min(1), b.Min(1)),
			math.Max(out.Max(0), b.Max(0)), math.Max(out.Max(1), b.Max(1)),
		)
	}
	return out
}

func xyers(rings []plotter.XYs) []plotter.XYer {
	out := make([]plotter.XYer, len(rings))
	for i, r := range rings {
		out[i] = r
	}
	return out
}

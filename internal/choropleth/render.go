// Package choropleth renders classed thematic maps of feature collections to
// PDF, with optional station and buffer overlays.
package choropleth

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/plot/vg"

	"github.com/sells-group/zonemap/internal/classify"
	"github.com/sells-group/zonemap/internal/crs"
	"github.com/sells-group/zonemap/internal/feature"
)

// Defaults applied by DefaultOptions and by Render for zero fields.
const (
	DefaultK        = 5
	DefaultColormap = "Blues"
	DefaultPath     = "../output/choropleth_map.pdf"
	DefaultWidth    = 10 * vg.Inch
)

// Options controls a single render.
type Options struct {
	// K is the requested number of classes; zero means DefaultK.
	K        int
	Colormap string
	// Stations are drawn as black markers over the choropleth.
	Stations *feature.Collection
	// Buffers are drawn as dashed blue outlines on top.
	Buffers *feature.Collection
	Save    bool
	Path    string
	// Notes is an optional footnote under the map.
	Notes string
}

// DefaultOptions returns Options with the default class count, colormap and
// output path. Save is off.
func DefaultOptions() Options {
	return Options{K: DefaultK, Colormap: DefaultColormap, Path: DefaultPath}
}

// Viewer displays a rendered figure.
type Viewer interface {
	Show(fig *Figure) error
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithViewer sets the viewer every figure is handed to.
func WithViewer(v Viewer) RendererOption {
	return func(r *Renderer) {
		r.viewer = v
	}
}

// WithWidth sets the base figure width.
func WithWidth(w vg.Length) RendererOption {
	return func(r *Renderer) {
		if w > 0 {
			r.width = w
		}
	}
}

// Renderer draws choropleth figures in geographic NAD83 coordinates.
type Renderer struct {
	viewer Viewer
	width  vg.Length
	target crs.CRS
}

// NewRenderer creates a Renderer.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		width:  DefaultWidth,
		target: crs.MustEPSG(crs.NAD83),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Render classifies column into natural-break classes and draws the map.
// The column is validated before anything is reprojected or drawn. When
// opts.Save is set the figure is written to opts.Path as PDF; the parent
// directory must exist. The figure is always handed to the viewer last.
func (r *Renderer) Render(features *feature.Collection, column, title string, opts Options) (*Figure, error) {
	if features == nil {
		return nil, eris.New("choropleth: nil feature collection")
	}
	values, err := features.Float64s(column)
	if err != nil {
		return nil, eris.Wrap(err, "choropleth: classify column")
	}
	if opts.K == 0 {
		opts.K = DefaultK
	}
	if opts.Colormap == "" {
		opts.Colormap = DefaultColormap
	}
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if _, err := anchorColors(opts.Colormap); err != nil {
		return nil, err
	}

	mapped, err := features.Reproject(r.target)
	if err != nil {
		return nil, eris.Wrap(err, "choropleth: reproject features")
	}
	stations, err := r.reprojectLayer(opts.Stations, "stations")
	if err != nil {
		return nil, err
	}
	buffers, err := r.reprojectLayer(opts.Buffers, "buffers")
	if err != nil {
		return nil, err
	}

	classes, err := classify.NaturalBreaks(values, opts.K)
	if err != nil {
		return nil, eris.Wrap(err, "choropleth: classify column")
	}
	palette, err := Palette(opts.Colormap, classes.K())
	if err != nil {
		return nil, err
	}

	fig := &Figure{
		Title:    title,
		Column:   column,
		Notes:    opts.Notes,
		Classes:  classes,
		Palette:  palette,
		Features: mapped,
		Stations: stations,
		Buffers:  buffers,
	}
	if err := fig.build(r.width); err != nil {
		return nil, err
	}
	zap.L().Debug("choropleth: figure built",
		zap.String("column", column),
		zap.Int("features", mapped.Len()),
		zap.Int("classes", classes.K()),
		zap.Strings("layers", fig.layerNames()),
	)

	if opts.Save {
		if err := fig.Save(opts.Path); err != nil {
			return nil, err
		}
		zap.L().Info("choropleth: figure saved", zap.String("path", opts.Path))
	}

	if r.viewer != nil {
		if err := r.viewer.Show(fig); err != nil {
			return nil, eris.Wrap(err, "choropleth: show figure")
		}
	}
	return fig, nil
}

func (r *Renderer) reprojectLayer(c *feature.Collection, name string) (*feature.Collection, error) {
	if c == nil {
		return nil, nil
	}
	out, err := c.Reproject(r.target)
	if err != nil {
		return nil, eris.Wrapf(err, "choropleth: reproject %s", name)
	}
	return out, nil
}

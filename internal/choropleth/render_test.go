package choropleth

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/zonemap/internal/classify"
	"github.com/sells-group/zonemap/internal/crs"
	"github.com/sells-group/zonemap/internal/feature"
)

type recordingViewer struct {
	shown []*Figure
	err   error
}

func (v *recordingViewer) Show(fig *Figure) error {
	v.shown = append(v.shown, fig)
	return v.err
}

func square(x, y, size float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		x, y, x + size, y, x + size, y + size, x, y + size, x, y,
	}, []int{10})
}

func tracts() *feature.Collection {
	c := feature.NewCollection(crs.MustEPSG(crs.WGS84))
	pop := []any{120.0, 80.0, 3400.0, 3900.0, 15000.0, "16500", 200.0, 4100.0}
	for i, v := range pop {
		c.Features = append(c.Features, feature.Feature{
			ID:         string(rune('a' + i)),
			Geometry:   square(-75+float64(i%4)*0.1, 40+float64(i/4)*0.1, 0.1),
			Properties: map[string]any{"population": v, "name": "tract"},
		})
	}
	return c
}

func stations() *feature.Collection {
	return feature.NewCollection(crs.MustEPSG(crs.WGS84),
		feature.Feature{ID: "s1", Geometry: geom.NewPointFlat(geom.XY, []float64{-74.95, 40.05})},
		feature.Feature{ID: "s2", Geometry: geom.NewPointFlat(geom.XY, []float64{-74.75, 40.15})},
	)
}

func buffers() *feature.Collection {
	return feature.NewCollection(crs.MustEPSG(crs.WGS84),
		feature.Feature{ID: "b1", Geometry: square(-75.0, 40.0, 0.1)},
	)
}

func TestRender_MissingColumn(t *testing.T) {
	v := &recordingViewer{}
	out := filepath.Join(t.TempDir(), "map.pdf")
	opts := DefaultOptions()
	opts.Save = true
	opts.Path = out

	_, err := NewRenderer(WithViewer(v)).Render(tracts(), "median_income", "Income", opts)
	require.Error(t, err)
	assert.True(t, eris.Is(err, feature.ErrMissingColumn))
	assert.NoFileExists(t, out)
	assert.Empty(t, v.shown)
}

func TestRender_NonNumericColumn(t *testing.T) {
	v := &recordingViewer{}
	_, err := NewRenderer(WithViewer(v)).Render(tracts(), "name", "Names", DefaultOptions())
	require.Error(t, err)
	assert.True(t, eris.Is(err, feature.ErrNonNumeric))
	assert.Empty(t, v.shown)
}

func TestRender_UnknownColormap(t *testing.T) {
	v := &recordingViewer{}
	opts := DefaultOptions()
	opts.Colormap = "Rainbow"

	_, err := NewRenderer(WithViewer(v)).Render(tracts(), "population", "Population", opts)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnknownColormap))
	assert.Empty(t, v.shown)
}

func TestRender_ZeroOptionsUseDefaults(t *testing.T) {
	fig, err := NewRenderer().Render(tracts(), "population", "Population", Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultK, fig.Classes.K())
	assert.Len(t, fig.Palette, DefaultK)
	assert.Empty(t, fig.Path)
}

func TestRender_NegativeK(t *testing.T) {
	opts := DefaultOptions()
	opts.K = -1
	_, err := NewRenderer().Render(tracts(), "population", "Population", opts)
	require.Error(t, err)
	assert.True(t, eris.Is(err, classify.ErrInvalidClasses))
}

func TestRender_SaveWritesPDF(t *testing.T) {
	v := &recordingViewer{}
	out := filepath.Join(t.TempDir(), "map.pdf")
	opts := DefaultOptions()
	opts.Save = true
	opts.Path = out
	opts.Notes = "Source: county assessor\nTracts, 2020"

	fig, err := NewRenderer(WithViewer(v)).Render(tracts(), "population", "Population by tract", opts)
	require.NoError(t, err)
	require.FileExists(t, out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
	assert.Equal(t, out, fig.Path)

	require.Len(t, v.shown, 1)
	assert.Same(t, fig, v.shown[0])
}

func TestRender_NoSaveWritesNothing(t *testing.T) {
	dir := t.TempDir()
	v := &recordingViewer{}
	opts := DefaultOptions()
	opts.Path = filepath.Join(dir, "map.pdf")

	fig, err := NewRenderer(WithViewer(v)).Render(tracts(), "population", "Population", opts)
	require.NoError(t, err)
	assert.Empty(t, fig.Path)
	assert.Len(t, v.shown, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRender_SaveMissingDirectory(t *testing.T) {
	v := &recordingViewer{}
	opts := DefaultOptions()
	opts.Save = true
	opts.Path = filepath.Join(t.TempDir(), "missing", "map.pdf")

	_, err := NewRenderer(WithViewer(v)).Render(tracts(), "population", "Population", opts)
	require.Error(t, err)
	assert.NoDirExists(t, filepath.Dir(opts.Path))
	assert.Empty(t, v.shown)
}

func TestRender_LayerOrder(t *testing.T) {
	opts := DefaultOptions()
	opts.Stations = stations()
	opts.Buffers = buffers()

	fig, err := NewRenderer().Render(tracts(), "population", "Population", opts)
	require.NoError(t, err)
	assert.Equal(t, []Layer{LayerChoropleth, LayerStations, LayerBuffers}, fig.Layers)

	fig, err = NewRenderer().Render(tracts(), "population", "Population", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []Layer{LayerChoropleth}, fig.Layers)
}

func TestRender_ReprojectsToNAD83(t *testing.T) {
	src := tracts()
	merc, err := src.Reproject(crs.MustEPSG(crs.WebMercator))
	require.NoError(t, err)
	before := append([]float64(nil), merc.Features[0].Geometry.FlatCoords()...)

	opts := DefaultOptions()
	opts.Stations = stations()
	fig, err := NewRenderer().Render(merc, "population", "Population", opts)
	require.NoError(t, err)

	assert.Equal(t, crs.NAD83, fig.Features.CRS.Code)
	assert.Equal(t, crs.NAD83, fig.Stations.CRS.Code)
	assert.InDelta(t, -75.0, fig.Features.Features[0].Geometry.FlatCoords()[0], 1e-5)
	assert.InDelta(t, 40.0, fig.Features.Features[0].Geometry.FlatCoords()[1], 1e-5)
	assert.Equal(t, before, merc.Features[0].Geometry.FlatCoords())
	assert.Equal(t, crs.WebMercator, merc.CRS.Code)
}

func TestRender_UndefinedOverlayCRS(t *testing.T) {
	opts := DefaultOptions()
	opts.Buffers = feature.NewCollection(crs.CRS{}, feature.Feature{Geometry: square(0, 0, 1)})

	_, err := NewRenderer().Render(tracts(), "population", "Population", opts)
	require.Error(t, err)
	assert.True(t, eris.Is(err, crs.ErrUndefinedCRS))
}

func TestRender_ClassesAndColours(t *testing.T) {
	opts := DefaultOptions()
	opts.K = 3

	fig, err := NewRenderer().Render(tracts(), "population", "Population", opts)
	require.NoError(t, err)
	assert.Equal(t, 3, fig.Classes.K())
	assert.Len(t, fig.Palette, 3)
	assert.Equal(t, 16500.0, fig.Classes.Breaks[2])

	// 120 and 16500 fall in the lightest and darkest classes.
	assert.Equal(t, fig.Palette[0], fig.ClassColor(0))
	assert.Equal(t, fig.Palette[2], fig.ClassColor(5))
}

func TestRender_KReducedToDistinctValues(t *testing.T) {
	c := feature.NewCollection(crs.MustEPSG(crs.WGS84),
		feature.Feature{Geometry: square(0, 0, 1), Properties: map[string]any{"v": 1.0}},
		feature.Feature{Geometry: square(1, 0, 1), Properties: map[string]any{"v": 2.0}},
		feature.Feature{Geometry: square(2, 0, 1), Properties: map[string]any{"v": 2.0}},
	)
	fig, err := NewRenderer().Render(c, "v", "Tiny", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, fig.Classes.K())
}

func TestRender_ViewerErrorPropagates(t *testing.T) {
	v := &recordingViewer{err: eris.New("terminal closed")}
	_, err := NewRenderer(WithViewer(v)).Render(tracts(), "population", "Population", DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminal closed")
}

func TestFigure_SizeFollowsAspect(t *testing.T) {
	wide := feature.NewCollection(crs.MustEPSG(crs.NAD83),
		feature.Feature{Geometry: geom.NewPolygonFlat(geom.XY, []float64{0, 0, 4, 0, 4, 1, 0, 1, 0, 0}, []int{10}), Properties: map[string]any{"v": 1.0}},
	)
	fig, err := NewRenderer(WithWidth(DefaultWidth)).Render(wide, "v", "", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, fig.Width)
	assert.InDelta(t, float64(DefaultWidth)/4, float64(fig.Height), 1e-6)
}

func TestFigure_WriteToBuffer(t *testing.T) {
	fig, err := NewRenderer().Render(tracts(), "population", "Population", DefaultOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := fig.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

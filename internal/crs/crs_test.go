package crs

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCode int
	}{
		{name: "epsg upper", input: "EPSG:4326", wantCode: 4326},
		{name: "epsg lower", input: "epsg:4269", wantCode: 4269},
		{name: "ogc urn", input: "urn:ogc:def:crs:EPSG::2263", wantCode: 2263},
		{name: "crs84 urn", input: "urn:ogc:def:crs:OGC:1.3:CRS84", wantCode: 4326},
		{name: "utm north", input: "EPSG:32618", wantCode: 32618},
		{name: "nad83 utm", input: "EPSG:26918", wantCode: 26918},
		{name: "padded", input: "  EPSG:3857 ", wantCode: 3857},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, c.Code)
			assert.False(t, c.IsZero())
		})
	}
}

func TestParse_Proj4(t *testing.T) {
	c, err := Parse("+proj=longlat +datum=WGS84 +no_defs")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Code)
	assert.True(t, c.Equal(CRS{Def: "+proj=longlat  +datum=WGS84 +no_defs"}))
}

func TestParse_Undefined(t *testing.T) {
	for _, input := range []string{"", "   ", "EPSG:abc", "EPSG:999999"} {
		_, err := Parse(input)
		require.Error(t, err, input)
		assert.True(t, eris.Is(err, ErrUndefinedCRS), input)
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, MustEPSG(4326).Equal(MustEPSG(4326)))
	assert.False(t, MustEPSG(4326).Equal(MustEPSG(4269)))
	assert.True(t, CRS{}.Equal(CRS{}))
	assert.Equal(t, "undefined", CRS{}.String())
	assert.Equal(t, "EPSG:4269", MustEPSG(NAD83).String())
}

func TestNewTransformer_Undefined(t *testing.T) {
	_, err := NewTransformer(CRS{}, MustEPSG(4326))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUndefinedCRS))

	_, err = NewTransformer(MustEPSG(4326), CRS{})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUndefinedCRS))
}

func TestTransformer_IdentityCopies(t *testing.T) {
	tr, err := NewTransformer(MustEPSG(4326), MustEPSG(4326))
	require.NoError(t, err)
	assert.True(t, tr.Identity())

	poly := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 1, 0, 1, 1, 0, 0}, []int{8})
	out, err := tr.Geometry(poly)
	require.NoError(t, err)

	got := out.(*geom.Polygon)
	assert.Equal(t, poly.FlatCoords(), got.FlatCoords())

	got.FlatCoords()[0] = 99
	assert.Equal(t, 0.0, poly.FlatCoords()[0], "copy must not alias input")
}

func TestTransformer_WebMercator(t *testing.T) {
	tr, err := NewTransformer(MustEPSG(WGS84), MustEPSG(WebMercator))
	require.NoError(t, err)
	assert.False(t, tr.Identity())

	pt := geom.NewPointFlat(geom.XY, []float64{180, 0})
	out, err := tr.Geometry(pt)
	require.NoError(t, err)

	coords := out.FlatCoords()
	assert.InDelta(t, 20037508.34, coords[0], 1.0)
	assert.InDelta(t, 0, coords[1], 1.0)
	assert.Equal(t, WebMercator, out.SRID())
	assert.Equal(t, []float64{180, 0}, pt.FlatCoords())
}

func TestTransformer_NAD83NearIdentity(t *testing.T) {
	tr, err := NewTransformer(MustEPSG(WGS84), MustEPSG(NAD83))
	require.NoError(t, err)

	mp := geom.NewMultiPolygonFlat(geom.XY,
		[]float64{-75, 40, -74, 40, -74, 41, -75, 40},
		[][]int{{8}})
	out, err := tr.Geometry(mp)
	require.NoError(t, err)

	got := out.(*geom.MultiPolygon)
	require.Len(t, got.FlatCoords(), 8)
	for i, v := range mp.FlatCoords() {
		assert.InDelta(t, v, got.FlatCoords()[i], 1e-6)
	}
	assert.Equal(t, [][]int{{8}}, got.Endss())
}

func TestCopyGeometry_Collection(t *testing.T) {
	gc := geom.NewGeometryCollection()
	require.NoError(t, gc.Push(
		geom.NewPointFlat(geom.XY, []float64{1, 2}),
		geom.NewLineStringFlat(geom.XY, []float64{0, 0, 3, 4}),
	))

	out := CopyGeometry(gc).(*geom.GeometryCollection)
	require.Equal(t, 2, out.NumGeoms())
	assert.Equal(t, []float64{1, 2}, out.Geom(0).FlatCoords())
	assert.Nil(t, CopyGeometry(nil))
}

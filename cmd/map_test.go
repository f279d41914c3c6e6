package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/zonemap/internal/choropleth"
)

const tractsGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "t1", "properties": {"pop": 120},
     "geometry": {"type": "Polygon", "coordinates": [[[-74.0,40.0],[-73.99,40.0],[-73.99,40.01],[-74.0,40.01],[-74.0,40.0]]]}},
    {"type": "Feature", "id": "t2", "properties": {"pop": 3400},
     "geometry": {"type": "Polygon", "coordinates": [[[-73.99,40.0],[-73.98,40.0],[-73.98,40.01],[-73.99,40.01],[-73.99,40.0]]]}},
    {"type": "Feature", "id": "t3", "properties": {"pop": 15000},
     "geometry": {"type": "Polygon", "coordinates": [[[-73.98,40.0],[-73.97,40.0],[-73.97,40.01],[-73.98,40.01],[-73.98,40.0]]]}}
  ]
}`

const stationsGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "Main St"},
     "geometry": {"type": "Point", "coordinates": [-73.985, 40.005]}}
  ]
}`

func TestRunMap_SavesPDFAndPreviews(t *testing.T) {
	c := testConfig()
	c.Preview.Enabled = true
	useConfig(t, c)

	dir := t.TempDir()
	opts := mapFlags{
		in:       writeFile(t, dir, "tracts.geojson", tractsGeoJSON),
		column:   "pop",
		title:    "Population",
		k:        3,
		cmap:     "YlOrRd",
		stations: writeFile(t, dir, "stations.geojson", stationsGeoJSON),
		save:     true,
		out:      filepath.Join(dir, "map.pdf"),
		notes:    "Source: census",
	}

	var buf bytes.Buffer
	fig, err := runMap(&buf, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, fig.Classes.K())
	assert.Equal(t, []choropleth.Layer{choropleth.LayerChoropleth, choropleth.LayerStations}, fig.Layers)

	data, err := os.ReadFile(opts.out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	assert.Contains(t, buf.String(), "Population")
	assert.Contains(t, buf.String(), "Source: census")
}

func TestRunMap_NoSaveNoPreview(t *testing.T) {
	useConfig(t, testConfig())
	dir := t.TempDir()
	opts := mapFlags{
		in:     writeFile(t, dir, "tracts.geojson", tractsGeoJSON),
		column: "pop",
		k:      2,
		cmap:   "Blues",
		out:    filepath.Join(dir, "map.pdf"),
	}

	var buf bytes.Buffer
	fig, err := runMap(&buf, opts)
	require.NoError(t, err)
	assert.Empty(t, fig.Path)
	assert.Empty(t, buf.String())
	assert.NoFileExists(t, opts.out)
}

func TestRunMap_Errors(t *testing.T) {
	useConfig(t, testConfig())
	dir := t.TempDir()
	in := writeFile(t, dir, "tracts.geojson", tractsGeoJSON)

	tests := []struct {
		name string
		opts mapFlags
		want string
	}{
		{name: "missing column", opts: mapFlags{in: in, column: "income", k: 3, cmap: "Blues"}, want: "income"},
		{name: "unknown colormap", opts: mapFlags{in: in, column: "pop", k: 3, cmap: "rainbowz"}, want: "colormap"},
		{name: "missing stations", opts: mapFlags{in: in, column: "pop", k: 3, cmap: "Blues", stations: filepath.Join(dir, "none.geojson")}, want: "map: stations"},
		{name: "unsupported input", opts: mapFlags{in: filepath.Join(dir, "tracts.kml"), column: "pop", k: 3, cmap: "Blues"}, want: "unsupported input format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runMap(&bytes.Buffer{}, tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

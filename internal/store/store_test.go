package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/zonemap/internal/crs"
	"github.com/sells-group/zonemap/internal/feature"
	"github.com/sells-group/zonemap/internal/geo"
)

func TestNewRun(t *testing.T) {
	mercator := crs.MustEPSG(crs.WebMercator)
	box := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 1, 0, 1, 1, 0, 1, 0, 0}, []int{10})
	res := &geo.Result{
		Policy: geo.PolicyLargest,
		Assignments: []geo.Assignment{
			{ParcelIndex: 0, DistrictIndex: 1, OverlapArea: 0.5},
			{ParcelIndex: 1, DistrictIndex: geo.NoDistrict},
		},
		Parcels: feature.NewCollection(mercator,
			feature.Feature{ID: "apn-1", Geometry: box},
			feature.Feature{Geometry: box},
		),
		Districts: feature.NewCollection(mercator,
			feature.Feature{ID: "R1", Geometry: box},
			feature.Feature{Geometry: box},
		),
	}

	run := NewRun(res, "parcels.geojson", "zoning.geojson")
	assert.Equal(t, "largest", run.Policy)
	assert.Equal(t, 2, run.ParcelCount)
	assert.Equal(t, 1, run.MatchedCount)
	require.Len(t, run.Rows, 2)

	assert.Equal(t, "apn-1", run.Rows[0].ParcelID)
	require.NotNil(t, run.Rows[0].DistrictIndex)
	assert.Equal(t, 1, *run.Rows[0].DistrictIndex)
	assert.Equal(t, "1", run.Rows[0].DistrictID)
	assert.Equal(t, 0.5, run.Rows[0].OverlapArea)

	assert.Equal(t, "1", run.Rows[1].ParcelID)
	assert.False(t, run.Rows[1].Matched())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck

	runs, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)

	_, err = Open(ctx, "mysql", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}
